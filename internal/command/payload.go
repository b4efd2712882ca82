package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

// The classifier hands back a loosely-typed data map per route. Each route
// gets one concrete payload shape here; Normalize coerces and validates at
// this boundary so no downstream component touches the raw map.

// AttendanceCommand backs assignAttendance and editAttendance.
type AttendanceCommand struct {
	ClassName   string
	Date        string
	StartTime   string
	EndTime     string
	Subject     string
	Type        models.ListType
	RollNumbers []string
	Confirmed   bool
}

// FetchCommand backs attendanceFetch.
type FetchCommand struct {
	ClassName  string
	Percentage *int
	AsDocument bool
}

// ParentMessageCommand backs parentMessage.
type ParentMessageCommand struct {
	ClassName  string
	Percentage *int
	Template   string
}

// CreateClassCommand backs createClass.
type CreateClassCommand struct {
	ClassName string
}

// AddStudentCommand backs addStudent.
type AddStudentCommand struct {
	ClassName   string
	RegisterNo  string
	Name        string
	Phone       string
	ParentPhone string
}

// CreateStudentsCommand backs createStudents; student rows arrive separately
// from the decoded spreadsheet, not from the classifier.
type CreateStudentsCommand struct {
	ClassName string
}

// Coercion helpers. The model is instructed to emit canonical keys, but the
// raw JSON is still duck-typed: numbers arrive as float64, lists may mix
// numbers and strings, and key casing drifts.

func stringField(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := lookup(data, key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return formatNumber(t)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

func stringList(data map[string]interface{}, keys ...string) []string {
	for _, key := range keys {
		v, ok := lookup(data, key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case []interface{}:
			out := make([]string, 0, len(t))
			for _, item := range t {
				switch it := item.(type) {
				case string:
					if s := strings.TrimSpace(it); s != "" {
						out = append(out, s)
					}
				case float64:
					out = append(out, formatNumber(it))
				}
			}
			return out
		case string:
			return splitList(t)
		}
	}
	return nil
}

func intField(data map[string]interface{}, keys ...string) *int {
	for _, key := range keys {
		v, ok := lookup(data, key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			n := int(math.Round(t))
			return &n
		case string:
			trimmed := strings.TrimSuffix(strings.TrimSpace(t), "%")
			if n, err := strconv.Atoi(strings.TrimSpace(trimmed)); err == nil {
				return &n
			}
		}
	}
	return nil
}

func boolField(data map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		v, ok := lookup(data, key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			return strings.EqualFold(strings.TrimSpace(t), "true") || strings.EqualFold(strings.TrimSpace(t), "yes")
		}
	}
	return false
}

func lookup(data map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := data[key]; ok {
		return v, true
	}
	for k, v := range data {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// splitList breaks a comma/space-separated roll list string into tokens.
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func missingField(name string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("please mention the %s", name))
}
