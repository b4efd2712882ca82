package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	appErrors "github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/errors"
)

// Normalizer post-processes classifier output into canonical, validated
// commands. Pure and deterministic, no I/O.
type Normalizer struct{}

// NewNormalizer constructs the normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var (
	dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

	// threshold phrases must appear in the current utterance; a percentage
	// mentioned in an earlier turn never applies to this one.
	thresholdPattern = regexp.MustCompile(`(?i)(below|less\s+than|under)\s*(\d{1,3})\s*%?`)

	// tokens like "none" or "all present" mean an intentionally empty list.
	emptyListTokens = map[string]struct{}{
		"none": {}, "nil": {}, "no": {}, "nobody": {}, "-": {},
	}
)

// Attendance normalizes assignAttendance / editAttendance payloads.
func (n *Normalizer) Attendance(data map[string]interface{}) (*AttendanceCommand, error) {
	cmd := &AttendanceCommand{
		ClassName: stringField(data, "className", "class"),
		Subject:   stringField(data, "subject", "subjectName"),
		Confirmed: boolField(data, "confirmed"),
	}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}

	date, err := NormalizeDate(stringField(data, "date"))
	if err != nil {
		return nil, err
	}
	cmd.Date = date

	start, err := NormalizeTime(stringField(data, "startTime", "start"))
	if err != nil {
		return nil, err
	}
	cmd.StartTime = start

	end, err := NormalizeTime(stringField(data, "endTime", "end"))
	if err != nil {
		return nil, err
	}
	cmd.EndTime = end

	listType := models.ListType(strings.ToLower(stringField(data, "type", "listType")))
	if listType == "" {
		listType = models.ListTypeAbsentees
	}
	if !listType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown list type %q", listType))
	}
	cmd.Type = listType

	cmd.RollNumbers = ExpandRolls(stringList(data, "rollNumbers", "rolls"))
	return cmd, nil
}

// Fetch normalizes attendanceFetch payloads. The percentage threshold is kept
// only when the current utterance itself carries a threshold phrase.
func (n *Normalizer) Fetch(data map[string]interface{}, utterance string) (*FetchCommand, error) {
	cmd := &FetchCommand{
		ClassName:  stringField(data, "className", "class"),
		AsDocument: boolField(data, "asDocument", "asFile"),
	}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}
	cmd.Percentage = thresholdFrom(data, utterance)
	return cmd, nil
}

// ParentMessage normalizes parentMessage payloads.
func (n *Normalizer) ParentMessage(data map[string]interface{}, utterance string) (*ParentMessageCommand, error) {
	cmd := &ParentMessageCommand{
		ClassName: stringField(data, "className", "class"),
		Template:  stringField(data, "message", "template"),
	}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}
	cmd.Percentage = thresholdFrom(data, utterance)
	return cmd, nil
}

// CreateClass normalizes createClass payloads.
func (n *Normalizer) CreateClass(data map[string]interface{}) (*CreateClassCommand, error) {
	cmd := &CreateClassCommand{ClassName: stringField(data, "className", "class", "name")}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}
	return cmd, nil
}

// AddStudent normalizes addStudent payloads.
func (n *Normalizer) AddStudent(data map[string]interface{}) (*AddStudentCommand, error) {
	cmd := &AddStudentCommand{
		ClassName:   stringField(data, "className", "class"),
		RegisterNo:  stringField(data, "registerNumber", "registerNo", "rollNumber"),
		Name:        stringField(data, "name", "studentName"),
		Phone:       stringField(data, "phone"),
		ParentPhone: stringField(data, "parentPhone", "parentNumber"),
	}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}
	if cmd.RegisterNo == "" {
		return nil, missingField("register number")
	}
	if cmd.Name == "" {
		return nil, missingField("student name")
	}
	return cmd, nil
}

// CreateStudents normalizes createStudents payloads.
func (n *Normalizer) CreateStudents(data map[string]interface{}) (*CreateStudentsCommand, error) {
	cmd := &CreateStudentsCommand{ClassName: stringField(data, "className", "class")}
	if cmd.ClassName == "" {
		return nil, missingField("class name")
	}
	return cmd, nil
}

// NormalizeDate canonicalizes DD-MM-YYYY, DD/MM/YYYY and YYYY-MM-DD inputs
// to YYYY-MM-DD. An empty input defaults to today.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "today") {
		return time.Now().Format("2006-01-02"), nil
	}
	if strings.EqualFold(raw, "yesterday") {
		return time.Now().AddDate(0, 0, -1).Format("2006-01-02"), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("could not understand the date %q", raw))
}

// NormalizeTime canonicalizes inputs such as "9.00am", "9:00 AM" and "09:00"
// to 24-hour HH:MM.
func NormalizeTime(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ".", ":"))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return "", missingField("time")
	}
	for _, layout := range []string{"15:04", "3:04PM", "3PM", "15"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("could not understand the time %q", raw))
}

// ExpandRolls applies roll-number shorthand left-to-right: a bare digit
// sequence following a full register number inherits that register's prefix,
// replacing its trailing digits. A new full token resets the carried prefix.
// Filler tokens ("none", "all present") are dropped, yielding an empty list.
func ExpandRolls(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	carried := ""
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, skip := emptyListTokens[strings.ToLower(tok)]; skip {
			continue
		}
		if isDigits(tok) {
			if carried != "" && len(tok) < len(carried) {
				// never splice past the carried register's trailing digit run
				cut := len(tok)
				if run := trailingDigits(carried); cut > run {
					cut = run
				}
				out = append(out, carried[:len(carried)-cut]+tok)
				continue
			}
			out = append(out, tok)
			continue
		}
		if !containsDigit(tok) {
			// free text the classifier failed to scrub ("all", "present")
			continue
		}
		carried = strings.ToUpper(tok)
		out = append(out, carried)
	}
	return out
}

// thresholdFrom returns the extracted percentage only when the current
// utterance contains an explicit threshold qualifier; otherwise nil, so a
// value from earlier conversation context never leaks in.
func thresholdFrom(data map[string]interface{}, utterance string) *int {
	match := thresholdPattern.FindStringSubmatch(utterance)
	if match == nil {
		return nil
	}
	if p := intField(data, "percentage", "threshold"); p != nil {
		return p
	}
	var n int
	_, err := fmt.Sscanf(match[2], "%d", &n)
	if err != nil {
		return nil
	}
	return &n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func trailingDigits(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		n++
	}
	return n
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
