package models

import (
	"strings"
	"time"
)

// Student belongs to exactly one class. RegisterNo is the roll identifier,
// unique within the class. Phone numbers are optional contact handles.
type Student struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	RegisterNo  string    `db:"register_no" json:"register_no"`
	Name        string    `db:"name" json:"name"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	ParentPhone *string   `db:"parent_phone" json:"parent_phone,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RollKey extracts the identifying token used for shorthand matching: the
// trailing digit run of the register number, with leading zeros dropped.
// "23B91A0738" yields "738"; a purely numeric register "07" yields "7".
func (s Student) RollKey() string {
	return RollKey(s.RegisterNo)
}

// RollKey derives the roll key for an arbitrary register token.
func RollKey(registerNo string) string {
	trimmed := strings.TrimSpace(registerNo)
	end := len(trimmed)
	start := end
	for start > 0 && trimmed[start-1] >= '0' && trimmed[start-1] <= '9' {
		start--
	}
	digits := trimmed[start:end]
	digits = strings.TrimLeft(digits, "0")
	if digits == "" && start != end {
		return "0"
	}
	return digits
}
