package grading

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSubjectLen = 64

// Subject identifies a subject, e.g. "Mathematics".
type Subject string

// ParseSubject normalizes a user supplied subject name. Surrounding space is
// trimmed and inner runs of whitespace collapse to one space.
func ParseSubject(s string) (Subject, error) {
	name := strings.Join(strings.Fields(s), " ")
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidSubject)
	}
	if utf8.RuneCountInString(name) > maxSubjectLen {
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidSubject, name, maxSubjectLen)
	}
	return Subject(name), nil
}

func (s Subject) String() string { return string(s) }
