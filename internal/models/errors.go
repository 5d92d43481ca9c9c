package models

import "strings"

// ValidationError reports every schema rule a document violated so the
// caller sees all problems at once instead of fixing them one by one.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Fields, ", ")
}
