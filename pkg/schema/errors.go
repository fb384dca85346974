package schema

import (
	"fmt"
	"strings"
)

// ValidationError lists all constraints the value does not meet.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single failed constraint.
type FieldError struct {
	// Path of the field, JSON names are used, for example "items[0].name".
	Path  string
	Tag   string
	Param string
	Value any
}

func (e FieldError) Error() string {
	rule := e.Tag
	if e.Param != "" {
		rule += "=" + e.Param
	}
	return fmt.Sprintf(`"%s" failed on "%s"`, e.Path, rule)
}

func (e *ValidationError) Error() string {
	var out strings.Builder
	out.WriteString("invalid value:")
	for _, fe := range e.Errors {
		out.WriteString("\n- ")
		out.WriteString(fe.Error())
	}
	return out.String()
}

// Paths returns paths of all invalid fields.
func (e *ValidationError) Paths() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.Path)
	}
	return out
}
