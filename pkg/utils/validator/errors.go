package validator

import "strings"

// FieldError describes a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors collects field errors from one validation pass.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// Error joins all messages with "; ".
func (e *ValidationErrors) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any field failed.
func (e *ValidationErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// First returns the first message, or "" when empty.
func (e *ValidationErrors) First() string {
	if !e.HasErrors() {
		return ""
	}
	return e.Errors[0].Message
}

// ForField returns the messages for one field.
func (e *ValidationErrors) ForField(field string) []string {
	if e == nil {
		return nil
	}
	var msgs []string
	for _, fe := range e.Errors {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}
