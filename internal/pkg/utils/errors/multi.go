package errors

import (
	"strings"
)

// MultiError collects errors, each one is printed as "- <message>" on a separate line.
type MultiError struct {
	prefix string
	errors []error
}

func NewMultiError() *MultiError {
	return &MultiError{}
}

func (e *MultiError) SetPrefix(prefix string) {
	e.prefix = strings.TrimRight(prefix, ".,:") + ":"
}

func (e *MultiError) Append(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		// Flatten nested multi-errors without prefix
		if v, ok := err.(*MultiError); ok && v.prefix == "" {
			e.errors = append(e.errors, v.errors...)
			continue
		}
		e.errors = append(e.errors, err)
	}
}

func (e *MultiError) Len() int {
	return len(e.errors)
}

func (e *MultiError) Unwrap() []error {
	return e.errors
}

// ErrorOrNil returns nil if no error has been appended.
func (e *MultiError) ErrorOrNil() error {
	if e.Len() == 0 {
		return nil
	}
	return e
}

func (e *MultiError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	var lines []string
	for _, err := range e.errors {
		// Indent nested lines
		msg := strings.TrimLeft(err.Error(), "- ")
		msg = strings.ReplaceAll(msg, "\n", "\n  ")
		lines = append(lines, "- "+msg)
	}

	msg := strings.Join(lines, "\n")
	if e.prefix != "" {
		return e.prefix + "\n" + msg
	}
	return msg
}
