package types

import "fmt"

// ParseError is returned when text cannot be decoded into a tuple.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Text, e.Reason)
}
