package utils

import "fmt"

// OpError tags an error with the agent operation that produced it, e.g.
// "dump.create", plus a short human-facing message.
type OpError struct {
	Op  string
	Msg string
	Err error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Msg
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err under the given operation tag.
func NewOpError(op, msg string, err error) error {
	return &OpError{Op: op, Msg: msg, Err: err}
}
