package utils

import (
	"errors"
	"fmt"
)

// OpError wraps an operation name, human-facing message, and underlying error.
type OpError struct {
	Op  string
	Msg string
	Err error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError constructs an OpError.
func NewOpError(op, msg string, err error) error {
	return &OpError{Op: op, Msg: msg, Err: err}
}

// OpOf returns the innermost operation recorded in err's chain, or "".
func OpOf(err error) string {
	op := ""
	for err != nil {
		var target *OpError
		if !errors.As(err, &target) {
			break
		}
		op = target.Op
		err = target.Err
	}
	return op
}
