package sshutils

import (
	"errors"
	"fmt"
)

// Error kinds shared by the runners and the filesystem. Match with errors.Is.
var (
	ErrConnection      = errors.New("connection error")
	ErrExecution       = errors.New("execution error")
	ErrClosed          = errors.New("resource closed")
	ErrInvalidArgument = errors.New("invalid argument")
)

// OpError records the operation and target that failed together with the
// error kind and the underlying cause. Both the kind and the cause are
// reachable through errors.Is / errors.As.
type OpError struct {
	Op     string
	Target string
	Kind   error
	Err    error
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg += " " + e.Target
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewOpError wraps err with the given kind. An err that already carries the
// same kind is returned as is.
func NewOpError(op, target string, kind, err error) error {
	if err != nil && errors.Is(err, kind) {
		return err
	}
	return &OpError{Op: op, Target: target, Kind: kind, Err: err}
}

// ClosedError is the error returned by any operation on a closed resource.
func ClosedError(op, target string) error {
	return &OpError{Op: op, Target: target, Kind: ErrClosed}
}
