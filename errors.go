// Failure kinds reported by the copy pipeline.
package main

import (
	"context"
	"errors"
	"net"
	"os"
)

// Each failure returned by the copier matches exactly one of the kind
// sentinels below via errors.Is. Transfer failures caused by a timeout also
// match ErrTimeout.
var (
	ErrInvalidAddress      = errors.New("invalid address")
	ErrUnresolvableAddress = errors.New("unresolvable address")
	ErrTransfer            = errors.New("transfer failed")
	ErrTimeout             = errors.New("timed out")
	ErrWrite               = errors.New("write failed")
)

// copyError records which pipeline step failed, the failure kind and the
// underlying cause.
type copyError struct {
	kind    error
	step    string
	timeout bool
	err     error
}

func (e *copyError) Error() string {
	msg := e.kind.Error()
	if e.timeout {
		msg += " (" + ErrTimeout.Error() + ")"
	}
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *copyError) Unwrap() error { return e.err }

func (e *copyError) Is(target error) bool {
	if target == e.kind {
		return true
	}
	return e.timeout && target == ErrTimeout
}

func invalidAddress(err error) error {
	return &copyError{kind: ErrInvalidAddress, step: "parse", err: err}
}

func unresolvable(step string, err error) error {
	return &copyError{kind: ErrUnresolvableAddress, step: step, err: err}
}

func transferError(err error) error {
	return &copyError{kind: ErrTransfer, step: "fetch", timeout: isTimeout(err), err: err}
}

func writeError(err error) error {
	return &copyError{kind: ErrWrite, step: "save", err: err}
}

// isTimeout reports whether err was caused by a deadline: a client timeout,
// a dial timeout or an expired context.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// failedStep returns the pipeline step that produced err, or "" if err did
// not come from the copier.
func failedStep(err error) string {
	var ce *copyError
	if errors.As(err, &ce) {
		return ce.step
	}
	return ""
}
