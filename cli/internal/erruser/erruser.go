// Package erruser provides errors whose Error() returns only a user-facing
// message, keeping command names and exit codes out of the primary line;
// the technical cause stays reachable via Unwrap for trace output.
package erruser

import "errors"

// Err pairs a user-facing message with an optional cause.
type Err struct {
	Msg string
	Err error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying cause for logging or errors.Is checks.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message. A non-nil err is
// wrapped and available via Unwrap; a nil err yields a plain error.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}
