package appauth

import "fmt"

// KeyError indicates the signing key could not be read or parsed.
// The message never includes key material.
type KeyError struct {
	Reason string
	Err    error
}

func (e *KeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing key: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing key: %s", e.Reason)
}

func (e *KeyError) Unwrap() error { return e.Err }

// ClockError indicates the local clock cannot be trusted to produce a
// valid assertion window.
type ClockError struct {
	Now string
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("system clock reads %s, refusing to sign a time-bounded assertion", e.Now)
}
