package keysource

// Error types for key resolution failures. Messages name the reference,
// never the key material.

import "fmt"

// UnsupportedSchemeError indicates an unrecognized reference scheme.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported key source scheme: %s", e.Scheme)
}

// InvalidReferenceError indicates a malformed key reference.
type InvalidReferenceError struct {
	Reference string
	Reason    string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid key reference %q: %s", e.Reference, e.Reason)
}

// NotFoundError indicates the key was not found in the backend.
type NotFoundError struct {
	Reference string
	Backend   string
}

func (e *NotFoundError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("private key not found in %s: %s", e.Backend, e.Reference)
	}
	return fmt.Sprintf("private key not found: %s", e.Reference)
}

// BackendError wraps errors from key backends with actionable context.
type BackendError struct {
	Backend string
	Reason  string
	Fix     string
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Backend, e.Reason)
	if e.Fix != "" {
		msg += "\n\n  " + e.Fix
	}
	return msg
}
