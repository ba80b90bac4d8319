package exchange

import (
	"fmt"
	"strings"
)

// Machine-readable reasons for ExchangeError.
const (
	ReasonHTTPStatus          = "http_status"
	ReasonTimeout             = "timeout"
	ReasonNetwork             = "network"
	ReasonMalformedResponse   = "malformed_response"
	ReasonMissingExpiry       = "missing_expiry"
	ReasonNoRepositories      = "no_repositories"
	ReasonMissingRepositories = "missing_repositories"
)

// ExchangeError is any failure to obtain or verify a token from the
// provider. Callers decide whether to retry; this package never does.
type ExchangeError struct {
	// Reason is one of the Reason* constants.
	Reason string
	// Status is the HTTP status for ReasonHTTPStatus, 0 otherwise.
	Status int
	// Missing lists absent required repositories for
	// ReasonMissingRepositories.
	Missing []string
	Detail  string
	Err     error
}

func (e *ExchangeError) Error() string {
	msg := "token exchange failed (" + e.Reason + ")"
	if e.Status != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.Status)
	}
	if len(e.Missing) > 0 {
		msg += ": missing required repositories: " + strings.Join(e.Missing, ", ")
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// IdentityMismatchError means the provider's view of who signed the
// assertion disagrees with the locally configured App. A stale or wrong
// key authenticating as an unexpected principal surfaces here.
type IdentityMismatchError struct {
	WantAppID int64
	GotAppID  int64
	WantSlug  string
	GotSlug   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("provider identity mismatch: configured app %d (slug %q), provider reports app %d (slug %q)",
		e.WantAppID, e.WantSlug, e.GotAppID, e.GotSlug)
}
