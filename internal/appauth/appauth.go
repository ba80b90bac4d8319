// Package appauth builds and signs the short-lived JWT assertion a GitHub
// App presents to mint installation tokens.
package appauth

import (
	"fmt"
	"strconv"
	"time"
)

// Identity names the App and installation this process authenticates as.
// Loaded once from configuration; treated as immutable.
type Identity struct {
	AppID          int64
	Slug           string
	InstallationID int64
}

// BotLogin returns the login GitHub assigns to the App's bot user.
func (id Identity) BotLogin() string {
	return id.Slug + "[bot]"
}

// String returns a loggable form. Safe for diagnostics.
func (id Identity) String() string {
	if id.Slug == "" {
		return strconv.FormatInt(id.AppID, 10)
	}
	return fmt.Sprintf("%s (%d)", id.Slug, id.AppID)
}

// Assertion is a signed, time-bounded identity claim. Value is the
// compact JWS; it is valid for at most ten minutes and is never reused
// across invocations.
type Assertion struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
