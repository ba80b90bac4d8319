// Package lifecycle sequences the credential stages and enforces the
// fail-closed policy: the first error stops everything, and no stage
// ever runs after a failure.
package lifecycle

import (
	"context"
	"errors"

	"github.com/majorcontext/ghauth/internal/appauth"
	"github.com/majorcontext/ghauth/internal/config"
	"github.com/majorcontext/ghauth/internal/exchange"
	"github.com/majorcontext/ghauth/internal/keysource"
	"github.com/majorcontext/ghauth/internal/log"
)

// State is a point in the credential lifecycle.
type State string

const (
	StateUnauthenticated   State = "unauthenticated"
	StateAssertionBuilt    State = "assertion_built"
	StateTokenAcquired     State = "token_acquired"
	StateIdentityValidated State = "identity_validated"
	StateBridgeInstalled   State = "bridge_installed"
	StateReady             State = "ready"
	StateFailed            State = "failed"
)

// Exit codes, one per failure class. Zero is Ready.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitKey      = 3
	ExitClock    = 4
	ExitExchange = 5
	ExitIdentity = 6
)

// Stage is one transition: run it, and on success the lifecycle is in To.
type Stage struct {
	Name string
	To   State
	Run  func(ctx context.Context) error
}

// Runner executes stages in order. There is no path back from Failed and
// no path that skips a stage.
type Runner struct {
	state State
}

// NewRunner returns a runner in the Unauthenticated state.
func NewRunner() *Runner {
	return &Runner{state: StateUnauthenticated}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Run executes the stages sequentially. The first error moves the
// lifecycle to Failed and is returned unmodified; success ends in Ready.
func (r *Runner) Run(ctx context.Context, stages []Stage) error {
	for _, stage := range stages {
		if err := stage.Run(ctx); err != nil {
			r.state = StateFailed
			log.Debug("lifecycle failed", "stage", stage.Name, "state", string(r.state))
			return err
		}
		r.state = stage.To
		log.Debug("lifecycle advanced", "stage", stage.Name, "state", string(r.state))
	}
	r.state = StateReady
	return nil
}

// ExitCode maps an error to its process exit code. Each failure class
// gets a distinct code so callers can branch without parsing messages.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		configErr   *config.Error
		keyErr      *appauth.KeyError
		clockErr    *appauth.ClockError
		exchangeErr *exchange.ExchangeError
		identityErr *exchange.IdentityMismatchError

		// Key-source failures are key errors for exit purposes: the key
		// could not be obtained.
		schemeErr  *keysource.UnsupportedSchemeError
		refErr     *keysource.InvalidReferenceError
		missingErr *keysource.NotFoundError
		backendErr *keysource.BackendError
	)
	switch {
	case errors.As(err, &configErr):
		return ExitConfig
	case errors.As(err, &keyErr), errors.As(err, &schemeErr), errors.As(err, &refErr),
		errors.As(err, &missingErr), errors.As(err, &backendErr):
		return ExitKey
	case errors.As(err, &clockErr):
		return ExitClock
	case errors.As(err, &identityErr):
		return ExitIdentity
	case errors.As(err, &exchangeErr):
		return ExitExchange
	}
	return ExitFailure
}
