package keysource

import (
	"context"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringSource reads the key from the OS keychain: keyring://SERVICE/ACCOUNT.
//
// Platform support follows go-keyring: macOS Keychain, Windows Credential
// Manager, libsecret/kwallet/pass on Linux. The key is stored by the
// operator (e.g. `security add-generic-password` on macOS); this source
// only ever reads.
type KeyringSource struct{}

// Scheme returns "keyring".
func (s *KeyringSource) Scheme() string {
	return "keyring"
}

// Resolve looks up SERVICE/ACCOUNT in the system keychain.
func (s *KeyringSource) Resolve(ctx context.Context, reference string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rest := trimScheme(reference, "keyring")
	service, account, ok := strings.Cut(rest, "/")
	if !ok || service == "" || account == "" {
		return nil, &InvalidReferenceError{
			Reference: reference,
			Reason:    "expected keyring://SERVICE/ACCOUNT",
		}
	}

	secret, err := keyring.Get(service, account)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, &NotFoundError{Reference: rest, Backend: "system keychain"}
		}
		return nil, &BackendError{
			Backend: "system keychain",
			Reason:  err.Error(),
			Fix:     "On Linux, a Secret Service provider (gnome-keyring, kwallet) must be running.",
		}
	}
	return []byte(secret), nil
}
