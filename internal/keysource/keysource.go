// Package keysource resolves a private-key reference to PEM bytes.
//
// References are URIs dispatched by scheme: file://, env://, keyring://,
// vault://, ssm://. A reference with no scheme is treated as a file path.
// Resolved key material lives only in memory; no source ever writes it
// anywhere.
package keysource

import (
	"context"
	"strings"
	"sync"
)

// Source resolves one reference scheme to private key material.
type Source interface {
	// Scheme returns the URI scheme this source handles (e.g. "file").
	Scheme() string

	// Resolve fetches the PEM-encoded key for the given reference.
	// The reference is the full URI (e.g. "vault://secret/github#key").
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

var (
	sources = make(map[string]Source)
	mu      sync.RWMutex
)

// Register adds a source to the registry.
func Register(s Source) {
	mu.Lock()
	defer mu.Unlock()
	sources[s.Scheme()] = s
}

// Resolve dispatches to the source for the reference's scheme. A bare
// path (no scheme) resolves through the file source.
func Resolve(ctx context.Context, reference string) ([]byte, error) {
	if reference == "" {
		return nil, &InvalidReferenceError{Reference: reference, Reason: "empty reference"}
	}

	scheme := parseScheme(reference)
	if scheme == "" {
		scheme = "file"
	}

	mu.RLock()
	s, ok := sources[scheme]
	mu.RUnlock()

	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}

	return s.Resolve(ctx, reference)
}

// Scheme returns the scheme of a reference, or "file" for bare paths.
// Used for redacted logging: the scheme is the only loggable part.
func Scheme(reference string) string {
	if s := parseScheme(reference); s != "" {
		return s
	}
	return "file"
}

func parseScheme(ref string) string {
	idx := strings.Index(ref, "://")
	if idx < 1 {
		return ""
	}
	return ref[:idx]
}

// trimScheme strips "scheme://" from a reference.
func trimScheme(ref, scheme string) string {
	return strings.TrimPrefix(ref, scheme+"://")
}

// clearRegistry removes all registered sources. For testing only.
func clearRegistry() {
	mu.Lock()
	defer mu.Unlock()
	sources = make(map[string]Source)
}

func init() {
	Register(&FileSource{})
	Register(&EnvSource{})
	Register(&KeyringSource{})
	Register(&VaultSource{})
	Register(&SSMSource{})
}
