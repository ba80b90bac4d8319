package keysource

import (
	"context"
	"os"
)

// EnvSource reads the key from an environment variable: env://VAR_NAME.
// Useful in CI where the key is injected by the runner's secret store.
type EnvSource struct{}

// Scheme returns "env".
func (s *EnvSource) Scheme() string {
	return "env"
}

// Resolve returns the variable's value as PEM bytes.
func (s *EnvSource) Resolve(ctx context.Context, reference string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := trimScheme(reference, "env")
	if name == "" {
		return nil, &InvalidReferenceError{Reference: reference, Reason: "empty variable name"}
	}

	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil, &NotFoundError{Reference: name, Backend: "environment"}
	}
	return []byte(value), nil
}
