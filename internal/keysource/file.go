package keysource

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the key from a local file. Handles both file://path
// references and bare paths.
type FileSource struct{}

// Scheme returns "file".
func (s *FileSource) Scheme() string {
	return "file"
}

// Resolve reads the file, refusing group- or world-readable keys.
func (s *FileSource) Resolve(ctx context.Context, reference string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := trimScheme(reference, "file")
	if path == "" {
		return nil, &InvalidReferenceError{Reference: reference, Reason: "empty path"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Reference: path, Backend: "filesystem"}
		}
		return nil, &BackendError{Backend: "filesystem", Reason: err.Error()}
	}
	if perm := info.Mode().Perm(); perm&0044 != 0 {
		return nil, &BackendError{
			Backend: "filesystem",
			Reason:  fmt.Sprintf("%s has permissions %04o; private keys must not be readable by other users", path, perm),
			Fix:     fmt.Sprintf("chmod 600 %s", path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &BackendError{Backend: "filesystem", Reason: err.Error()}
	}
	return data, nil
}
