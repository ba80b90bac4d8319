package keysource

import (
	"context"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultSource reads the key from HashiCorp Vault: vault://PATH#FIELD.
//
// The address comes from VAULT_ADDR. Authentication is VAULT_TOKEN, or
// AppRole when VAULT_ROLE_ID and VAULT_SECRET_ID are both set. FIELD
// defaults to "private_key". KV v2 responses (data nested under "data")
// are unwrapped transparently.
type VaultSource struct {
	// NewClient allows tests to inject a client factory.
	NewClient func() (*vault.Client, error)
}

// Scheme returns "vault".
func (s *VaultSource) Scheme() string {
	return "vault"
}

// Resolve reads PATH from Vault and returns the FIELD value.
func (s *VaultSource) Resolve(ctx context.Context, reference string) ([]byte, error) {
	rest := trimScheme(reference, "vault")
	path, field, _ := strings.Cut(rest, "#")
	if field == "" {
		field = "private_key"
	}
	if path == "" {
		return nil, &InvalidReferenceError{Reference: reference, Reason: "expected vault://PATH#FIELD"}
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}

	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, &BackendError{Backend: "vault", Reason: err.Error()}
	}
	if secret == nil || secret.Data == nil {
		return nil, &NotFoundError{Reference: path, Backend: "vault"}
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	value, ok := data[field].(string)
	if !ok || value == "" {
		return nil, &NotFoundError{Reference: path + "#" + field, Backend: "vault"}
	}
	return []byte(value), nil
}

func (s *VaultSource) client() (*vault.Client, error) {
	if s.NewClient != nil {
		return s.NewClient()
	}

	if os.Getenv(vault.EnvVaultAddress) == "" {
		return nil, &BackendError{
			Backend: "vault",
			Reason:  "VAULT_ADDR is not set",
			Fix:     "export VAULT_ADDR=https://vault.example.com:8200",
		}
	}

	client, err := vault.NewClient(vault.DefaultConfig())
	if err != nil {
		return nil, &BackendError{Backend: "vault", Reason: fmt.Sprintf("creating client: %v", err)}
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		login, err := client.Logical().Write("auth/approle/login", map[string]any{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, &BackendError{Backend: "vault", Reason: fmt.Sprintf("approle login: %v", err)}
		}
		client.SetToken(login.Auth.ClientToken)
	} else if client.Token() == "" {
		return nil, &BackendError{
			Backend: "vault",
			Reason:  "no authentication configured",
			Fix:     "Set VAULT_TOKEN, or VAULT_ROLE_ID and VAULT_SECRET_ID for AppRole login.",
		}
	}

	return client, nil
}
