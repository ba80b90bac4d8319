package keysource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	vault "github.com/hashicorp/vault/api"
)

func vaultTestSource(t *testing.T, handler http.HandlerFunc) *VaultSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &VaultSource{
		NewClient: func() (*vault.Client, error) {
			cfg := vault.DefaultConfig()
			cfg.Address = server.URL
			client, err := vault.NewClient(cfg)
			if err != nil {
				return nil, err
			}
			client.SetToken("test-token")
			return client, nil
		},
	}
}

func TestVaultSource_Resolve(t *testing.T) {
	src := vaultTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/github-app" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				// KV v2 nests the fields under a second "data" key
				"data": map[string]any{
					"private_key": "PEM FROM VAULT",
				},
			},
		})
	})

	got, err := src.Resolve(context.Background(), "vault://secret/data/github-app")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(got) != "PEM FROM VAULT" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestVaultSource_ExplicitField(t *testing.T) {
	src := vaultTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"pem": "FIELD PEM",
			},
		})
	})

	got, err := src.Resolve(context.Background(), "vault://secret/github-app#pem")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if string(got) != "FIELD PEM" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestVaultSource_MissingField(t *testing.T) {
	src := vaultTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"other": "value"},
		})
	})

	_, err := src.Resolve(context.Background(), "vault://secret/github-app")
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("Resolve() error = %v, want *NotFoundError", err)
	}
}

func TestVaultSource_InvalidReference(t *testing.T) {
	src := &VaultSource{}
	_, err := src.Resolve(context.Background(), "vault://")
	var ierr *InvalidReferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Resolve() error = %v, want *InvalidReferenceError", err)
	}
}
