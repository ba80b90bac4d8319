package appauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return key, pem.EncodeToMemory(block)
}

func TestParseKey(t *testing.T) {
	key, pemBytes := testKey(t)

	parsed, err := ParseKey(pemBytes)
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	if parsed.N.Cmp(key.N) != 0 {
		t.Error("parsed key does not match generated key")
	}
}

func TestParseKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		pem  []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a key")},
		{"wrong pem type", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKey(tt.pem)
			var kerr *KeyError
			if !errors.As(err, &kerr) {
				t.Fatalf("ParseKey() error = %v, want *KeyError", err)
			}
		})
	}
}

func TestSigner_Sign(t *testing.T) {
	key, _ := testKey(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	signer := &Signer{
		Key:   key,
		AppID: 12345,
		Now:   func() time.Time { return now },
	}

	assertion, err := signer.Sign()
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	// The window must never exceed ten minutes, backdate included.
	if window := assertion.ExpiresAt.Sub(assertion.IssuedAt); window > 10*time.Minute {
		t.Errorf("assertion window = %v, want <= 10m", window)
	}
	if !assertion.IssuedAt.Before(now) {
		t.Errorf("IssuedAt = %v, want backdated before %v", assertion.IssuedAt, now)
	}

	// Verify the signature and claims against the public key, the same
	// check the provider performs.
	parsed, err := jwt.ParseWithClaims(assertion.Value, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodRS256 {
			t.Errorf("alg = %v, want RS256", tok.Method)
		}
		return &key.PublicKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("parsing signed assertion: %v", err)
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.Issuer != "12345" {
		t.Errorf("iss = %q, want %q", claims.Issuer, "12345")
	}
	if got := claims.IssuedAt.Time; !got.Equal(assertion.IssuedAt) {
		t.Errorf("iat = %v, want %v", got, assertion.IssuedAt)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(assertion.ExpiresAt) {
		t.Errorf("exp = %v, want %v", got, assertion.ExpiresAt)
	}
}

func TestSigner_FreshPerCall(t *testing.T) {
	key, _ := testKey(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	signer := &Signer{Key: key, AppID: 1, Now: func() time.Time { return now }}

	first, err := signer.Sign()
	if err != nil {
		t.Fatal(err)
	}

	// A second call one second later must produce a distinct assertion.
	now = now.Add(time.Second)
	second, err := signer.Sign()
	if err != nil {
		t.Fatal(err)
	}

	if first.Value == second.Value {
		t.Error("two Sign() calls produced identical assertions")
	}
	if !second.IssuedAt.After(first.IssuedAt) {
		t.Errorf("second IssuedAt %v not after first %v", second.IssuedAt, first.IssuedAt)
	}
}

func TestSigner_ClampsWindow(t *testing.T) {
	key, _ := testKey(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	signer := &Signer{
		Key:      key,
		AppID:    1,
		Now:      func() time.Time { return now },
		TTL:      30 * time.Minute,
		Backdate: 2 * time.Minute,
	}

	assertion, err := signer.Sign()
	if err != nil {
		t.Fatal(err)
	}
	if window := assertion.ExpiresAt.Sub(assertion.IssuedAt); window > 10*time.Minute {
		t.Errorf("window = %v, want clamped to <= 10m", window)
	}
}

func TestSigner_ExcessiveBackdate(t *testing.T) {
	key, _ := testKey(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	signer := &Signer{
		Key:      key,
		AppID:    1,
		Now:      func() time.Time { return now },
		Backdate: 15 * time.Minute,
	}

	assertion, err := signer.Sign()
	if err != nil {
		t.Fatal(err)
	}
	if !assertion.IssuedAt.Before(assertion.ExpiresAt) {
		t.Errorf("IssuedAt %v not before ExpiresAt %v", assertion.IssuedAt, assertion.ExpiresAt)
	}
	if !assertion.ExpiresAt.After(now) {
		t.Errorf("ExpiresAt = %v, want after %v", assertion.ExpiresAt, now)
	}
	if window := assertion.ExpiresAt.Sub(assertion.IssuedAt); window > 10*time.Minute {
		t.Errorf("window = %v, want <= 10m", window)
	}
}

func TestSigner_ClockError(t *testing.T) {
	key, _ := testKey(t)
	signer := &Signer{
		Key:   key,
		AppID: 1,
		Now:   func() time.Time { return time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	_, err := signer.Sign()
	var cerr *ClockError
	if !errors.As(err, &cerr) {
		t.Fatalf("Sign() error = %v, want *ClockError", err)
	}
}

func TestSigner_NoKey(t *testing.T) {
	signer := &Signer{AppID: 1}
	_, err := signer.Sign()
	var kerr *KeyError
	if !errors.As(err, &kerr) {
		t.Fatalf("Sign() error = %v, want *KeyError", err)
	}
}

func TestIdentity_BotLogin(t *testing.T) {
	id := Identity{AppID: 12345, Slug: "myapp", InstallationID: 1}
	if got := id.BotLogin(); got != "myapp[bot]" {
		t.Errorf("BotLogin() = %q, want %q", got, "myapp[bot]")
	}
}
