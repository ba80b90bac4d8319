package appauth

import (
	"crypto/rsa"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// maxWindow is the longest assertion validity GitHub accepts.
	maxWindow = 10 * time.Minute
	// defaultTTL leaves headroom under maxWindow after backdating.
	defaultTTL = 9 * time.Minute
	// defaultBackdate shifts iat into the past to tolerate clock skew
	// between this host and the provider.
	defaultBackdate = time.Minute
)

// earliestPlausibleNow guards against a badly reset clock. GitHub would
// reject the assertion anyway; failing locally gives a usable diagnostic.
var earliestPlausibleNow = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseKey parses a PEM-encoded RSA private key as supplied by the GitHub
// App registration flow.
func ParseKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	if len(pemBytes) == 0 {
		return nil, &KeyError{Reason: "empty key material"}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, &KeyError{Reason: "not a PEM-encoded RSA private key", Err: err}
	}
	return key, nil
}

// Signer produces RS256 assertions for one App. Each Sign call mints a
// fresh assertion; nothing is cached.
type Signer struct {
	Key   *rsa.PrivateKey
	AppID int64

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
	// TTL is the validity from now; defaults to defaultTTL and is
	// clamped so the whole iat..exp window never exceeds maxWindow.
	TTL time.Duration
	// Backdate shifts iat into the past; defaults to defaultBackdate.
	Backdate time.Duration
}

// Sign builds and signs an assertion. It has no side effects beyond the
// returned value.
func (s *Signer) Sign() (*Assertion, error) {
	if s.Key == nil {
		return nil, &KeyError{Reason: "no key loaded"}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if now.Before(earliestPlausibleNow) {
		return nil, &ClockError{Now: now.UTC().Format(time.RFC3339)}
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	backdate := s.Backdate
	if backdate <= 0 {
		backdate = defaultBackdate
	}
	// Cap the backdate below maxWindow so the clamp leaves a positive
	// ttl and iat stays before exp.
	if backdate >= maxWindow {
		backdate = maxWindow - time.Minute
	}
	if backdate+ttl > maxWindow {
		ttl = maxWindow - backdate
	}

	issuedAt := now.Add(-backdate).Truncate(time.Second)
	expiresAt := now.Add(ttl).Truncate(time.Second)

	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.AppID, 10),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.Key)
	if err != nil {
		return nil, &KeyError{Reason: "signing assertion", Err: err}
	}

	return &Assertion{
		Value:     signed,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
