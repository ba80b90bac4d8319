package cli

import (
	"context"
	"net/http"

	"github.com/majorcontext/ghauth/internal/appauth"
	"github.com/majorcontext/ghauth/internal/config"
	"github.com/majorcontext/ghauth/internal/exchange"
	"github.com/majorcontext/ghauth/internal/keysource"
	"github.com/majorcontext/ghauth/internal/lifecycle"
	"github.com/majorcontext/ghauth/internal/log"
)

// session carries one invocation's state through the lifecycle stages.
// Nothing in it outlives the process.
type session struct {
	cfg       *config.Config
	signer    *appauth.Signer
	exchanger *exchange.Exchanger

	assertion *appauth.Assertion
	identity  appauth.Identity
	token     *exchange.Token
}

// newSession loads config, resolves and parses the private key, and
// builds the signer and exchanger. Key material stays inside the signer.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	log.Debug("configuration loaded", "config", cfg.Redacted(), "key_scheme", keysource.Scheme(cfg.KeyRef))

	pemBytes, err := keysource.Resolve(ctx, cfg.KeyRef)
	if err != nil {
		return nil, err
	}
	key, err := appauth.ParseKey(pemBytes)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		signer: &appauth.Signer{Key: key, AppID: cfg.AppID},
		exchanger: &exchange.Exchanger{
			BaseURL:    cfg.APIBaseURL,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		},
	}, nil
}

func (s *session) wantIdentity() appauth.Identity {
	return appauth.Identity{
		AppID:          s.cfg.AppID,
		Slug:           s.cfg.AppSlug,
		InstallationID: s.cfg.InstallationID,
	}
}

// signStage mints a fresh assertion.
func (s *session) signStage() lifecycle.Stage {
	return lifecycle.Stage{
		Name: "sign",
		To:   lifecycle.StateAssertionBuilt,
		Run: func(ctx context.Context) error {
			assertion, err := s.signer.Sign()
			if err != nil {
				return err
			}
			s.assertion = assertion
			log.Debug("assertion signed", "expires_at", assertion.ExpiresAt)
			return nil
		},
	}
}

// exchangeStage trades the assertion for an installation token, scoped
// to repositories when non-empty.
func (s *session) exchangeStage(repositories []string) lifecycle.Stage {
	return lifecycle.Stage{
		Name: "exchange",
		To:   lifecycle.StateTokenAcquired,
		Run: func(ctx context.Context) error {
			token, err := s.exchanger.Exchange(ctx, s.assertion, s.cfg.InstallationID, repositories)
			if err != nil {
				return err
			}
			s.token = token
			log.Debug("installation token acquired", "expires_at", token.ExpiresAt)
			return nil
		},
	}
}

// validateStage confirms the provider's view of the App matches the
// configuration, then checks the token actually reaches every required
// repository. Until this passes, the token goes nowhere.
func (s *session) validateStage(required []string) lifecycle.Stage {
	return lifecycle.Stage{
		Name: "validate",
		To:   lifecycle.StateIdentityValidated,
		Run: func(ctx context.Context) error {
			identity, err := s.exchanger.ValidateIdentity(ctx, s.assertion, s.wantIdentity())
			if err != nil {
				return err
			}
			s.identity = identity
			log.Debug("identity validated", "app", identity.String())

			if len(required) > 0 {
				if _, err := s.exchanger.VerifyGrants(ctx, s.token, required); err != nil {
					return err
				}
				log.Debug("repository grants verified", "count", len(s.token.GrantedRepositories))
			}
			return nil
		},
	}
}
