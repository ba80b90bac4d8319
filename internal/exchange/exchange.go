// Package exchange presents a signed App assertion to the provider and
// returns a scoped, short-lived installation token.
//
// Every call is a single request with a bounded timeout. Nothing here
// retries; a failed exchange is the caller's decision to repeat or not.
package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/majorcontext/ghauth/internal/appauth"
)

// Token is an installation access token as issued by the provider. It is
// owned by this process and must never be written to durable storage.
type Token struct {
	Value     string
	ExpiresAt time.Time
	// GrantedRepositories is the set of owner/name full names the token
	// can reach, when the provider reports one.
	GrantedRepositories []string
}

// Exchanger talks to the provider's app and installation endpoints.
// The zero value targets the public GitHub API with default timeouts.
type Exchanger struct {
	// BaseURL overrides the API endpoint (tests, GitHub Enterprise).
	BaseURL string
	// HTTPClient is the underlying client; set a Timeout on it to bound
	// each call. Defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

func (e *Exchanger) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// githubClient builds a go-github client authenticated with bearer.
// oauth2.NewClient would discard the base client's Timeout, so the
// transport is assembled by hand.
func (e *Exchanger) githubClient(bearer string) (*github.Client, error) {
	base := e.httpClient()
	authed := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
	}
	client := github.NewClient(authed)

	if e.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(e.BaseURL, "/") + "/")
		if err != nil {
			return nil, &ExchangeError{Reason: ReasonMalformedResponse, Detail: "invalid API base URL", Err: err}
		}
		client.BaseURL = u
	}
	return client, nil
}

// ValidateIdentity asks the provider who the assertion authenticates as
// and compares it against the configured App. Returns the
// provider-confirmed identity (with the slug filled in) on success.
//
// This runs before any token is minted: a stale or swapped key fails
// here instead of silently acting as the wrong principal.
func (e *Exchanger) ValidateIdentity(ctx context.Context, assertion *appauth.Assertion, want appauth.Identity) (appauth.Identity, error) {
	client, err := e.githubClient(assertion.Value)
	if err != nil {
		return appauth.Identity{}, err
	}

	app, _, err := client.Apps.Get(ctx, "")
	if err != nil {
		return appauth.Identity{}, classify(err)
	}

	got := appauth.Identity{
		AppID:          app.GetID(),
		Slug:           app.GetSlug(),
		InstallationID: want.InstallationID,
	}
	if got.AppID != want.AppID || got.Slug == "" || (want.Slug != "" && got.Slug != want.Slug) {
		return appauth.Identity{}, &IdentityMismatchError{
			WantAppID: want.AppID,
			GotAppID:  got.AppID,
			WantSlug:  want.Slug,
			GotSlug:   got.Slug,
		}
	}
	return got, nil
}

// Exchange presents the assertion and returns an installation token.
// When repositories is non-empty the token is scoped to those
// repositories (given as owner/name full names).
func (e *Exchanger) Exchange(ctx context.Context, assertion *appauth.Assertion, installationID int64, repositories []string) (*Token, error) {
	client, err := e.githubClient(assertion.Value)
	if err != nil {
		return nil, err
	}

	var opts *github.InstallationTokenOptions
	if len(repositories) > 0 {
		opts = &github.InstallationTokenOptions{Repositories: repoNames(repositories)}
	}

	issued, _, err := client.Apps.CreateInstallationToken(ctx, installationID, opts)
	if err != nil {
		return nil, classify(err)
	}

	if issued.GetToken() == "" {
		return nil, &ExchangeError{Reason: ReasonMalformedResponse, Detail: "response has no token"}
	}
	expiresAt := issued.GetExpiresAt().Time
	if expiresAt.IsZero() {
		return nil, &ExchangeError{Reason: ReasonMissingExpiry, Detail: "response has no expires_at"}
	}

	var granted []string
	for _, repo := range issued.Repositories {
		if name := repo.GetFullName(); name != "" {
			granted = append(granted, name)
		}
	}
	if len(repositories) > 0 && len(granted) == 0 {
		return nil, &ExchangeError{Reason: ReasonNoRepositories, Detail: "scoped token grants zero repositories"}
	}

	return &Token{
		Value:               issued.GetToken(),
		ExpiresAt:           expiresAt,
		GrantedRepositories: granted,
	}, nil
}

// VerifyGrants lists the repositories visible to the freshly minted token
// and fails when any required owner/name full name is absent. The
// returned slice is the full granted set, and is also stored on the
// token.
func (e *Exchanger) VerifyGrants(ctx context.Context, token *Token, required []string) ([]string, error) {
	client, err := e.githubClient(token.Value)
	if err != nil {
		return nil, err
	}

	var granted []string
	opt := &github.ListOptions{PerPage: 100}
	for {
		list, resp, err := client.Apps.ListRepos(ctx, opt)
		if err != nil {
			return nil, classify(err)
		}
		for _, repo := range list.Repositories {
			granted = append(granted, repo.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	have := make(map[string]bool, len(granted))
	for _, name := range granted {
		have[name] = true
	}
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ExchangeError{Reason: ReasonMissingRepositories, Missing: missing}
	}

	token.GrantedRepositories = granted
	return granted, nil
}

// repoNames strips owners: the installation token endpoint takes bare
// repository names.
func repoNames(fullNames []string) []string {
	names := make([]string, 0, len(fullNames))
	for _, full := range fullNames {
		if _, name, ok := strings.Cut(full, "/"); ok {
			names = append(names, name)
		} else {
			names = append(names, full)
		}
	}
	return names
}

// classify maps transport and provider errors onto ExchangeError reasons.
func classify(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &ExchangeError{Reason: ReasonHTTPStatus, Status: status, Detail: ghErr.Message, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ExchangeError{Reason: ReasonTimeout, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &ExchangeError{Reason: ReasonTimeout, Err: err}
		}
		return &ExchangeError{Reason: ReasonNetwork, Err: err}
	}

	return &ExchangeError{Reason: ReasonMalformedResponse, Err: err}
}
