// Package gateway talks to a remote identity backend over HTTP.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
)

// ErrRequestFailed is returned when the backend cannot be reached or
// answers without a usable body.
var ErrRequestFailed = errors.New("identity backend request failed")

// HeaderClientID forwards the auth screen's client id to the backend.
const HeaderClientID = "X-Client-ID"

// CredentialsProvider is the provider name used for email/password sign-in.
const CredentialsProvider = "credentials"

// HTTPGateway implements authflow.RegistrationGateway and
// authflow.SignInGateway against a remote backend.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// Option configures an HTTPGateway.
type Option func(*HTTPGateway)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(g *HTTPGateway) {
		g.client = client
	}
}

// New creates a gateway for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type signInPayload struct {
	authflow.CredentialRecord
	Redirect bool `json:"redirect"`
}

// Register posts the record to /api/register. Any 2xx status is success.
func (g *HTTPGateway) Register(ctx context.Context, record authflow.CredentialRecord) error {
	resp, err := g.post(ctx, "/api/register", record)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: register returned status %d", ErrRequestFailed, resp.StatusCode)
	}
	return nil
}

// SignInWithCredentials posts the record to /api/auth/signin/credentials.
func (g *HTTPGateway) SignInWithCredentials(ctx context.Context, record authflow.CredentialRecord, opts authflow.SignInOptions) (authflow.Outcome, error) {
	return g.signIn(ctx, CredentialsProvider, signInPayload{CredentialRecord: record, Redirect: opts.Redirect})
}

// SignInWithProvider posts to /api/auth/signin/{provider}.
func (g *HTTPGateway) SignInWithProvider(ctx context.Context, provider string, opts authflow.SignInOptions) (authflow.Outcome, error) {
	return g.signIn(ctx, provider, authflow.SignInOptions{Redirect: opts.Redirect})
}

func (g *HTTPGateway) signIn(ctx context.Context, provider string, payload interface{}) (authflow.Outcome, error) {
	resp, err := g.post(ctx, "/api/auth/signin/"+url.PathEscape(provider), payload)
	if err != nil {
		return authflow.Outcome{}, err
	}
	defer resp.Body.Close()

	// Rejections come back as 4xx with an outcome body.
	var outcome authflow.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return authflow.Outcome{}, fmt.Errorf("%w: sign-in returned status %d without an outcome", ErrRequestFailed, resp.StatusCode)
	}
	// A non-2xx answer only counts as a rejection when it names an error code.
	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && outcome.Error == "" {
		return authflow.Outcome{}, fmt.Errorf("%w: sign-in returned status %d", ErrRequestFailed, resp.StatusCode)
	}
	return outcome, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if clientID := sessionwatch.ClientIDFromContext(ctx); clientID != "" {
		req.Header.Set(HeaderClientID, clientID)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return resp, nil
}
