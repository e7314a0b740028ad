// Package gateway is the single egress point for all API calls. Every
// request picks up the current access token from the credential storage at
// dispatch time, and a 401 triggers one coalesced token refresh followed by
// exactly one replay. Token renewal itself goes through the session store,
// which talks to the auth endpoints outside this package's retry chain.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rbacadmin/rbac-console/apimodel"
	"github.com/rbacadmin/rbac-console/credentials"
	"github.com/rbacadmin/rbac-console/notify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRenewalLeeway = 30 * time.Second
)

// Session is the slice of the session store the gateway drives: coalesced
// renewal on 401, and teardown when there is nothing left to renew with.
type Session interface {
	RefreshAccessToken(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Gateway dispatches API requests with bearer credentials attached.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     credentials.Storage
	session    Session
	notifier   notify.Notifier
	logger     zerolog.Logger
	metrics    *Metrics
	limiter    *rate.Limiter

	// onAuthFailure is the redirect-to-login equivalent: invoked when the
	// session cannot be renewed and the caller must re-authenticate.
	onAuthFailure func()

	renewalLeeway time.Duration
	refreshGroup  singleflight.Group
}

// Option modifies a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithTimeout sets the fixed request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.httpClient.Timeout = timeout
	}
}

// WithLogger sets the gateway's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics attaches request counters.
func WithMetrics(metrics *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithRateLimit bounds outbound request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAuthFailureHandler sets the callback invoked when renewal is
// impossible and the user must log in again.
func WithAuthFailureHandler(handler func()) Option {
	return func(g *Gateway) {
		g.onAuthFailure = handler
	}
}

// WithRenewalLeeway sets how close to its expiry a JWT access token may get
// before the gateway renews it ahead of dispatch.
func WithRenewalLeeway(leeway time.Duration) Option {
	return func(g *Gateway) {
		g.renewalLeeway = leeway
	}
}

// New creates a Gateway for the given API base URL.
func New(baseURL string, tokens credentials.Storage, session Session, notifier notify.Notifier, options ...Option) (*Gateway, error) {
	if baseURL == "" {
		return nil, errors.New("[gateway.New] base URL is required")
	}
	if tokens == nil {
		return nil, errors.New("[gateway.New] token storage is required")
	}
	if session == nil {
		return nil, errors.New("[gateway.New] session is required")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	g := &Gateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		tokens:        tokens,
		session:       session,
		notifier:      notifier,
		logger:        zerolog.Nop(),
		onAuthFailure: func() {},
		renewalLeeway: defaultRenewalLeeway,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// attempt carries one request through the retry logic. The retried flag is
// explicit state here rather than a mutation of the http.Request.
type attempt struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	retried bool
}

// Do dispatches one API request and returns the decoded envelope. body, when
// non-nil, is JSON-encoded. See the package comment for the 401 behavior.
func (g *Gateway) Do(ctx context.Context, method, path string, query url.Values, body any) (*apimodel.Envelope, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "[Gateway.Do] rate limit")
		}
	}

	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return nil, errors.Wrap(err, "[Gateway.Do] encode body")
		}
	}

	g.renewIfExpiring(ctx)

	att := &attempt{method: method, path: path, query: query, body: encoded}
	for {
		envelope, retry, err := g.dispatch(ctx, att)
		if err != nil {
			return nil, err
		}
		if !retry {
			return envelope, nil
		}
		att.retried = true
		g.metrics.recordRetry()
	}
}

// dispatch performs one HTTP round trip. retry is true only when the caller
// should replay the request after a successful token refresh.
func (g *Gateway) dispatch(ctx context.Context, att *attempt) (*apimodel.Envelope, bool, error) {
	req, err := g.buildRequest(ctx, att)
	if err != nil {
		return nil, false, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.metrics.recordRequest("network_error")
		g.notifier.Error(fmt.Sprintf("Request failed: %v", err))
		return nil, false, errors.WithMessage(apimodel.NetworkErr, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		g.metrics.recordRequest("network_error")
		return nil, false, errors.WithMessage(apimodel.NetworkErr, err.Error())
	}

	envelope := &apimodel.Envelope{}
	if len(raw) > 0 {
		// A non-envelope body falls through to the transport-level message.
		_ = json.Unmarshal(raw, envelope)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return g.handleUnauthorized(ctx, att, envelope, resp.Status)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Some delete endpoints answer with an empty body.
		if !envelope.Success && len(raw) > 0 {
			g.metrics.recordRequest("error")
			return nil, false, errors.WithMessage(apimodel.UnexpectedErr, messageOrStatus(envelope, resp.Status))
		}
		g.metrics.recordRequest("success")
		return envelope, false, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		g.metrics.recordRequest("client_error")
		msg := messageOrStatus(envelope, resp.Status)
		g.notifier.Error(msg)
		return nil, false, errors.WithMessage(apimodel.ValidationErr, msg)

	default:
		g.metrics.recordRequest("server_error")
		msg := messageOrStatus(envelope, resp.Status)
		g.notifier.Error(msg)
		return nil, false, errors.WithMessage(apimodel.UnexpectedErr, msg)
	}
}

func (g *Gateway) handleUnauthorized(ctx context.Context, att *attempt, envelope *apimodel.Envelope, status string) (*apimodel.Envelope, bool, error) {
	if att.retried {
		// Refresh already succeeded once and the server still says no.
		g.metrics.recordRequest("unauthorized")
		g.notifier.Error("Session expired, please log in again")
		g.onAuthFailure()
		return nil, false, errors.WithMessage(apimodel.AuthorizationErr, messageOrStatus(envelope, status))
	}

	if err := g.refreshShared(ctx); err != nil {
		g.metrics.recordRequest("unauthorized")
		if errors.Is(err, apimodel.NoRefreshTokenErr) {
			// Nothing to renew with. Tear the session down and surface the
			// original authorization failure.
			if logoutErr := g.session.Logout(ctx); logoutErr != nil {
				g.logger.Warn().Err(logoutErr).Msg("logout after missing refresh token")
			}
			g.onAuthFailure()
			return nil, false, errors.WithMessage(apimodel.AuthorizationErr, messageOrStatus(envelope, status))
		}
		// RefreshAccessToken already cleared the session on failure.
		g.onAuthFailure()
		return nil, false, errors.Wrap(err, "[Gateway] token refresh")
	}
	return nil, true, nil
}

// refreshShared coalesces concurrent 401-triggered renewals into a single
// in-flight call; every waiter gets the first caller's result.
func (g *Gateway) refreshShared(ctx context.Context) error {
	_, err, _ := g.refreshGroup.Do("refresh", func() (any, error) {
		g.metrics.recordRefresh()
		return nil, g.session.RefreshAccessToken(ctx)
	})
	return err
}

// renewIfExpiring refreshes ahead of dispatch when the access token is a JWT
// about to expire. Opaque tokens and parse failures skip silently; the 401
// path remains the backstop.
func (g *Gateway) renewIfExpiring(ctx context.Context) {
	pair, err := g.tokens.Get()
	if err != nil || pair == nil || pair.AccessToken == "" {
		return
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if time.Until(exp.Time) > g.renewalLeeway {
		return
	}

	g.logger.Debug().Time("expiry", exp.Time).Msg("access token near expiry, renewing")
	if err := g.refreshShared(ctx); err != nil {
		g.logger.Debug().Err(err).Msg("proactive renewal failed")
	}
}

func (g *Gateway) buildRequest(ctx context.Context, att *attempt) (*http.Request, error) {
	target := g.baseURL + att.path
	if len(att.query) > 0 {
		target += "?" + att.query.Encode()
	}

	var body io.Reader
	if att.body != nil {
		body = bytes.NewReader(att.body)
	}
	req, err := http.NewRequestWithContext(ctx, att.method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway] build request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if att.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Always read the persisted token, never a cached copy: a renewal from
	// another call site must be picked up here.
	pair, err := g.tokens.Get()
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway] read tokens")
	}
	if pair != nil && pair.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	return req, nil
}

func messageOrStatus(envelope *apimodel.Envelope, status string) string {
	if msg := envelope.ErrorMessage(); msg != "" {
		return msg
	}
	return status
}
