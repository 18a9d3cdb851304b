package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrAuthenticationRequired is returned after a forced logout: the session
// could not be refreshed and the credential store has been cleared. The
// caller must re-authenticate.
var ErrAuthenticationRequired = errors.New("authentication required")

const (
	defaultTimeout = 10 * time.Second

	// expirySkew treats tokens this close to expiry as already expired so a
	// request does not race the server-side check.
	expirySkew = 30 * time.Second

	// maxReportedBody caps how much of an error response body is copied into
	// an audit event.
	maxReportedBody = 4 << 10

	requestIDHeader = "X-Request-ID"
)

// RefreshFunc exchanges a refresh token for a new access token. It is the
// only server call the pipeline makes on its own behalf.
type RefreshFunc func(ctx context.Context, refreshToken string) (accessToken string, err error)

// Client wraps an http.Client with the authentication pipeline.
type Client struct {
	http     *http.Client
	creds    CredentialStore
	refresh  RefreshFunc
	reporter Reporter
	logger   *zap.Logger
	group    singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithReporter(r Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(creds CredentialStore, refresh RefreshFunc, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultTimeout},
		creds:    creds,
		refresh:  refresh,
		reporter: NopReporter{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends the request with the current access token attached. An expired
// token is refreshed before the call; a 401 triggers one refresh-and-retry.
// A request that cannot be (re)authenticated forces a logout and returns
// ErrAuthenticationRequired. Non-auth HTTP errors come back unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)

	tokens := c.creds.Tokens()
	access := tokens.Access

	// No token at all means the caller wants an unauthenticated request.
	if access != "" && tokenExpired(access) {
		refreshed, err := c.refreshAccess(req.Context())
		if err != nil {
			c.forceLogout()
			return nil, ErrAuthenticationRequired
		}
		access = refreshed
	}

	resp, err := c.send(req, access)
	if err != nil {
		c.report(Event{
			RequestID: requestID,
			Action:    ActionAPICallFailed,
			Method:    req.Method,
			URL:       req.URL.String(),
			Details:   map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && access != "" {
		drain(resp)

		refreshed, err := c.refreshAccess(req.Context())
		if err != nil {
			c.forceLogout()
			return nil, ErrAuthenticationRequired
		}

		// Exactly one retry per original request.
		resp, err = c.send(req, refreshed)
		if err != nil {
			c.report(Event{
				RequestID: requestID,
				Action:    ActionAPICallFailed,
				Method:    req.Method,
				URL:       req.URL.String(),
				Details:   map[string]any{"error": err.Error(), "retried": true},
			})
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.forceLogout()
			return nil, ErrAuthenticationRequired
		}
	}

	c.reportOutcome(requestID, req, resp)

	return resp, nil
}

// send issues one attempt. The body is restored from GetBody so the same
// request can be replayed on retry.
func (c *Client) send(req *http.Request, access string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		attempt.Body = body
	}
	if access != "" {
		attempt.Header.Set("Authorization", "Bearer "+access)
	}
	return c.http.Do(attempt)
}

// refreshAccess coalesces concurrent refresh attempts into a single server
// call; all waiters share its outcome.
func (c *Client) refreshAccess(ctx context.Context) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		refresh := c.creds.Tokens().Refresh
		if refresh == "" {
			return "", ErrAuthenticationRequired
		}

		access, err := c.refresh(ctx, refresh)
		if err != nil {
			return "", err
		}

		c.creds.SetAccessToken(access)
		return access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) reportOutcome(requestID string, req *http.Request, resp *http.Response) {
	event := Event{
		RequestID: requestID,
		Method:    req.Method,
		URL:       req.URL.String(),
		Status:    resp.StatusCode,
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		event.Action = ActionUnauthorizedAccess
		event.Details = map[string]any{"body": peekBody(resp)}
	case resp.StatusCode >= http.StatusBadRequest:
		event.Action = ActionAPICallFailed
	default:
		event.Action = ActionAPICallSuccess
		event.Details = map[string]any{"size": resp.ContentLength}
	}

	c.report(event)
}

// report hands the event to the reporter off the request path.
func (c *Client) report(event Event) {
	event.CreatedAt = time.Now()
	go c.reporter.Report(event)
}

func (c *Client) forceLogout() {
	c.creds.Clear()
	c.logger.Warn("session refresh failed, credentials cleared")
}

// tokenExpired checks the token's exp claim locally, without verifying the
// signature. An undecodable token counts as expired so the server never sees
// a token the client already knows is bad.
func tokenExpired(tokenString string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(expirySkew).After(claims.ExpiresAt.Time)
}

// peekBody reads a bounded prefix of the response body and replaces it so
// the caller can still read the full response.
func peekBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportedBody))
	if err != nil {
		return ""
	}
	rest, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), bytes.NewReader(rest)))
	return string(data)
}

func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxReportedBody))
		resp.Body.Close()
	}
}
