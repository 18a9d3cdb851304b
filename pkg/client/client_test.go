package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("local-test-secret"))
	require.NoError(t, err)
	return signed
}

// chanReporter makes the fire-and-forget reports observable in tests.
type chanReporter struct {
	events chan Event
}

func newChanReporter() *chanReporter {
	return &chanReporter{events: make(chan Event, 16)}
}

func (r *chanReporter) Report(event Event) {
	r.events <- event
}

func (r *chanReporter) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return Event{}
	}
}

func TestDo_AttachesTokenAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	access := signedToken(t, time.Now().Add(time.Hour))
	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: access, Refresh: "refresh-1"})

	reporter := newChanReporter()
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		t.Fatal("refresh must not be called for a live token")
		return "", nil
	}, WithReporter(reporter))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/things", nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer "+access, gotAuth)
	assert.NotEmpty(t, gotRequestID)

	event := reporter.next(t)
	assert.Equal(t, ActionAPICallSuccess, event.Action)
	assert.Equal(t, http.StatusOK, event.Status)
	assert.Equal(t, event.RequestID, gotRequestID)
}

func TestDo_NoTokenSendsUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(NewMemoryCredentialStore(), func(ctx context.Context, refreshToken string) (string, error) {
		t.Fatal("refresh must not be called without credentials")
		return "", nil
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_ExpiredTokenRefreshedBeforeCall(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(-time.Minute)), Refresh: "refresh-1"})

	var refreshCalls atomic.Int32
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		refreshCalls.Add(1)
		assert.Equal(t, "refresh-1", refreshToken)
		return fresh, nil
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, fresh, creds.Tokens().Access)
}

func TestDo_RetriesOnceAfter401(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	stale := signedToken(t, time.Now().Add(time.Hour))

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+fresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: stale, Refresh: "refresh-1"})

	var refreshCalls atomic.Int32
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		refreshCalls.Add(1)
		return fresh, nil
	})

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"v":1}`))
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, fresh, creds.Tokens().Access)
}

func TestDo_SecondConsecutive401ForcesLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(time.Hour)), Refresh: "refresh-1"})

	var refreshCalls atomic.Int32
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		refreshCalls.Add(1)
		return signedToken(t, time.Now().Add(time.Hour)), nil
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
	assert.Equal(t, int32(1), refreshCalls.Load(), "no second retry")
	assert.Equal(t, Tokens{}, creds.Tokens(), "credentials cleared")
}

func TestDo_RefreshFailureForcesLogoutWithoutSending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent when refresh fails")
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(-time.Minute)), Refresh: "refresh-1"})

	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		return "", fmt.Errorf("invalid or expired token")
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
	assert.Equal(t, Tokens{}, creds.Tokens())
}

func TestDo_ConcurrentRefreshesCoalesce(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(time.Hour)), Refresh: "refresh-1"})

	var refreshCalls atomic.Int32
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		refreshCalls.Add(1)
		// Hold the in-flight refresh open long enough for every concurrent
		// 401 to join it.
		time.Sleep(250 * time.Millisecond)
		return fresh, nil
	})

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)
			resp, err := c.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load(), "one refresh shared by all callers")
}

func TestDo_Reports403WithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"Forbidden"}`)
	}))
	defer srv.Close()

	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(time.Hour)), Refresh: "refresh-1"})

	reporter := newChanReporter()
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		t.Fatal("403 must not trigger a refresh")
		return "", nil
	}, WithReporter(reporter))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	event := reporter.next(t)
	assert.Equal(t, ActionUnauthorizedAccess, event.Action)
	assert.Contains(t, event.Details["body"], "Forbidden")

	// The body is still readable by the caller after being reported.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Forbidden"}`, string(body))
}

func TestDo_TransportFailureReported(t *testing.T) {
	creds := NewMemoryCredentialStore()
	creds.SetTokens(Tokens{Access: signedToken(t, time.Now().Add(time.Hour)), Refresh: "refresh-1"})

	reporter := newChanReporter()
	c := New(creds, func(ctx context.Context, refreshToken string) (string, error) {
		return "", nil
	}, WithReporter(reporter))

	// Closed server: the dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthenticationRequired, "network errors pass through unchanged")

	event := reporter.next(t)
	assert.Equal(t, ActionAPICallFailed, event.Action)
}

func TestTokenExpired(t *testing.T) {
	assert.True(t, tokenExpired("garbage"))
	assert.True(t, tokenExpired(signedToken(t, time.Now().Add(-time.Minute))))
	assert.True(t, tokenExpired(signedToken(t, time.Now().Add(10*time.Second))), "within skew counts as expired")
	assert.False(t, tokenExpired(signedToken(t, time.Now().Add(time.Hour))))
}
