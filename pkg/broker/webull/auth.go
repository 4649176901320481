package webull

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Request signing follows the Webull OpenAPI scheme: every request carries
// the app key, a millisecond timestamp, a random nonce and an HMAC-SHA256
// signature over those values plus the method, path and body, keyed by the
// app secret. Authenticated endpoints additionally carry the session token.

const (
	headerAppKey      = "x-app-key"
	headerSignature   = "x-signature"
	headerTimestamp   = "x-timestamp"
	headerNonce       = "x-nonce"
	headerAccessToken = "x-access-token"

	// sessionExpirySkew forces a refresh slightly before the advertised
	// expiry so in-flight requests do not race the deadline.
	sessionExpirySkew = 30 * time.Second
)

// Credentials holds the API application material issued by Webull Japan.
type Credentials struct {
	AppKey    string
	AppSecret string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.AppKey) == "" {
		return fmt.Errorf("webull: app key is required")
	}
	if strings.TrimSpace(c.AppSecret) == "" {
		return fmt.Errorf("webull: app secret is required")
	}
	return nil
}

// Session is a short-lived access token. It lives in memory only; callers
// that want persistence across restarts must arrange it themselves.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the session can still be used at instant now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return now.Before(s.ExpiresAt.Add(-sessionExpirySkew))
}

// signRequest computes the request signature and attaches auth headers.
func (c *Client) signRequest(req *http.Request, body []byte, nonce string, now time.Time) {
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	payload := strings.Join([]string{
		c.creds.AppKey,
		req.Method,
		req.URL.Path,
		timestamp,
		nonce,
		string(body),
	}, "\n")

	mac := hmac.New(sha256.New, []byte(c.creds.AppSecret))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	req.Header.Set(headerAppKey, c.creds.AppKey)
	req.Header.Set(headerTimestamp, timestamp)
	req.Header.Set(headerNonce, nonce)
	req.Header.Set(headerSignature, signature)
}

func newNonce() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to a
		// time-derived nonce rather than panicking inside a request path.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf[:])
}

// ensureSession returns a valid access token, issuing or refreshing the
// session when needed. Concurrent callers that discover an expired session
// coalesce into a single token request via the single-flight group.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.sessionMu.RLock()
	session := c.session
	c.sessionMu.RUnlock()
	if session.Valid(c.clock()) {
		return session.AccessToken, nil
	}
	return c.refreshSession(ctx)
}

// refreshSession unconditionally obtains a fresh session. All concurrent
// waiters share one in-flight token request and its result.
func (c *Client) refreshSession(ctx context.Context) (string, error) {
	token, err := c.sessionFlight.Do("session", func() (interface{}, error) {
		// A waiter that queued behind a completed refresh can reuse it.
		c.sessionMu.RLock()
		current := c.session
		c.sessionMu.RUnlock()
		if current.Valid(c.clock()) {
			return current.AccessToken, nil
		}

		var resp tokenResponse
		if err := c.send(ctx, epAuthToken, nil, map[string]string{"app_key": c.creds.AppKey}, &resp, ""); err != nil {
			return nil, err
		}
		if resp.AccessToken == "" {
			return nil, fmt.Errorf("webull: token response missing access_token")
		}
		expiresIn := resp.ExpiresIn
		if expiresIn <= 0 {
			expiresIn = 1800
		}
		session := &Session{
			AccessToken: resp.AccessToken,
			ExpiresAt:   c.clock().Add(time.Duration(expiresIn) * time.Second),
		}
		c.sessionMu.Lock()
		c.session = session
		c.sessionMu.Unlock()
		return session.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// InvalidateSession drops the current session. The next request will obtain
// a new one. Used on logout and when the remote reports the token expired.
func (c *Client) InvalidateSession() {
	c.sessionMu.Lock()
	c.session = nil
	c.sessionMu.Unlock()
}
