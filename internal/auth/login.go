package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/PentesterFlow/APIProbe/internal/errors"
	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

// DefaultLoginPath is the login endpoint relative to the base URL.
const DefaultLoginPath = "/api/v1/auth/login"

// DefaultTokenField is the JSON field holding the issued token.
const DefaultTokenField = "access_token"

// TokenLoginAuth exchanges username and password for a bearer token via a
// form-encoded POST.
type TokenLoginAuth struct {
	mu         sync.RWMutex
	transport  probehttp.Transport
	loginPath  string
	tokenField string
	username   string
	password   string
	token      string
	expiry     time.Time
}

// NewTokenLoginAuth creates a new token login provider.
func NewTokenLoginAuth(creds Credentials, transport probehttp.Transport) *TokenLoginAuth {
	auth := &TokenLoginAuth{
		transport:  transport,
		loginPath:  DefaultLoginPath,
		tokenField: DefaultTokenField,
		username:   creds.Username,
		password:   creds.Password,
	}
	if creds.LoginPath != "" {
		auth.loginPath = creds.LoginPath
	}
	if creds.TokenField != "" {
		auth.tokenField = creds.TokenField
	}
	return auth
}

// Authenticate performs the login. Only HTTP 200 is accepted; anything else
// is an auth error carrying the status and raw body.
func (l *TokenLoginAuth) Authenticate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.username == "" {
		return errors.NewConfigError("username", "is required")
	}
	if l.password == "" {
		return errors.NewConfigError("password", "is required")
	}
	if l.transport == nil {
		return errors.NewConfigError("transport", "is required")
	}

	resp, err := l.transport.Post(ctx, l.loginPath, url.Values{
		"username": {l.username},
		"password": {l.password},
	})
	if err != nil {
		return err
	}

	if resp.StatusCode != 200 {
		return errors.NewAuthError(resp.URL, resp.StatusCode, resp.Text())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return errors.NewDecodeError(resp.URL, "login", resp.Text(), err)
	}

	token, _ := payload[l.tokenField].(string)
	if token == "" {
		return errors.NewDecodeError(resp.URL, "login", resp.Text(),
			fmt.Errorf("%s missing from login response", l.tokenField))
	}

	l.token = token
	l.expiry = time.Time{}
	if exp, err := ParseExpiry(token); err == nil {
		l.expiry = exp
	}

	return nil
}

// GetHeaders returns the Authorization header once logged in.
func (l *TokenLoginAuth) GetHeaders() map[string]string {
	return BearerHeaders(l.Token())
}

// Token returns the issued token.
func (l *TokenLoginAuth) Token() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.token
}

// Expiry returns the token's exp claim, zero if unknown.
func (l *TokenLoginAuth) Expiry() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.expiry
}

// IsAuthenticated returns true after a successful login.
func (l *TokenLoginAuth) IsAuthenticated() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.token != ""
}

// Type returns the authentication type.
func (l *TokenLoginAuth) Type() AuthType {
	return AuthTypeLogin
}
