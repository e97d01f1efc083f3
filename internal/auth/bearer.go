package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// BearerAuth sends a pre-issued token as a bearer credential.
type BearerAuth struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// NewBearerAuth creates a new bearer token provider.
func NewBearerAuth(token string) *BearerAuth {
	auth := &BearerAuth{token: token}
	if exp, err := ParseExpiry(token); err == nil {
		auth.expiry = exp
	}
	return auth
}

// Authenticate is a no-op; the token is already issued.
func (b *BearerAuth) Authenticate(ctx context.Context) error {
	return nil
}

// GetHeaders returns the Authorization header.
func (b *BearerAuth) GetHeaders() map[string]string {
	return BearerHeaders(b.Token())
}

// Token returns the configured token.
func (b *BearerAuth) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// Expiry returns the token's exp claim, zero if unknown.
func (b *BearerAuth) Expiry() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.expiry
}

// IsAuthenticated returns true if we have a token that has not visibly expired.
func (b *BearerAuth) IsAuthenticated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.token == "" {
		return false
	}
	if !b.expiry.IsZero() && time.Now().After(b.expiry) {
		return false
	}
	return true
}

// Type returns the authentication type.
func (b *BearerAuth) Type() AuthType {
	return AuthTypeBearer
}

// BearerHeaders returns the Authorization header for token, nil if empty.
func BearerHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
	}
}

// ParseExpiry extracts the expiration time from a JWT. Tokens are opaque to
// the probe; this is for display only.
func ParseExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid JWT format")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		payload, err = base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return time.Time{}, err
		}
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}

	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, err
	}

	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("no exp claim")
	}

	return time.Unix(claims.Exp, 0), nil
}
