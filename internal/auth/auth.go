// Package auth provides authentication mechanisms for the API probe.
package auth

import (
	"context"
	"time"

	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

// AuthType represents the type of authentication.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeLogin  AuthType = "login"
)

// Credentials holds authentication credentials.
type Credentials struct {
	Type       AuthType
	Username   string
	Password   string
	Token      string
	LoginPath  string
	TokenField string
}

// Provider defines the interface for authentication providers.
type Provider interface {
	// Authenticate obtains a token if the provider needs one.
	Authenticate(ctx context.Context) error

	// GetHeaders returns headers to include in requests
	GetHeaders() map[string]string

	// Token returns the current bearer token, empty if none.
	Token() string

	// Expiry returns the token expiry when it is a JWT with an exp claim.
	Expiry() time.Time

	// IsAuthenticated returns true if currently authenticated
	IsAuthenticated() bool

	// Type returns the authentication type
	Type() AuthType
}

// NewProvider creates an authentication provider based on credentials.
// A static token wins over username/password.
func NewProvider(creds Credentials, transport probehttp.Transport) Provider {
	switch creds.Type {
	case AuthTypeBearer:
		return NewBearerAuth(creds.Token)
	case AuthTypeLogin:
		return NewTokenLoginAuth(creds, transport)
	case AuthTypeNone:
		return &NoAuth{}
	}

	if creds.Token != "" {
		return NewBearerAuth(creds.Token)
	}
	if creds.Username != "" || creds.Password != "" {
		return NewTokenLoginAuth(creds, transport)
	}
	return &NoAuth{}
}

// NoAuth represents no authentication.
type NoAuth struct{}

func (n *NoAuth) Authenticate(ctx context.Context) error {
	return nil
}

func (n *NoAuth) GetHeaders() map[string]string {
	return nil
}

func (n *NoAuth) Token() string {
	return ""
}

func (n *NoAuth) Expiry() time.Time {
	return time.Time{}
}

func (n *NoAuth) IsAuthenticated() bool {
	return true
}

func (n *NoAuth) Type() AuthType {
	return AuthTypeNone
}
