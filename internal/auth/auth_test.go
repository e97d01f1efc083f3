package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	probeerrors "github.com/PentesterFlow/APIProbe/internal/errors"
	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

// fakeTransport records the login POST and replies with a canned response.
type fakeTransport struct {
	resp  *probehttp.Response
	err   error
	calls int
	path  string
	form  url.Values
}

func (f *fakeTransport) Post(ctx context.Context, path string, form url.Values) (*probehttp.Response, error) {
	f.calls++
	f.path = path
	f.form = form
	return f.resp, f.err
}

func (f *fakeTransport) Get(ctx context.Context, path string, headers map[string]string, params url.Values) (*probehttp.Response, error) {
	return nil, errors.New("not used")
}

func reply(status int, body string) *probehttp.Response {
	return &probehttp.Response{
		URL:        "https://api.example.com/api/v1/auth/login",
		StatusCode: status,
		Body:       []byte(body),
	}
}

func makeJWT(t *testing.T, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, err := json.Marshal(map[string]int64{"exp": exp})
	if err != nil {
		t.Fatal(err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(claims) + ".sig"
}

// =============================================================================
// NewProvider Tests
// =============================================================================

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		wantType AuthType
	}{
		{"explicit none", Credentials{Type: AuthTypeNone, Token: "x"}, AuthTypeNone},
		{"explicit bearer", Credentials{Type: AuthTypeBearer, Token: "x"}, AuthTypeBearer},
		{"explicit login", Credentials{Type: AuthTypeLogin, Username: "u", Password: "p"}, AuthTypeLogin},
		{"token wins", Credentials{Token: "x", Username: "u", Password: "p"}, AuthTypeBearer},
		{"username implies login", Credentials{Username: "u", Password: "p"}, AuthTypeLogin},
		{"empty is none", Credentials{}, AuthTypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewProvider(tt.creds, &fakeTransport{})
			if provider.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", provider.Type(), tt.wantType)
			}
		})
	}
}

// =============================================================================
// NoAuth Tests
// =============================================================================

func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}

	if err := auth.Authenticate(context.Background()); err != nil {
		t.Errorf("Authenticate() error = %v", err)
	}
	if auth.GetHeaders() != nil {
		t.Error("GetHeaders() should return nil")
	}
	if auth.Token() != "" {
		t.Error("Token() should be empty")
	}
	if !auth.Expiry().IsZero() {
		t.Error("Expiry() should be zero")
	}
	if !auth.IsAuthenticated() {
		t.Error("IsAuthenticated() should be true")
	}
}

// =============================================================================
// BearerAuth Tests
// =============================================================================

func TestBearerAuth_Headers(t *testing.T) {
	auth := NewBearerAuth("tok123")

	headers := auth.GetHeaders()
	if headers["Authorization"] != "Bearer tok123" {
		t.Errorf("Authorization = %s, want Bearer tok123", headers["Authorization"])
	}
	if !auth.IsAuthenticated() {
		t.Error("IsAuthenticated() should be true")
	}
}

func TestBearerAuth_Empty(t *testing.T) {
	auth := NewBearerAuth("")

	if auth.GetHeaders() != nil {
		t.Error("GetHeaders() should be nil without a token")
	}
	if auth.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false without a token")
	}
}

func TestBearerAuth_ExpiredJWT(t *testing.T) {
	auth := NewBearerAuth(makeJWT(t, time.Now().Add(-time.Hour).Unix()))

	if auth.Expiry().IsZero() {
		t.Fatal("Expiry() should be parsed from the token")
	}
	if auth.IsAuthenticated() {
		t.Error("IsAuthenticated() should be false for an expired JWT")
	}
}

func TestParseExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	got, err := ParseExpiry(makeJWT(t, exp))
	if err != nil {
		t.Fatalf("ParseExpiry() error = %v", err)
	}
	if got.Unix() != exp {
		t.Errorf("ParseExpiry() = %d, want %d", got.Unix(), exp)
	}

	for _, bad := range []string{"tok123", "a.b", "a.!!!.c", makeJWT(t, 0)} {
		if _, err := ParseExpiry(bad); err == nil {
			t.Errorf("ParseExpiry(%q) should fail", bad)
		}
	}
}

// =============================================================================
// TokenLoginAuth Tests
// =============================================================================

func TestTokenLoginAuth_Success(t *testing.T) {
	transport := &fakeTransport{resp: reply(200, `{"access_token": "tok123", "token_type": "bearer"}`)}
	auth := NewTokenLoginAuth(Credentials{Username: "user@example.com", Password: "secret"}, transport)

	if err := auth.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if auth.Token() != "tok123" {
		t.Errorf("Token() = %s, want tok123", auth.Token())
	}
	if transport.path != DefaultLoginPath {
		t.Errorf("login path = %s, want %s", transport.path, DefaultLoginPath)
	}
	if transport.form.Get("username") != "user@example.com" || transport.form.Get("password") != "secret" {
		t.Errorf("form = %v", transport.form)
	}
	if auth.GetHeaders()["Authorization"] != "Bearer tok123" {
		t.Error("GetHeaders() should carry the bearer token")
	}
	if !auth.IsAuthenticated() {
		t.Error("login should mark the provider authenticated")
	}
}

func TestTokenLoginAuth_CustomPathAndField(t *testing.T) {
	transport := &fakeTransport{resp: reply(200, `{"token": "abc"}`)}
	auth := NewTokenLoginAuth(Credentials{
		Username:   "u",
		Password:   "p",
		LoginPath:  "/auth/token",
		TokenField: "token",
	}, transport)

	if err := auth.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if transport.path != "/auth/token" || auth.Token() != "abc" {
		t.Errorf("path = %s token = %s", transport.path, auth.Token())
	}
}

func TestTokenLoginAuth_Rejected(t *testing.T) {
	tests := []struct {
		status int
		body   string
	}{
		{401, `{"detail":"Incorrect email or password"}`},
		{422, `{"detail":[{"msg":"field required"}]}`},
		{500, "Internal Server Error"},
		{201, `{"access_token":"tok123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			auth := NewTokenLoginAuth(Credentials{Username: "u", Password: "p"}, &fakeTransport{resp: reply(tt.status, tt.body)})

			err := auth.Authenticate(context.Background())
			if !probeerrors.IsAuthError(err) {
				t.Fatalf("Authenticate() error = %v, want auth error", err)
			}
			if probeerrors.GetStatusCode(err) != tt.status {
				t.Errorf("status = %d, want %d", probeerrors.GetStatusCode(err), tt.status)
			}
			if probeerrors.GetBody(err) != tt.body {
				t.Errorf("body = %q, want %q", probeerrors.GetBody(err), tt.body)
			}
			if auth.Token() != "" {
				t.Error("no token should be stored after a rejected login")
			}
		})
	}
}

func TestTokenLoginAuth_BadBody(t *testing.T) {
	for _, body := range []string{"<html>oops</html>", `{"token_type":"bearer"}`, `{"access_token": 42}`} {
		t.Run(body, func(t *testing.T) {
			auth := NewTokenLoginAuth(Credentials{Username: "u", Password: "p"}, &fakeTransport{resp: reply(200, body)})

			err := auth.Authenticate(context.Background())
			if !probeerrors.IsDecodeError(err) {
				t.Errorf("Authenticate() error = %v, want decode error", err)
			}
		})
	}
}

func TestTokenLoginAuth_MissingCredentials(t *testing.T) {
	transport := &fakeTransport{resp: reply(200, `{"access_token":"x"}`)}

	for _, creds := range []Credentials{{Password: "p"}, {Username: "u"}} {
		auth := NewTokenLoginAuth(creds, transport)
		err := auth.Authenticate(context.Background())
		if probeerrors.GetErrorType(err) != probeerrors.Config {
			t.Errorf("Authenticate() error = %v, want config error", err)
		}
	}
	if transport.calls != 0 {
		t.Errorf("transport called %d times, want 0", transport.calls)
	}
}

func TestTokenLoginAuth_TransportError(t *testing.T) {
	netErr := probeerrors.NewNetworkError("https://api.example.com", "request", errors.New("refused"))
	auth := NewTokenLoginAuth(Credentials{Username: "u", Password: "p"}, &fakeTransport{err: netErr})

	err := auth.Authenticate(context.Background())
	if !probeerrors.IsTransportError(err) {
		t.Errorf("Authenticate() error = %v, want transport error", err)
	}
}
