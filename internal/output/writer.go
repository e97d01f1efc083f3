// Package output renders probe responses for a human or a script.
package output

import (
	"io"
	"time"

	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

// Renderer defines the interface for output renderers.
type Renderer interface {
	// Begin writes the run header.
	Begin(startedAt time.Time) error

	// LoginFailed reports a failed login; the run stops after this.
	LoginFailed(err error) error

	// LoggedIn reports a successful login.
	LoggedIn(token string, expiry time.Time) error

	// StepHeader announces the step about to run. index is 1-based.
	StepHeader(index int, step, path string) error

	// Render writes one captured response.
	Render(step string, resp *probehttp.Response) error

	// StepError reports a step that produced no response.
	StepError(step string, err error) error

	// Summary writes the run summary.
	Summary(summary *Summary) error

	// Flush flushes any buffered output
	Flush() error

	// Close flushes and stops the renderer. The underlying writer stays open.
	Close() error
}

// Config holds output configuration.
type Config struct {
	Format              string
	RecommendationLimit int
	TokenPrefix         int
}

// DefaultConfig returns the text renderer defaults.
func DefaultConfig() Config {
	return Config{
		Format:              "text",
		RecommendationLimit: 3,
		TokenPrefix:         20,
	}
}

// NewRenderer creates a new renderer writing to w.
func NewRenderer(w io.Writer, config Config) Renderer {
	switch config.Format {
	case "json":
		return NewJSONRenderer(w, config)
	default:
		return NewTextRenderer(w, config)
	}
}

// tokenPrefix shortens a token for display.
func tokenPrefix(token string, n int) string {
	if n <= 0 || len(token) <= n {
		return token
	}
	return token[:n] + "..."
}

// flushWriter flushes w when it supports it.
func flushWriter(w io.Writer) error {
	if flusher, ok := w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}
