package probe

import (
	"io"
	"time"

	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
	"github.com/PentesterFlow/APIProbe/internal/logger"
	"github.com/PentesterFlow/APIProbe/internal/output"
)

// Option is a functional option for configuring the Probe.
type Option func(*Probe) error

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(p *Probe) error {
		p.config = config
		return nil
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Probe) error {
		p.config.BaseURL = baseURL
		return nil
	}
}

// WithCredentials sets the login username and password.
func WithCredentials(username, password string) Option {
	return func(p *Probe) error {
		p.config.Auth.Username = username
		p.config.Auth.Password = password
		return nil
	}
}

// WithToken skips login and uses a pre-issued bearer token.
func WithToken(token string) Option {
	return func(p *Probe) error {
		p.config.Auth.Token = token
		return nil
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Probe) error {
		p.config.Timeout = timeout
		return nil
	}
}

// WithSteps replaces the configured steps.
func WithSteps(steps ...Step) Option {
	return func(p *Probe) error {
		p.config.Steps = steps
		return nil
	}
}

// WithTransport sets the HTTP transport. Tests use this to avoid the network.
func WithTransport(t probehttp.Transport) Option {
	return func(p *Probe) error {
		p.transport = t
		return nil
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Probe) error {
		p.logger = l
		return nil
	}
}

// WithOutput sets the writer rendered responses go to.
func WithOutput(w io.Writer) Option {
	return func(p *Probe) error {
		p.out = w
		return nil
	}
}

// WithRenderer sets a custom renderer, overriding the output format.
func WithRenderer(r output.Renderer) Option {
	return func(p *Probe) error {
		p.renderer = r
		return nil
	}
}

// WithOutputFormat sets the output format ("text" or "json").
func WithOutputFormat(format string) Option {
	return func(p *Probe) error {
		p.config.Output.Format = format
		return nil
	}
}
