package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PentesterFlow/APIProbe/internal/auth"
	"github.com/PentesterFlow/APIProbe/internal/errors"
	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
	"github.com/PentesterFlow/APIProbe/internal/logger"
	"github.com/PentesterFlow/APIProbe/internal/output"
)

// Probe runs login, then each configured step, rendering every response.
// It holds no state across steps other than the token.
type Probe struct {
	config    *Config
	transport probehttp.Transport
	auth      auth.Provider
	renderer  output.Renderer
	out       io.Writer
	logger    *logger.Logger
}

// New creates a new probe with the given options.
func New(opts ...Option) (*Probe, error) {
	p := &Probe{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if p.config == nil {
		return nil, errors.NewConfigError("config", "is nil")
	}

	if err := p.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if p.logger == nil {
		logLevel := logger.WarnLevel
		if p.config.LogLevel != "" {
			logLevel, _ = logger.ParseLevel(p.config.LogLevel)
		} else if p.config.Debug {
			logLevel = logger.DebugLevel
		} else if p.config.Verbose {
			logLevel = logger.InfoLevel
		}
		p.logger = logger.New(logger.Config{
			Level:  logLevel,
			Pretty: true,
		})
	}
	p.logger = p.logger.WithComponent("probe")

	if p.transport == nil {
		p.transport = probehttp.NewClient(probehttp.ClientConfig{
			BaseURL:       p.config.BaseURL,
			Timeout:       p.config.Timeout,
			UserAgent:     p.config.UserAgent,
			Headers:       p.config.CustomHeaders,
			SkipTLSVerify: p.config.SkipTLSVerify,
		}, p.logger)
	}

	if p.out == nil {
		p.out = os.Stdout
	}

	if p.renderer == nil {
		cfg := output.DefaultConfig()
		if p.config.Output.Format != "" {
			cfg.Format = p.config.Output.Format
		}
		if p.config.Output.RecommendationLimit > 0 {
			cfg.RecommendationLimit = p.config.Output.RecommendationLimit
		}
		p.renderer = output.NewRenderer(p.out, cfg)
	}

	p.auth = auth.NewProvider(auth.Credentials{
		Username:   p.config.Auth.Username,
		Password:   p.config.Auth.Password,
		Token:      p.config.Auth.Token,
		LoginPath:  p.resolvePath(p.config.Auth.LoginPath),
		TokenField: p.config.Auth.TokenField,
	}, p.transport)

	return p, nil
}

// Config returns the probe configuration.
func (p *Probe) Config() *Config {
	return p.config
}

// Authenticate logs in and returns the issued token. A failure is printed
// with the server's status and text before being returned.
func (p *Probe) Authenticate(ctx context.Context) (string, error) {
	start := time.Now()

	err := p.auth.Authenticate(ctx)
	if err == nil && !p.auth.IsAuthenticated() {
		err = errors.NewProbeError(errors.Auth, p.config.BaseURL, "login", "token has expired", nil)
	}
	if err != nil {
		p.logger.ErrorEvent(err, p.config.BaseURL, "login")
		if rerr := p.renderer.LoginFailed(err); rerr != nil {
			p.logger.WithError(rerr).Warn("Failed to write output")
		}
		return "", fmt.Errorf("authenticate: %w", err)
	}

	token := p.auth.Token()
	p.logger.WithField("auth_type", string(p.auth.Type())).
		WithField("duration", time.Since(start).String()).
		Info("Authenticated")

	if err := p.renderer.LoggedIn(token, p.auth.Expiry()); err != nil {
		return token, fmt.Errorf("write output: %w", err)
	}
	return token, nil
}

// Fetch issues an authenticated GET to path with params. A non-2xx status is
// not an error; only transport failures are. An empty token falls back to the
// probe's own credentials.
func (p *Probe) Fetch(ctx context.Context, token, path string, params map[string]interface{}) (*Envelope, error) {
	return p.FetchStep(ctx, token, Step{Path: path, Params: params})
}

// FetchStep is Fetch for a configured step, including its extra headers.
func (p *Probe) FetchStep(ctx context.Context, token string, step Step) (*Envelope, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	for k, v := range step.Headers {
		headers[k] = v
	}

	authHeaders := p.auth.GetHeaders()
	if token != "" && token != p.auth.Token() {
		authHeaders = auth.BearerHeaders(token)
	}
	for k, v := range authHeaders {
		headers[k] = v
	}

	resp, err := p.transport.Get(ctx, p.resolvePath(step.Path), headers, step.Query())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", step.Path, err)
	}
	return resp, nil
}

// Render prints one envelope.
func (p *Probe) Render(step string, env *Envelope) error {
	return p.renderer.Render(step, env)
}

// RunStep fetches and renders one step. index is 1-based and only used for display.
func (p *Probe) RunStep(ctx context.Context, token string, index int, step Step) StepResult {
	name := step.DisplayName()
	log := p.logger.WithStep(name)
	result := StepResult{Name: name, Path: step.Path}
	start := time.Now()

	if err := p.renderer.StepHeader(index, name, step.Path); err != nil {
		log.WithError(err).Warn("Failed to write output")
	}

	env, err := p.FetchStep(ctx, token, step)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		if rerr := p.renderer.StepError(name, err); rerr != nil {
			log.WithError(rerr).Warn("Failed to write output")
		}
		p.logger.StepEvent(name, step.Path, 0, err)
		return result
	}

	result.StatusCode = env.StatusCode
	if err := p.renderer.Render(name, env); err != nil {
		result.Error = fmt.Sprintf("write output: %v", err)
	}
	p.logger.StepEvent(name, step.Path, env.StatusCode, nil)
	return result
}

// Run authenticates and then runs every configured step in order. A failed
// login aborts the run; a failed step does not stop the ones after it.
func (p *Probe) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		StartedAt: time.Now(),
		Steps:     make([]StepResult, 0, len(p.config.Steps)),
	}

	if err := p.renderer.Begin(result.StartedAt); err != nil {
		p.logger.WithError(err).Warn("Failed to write output")
	}

	token, err := p.Authenticate(ctx)
	if err != nil {
		result.CompletedAt = time.Now()
		p.renderer.Flush()
		return result, err
	}
	result.Authenticated = true

	for i, step := range p.config.Steps {
		if ctx.Err() != nil {
			p.logger.Warn("Run cancelled, skipping remaining steps")
			break
		}
		result.Steps = append(result.Steps, p.RunStep(ctx, token, i+1, step))
	}

	result.CompletedAt = time.Now()
	if err := p.renderer.Summary(result); err != nil {
		p.logger.WithError(err).Warn("Failed to write output")
	}
	if err := p.renderer.Flush(); err != nil {
		return result, fmt.Errorf("flush output: %w", err)
	}

	return result, ctx.Err()
}

// Close releases the renderer and transport.
func (p *Probe) Close() error {
	if closer, ok := p.transport.(interface{ Close() }); ok {
		closer.Close()
	}
	return p.renderer.Close()
}

// resolvePath prefixes relative paths with the API prefix.
func (p *Probe) resolvePath(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	prefix := strings.TrimRight(p.config.APIPrefix, "/")
	if prefix == "" || strings.HasPrefix(path, prefix+"/") {
		return path
	}
	return prefix + path
}
