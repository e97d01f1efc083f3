package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/PentesterFlow/APIProbe/internal/errors"
	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

// JSONRenderer writes one JSON event per line.
type JSONRenderer struct {
	mu     sync.Mutex
	writer io.Writer
	config Config
	closed bool
}

// Event is a single line of JSON output.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ResponseEvent describes one captured response.
type ResponseEvent struct {
	Step        string            `json:"step"`
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	Body        interface{}       `json:"body"`
	BodyIsJSON  bool              `json:"body_is_json"`
	DecodeError string            `json:"decode_error,omitempty"`
	Truncated   bool              `json:"truncated,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
}

// ErrorEvent describes a failure.
type ErrorEvent struct {
	Step       string `json:"step,omitempty"`
	Type       string `json:"error_type"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

// NewJSONRenderer creates a new JSON lines renderer.
func NewJSONRenderer(w io.Writer, config Config) *JSONRenderer {
	if config.TokenPrefix <= 0 {
		config.TokenPrefix = DefaultConfig().TokenPrefix
	}
	return &JSONRenderer{writer: w, config: config}
}

// Begin writes a start event.
func (j *JSONRenderer) Begin(startedAt time.Time) error {
	return j.write(Event{Type: "start", Data: map[string]interface{}{"started_at": startedAt}})
}

// LoginFailed writes an error event for the login.
func (j *JSONRenderer) LoginFailed(err error) error {
	return j.write(Event{Type: "login_failed", Data: newErrorEvent("", err)})
}

// LoggedIn writes a login event carrying only the token prefix.
func (j *JSONRenderer) LoggedIn(token string, expiry time.Time) error {
	data := map[string]interface{}{
		"token_prefix": tokenPrefix(token, j.config.TokenPrefix),
	}
	if !expiry.IsZero() {
		data["expires_at"] = expiry
	}
	return j.write(Event{Type: "login", Data: data})
}

// StepHeader writes nothing; steps are identified on their response events.
func (j *JSONRenderer) StepHeader(index int, step, path string) error {
	return nil
}

// Render writes a response event. Only 200 bodies are decoded and embedded
// as JSON; every other body is kept as raw text.
func (j *JSONRenderer) Render(step string, resp *probehttp.Response) error {
	event := ResponseEvent{
		Step:       step,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       resp.Text(),
		Truncated:  resp.Truncated,
		DurationMS: resp.Duration.Milliseconds(),
	}

	if resp.StatusCode == 200 {
		if data, err := DecodeBody(resp); err == nil {
			event.Body = data
			event.BodyIsJSON = true
		} else {
			event.DecodeError = err.Error()
		}
	}

	return j.write(Event{Type: "response", Data: event})
}

// StepError writes an error event for a step.
func (j *JSONRenderer) StepError(step string, err error) error {
	return j.write(Event{Type: "error", Data: newErrorEvent(step, err)})
}

// Summary writes the run summary.
func (j *JSONRenderer) Summary(summary *Summary) error {
	return j.write(Event{Type: "summary", Data: summary})
}

// Flush flushes the writer.
func (j *JSONRenderer) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return flushWriter(j.writer)
}

// Close flushes and stops further output.
func (j *JSONRenderer) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true
	return flushWriter(j.writer)
}

// write encodes one event followed by a newline.
func (j *JSONRenderer) write(event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := j.writer.Write(data); err != nil {
		return err
	}

	_, err = j.writer.Write([]byte("\n"))
	return err
}

func newErrorEvent(step string, err error) ErrorEvent {
	return ErrorEvent{
		Step:       step,
		Type:       errors.GetErrorType(err).String(),
		Message:    err.Error(),
		StatusCode: errors.GetStatusCode(err),
		Body:       errors.GetBody(err),
	}
}
