package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PentesterFlow/APIProbe/internal/errors"
	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
)

const ruleWidth = 70

// TextRenderer prints responses in a human-readable layout. It makes no
// assumption about body shape: arrays, objects and scalars are all described.
type TextRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	config Config
	err    error
	closed bool
}

// NewTextRenderer creates a new text renderer.
func NewTextRenderer(w io.Writer, config Config) *TextRenderer {
	defaults := DefaultConfig()
	if config.RecommendationLimit <= 0 {
		config.RecommendationLimit = defaults.RecommendationLimit
	}
	if config.TokenPrefix <= 0 {
		config.TokenPrefix = defaults.TokenPrefix
	}
	return &TextRenderer{w: w, config: config}
}

// Begin writes the run header.
func (t *TextRenderer) Begin(startedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("Testing API endpoints at %s\n", startedAt.Format("2006-01-02 15:04:05"))
	t.printf("%s\n", strings.Repeat("=", ruleWidth))
	return t.result()
}

// LoginFailed reports a failed login with the server's status and text.
func (t *TextRenderer) LoginFailed(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if errors.IsAuthError(err) && errors.GetStatusCode(err) != 0 {
		t.printf("Login failed: %d - %s\n", errors.GetStatusCode(err), errors.GetBody(err))
	} else {
		t.printf("Login failed: %v\n", err)
	}
	t.printf("Failed to login, exiting\n")
	return t.result()
}

// LoggedIn reports the token prefix and, when known, its expiry.
func (t *TextRenderer) LoggedIn(token string, expiry time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("\nLogged in successfully, token: %s\n", tokenPrefix(token, t.config.TokenPrefix))
	if !expiry.IsZero() {
		t.printf("Token expires: %s\n", expiry.Format(time.RFC3339))
	}
	return t.result()
}

// StepHeader announces a step.
func (t *TextRenderer) StepHeader(index int, step, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("\n%d. Testing %s endpoint:\n", index, path)
	t.printf("%s\n", strings.Repeat("-", 50))
	return t.result()
}

// Render writes status, headers and a description of the body.
func (t *TextRenderer) Render(step string, resp *probehttp.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.printf("Status: %d\n", resp.StatusCode)
	t.printf("Headers: %s\n", formatHeaders(resp))
	if resp.Truncated {
		t.printf("Body truncated: only the first %d bytes were read\n", len(resp.Body))
	}

	switch resp.StatusCode {
	case 200:
		t.renderBody(resp)
	case 500:
		t.printf("\nERROR: Server returned 500\n")
		t.printf("Response text: %s\n", resp.Text())
		t.renderHTML(resp)
	default:
		t.printf("\nUnexpected status code: %d\n", resp.StatusCode)
		t.printf("Response: %s\n", resp.Text())
		t.renderHTML(resp)
	}

	return t.result()
}

// StepError reports a step with no response.
func (t *TextRenderer) StepError(step string, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("\nRequest failed: %v\n", err)
	return t.result()
}

// Summary writes a table of step outcomes.
func (t *TextRenderer) Summary(summary *Summary) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("\n\nSummary\n")
	t.printf("%s\n", strings.Repeat("=", ruleWidth))
	t.printf("Duration:  %v\n", summary.Duration().Round(time.Millisecond))
	t.printf("Steps:     %d\n", len(summary.Steps))
	t.printf("Failed:    %d\n", summary.FailedCount())
	if len(summary.Steps) > 0 {
		t.printf("Statuses:  %s\n", formatStatusCounts(summary.StatusCounts()))
	}

	if len(summary.Steps) > 0 {
		t.printf("\n")
	}
	for _, step := range summary.Steps {
		status := strconv.Itoa(step.StatusCode)
		if step.Failed() {
			status = "ERR"
		}
		t.printf("  [%s] %-28s %s\n", status, step.Name, step.Path)
	}
	return t.result()
}

// Flush flushes the underlying writer.
func (t *TextRenderer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return flushWriter(t.w)
}

// Close flushes and stops further rendering.
func (t *TextRenderer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return flushWriter(t.w)
}

func (t *TextRenderer) renderBody(resp *probehttp.Response) {
	data, err := DecodeBody(resp)
	if err != nil {
		t.printf("\nJSON decode error: %v\n", err)
		t.printf("Raw response: %s\n", resp.Text())
		t.renderHTML(resp)
		return
	}

	switch v := data.(type) {
	case []interface{}:
		t.renderArray(v)
	case map[string]interface{}:
		t.renderObject(v)
	default:
		t.printf("\nUnexpected type: %s\n", formatValue(v))
	}
}

func (t *TextRenderer) renderArray(items []interface{}) {
	t.printf("\nResponse type: array\n")
	t.printf("Array length: %d\n", len(items))
	if len(items) == 0 {
		return
	}

	if first, ok := items[0].(map[string]interface{}); ok {
		t.printf("First item keys: [%s]\n", strings.Join(sortedKeys(first), ", "))
	} else {
		t.printf("First item keys: Not an object\n")
	}
	t.printf("First item: %s\n", prettyJSON(items[0]))
}

func (t *TextRenderer) renderObject(obj map[string]interface{}) {
	t.printf("\nResponse type: object\n")
	t.printf("Object keys: [%s]\n", strings.Join(sortedKeys(obj), ", "))

	if recs, ok := obj["recommendations"].([]interface{}); ok {
		t.renderRecommendations(recs, obj)
	}
	t.renderPreferences(obj)

	t.printf("\nFull response:\n%s\n", prettyJSON(obj))
}

func (t *TextRenderer) renderRecommendations(recs []interface{}, obj map[string]interface{}) {
	total := "0"
	if v, ok := obj["totalMatches"]; ok {
		total = formatValue(v)
	}

	t.printf("\nGot %d recommendations\n", len(recs))
	t.printf("Total matches: %s\n", total)

	limit := t.config.RecommendationLimit
	if len(recs) < limit {
		limit = len(recs)
	}
	for i := 0; i < limit; i++ {
		rec, _ := recs[i].(map[string]interface{})
		product, _ := rec["product"].(map[string]interface{})

		t.printf("\n%d. %s - %s\n", i+1, field(product, "name"), field(product, "brand"))
		t.printf("   Meat type: %s\n", field(product, "meat_type"))
		t.printf("   Match score: %s\n", field(rec, "matchScore"))
	}
	if len(recs) > limit {
		t.printf("\n... and %d more\n", len(recs)-limit)
	}
}

func (t *TextRenderer) renderPreferences(obj map[string]interface{}) {
	if v, ok := obj["preferred_meat_types"]; ok {
		t.printf("\nPreferred meat types: %s\n", formatValue(v))
	}
	if v, ok := obj["meatPreferences"]; ok {
		t.printf("Meat preferences: %s\n", formatValue(v))
	}
}

func (t *TextRenderer) renderHTML(resp *probehttp.Response) {
	if !looksLikeHTML(resp.ContentType, resp.Body) {
		return
	}
	title, text, err := summarizeHTML(resp.Text())
	if err != nil {
		return
	}
	if title != "" {
		t.printf("HTML title: %s\n", title)
	}
	if text != "" {
		t.printf("HTML text: %s\n", text)
	}
}

// printf writes to the output, keeping the first error.
func (t *TextRenderer) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// result returns and clears the pending write error.
func (t *TextRenderer) result() error {
	err := t.err
	t.err = nil
	return err
}

// DecodeBody parses a response body as JSON, keeping numbers verbatim.
func DecodeBody(resp *probehttp.Response) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("empty body")
		}
		return nil, errors.NewDecodeError(resp.URL, "decode", resp.Text(), err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewDecodeError(resp.URL, "decode", resp.Text(), fmt.Errorf("unexpected data after JSON value"))
	}
	return v, nil
}

// formatStatusCounts renders counts as "200 x2, 500 x1"; status 0 is shown as ERR.
func formatStatusCounts(counts map[int]int) string {
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		label := strconv.Itoa(code)
		if code == 0 {
			label = "ERR"
		}
		parts = append(parts, fmt.Sprintf("%s x%d", label, counts[code]))
	}
	return strings.Join(parts, ", ")
}

func formatHeaders(resp *probehttp.Response) string {
	parts := make([]string, 0, len(resp.Header))
	for _, k := range resp.HeaderKeys() {
		parts = append(parts, k+": "+resp.Header[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func field(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return "-"
	}
	return formatValue(v)
}

// formatValue renders a decoded JSON value on one line.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return encodeJSON(val, "")
	}
}

// prettyJSON indents v without escaping HTML characters.
func prettyJSON(v interface{}) string {
	return encodeJSON(v, "  ")
}

// encodeJSON encodes v without escaping HTML characters, indenting when indent is set.
func encodeJSON(v interface{}, indent string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
