// Package probe logs in to a remote API, calls a sequence of endpoints and
// prints what comes back.
package probe

import (
	"fmt"
	"net/url"
	"strconv"

	probehttp "github.com/PentesterFlow/APIProbe/internal/http"
	"github.com/PentesterFlow/APIProbe/internal/output"
)

// Envelope is a captured response: status, headers and raw body.
type Envelope = probehttp.Response

// RunResult is the outcome of a whole run.
type RunResult = output.Summary

// StepResult is the outcome of one step.
type StepResult = output.StepResult

// Step describes one GET endpoint to probe.
type Step struct {
	Name    string                 `json:"name" yaml:"name"`
	Path    string                 `json:"path" yaml:"path"`
	Params  map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Headers map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// DisplayName returns the step name, falling back to its path.
func (s Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Path
}

// Query converts the step parameters to URL query values.
func (s Step) Query() url.Values {
	if len(s.Params) == 0 {
		return nil
	}
	values := make(url.Values, len(s.Params))
	for k, v := range s.Params {
		values.Set(k, formatParam(v))
	}
	return values
}

func formatParam(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
