// Package intent converts free user text into structured decisions through a
// language-model completion call.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/manno/shipmate/internal/fault"
)

// Request is one extraction task: a system instruction describing the shape
// the stage expects, and the raw user text.
type Request struct {
	System string
	User   string
	// JSON constrains the completion to a JSON document. When false, the
	// model returns a bare value (e.g. a URL, or a Dockerfile body).
	JSON bool
}

// Extractor performs exactly one upstream completion per call. It never
// retries on malformed output; the stage controller owns the fallback policy
// because the correct fallback is stage-specific.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// DecodeStrict parses model output into out, rejecting anything that is not
// exactly the declared shape. Unknown fields, trailing content and non-JSON
// text all fail with an Ambiguous fault carrying the raw output. Model output
// is data, never code: nothing here evaluates it.
func DecodeStrict(raw string, out any) error {
	cleaned := StripFences(raw)
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fault.Newf(fault.Ambiguous, "intent.decode", "model output is not the expected shape: %v (raw: %.200s)", err, cleaned)
	}
	if dec.More() {
		return fault.Newf(fault.Ambiguous, "intent.decode", "trailing content after JSON document (raw: %.200s)", cleaned)
	}
	return nil
}

// StripFences removes a surrounding markdown code fence, which models add to
// bare-value answers often enough to handle unconditionally.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" or "yaml" on the opening fence.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if len(first) <= 16 && !strings.ContainsAny(first, " \t{[\"") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
