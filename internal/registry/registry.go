// Package registry is the facade over the container registry. The only
// operations the conversation needs are an existence check and idempotent
// creation of an image project.
package registry

import (
	"context"
	"strings"
)

// Client is the registry surface used by the conversation layer.
type Client interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
}

// NormalizeName turns free text into a usable registry project name:
// lowercase, whitespace collapsed to dashes, anything else outside
// [a-z0-9._-] dropped. Returns empty when nothing usable remains; the caller
// re-prompts instead of guessing.
func NormalizeName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-._")
}
