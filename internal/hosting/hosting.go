// Package hosting is the facade over the source-hosting provider. Operations
// are narrow and idempotent; the conversation layer never talks to a provider
// SDK directly.
package hosting

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/manno/shipmate/internal/fault"
)

// Target identifies the repository a session operates against. It is resolved
// once, in the first stage, and reused by every later stage.
type Target struct {
	Host  string
	Owner string
	Name  string
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Host, t.Owner, t.Name)
}

// URL returns the canonical https URL for the target.
func (t Target) URL() string {
	return fmt.Sprintf("https://%s/%s/%s", t.Host, t.Owner, t.Name)
}

// RepoInfo is what a lookup returns about an existing repository.
type RepoInfo struct {
	DefaultBranch string
}

// Repository is the set of hosting operations the conversation needs.
//
// WriteFile creates the file when absent and updates it when present; callers
// only learn which happened through the returned created flag, for user-facing
// wording. All operations translate provider errors into fault kinds.
type Repository interface {
	Lookup(ctx context.Context, t Target) (*RepoInfo, error)
	PrimaryLanguage(ctx context.Context, t Target) (string, error)
	FileExists(ctx context.Context, t Target, path, ref string) (bool, error)
	ReadFile(ctx context.Context, t Target, path, ref string) (string, error)
	WriteFile(ctx context.Context, t Target, path, content, message, ref string) (created bool, err error)
}

// ParseTarget extracts a Target from a repository URL. Supported forms:
//
//	https://github.com/acme/widget
//	https://github.com/acme/widget.git
//	git@github.com:acme/widget.git
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fault.Newf(fault.Ambiguous, "hosting.parse_target", "no repository URL given")
	}

	// Rewrite scp-like ssh addresses into URL form first.
	if strings.HasPrefix(raw, "git@") {
		rest := strings.TrimPrefix(raw, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if !ok {
			return Target{}, fault.Newf(fault.Ambiguous, "hosting.parse_target", "unrecognized ssh address: %s", raw)
		}
		raw = "https://" + host + "/" + path
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Target{}, fault.Newf(fault.Ambiguous, "hosting.parse_target", "not a repository URL: %s", raw)
	}

	path := strings.Trim(strings.TrimSuffix(u.Path, ".git"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, fault.Newf(fault.Ambiguous, "hosting.parse_target", "expected <host>/<owner>/<repo>, got: %s", raw)
	}

	return Target{Host: u.Host, Owner: parts[0], Name: parts[1]}, nil
}
