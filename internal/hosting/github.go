package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	"github.com/manno/shipmate/internal/fault"
)

// GitHub implements Repository against the GitHub REST API.
type GitHub struct {
	client *github.Client
	logger *slog.Logger
}

func NewGitHub(ctx context.Context, token string, logger *slog.Logger) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required: use --github-token flag or GITHUB_TOKEN env var")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &GitHub{
		client: github.NewClient(tc),
		logger: logger,
	}, nil
}

func (g *GitHub) Lookup(ctx context.Context, t Target) (*RepoInfo, error) {
	repo, _, err := g.client.Repositories.Get(ctx, t.Owner, t.Name)
	if err != nil {
		return nil, classify("hosting.lookup", err)
	}

	info := &RepoInfo{DefaultBranch: repo.GetDefaultBranch()}
	if info.DefaultBranch == "" {
		info.DefaultBranch = "main"
	}

	g.logger.Info("repository resolved", "repo", t.String(), "default_branch", info.DefaultBranch)
	return info, nil
}

func (g *GitHub) PrimaryLanguage(ctx context.Context, t Target) (string, error) {
	langs, _, err := g.client.Repositories.ListLanguages(ctx, t.Owner, t.Name)
	if err != nil {
		return "", classify("hosting.languages", err)
	}

	var best string
	var bestBytes int
	for lang, bytes := range langs {
		if bytes > bestBytes {
			best, bestBytes = lang, bytes
		}
	}
	if best == "" {
		return "", fault.Newf(fault.NotFound, "hosting.languages", "no languages reported for %s", t.String())
	}
	return best, nil
}

func (g *GitHub) FileExists(ctx context.Context, t Target, path, ref string) (bool, error) {
	_, _, _, err := g.client.Repositories.GetContents(ctx, t.Owner, t.Name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		cerr := classify("hosting.file_exists", err)
		if fault.IsNotFound(cerr) {
			return false, nil
		}
		return false, cerr
	}
	return true, nil
}

func (g *GitHub) ReadFile(ctx context.Context, t Target, path, ref string) (string, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, t.Owner, t.Name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", classify("hosting.read_file", err)
	}
	if file == nil {
		return "", fault.Newf(fault.NotFound, "hosting.read_file", "%s is a directory", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fault.New(fault.Validation, "hosting.read_file", err)
	}
	return content, nil
}

func (g *GitHub) WriteFile(ctx context.Context, t Target, path, content, message, ref string) (bool, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(ref),
	}

	// An update needs the blob SHA of the current version; absence means
	// create.
	existing, _, _, err := g.client.Repositories.GetContents(ctx, t.Owner, t.Name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		if _, _, err := g.client.Repositories.UpdateFile(ctx, t.Owner, t.Name, path, opts); err != nil {
			return false, classify("hosting.write_file", err)
		}
		g.logger.Info("file updated", "repo", t.String(), "path", path, "ref", ref)
		return false, nil
	case err != nil && !fault.IsNotFound(classify("hosting.write_file", err)):
		return false, classify("hosting.write_file", err)
	}

	if _, _, err := g.client.Repositories.CreateFile(ctx, t.Owner, t.Name, path, opts); err != nil {
		return false, classify("hosting.write_file", err)
	}
	g.logger.Info("file created", "repo", t.String(), "path", path, "ref", ref)
	return true, nil
}

// classify maps go-github errors onto the fault taxonomy.
func classify(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fault.New(fault.NotFound, op, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fault.New(fault.Unauthorized, op, err)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return fault.New(fault.Conflict, op, err)
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fault.New(fault.Transient, op, err)
	}
	return fault.New(fault.Transient, op, err)
}
