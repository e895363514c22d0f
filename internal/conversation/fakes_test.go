package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/manno/shipmate/internal/deploy"
	"github.com/manno/shipmate/internal/hosting"
	"github.com/manno/shipmate/internal/intent"
	"github.com/manno/shipmate/internal/session"
)

// fakeExtractor replays a scripted queue of completions, recording every
// request it saw.
type fakeExtractor struct {
	queue    []string
	err      error
	requests []intent.Request
}

func (f *fakeExtractor) push(responses ...string) {
	f.queue = append(f.queue, responses...)
}

func (f *fakeExtractor) Extract(_ context.Context, req intent.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.queue) == 0 {
		return "", fmt.Errorf("fake extractor: no scripted response for %q", req.User)
	}
	resp := f.queue[0]
	f.queue = f.queue[1:]
	return resp, nil
}

type writeCall struct {
	path, content, ref string
}

// fakeRepo is an in-memory hosting.Repository.
type fakeRepo struct {
	defaultBranch string
	language      string
	files         map[string]string

	lookupErr error
	langErr   error
	writeErr  error

	writes []writeCall
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		defaultBranch: "main",
		language:      "Go",
		files:         map[string]string{},
	}
}

func (f *fakeRepo) Lookup(context.Context, hosting.Target) (*hosting.RepoInfo, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return &hosting.RepoInfo{DefaultBranch: f.defaultBranch}, nil
}

func (f *fakeRepo) PrimaryLanguage(context.Context, hosting.Target) (string, error) {
	if f.langErr != nil {
		return "", f.langErr
	}
	return f.language, nil
}

func (f *fakeRepo) FileExists(_ context.Context, _ hosting.Target, path, _ string) (bool, error) {
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeRepo) ReadFile(_ context.Context, _ hosting.Target, path, _ string) (string, error) {
	return f.files[path], nil
}

func (f *fakeRepo) WriteFile(_ context.Context, _ hosting.Target, path, content, _, ref string) (bool, error) {
	if f.writeErr != nil {
		return false, f.writeErr
	}
	_, existed := f.files[path]
	f.files[path] = content
	f.writes = append(f.writes, writeCall{path: path, content: content, ref: ref})
	return !existed, nil
}

// fakeRegistry tracks which projects exist.
type fakeRegistry struct {
	existing  map[string]bool
	existsErr error
	createErr error
	creates   []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{existing: map[string]bool{}}
}

func (f *fakeRegistry) Exists(_ context.Context, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[name], nil
}

func (f *fakeRegistry) Create(_ context.Context, name string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.existing[name] = true
	f.creates = append(f.creates, name)
	return nil
}

// fakeDeployer records registered applications.
type fakeDeployer struct {
	err  error
	apps []deploy.Application
}

func (f *fakeDeployer) RegisterApplication(_ context.Context, app deploy.Application) error {
	if f.err != nil {
		return f.err
	}
	f.apps = append(f.apps, app)
	return nil
}

// harness wires a controller to fresh fakes.
type harness struct {
	controller *Controller
	store      *session.MemoryStore
	extractor  *fakeExtractor
	repo       *fakeRepo
	registry   *fakeRegistry
	deployer   *fakeDeployer
}

func newHarness() *harness {
	h := &harness{
		store:     session.NewMemoryStore(),
		extractor: &fakeExtractor{},
		repo:      newFakeRepo(),
		registry:  newFakeRegistry(),
		deployer:  &fakeDeployer{},
	}
	h.controller = New(h.store, h.extractor, h.repo, h.registry, h.deployer,
		Config{RegistryHost: "registry.example.com"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h
}

func (h *harness) send(key, message string) (Reply, error) {
	return h.controller.HandleMessage(context.Background(), key, message)
}

const (
	validDeploymentYAML = "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: widget\n"
	validServiceYAML    = "apiVersion: v1\nkind: Service\nmetadata:\n  name: widget\n"
	validPVCYAML        = "apiVersion: v1\nkind: PersistentVolumeClaim\nmetadata:\n  name: widget-data\n"
)

// manifestsJSON builds the manifest-set completion the render prompt expects.
func manifestsJSON(deployment, service, pvc string) string {
	b, _ := json.Marshal(map[string]string{
		"deployment": deployment,
		"service":    service,
		"pvc":        pvc,
	})
	return string(b)
}
