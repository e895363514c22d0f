package deploy

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/manno/shipmate/internal/fault"
)

func testApp() Application {
	return Application{
		Name:          "widget",
		Namespace:     "widgets",
		RepoURL:       "https://github.com/acme/widget",
		Revision:      "main",
		Path:          "deploy",
		AutomatedSync: true,
	}
}

func newTestArgoCD(t *testing.T) (*ArgoCD, client.Client) {
	t.Helper()
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	a := NewArgoCD(c, "argocd", slog.New(slog.NewTextHandler(io.Discard, nil)))
	return a, c
}

func getApplication(t *testing.T, c client.Client, name string) *unstructured.Unstructured {
	t.Helper()
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(applicationGVK)
	if err := c.Get(context.Background(), client.ObjectKey{Name: name, Namespace: "argocd"}, obj); err != nil {
		t.Fatalf("failed to get application %s: %v", name, err)
	}
	return obj
}

func TestRegisterApplication(t *testing.T) {
	a, c := newTestArgoCD(t)

	if err := a.RegisterApplication(context.Background(), testApp()); err != nil {
		t.Fatalf("RegisterApplication failed: %v", err)
	}

	obj := getApplication(t, c, "widget")

	repoURL, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "repoURL")
	if repoURL != "https://github.com/acme/widget" {
		t.Errorf("unexpected source repoURL: %s", repoURL)
	}
	revision, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "targetRevision")
	if revision != "main" {
		t.Errorf("unexpected targetRevision: %s", revision)
	}
	path, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "path")
	if path != "deploy" {
		t.Errorf("unexpected source path: %s", path)
	}
	destNS, _, _ := unstructured.NestedString(obj.Object, "spec", "destination", "namespace")
	if destNS != "widgets" {
		t.Errorf("unexpected destination namespace: %s", destNS)
	}
	destServer, _, _ := unstructured.NestedString(obj.Object, "spec", "destination", "server")
	if destServer != defaultDestServer {
		t.Errorf("unexpected destination server: %s", destServer)
	}
	if _, found, _ := unstructured.NestedMap(obj.Object, "spec", "syncPolicy", "automated"); !found {
		t.Error("expected automated sync policy")
	}
}

func TestRegisterApplicationIsIdempotent(t *testing.T) {
	a, c := newTestArgoCD(t)

	if err := a.RegisterApplication(context.Background(), testApp()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	// Re-register with a changed revision; the existing CR must be updated,
	// not duplicated and not rejected.
	app := testApp()
	app.Revision = "release"
	if err := a.RegisterApplication(context.Background(), app); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	obj := getApplication(t, c, "widget")
	revision, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "targetRevision")
	if revision != "release" {
		t.Errorf("expected updated revision release, got %s", revision)
	}
}

func TestRegisterApplicationValidatesDescriptor(t *testing.T) {
	a, _ := newTestArgoCD(t)

	tests := []struct {
		name   string
		mutate func(*Application)
	}{
		{"missing name", func(app *Application) { app.Name = "" }},
		{"missing namespace", func(app *Application) { app.Namespace = "" }},
		{"missing repo", func(app *Application) { app.RepoURL = "" }},
		{"missing revision", func(app *Application) { app.Revision = "" }},
		{"missing path", func(app *Application) { app.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp()
			tt.mutate(&app)
			err := a.RegisterApplication(context.Background(), app)
			if !fault.IsValidation(err) {
				t.Errorf("expected Validation fault, got %v", err)
			}
		})
	}
}
