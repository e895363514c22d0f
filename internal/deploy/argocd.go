package deploy

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/manno/shipmate/internal/fault"
)

const defaultDestServer = "https://kubernetes.default.svc"

// ArgoCD registers applications by writing Application custom resources into
// the controller's namespace.
type ArgoCD struct {
	client    client.Client
	namespace string // namespace Argo CD watches for Application CRs
	logger    *slog.Logger
}

func NewArgoCD(c client.Client, namespace string, logger *slog.Logger) *ArgoCD {
	if namespace == "" {
		namespace = "argocd"
	}
	return &ArgoCD{
		client:    c,
		namespace: namespace,
		logger:    logger,
	}
}

func (a *ArgoCD) RegisterApplication(ctx context.Context, app Application) error {
	if err := app.Validate(); err != nil {
		return fault.New(fault.Validation, "deploy.register", err)
	}

	obj := a.applicationObject(app)

	if err := a.client.Create(ctx, obj); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return classify("deploy.register", err)
		}

		// Re-registering the same application updates its spec in place.
		existing := &unstructured.Unstructured{}
		existing.SetGroupVersionKind(applicationGVK)
		key := client.ObjectKey{Name: app.Name, Namespace: a.namespace}
		if err := a.client.Get(ctx, key, existing); err != nil {
			return classify("deploy.register", err)
		}
		existing.Object["spec"] = obj.Object["spec"]
		if err := a.client.Update(ctx, existing); err != nil {
			return classify("deploy.register", err)
		}
		a.logger.Info("application updated", "name", app.Name, "namespace", app.Namespace)
		return nil
	}

	a.logger.Info("application registered", "name", app.Name, "namespace", app.Namespace)
	return nil
}

func (a *ArgoCD) applicationObject(app Application) *unstructured.Unstructured {
	destServer := app.DestServer
	if destServer == "" {
		destServer = defaultDestServer
	}

	spec := map[string]any{
		"project": "default",
		"source": map[string]any{
			"repoURL":        app.RepoURL,
			"targetRevision": app.Revision,
			"path":           app.Path,
		},
		"destination": map[string]any{
			"server":    destServer,
			"namespace": app.Namespace,
		},
	}
	if app.AutomatedSync {
		spec["syncPolicy"] = map[string]any{
			"automated": map[string]any{
				"prune":    true,
				"selfHeal": true,
			},
			"syncOptions": []any{"CreateNamespace=true"},
		}
	}

	obj := &unstructured.Unstructured{
		Object: map[string]any{
			"metadata": map[string]any{
				"name":      app.Name,
				"namespace": a.namespace,
				"labels": map[string]any{
					"app.kubernetes.io/managed-by": "shipmate",
				},
			},
			"spec": spec,
		},
	}
	obj.SetGroupVersionKind(applicationGVK)
	return obj
}

func classify(op string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return fault.New(fault.NotFound, op, err)
	case apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err):
		return fault.New(fault.Unauthorized, op, err)
	case apierrors.IsAlreadyExists(err) || apierrors.IsConflict(err):
		return fault.New(fault.Conflict, op, err)
	default:
		return fault.New(fault.Transient, op, fmt.Errorf("cluster request failed: %w", err))
	}
}
