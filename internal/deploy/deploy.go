// Package deploy registers applications with the GitOps controller (Argo CD).
package deploy

import (
	"context"
	"fmt"
)

// Application is the descriptor the deployment controller consumes. Source
// points at the target repository and the path the rendered manifests were
// committed under.
type Application struct {
	Name      string // application and Deployment name
	Namespace string // destination namespace on the cluster

	RepoURL  string // https URL of the provisioned repository
	Revision string // branch the manifests live on
	Path     string // path of the manifest directory within the repository

	DestServer string // destination cluster API server, defaults to in-cluster

	AutomatedSync bool
}

// Validate rejects descriptors that would produce a broken Application CR.
func (a *Application) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if a.Namespace == "" {
		return fmt.Errorf("destination namespace is required")
	}
	if a.RepoURL == "" {
		return fmt.Errorf("source repository URL is required")
	}
	if a.Revision == "" {
		return fmt.Errorf("source revision is required")
	}
	if a.Path == "" {
		return fmt.Errorf("source path is required")
	}
	return nil
}

// Registrar is the deployment surface the conversation layer uses.
type Registrar interface {
	RegisterApplication(ctx context.Context, app Application) error
}
