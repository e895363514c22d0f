package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manno/shipmate/internal/conversation"
	"github.com/manno/shipmate/internal/deploy"
	"github.com/manno/shipmate/internal/hosting"
	"github.com/manno/shipmate/internal/intent"
	"github.com/manno/shipmate/internal/registry"
	"github.com/manno/shipmate/internal/session"
)

// registerProvisionFlags adds the flags every conversation-carrying command
// needs.
func registerProvisionFlags(cmd *cobra.Command) {
	cmd.Flags().String("github-token", "", "GitHub token (or GITHUB_TOKEN env var)")
	cmd.Flags().String("gemini-api-key", "", "Gemini API key (or GEMINI_API_KEY env var)")
	cmd.Flags().String("gemini-model", intent.DefaultModel, "Gemini model for intent extraction")
	cmd.Flags().String("registry-url", "", "container registry base URL (or REGISTRY_URL env var)")
	cmd.Flags().String("registry-username", "", "registry username (or REGISTRY_USERNAME env var)")
	cmd.Flags().String("registry-password", "", "registry password (or REGISTRY_PASSWORD env var)")
	cmd.Flags().String("kubeconfig", "", "kubeconfig path (default: in-cluster config)")
	cmd.Flags().String("argo-namespace", "argocd", "namespace the GitOps controller watches for applications")
	cmd.Flags().String("dest-server", "", "destination cluster API server (default: in-cluster)")
	cmd.Flags().Duration("upstream-timeout", 30*time.Second, "timeout per upstream call")
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	v, _ := cmd.Flags().GetString(flag)
	if v == "" {
		v = os.Getenv(env)
	}
	return v
}

// buildConversation wires the controller to its production collaborators.
func buildConversation(ctx context.Context, cmd *cobra.Command) (*conversation.Controller, error) {
	logger := GetLogger()

	repo, err := hosting.NewGitHub(ctx, flagOrEnv(cmd, "github-token", "GITHUB_TOKEN"), logger)
	if err != nil {
		return nil, err
	}

	model, _ := cmd.Flags().GetString("gemini-model")
	extractor, err := intent.NewGemini(ctx, flagOrEnv(cmd, "gemini-api-key", "GEMINI_API_KEY"), model, logger)
	if err != nil {
		return nil, err
	}

	harbor, err := registry.NewHarbor(
		flagOrEnv(cmd, "registry-url", "REGISTRY_URL"),
		flagOrEnv(cmd, "registry-username", "REGISTRY_USERNAME"),
		flagOrEnv(cmd, "registry-password", "REGISTRY_PASSWORD"),
		logger)
	if err != nil {
		return nil, err
	}

	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	restCfg, err := deploy.GetConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config: %w", err)
	}
	k8sClient, err := deploy.NewClient(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}
	argoNamespace, _ := cmd.Flags().GetString("argo-namespace")
	argo := deploy.NewArgoCD(k8sClient, argoNamespace, logger)

	destServer, _ := cmd.Flags().GetString("dest-server")
	timeout, _ := cmd.Flags().GetDuration("upstream-timeout")

	return conversation.New(
		session.NewMemoryStore(),
		extractor,
		repo,
		harbor,
		argo,
		conversation.Config{
			RegistryHost:    harbor.Host(),
			DestServer:      destServer,
			UpstreamTimeout: timeout,
		},
		logger,
	), nil
}
