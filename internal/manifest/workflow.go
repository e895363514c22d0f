package manifest

import (
	"fmt"
	"strings"
	"text/template"
)

// WorkflowPath is where the CI workflow is committed in the target
// repository. One fixed name keeps the write idempotent across retries.
const WorkflowPath = ".github/workflows/build.yaml"

// DefaultBranch and DefaultRunner are the silent fallbacks for the workflow
// stage; both are cosmetic parameters, safe to default.
const (
	DefaultBranch = "main"
	DefaultRunner = "ubuntu-latest"
)

// WorkflowParams parameterize the generated build workflow.
type WorkflowParams struct {
	Branch   string // branch that triggers the build
	Runner   string // runs-on value
	Registry string // registry host, e.g. registry.example.com
	Project  string // registry project the image is pushed into
	Image    string // image name within the project
}

// Template delimiters are [[ ]] so the body can contain GitHub's ${{ }}
// expressions verbatim.
const workflowTemplate = `name: Build and Push

on:
  push:
    branches:
      - [[ .Branch ]]

jobs:
  build:
    runs-on: [[ .Runner ]]
    steps:
      - name: Checkout repository
        uses: actions/checkout@v4

      - name: Log in to registry
        uses: docker/login-action@v3
        with:
          registry: [[ .Registry ]]
          username: ${{ secrets.REGISTRY_USERNAME }}
          password: ${{ secrets.REGISTRY_PASSWORD }}

      - name: Build and push image
        uses: docker/build-push-action@v5
        with:
          context: .
          push: true
          tags: [[ .Registry ]]/[[ .Project ]]/[[ .Image ]]:${{ github.sha }}
`

var workflowTmpl = template.Must(template.New("workflow").Delims("[[", "]]").Parse(workflowTemplate))

// RenderWorkflow produces the CI workflow body. The image reference follows
// the <registry>/<project>/<name>:<revision> pattern the deployment side
// expects.
func RenderWorkflow(p WorkflowParams) (string, error) {
	if p.Branch == "" {
		p.Branch = DefaultBranch
	}
	if p.Runner == "" {
		p.Runner = DefaultRunner
	}
	if p.Registry == "" || p.Project == "" || p.Image == "" {
		return "", fmt.Errorf("registry, project and image are required to render the workflow")
	}

	var b strings.Builder
	if err := workflowTmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("failed to render workflow: %w", err)
	}
	return b.String(), nil
}
