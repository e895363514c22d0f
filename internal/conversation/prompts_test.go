package conversation

import (
	"reflect"
	"strings"
	"testing"
)

// Prompt builders must be pure: same inputs, same request, no side effects.
func TestPromptBuildersAreDeterministic(t *testing.T) {
	p := deployParams{Namespace: "widgets", AppName: "widget", Port: 8080, Replicas: 2}

	if !reflect.DeepEqual(locateTargetPrompt("msg"), locateTargetPrompt("msg")) {
		t.Error("locateTargetPrompt is not deterministic")
	}
	if !reflect.DeepEqual(dockerfileDecisionPrompt("Go", "yes"), dockerfileDecisionPrompt("Go", "yes")) {
		t.Error("dockerfileDecisionPrompt is not deterministic")
	}
	if !reflect.DeepEqual(manifestRenderPrompt(p, "img:latest"), manifestRenderPrompt(p, "img:latest")) {
		t.Error("manifestRenderPrompt is not deterministic")
	}
}

func TestPromptShapes(t *testing.T) {
	if locateTargetPrompt("deploy my repo").JSON {
		t.Error("target extraction expects a bare value, not JSON")
	}
	if !dockerfileDecisionPrompt("Go", "yes").JSON {
		t.Error("dockerfile decision must be JSON-constrained")
	}
	if dockerfileRenderPrompt("Go").JSON {
		t.Error("the Dockerfile body is raw text, not JSON")
	}
	if !workflowPrompt("build main").JSON {
		t.Error("workflow preferences must be JSON-constrained")
	}
	if !deployParamsPrompt("widget", "namespace prod").JSON {
		t.Error("deployment parameters must be JSON-constrained")
	}
	if !manifestRenderPrompt(deployParams{}, "img").JSON {
		t.Error("manifest rendering must be JSON-constrained")
	}
}

func TestPromptsCarryUserText(t *testing.T) {
	msg := "deploy https://github.com/acme/widget please"
	if locateTargetPrompt(msg).User != msg {
		t.Error("user text must pass through unmodified")
	}
	if dockerfileDecisionPrompt("Go", "no, use Rust").User != "no, use Rust" {
		t.Error("user text must pass through unmodified")
	}
}

func TestManifestRenderPromptReflectsParams(t *testing.T) {
	p := deployParams{
		Namespace:   "widgets",
		AppName:     "widget",
		Port:        9090,
		Replicas:    3,
		Expose:      true,
		Persistence: true,
	}
	req := manifestRenderPrompt(p, "registry.example.com/acme/widget:latest")

	for _, want := range []string{"widgets", "widget", "9090", "3 replica", "LoadBalancer", "PersistentVolumeClaim"} {
		if !strings.Contains(req.User, want) {
			t.Errorf("manifest prompt should mention %q, got: %s", want, req.User)
		}
	}

	plain := manifestRenderPrompt(deployParams{Namespace: "default", AppName: "widget", Port: 8080, Replicas: 1}, "img")
	if !strings.Contains(plain.User, "ClusterIP") {
		t.Error("unexposed apps should get a ClusterIP service")
	}
}

func TestDockerfileDecisionPromptNamesDetectedLanguage(t *testing.T) {
	req := dockerfileDecisionPrompt("Rust", "sounds good")
	if !strings.Contains(req.System, "Rust") {
		t.Error("decision prompt should name the detected language")
	}
}
