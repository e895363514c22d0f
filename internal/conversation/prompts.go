package conversation

import (
	"fmt"

	"github.com/manno/shipmate/internal/intent"
)

// Prompt builders are pure functions from (context facts, user text) to an
// extraction request, so every stage's prompt is testable without touching a
// model. Shapes are JSON-only with an explicit escape value; model output is
// decoded strictly and never evaluated.

func locateTargetPrompt(userText string) intent.Request {
	return intent.Request{
		System: `You extract source repository URLs from user messages.
Reply with only the repository URL (e.g. https://github.com/owner/repo).
If the message contains no repository URL, reply with an empty string.
Do not explain, do not add punctuation.`,
		User: userText,
	}
}

func dockerfileDecisionPrompt(detectedLanguage, userText string) intent.Request {
	return intent.Request{
		System: fmt.Sprintf(`The user was asked whether to generate a Dockerfile for a %s project.
Classify their reply as JSON with exactly these fields:
{"decision": "agree" | "disagree" | "unclear", "language": "<language the user named, or empty string>"}
"agree" means they accept the detected language. If they name a different
language, use "disagree" and set "language". If you cannot tell, use "unclear".
Return only the JSON object.`, detectedLanguage),
		User: userText,
		JSON: true,
	}
}

func dockerfileRenderPrompt(language string) intent.Request {
	return intent.Request{
		System: `You write production Dockerfiles.
Reply with only the Dockerfile content: no markdown fences, no commentary.
Use a multi-stage build where the language supports it, a slim base image,
and a non-root user.`,
		User: fmt.Sprintf("Write a Dockerfile for a %s application in the repository root.", language),
	}
}

func workflowPrompt(userText string) intent.Request {
	return intent.Request{
		System: `Extract CI build preferences from the user message as JSON with exactly these fields:
{"branch": "<branch name or empty string>", "os": "<runner label or empty string>"}
Use an empty string for anything the user did not specify.
Return only the JSON object.`,
		User: userText,
		JSON: true,
	}
}

func deployParamsPrompt(appName, userText string) intent.Request {
	return intent.Request{
		System: fmt.Sprintf(`Extract deployment requirements from the user message as JSON with exactly these fields:
{"namespace": "", "app_name": "", "expose": false, "port": 0, "replicas": 0, "persistence": false}
The application being deployed is %q. Use empty string, 0 or false for
anything the user did not specify.
Return only the JSON object.`, appName),
		User: userText,
		JSON: true,
	}
}

func manifestRenderPrompt(p deployParams, image string) intent.Request {
	persistence := "no persistent storage"
	if p.Persistence {
		persistence = "a PersistentVolumeClaim mounted at /data"
	}
	serviceType := "ClusterIP"
	if p.Expose {
		serviceType = "LoadBalancer"
	}
	return intent.Request{
		System: `You write Kubernetes manifests.
Reply as JSON with exactly these fields, each value a complete YAML document as a string:
{"deployment": "<Deployment manifest>", "service": "<Service manifest>", "pvc": "<PersistentVolumeClaim manifest, or empty string when none is needed>"}
Return only the JSON object. Every manifest must be valid YAML on its own.`,
		User: fmt.Sprintf(
			"Application %q in namespace %q: image %s, %d replica(s), container port %d, a %s Service, %s.",
			p.AppName, p.Namespace, image, p.Replicas, p.Port, serviceType, persistence),
		JSON: true,
	}
}
