// Package manifest validates and renders the artifacts the assistant commits:
// Kubernetes manifests, the CI workflow and the Dockerfile body.
package manifest

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/manno/shipmate/internal/fault"
)

// Validate checks that a model-rendered document is well-formed YAML whose
// top level is a non-empty mapping. It is a pure syntax gate; it deliberately
// knows nothing about Kubernetes schemas, so a valid-but-wrong manifest is
// the cluster's problem, not a commit blocker.
func Validate(name, doc string) error {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return fault.Newf(fault.Validation, "manifest.validate", "%s: document is empty", name)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(doc), &parsed); err != nil {
		return fault.Newf(fault.Validation, "manifest.validate", "%s: not valid YAML: %v", name, err)
	}
	if len(parsed) == 0 {
		return fault.Newf(fault.Validation, "manifest.validate", "%s: document has no content", name)
	}
	return nil
}

// ValidateSet checks a full artifact set before anything is committed.
// Required documents must be present and every present document must pass
// Validate; the first failure names the offending document. The all-or-
// nothing gate exists because a partially pushed manifest set leaves the
// repository worse than before the call.
func ValidateSet(docs map[string]string, required ...string) error {
	for _, name := range required {
		if strings.TrimSpace(docs[name]) == "" {
			return fault.Newf(fault.Validation, "manifest.validate", "required document %q is missing", name)
		}
	}
	for name, doc := range docs {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		if err := Validate(name, doc); err != nil {
			return err
		}
	}
	return nil
}
