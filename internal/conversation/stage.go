// Package conversation implements the provisioning state machine: one stage
// per conversational step, each with its own prompt, extraction shape and
// single idempotent side effect.
package conversation

// Stage is a named point in the provisioning conversation.
type Stage string

const (
	// StageLocateTarget waits for a message containing the repository URL.
	StageLocateTarget Stage = "locate_target"
	// StageConfirmDockerfile waits for agreement on the detected language (or
	// an explicit language) before a Dockerfile is generated and committed.
	StageConfirmDockerfile Stage = "confirm_dockerfile"
	// StageNameRegistry waits for the registry project name.
	StageNameRegistry Stage = "name_registry"
	// StageConfigureWorkflow waits for build branch and runner preferences.
	StageConfigureWorkflow Stage = "configure_workflow"
	// StageConfigureDeployment waits for deployment requirements, then
	// renders, validates and commits the manifests and registers the
	// application.
	StageConfigureDeployment Stage = "configure_deployment"
	// StageCompleted is absorbing; every further message gets a fixed reply.
	StageCompleted Stage = "completed"
)

// Stages lists every stage, initial first.
var Stages = []Stage{
	StageLocateTarget,
	StageConfirmDockerfile,
	StageNameRegistry,
	StageConfigureWorkflow,
	StageConfigureDeployment,
	StageCompleted,
}

func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// transitions is the forward edge set of the stage machine. Re-prompting
// stays on the current stage and is always allowed, so self-loops are not
// listed. A repository that already has a Dockerfile skips the confirmation
// stage entirely.
var transitions = map[Stage][]Stage{
	StageLocateTarget:        {StageConfirmDockerfile, StageNameRegistry},
	StageConfirmDockerfile:   {StageNameRegistry},
	StageNameRegistry:        {StageConfigureWorkflow},
	StageConfigureWorkflow:   {StageConfigureDeployment},
	StageConfigureDeployment: {StageCompleted},
	StageCompleted:           {},
}

func canTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
