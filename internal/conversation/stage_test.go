package conversation

import "testing"

func TestStageValid(t *testing.T) {
	for _, s := range Stages {
		if !s.Valid() {
			t.Errorf("stage %s should be valid", s)
		}
	}
	for _, s := range []Stage{"", "unknown", "Completed", "locate-target"} {
		if s.Valid() {
			t.Errorf("stage %q should be invalid", s)
		}
	}
}

func TestTransitions(t *testing.T) {
	allowed := []struct{ from, to Stage }{
		{StageLocateTarget, StageConfirmDockerfile},
		{StageLocateTarget, StageNameRegistry}, // Dockerfile already present
		{StageConfirmDockerfile, StageNameRegistry},
		{StageNameRegistry, StageConfigureWorkflow},
		{StageConfigureWorkflow, StageConfigureDeployment},
		{StageConfigureDeployment, StageCompleted},
	}
	for _, tt := range allowed {
		if !canTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be allowed", tt.from, tt.to)
		}
	}

	// Self-loops (re-prompts) are always legal.
	for _, s := range Stages {
		if !canTransition(s, s) {
			t.Errorf("self-loop on %s should be allowed", s)
		}
	}

	forbidden := []struct{ from, to Stage }{
		{StageCompleted, StageLocateTarget},
		{StageCompleted, StageConfigureDeployment},
		{StageNameRegistry, StageCompleted},
		{StageConfirmDockerfile, StageLocateTarget}, // no going back
		{StageConfigureDeployment, StageNameRegistry},
		{StageLocateTarget, StageConfigureWorkflow}, // no skipping ahead
	}
	for _, tt := range forbidden {
		if canTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be forbidden", tt.from, tt.to)
		}
	}
}

func TestCompletedHasNoExits(t *testing.T) {
	if len(transitions[StageCompleted]) != 0 {
		t.Error("completed must be absorbing")
	}
}

func TestEveryStageHasTransitionEntry(t *testing.T) {
	for _, s := range Stages {
		if _, ok := transitions[s]; !ok {
			t.Errorf("stage %s missing from transition table", s)
		}
	}
}
