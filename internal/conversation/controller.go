package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/manno/shipmate/internal/deploy"
	"github.com/manno/shipmate/internal/fault"
	"github.com/manno/shipmate/internal/hosting"
	"github.com/manno/shipmate/internal/intent"
	"github.com/manno/shipmate/internal/manifest"
	"github.com/manno/shipmate/internal/registry"
	"github.com/manno/shipmate/internal/session"
)

// Disposition tags what a message did to its session.
type Disposition string

const (
	// Advanced means the stage's side effect ran and the session moved on.
	Advanced Disposition = "advanced"
	// Retried means the session is unchanged and the user should rephrase or
	// answer the stage's question again.
	Retried Disposition = "retried"
	// Failed means an upstream system failed; the session is unchanged and
	// the same message can be resubmitted.
	Failed Disposition = "failed"
	// Finished means the session was already complete when the message
	// arrived.
	Finished Disposition = "finished"
)

// Reply is what the conversation returns for one user message.
type Reply struct {
	Disposition Disposition
	Message     string
	Stage       Stage
	SessionID   string
}

// Context keys accumulated across stages. Stage N can rely on the keys set by
// the stages before it because advancing is the only way to set them.
const (
	ctxHost             = "host"
	ctxOwner            = "owner"
	ctxRepo             = "repo"
	ctxBranch           = "branch"
	ctxLanguage         = "language"
	ctxDockerfileExists = "dockerfile_existed"
	ctxRegistry         = "registry"
	ctxCIBranch         = "ci_branch"
	ctxCIRunner         = "ci_os"
	ctxNamespace        = "namespace"
	ctxAppName          = "app_name"
	ctxManifestPrefix   = "manifest_"
)

const completedMessage = "This repository is already fully provisioned: Dockerfile, registry project, " +
	"build workflow and deployment are all in place. Start a new session to provision another repository."

// manifestDir is the path in the target repository the rendered manifests are
// committed under; the registered application points its source path here.
const manifestDir = "deploy"

const defaultUpstreamTimeout = 30 * time.Second

// Config carries the environment-level facts the controller needs beyond its
// collaborators.
type Config struct {
	// RegistryHost is the registry hostname used in image references.
	RegistryHost string
	// DestServer is the destination cluster for registered applications;
	// empty means the in-cluster server.
	DestServer string
	// UpstreamTimeout bounds every LLM and facade call. An unresponsive
	// upstream surfaces as a Transient failure instead of hanging the
	// session.
	UpstreamTimeout time.Duration
}

// Controller drives the provisioning conversation. It is generic over the
// facade interfaces, so provider adapters are the only provider-specific
// code.
type Controller struct {
	store     session.Store
	extractor intent.Extractor
	repo      hosting.Repository
	registry  registry.Client
	deployer  deploy.Registrar
	cfg       Config
	logger    *slog.Logger
}

func New(store session.Store, extractor intent.Extractor, repo hosting.Repository,
	reg registry.Client, deployer deploy.Registrar, cfg Config, logger *slog.Logger) *Controller {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = defaultUpstreamTimeout
	}
	return &Controller{
		store:     store,
		extractor: extractor,
		repo:      repo,
		registry:  reg,
		deployer:  deployer,
		cfg:       cfg,
		logger:    logger,
	}
}

// HandleMessage processes one user message to completion. Messages for the
// same session key are serialized by the store; the whole stage handler runs
// under the per-key lock, so concurrent messages cannot interleave their
// read-modify-write cycles.
func (c *Controller) HandleMessage(ctx context.Context, key, message string) (Reply, error) {
	var reply Reply
	err := c.store.Update(key, string(StageLocateTarget), func(s *session.Session) error {
		reply = c.advance(ctx, s, message)
		if reply.Disposition == Advanced {
			s.UpdatedAt = time.Now()
		}
		reply.Stage = Stage(s.Stage)
		reply.SessionID = s.ID
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	c.logger.Info("message handled",
		"session_key", key,
		"stage", reply.Stage,
		"disposition", reply.Disposition)
	return reply, nil
}

func (c *Controller) advance(ctx context.Context, s *session.Session, message string) Reply {
	stage := Stage(s.Stage)
	switch stage {
	case StageLocateTarget:
		return c.handleLocateTarget(ctx, s, message)
	case StageConfirmDockerfile:
		return c.handleConfirmDockerfile(ctx, s, message)
	case StageNameRegistry:
		return c.handleNameRegistry(ctx, s, message)
	case StageConfigureWorkflow:
		return c.handleConfigureWorkflow(ctx, s, message)
	case StageConfigureDeployment:
		return c.handleConfigureDeployment(ctx, s, message)
	case StageCompleted:
		return Reply{Disposition: Finished, Message: completedMessage}
	default:
		// Unreachable unless the store was tampered with; reset to the
		// initial stage rather than wedging the conversation.
		c.logger.Error("session in unknown stage", "stage", s.Stage)
		s.Stage = string(StageLocateTarget)
		return Reply{Disposition: Retried, Message: "Something went wrong with this conversation; let's start over. Which repository should I provision?"}
	}
}

// transition moves the session forward after the stage's side effect
// succeeded. Illegal transitions indicate a controller bug and are refused.
func (c *Controller) transition(s *session.Session, to Stage) {
	from := Stage(s.Stage)
	if !canTransition(from, to) {
		c.logger.Error("illegal stage transition refused", "from", from, "to", to)
		return
	}
	s.Stage = string(to)
}

func (c *Controller) handleLocateTarget(ctx context.Context, s *session.Session, message string) Reply {
	raw, err := c.complete(ctx, locateTargetPrompt(message))
	if err != nil {
		return c.failure(err)
	}

	urlText := intent.StripFences(raw)
	if urlText == "" || strings.EqualFold(urlText, "none") {
		return Reply{Disposition: Retried,
			Message: "I need the repository URL to get started, e.g. https://github.com/owner/repo. Which repository should I provision?"}
	}

	target, err := hosting.ParseTarget(urlText)
	if err != nil {
		return Reply{Disposition: Retried,
			Message: fmt.Sprintf("%q does not look like a repository URL. Please give me the full URL, e.g. https://github.com/owner/repo.", urlText)}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	info, err := c.repo.Lookup(callCtx, target)
	if err != nil {
		if fault.IsNotFound(err) {
			return Reply{Disposition: Retried,
				Message: fmt.Sprintf("I could not find %s. Is the URL correct and the repository accessible?", target)}
		}
		return c.failure(err)
	}

	language, err := c.repo.PrimaryLanguage(callCtx, target)
	if err != nil && !fault.IsNotFound(err) {
		return c.failure(err)
	}

	hasDockerfile, err := c.repo.FileExists(callCtx, target, "Dockerfile", info.DefaultBranch)
	if err != nil {
		return c.failure(err)
	}

	s.Set(ctxHost, target.Host)
	s.Set(ctxOwner, target.Owner)
	s.Set(ctxRepo, target.Name)
	s.Set(ctxBranch, info.DefaultBranch)
	s.Set(ctxLanguage, language)
	s.Set(ctxDockerfileExists, fmt.Sprintf("%t", hasDockerfile))

	if hasDockerfile {
		c.transition(s, StageNameRegistry)
		return Reply{Disposition: Advanced,
			Message: fmt.Sprintf("Found %s with an existing Dockerfile on branch %q. What should the container registry project be called?", target, info.DefaultBranch)}
	}

	c.transition(s, StageConfirmDockerfile)
	if language == "" {
		return Reply{Disposition: Advanced,
			Message: fmt.Sprintf("Found %s (branch %q), but there is no Dockerfile and I could not detect the primary language. Which language is the project written in?", target, info.DefaultBranch)}
	}
	return Reply{Disposition: Advanced,
		Message: fmt.Sprintf("Found %s (branch %q). There is no Dockerfile yet; the primary language looks like %s. Shall I generate a %s Dockerfile?", target, info.DefaultBranch, language, language)}
}

func (c *Controller) handleConfirmDockerfile(ctx context.Context, s *session.Session, message string) Reply {
	detected := s.Get(ctxLanguage)

	raw, err := c.complete(ctx, dockerfileDecisionPrompt(detected, message))
	if err != nil {
		return c.failure(err)
	}

	var decision struct {
		Decision string `json:"decision"`
		Language string `json:"language"`
	}
	if err := intent.DecodeStrict(raw, &decision); err != nil {
		return Reply{Disposition: Retried,
			Message: "I did not catch that. Should I generate the Dockerfile with the detected language, or which language should I use instead?"}
	}

	// The language is identity-bearing: a plain "no" never substitutes a
	// default, it asks again.
	var language string
	switch decision.Decision {
	case "agree":
		language = detected
		if language == "" {
			return Reply{Disposition: Retried,
				Message: "I could not detect the language myself, so I need you to name it. Which language is the project written in?"}
		}
	case "disagree":
		language = strings.TrimSpace(decision.Language)
		if language == "" {
			return Reply{Disposition: Retried,
				Message: "Understood, not " + detected + ". Which language should the Dockerfile target?"}
		}
	default:
		return Reply{Disposition: Retried,
			Message: "Please answer yes, or name the language the Dockerfile should target."}
	}

	body, err := c.complete(ctx, dockerfileRenderPrompt(language))
	if err != nil {
		return c.failure(err)
	}
	dockerfile := intent.StripFences(body)
	if dockerfile == "" || !strings.Contains(strings.ToUpper(dockerfile), "FROM ") {
		return Reply{Disposition: Retried,
			Message: "The generated Dockerfile did not look usable; nothing was committed. Please try again."}
	}

	target, branch := c.target(s), s.Get(ctxBranch)
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	created, err := c.repo.WriteFile(callCtx, target, "Dockerfile", dockerfile,
		fmt.Sprintf("Add Dockerfile for %s build", language), branch)
	if err != nil {
		return c.failure(err)
	}

	s.Set(ctxLanguage, language)
	c.transition(s, StageNameRegistry)

	verb := "updated"
	if created {
		verb = "committed"
	}
	return Reply{Disposition: Advanced,
		Message: fmt.Sprintf("I %s a %s Dockerfile on branch %q. What should the container registry project be called?", verb, language, branch)}
}

func (c *Controller) handleNameRegistry(ctx context.Context, s *session.Session, message string) Reply {
	name := registry.NormalizeName(message)
	if name == "" {
		return Reply{Disposition: Retried,
			Message: "I could not turn that into a registry project name. Please give me a short name using letters, digits and dashes."}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	exists, err := c.registry.Exists(callCtx, name)
	if err != nil {
		return c.failure(err)
	}
	if !exists {
		if err := c.registry.Create(callCtx, name); err != nil {
			return c.failure(err)
		}
	}

	s.Set(ctxRegistry, name)
	c.transition(s, StageConfigureWorkflow)

	state := "created"
	if exists {
		state = "found existing"
	}
	return Reply{Disposition: Advanced,
		Message: fmt.Sprintf("Registry project %q is ready (%s). Now for the build workflow: which branch should trigger builds, and any runner preference? (defaults: %s on %s)",
			name, state, manifest.DefaultBranch, manifest.DefaultRunner)}
}

func (c *Controller) handleConfigureWorkflow(ctx context.Context, s *session.Session, message string) Reply {
	raw, err := c.complete(ctx, workflowPrompt(message))
	if err != nil {
		return c.failure(err)
	}

	// Branch and runner are cosmetic, so malformed extraction falls back to
	// the named defaults instead of re-prompting.
	var prefs struct {
		Branch string `json:"branch"`
		OS     string `json:"os"`
	}
	if err := intent.DecodeStrict(raw, &prefs); err != nil {
		c.logger.Warn("workflow preference extraction failed, using defaults", "error", err)
		prefs.Branch, prefs.OS = "", ""
	}
	branch := strings.TrimSpace(prefs.Branch)
	if branch == "" {
		branch = manifest.DefaultBranch
	}
	runner := strings.TrimSpace(prefs.OS)
	if runner == "" {
		runner = manifest.DefaultRunner
	}

	workflow, err := manifest.RenderWorkflow(manifest.WorkflowParams{
		Branch:   branch,
		Runner:   runner,
		Registry: c.cfg.RegistryHost,
		Project:  s.Get(ctxRegistry),
		Image:    s.Get(ctxRepo),
	})
	if err != nil {
		return c.failure(err)
	}

	target, defaultBranch := c.target(s), s.Get(ctxBranch)
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.repo.WriteFile(callCtx, target, manifest.WorkflowPath, workflow,
		"Add container build workflow", defaultBranch); err != nil {
		return c.failure(err)
	}

	s.Set(ctxCIBranch, branch)
	s.Set(ctxCIRunner, runner)
	c.transition(s, StageConfigureDeployment)

	return Reply{Disposition: Advanced,
		Message: fmt.Sprintf("Build workflow committed: pushes to %q build %s/%s/%s on %s. Last step, the deployment: which namespace and application name, and any requirements (port, replicas, persistent storage)?",
			branch, c.cfg.RegistryHost, s.Get(ctxRegistry), s.Get(ctxRepo), runner)}
}

func (c *Controller) handleConfigureDeployment(ctx context.Context, s *session.Session, message string) Reply {
	repoName := s.Get(ctxRepo)

	raw, err := c.complete(ctx, deployParamsPrompt(repoName, message))
	if err != nil {
		return c.failure(err)
	}

	var params deployParams
	if err := intent.DecodeStrict(raw, &params); err != nil {
		c.logger.Warn("deployment parameter extraction failed, using defaults", "error", err)
		params = deployParams{}
	}
	params.applyDefaults(repoName)

	image := fmt.Sprintf("%s/%s/%s:latest", c.cfg.RegistryHost, s.Get(ctxRegistry), repoName)
	rendered, err := c.complete(ctx, manifestRenderPrompt(params, image))
	if err != nil {
		return c.failure(err)
	}

	var set struct {
		Deployment string `json:"deployment"`
		Service    string `json:"service"`
		PVC        string `json:"pvc"`
	}
	if err := intent.DecodeStrict(rendered, &set); err != nil {
		return Reply{Disposition: Retried,
			Message: "Manifest generation came back malformed; nothing was committed. Please try again."}
	}

	// Validate the complete artifact set before any write. A broken manifest
	// that is already pushed would leave the repository worse than before
	// this call.
	docs := map[string]string{
		"deployment": set.Deployment,
		"service":    set.Service,
		"pvc":        set.PVC,
	}
	if err := manifest.ValidateSet(docs, "deployment", "service"); err != nil {
		return Reply{Disposition: Retried,
			Message: fmt.Sprintf("Manifest validation failed, nothing was committed: %v. Please try again.", err)}
	}

	target, branch := c.target(s), s.Get(ctxBranch)
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	commits := []struct {
		path, body string
	}{
		{manifestDir + "/deployment.yaml", set.Deployment},
		{manifestDir + "/service.yaml", set.Service},
	}
	if strings.TrimSpace(set.PVC) != "" {
		commits = append(commits, struct{ path, body string }{manifestDir + "/pvc.yaml", set.PVC})
	}
	for _, commit := range commits {
		if _, err := c.repo.WriteFile(callCtx, target, commit.path, commit.body,
			"Add deployment manifests", branch); err != nil {
			return c.failure(err)
		}
	}

	app := deploy.Application{
		Name:          params.AppName,
		Namespace:     params.Namespace,
		RepoURL:       target.URL(),
		Revision:      branch,
		Path:          manifestDir,
		DestServer:    c.cfg.DestServer,
		AutomatedSync: true,
	}
	if err := c.deployer.RegisterApplication(callCtx, app); err != nil {
		return c.failure(err)
	}

	s.Set(ctxNamespace, params.Namespace)
	s.Set(ctxAppName, params.AppName)
	s.Set(ctxManifestPrefix+"deployment", set.Deployment)
	s.Set(ctxManifestPrefix+"service", set.Service)
	if strings.TrimSpace(set.PVC) != "" {
		s.Set(ctxManifestPrefix+"pvc", set.PVC)
	}
	c.transition(s, StageCompleted)

	return Reply{Disposition: Advanced,
		Message: fmt.Sprintf("All done. Application %q is registered in namespace %q, syncing manifests from %s/%s on branch %q. Pushes to %q will build and deploy automatically.",
			params.AppName, params.Namespace, target.URL(), manifestDir, branch, s.Get(ctxCIBranch))}
}

type deployParams struct {
	Namespace   string `json:"namespace"`
	AppName     string `json:"app_name"`
	Expose      bool   `json:"expose"`
	Port        int    `json:"port"`
	Replicas    int    `json:"replicas"`
	Persistence bool   `json:"persistence"`
}

func (p *deployParams) applyDefaults(repoName string) {
	if strings.TrimSpace(p.Namespace) == "" {
		p.Namespace = "default"
	}
	if strings.TrimSpace(p.AppName) == "" {
		p.AppName = repoName
	}
	if p.Port <= 0 {
		p.Port = 8080
	}
	if p.Replicas <= 0 {
		p.Replicas = 1
	}
}

func (c *Controller) target(s *session.Session) hosting.Target {
	return hosting.Target{
		Host:  s.Get(ctxHost),
		Owner: s.Get(ctxOwner),
		Name:  s.Get(ctxRepo),
	}
}

// complete performs one bounded extraction call.
func (c *Controller) complete(ctx context.Context, req intent.Request) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	return c.extractor.Extract(callCtx, req)
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.UpstreamTimeout)
}

// failure converts an upstream fault into a user-facing retry message. The
// session is never left partially updated: handlers only mutate state after
// every side effect of their stage succeeded.
func (c *Controller) failure(err error) Reply {
	c.logger.Error("stage handler failed", "error", err)

	var msg string
	switch fault.KindOf(err) {
	case fault.Unauthorized:
		msg = fmt.Sprintf("I am not authorized for that operation (%v). Check the configured credentials, then send your message again.", err)
	case fault.Conflict:
		msg = fmt.Sprintf("That name or resource conflicts with something that already exists (%v). Try a different name.", err)
	case fault.NotFound:
		msg = fmt.Sprintf("Something I needed was not found (%v). Please check and try again.", err)
	case fault.Validation:
		msg = fmt.Sprintf("A generated artifact failed validation and was not committed (%v). Please try again.", err)
	case fault.Ambiguous:
		msg = "I could not interpret the response from the language model. Please try again."
	default:
		msg = "An upstream service did not respond in time. Nothing was changed; please send your message again."
	}
	return Reply{Disposition: Failed, Message: msg}
}
