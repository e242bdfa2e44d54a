package harvester

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	merrors "github.com/finchsec/magpie/internal/errors"
	logger "github.com/finchsec/magpie/internal/logging"
	"github.com/finchsec/magpie/internal/registry"
)

// Step names, in workflow order.
const (
	StepDetectTool   = "detect-tool"
	StepInstallTool  = "install-tool"
	StepAuthenticate = "authenticate"
	StepExtract      = "extract-credentials"
	StepValidate     = "validate-credentials"
)

// Harvester drives CLI tools to extract API credentials. Sessions for
// different services may run concurrently; each owns its own mutable
// state. The tool-detection cache is the only shared state and is
// safe for concurrent use.
type Harvester struct {
	Logger logger.Logger

	// Runner executes subprocesses. Defaults to the os/exec runner.
	Runner Runner

	// Home overrides the home directory for "~" config paths.
	Home string

	// LookupEnv overrides environment lookups for extraction.
	LookupEnv func(string) (string, bool)

	// Timeouts. Zero values use the defaults: 10s probe, 5m install,
	// 60s auth.
	ProbeTimeout   time.Duration
	InstallTimeout time.Duration
	AuthTimeout    time.Duration

	hooks *Hooks
	cache *toolCache

	patternsMu sync.Mutex
	patterns   *PatternSet
	mutations  []MutationRecord

	sessionsMu sync.Mutex
	sessions   []*Session
}

// New returns a harvester with the production runner and default
// extraction patterns.
func New(log logger.Logger) *Harvester {
	return &Harvester{
		Logger: log,
		Runner: NewExecRunner(),
		hooks:  newHooks(log),
		cache:  newToolCache(),

		patterns: DefaultPatternSet(),
	}
}

// Hooks exposes the event bus for external listeners.
func (h *Harvester) Hooks() *Hooks {
	return h.hooks
}

// Patterns returns the currently published pattern set.
func (h *Harvester) Patterns() *PatternSet {
	h.patternsMu.Lock()
	defer h.patternsMu.Unlock()
	return h.patterns
}

// Mutate applies a pattern-set mutation. The current set is snapshotted
// before the change; a failing mutation leaves it untouched and is
// recorded as a failure.
func (h *Harvester) Mutate(mut Mutation) MutationRecord {
	h.patternsMu.Lock()
	defer h.patternsMu.Unlock()

	record := newMutationRecord(mut, h.patterns.Version)
	next, changes, err := h.patterns.apply(mut)
	if err != nil {
		record.Success = false
		record.ToVersion = h.patterns.Version
		record.Error = err.Error()
		h.Logger.Warnf("pattern mutation %s rejected: %v", mut.Type, err)
	} else {
		h.patterns = next
		record.Success = true
		record.ToVersion = next.Version
		record.Changes = changes
	}
	h.mutations = append(h.mutations, record)
	return record
}

// Mutations returns the record of every mutation attempt.
func (h *Harvester) Mutations() []MutationRecord {
	h.patternsMu.Lock()
	defer h.patternsMu.Unlock()
	return append([]MutationRecord(nil), h.mutations...)
}

// Sessions returns every session started during this process.
func (h *Harvester) Sessions() []*Session {
	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()
	return append([]*Session(nil), h.sessions...)
}

// Harvest runs one complete harvest session for the service. The
// returned session carries the outcome; only configuration errors
// (unknown service, no CLI support, unimplemented extraction method)
// are returned as errors, before any side effect.
func (h *Harvester) Harvest(ctx context.Context, serviceID string) (*Session, error) {
	svc := registry.ServiceByID(serviceID)
	if svc == nil {
		return nil, fmt.Errorf("%w: %s", merrors.ErrServiceNotFound, serviceID)
	}
	if !svc.CLI.Available {
		return nil, fmt.Errorf("%w: %s", merrors.ErrNoCLISupport, serviceID)
	}
	if svc.CLI.KeyExtractionMethod == registry.ExtractCommand {
		return nil, fmt.Errorf("%w: command extraction is not implemented", merrors.ErrExtractionUnsupported)
	}

	session := newSession(serviceID)
	h.sessionsMu.Lock()
	h.sessions = append(h.sessions, session)
	h.sessionsMu.Unlock()

	session.Status = StatusInProgress
	h.hooks.emitSessionStarted(SessionEvent{Session: session})
	h.Logger.Infof("Starting harvest session %s for %s", session.ID, serviceID)

	if err := h.runWorkflow(ctx, session, svc); err != nil {
		h.failSession(session, err)
		return session, nil
	}

	now := time.Now().UTC()
	session.Status = StatusCompleted
	session.CompletedAt = &now
	h.hooks.emitSessionCompleted(SessionEvent{Session: session})
	h.Logger.Infof("Harvest session %s completed", session.ID)
	return session, nil
}

// failSession marks the session terminally failed and notifies hooks.
func (h *Harvester) failSession(session *Session, err error) {
	now := time.Now().UTC()
	session.Status = StatusFailed
	session.CompletedAt = &now
	session.Error = err.Error()

	stepName := ""
	if n := len(session.Steps); n > 0 {
		stepName = session.Steps[n-1].Name
	}
	h.hooks.emitHarvestError(ErrorEvent{Session: session, Step: stepName, Err: err})
	h.hooks.emitSessionFailed(SessionEvent{Session: session})
	h.Logger.Errorf("Harvest session %s failed at %s: %v", session.ID, stepName, err)
}

// runWorkflow executes the strict step sequence. The first failing
// step aborts the remainder; no retries happen at this layer.
func (h *Harvester) runWorkflow(ctx context.Context, session *Session, svc *registry.Service) error {
	tool := svc.CLI.ToolName

	// Step 1: tool detection.
	idx := session.beginStep(StepDetectTool)
	installed, detectOutput, err := h.CheckToolInstalled(ctx, tool)
	if err != nil {
		session.failStep(idx, err)
		return err
	}
	if installed {
		session.completeStep(idx, detectOutput)
	} else {
		session.completeStep(idx, "not installed")

		// Step 2: installation, only when detection came up empty.
		idx = session.beginStep(StepInstallTool)
		installOutput, err := h.InstallTool(ctx, tool, svc.CLI.InstallCommand)
		if err != nil {
			session.failStep(idx, err)
			return err
		}
		session.completeStep(idx, installOutput)
		h.hooks.emitToolInstalled(ToolEvent{Session: session, Tool: tool, Output: installOutput})
	}

	// Step 3: authentication.
	if svc.CLI.AuthCommand != "" {
		idx = session.beginStep(StepAuthenticate)
		authOutput, err := h.authenticate(ctx, svc.CLI.AuthCommand)
		if err != nil {
			session.failStep(idx, err)
			return err
		}
		session.completeStep(idx, authOutput)
		h.hooks.emitAuthenticationCompleted(AuthEvent{Session: session, Output: authOutput})
	}

	// Step 4: extraction.
	idx = session.beginStep(StepExtract)
	candidates, err := h.extract(svc)
	if err != nil {
		session.failStep(idx, err)
		return err
	}
	session.completeStep(idx, fmt.Sprintf("%d candidate(s)", len(candidates)))
	h.hooks.emitCredentialsExtracted(CredentialEvent{Session: session, Count: len(candidates)})

	// Step 5: validation and normalization.
	idx = session.beginStep(StepValidate)
	credential := h.normalize(svc, candidates[0])
	session.completeStep(idx, credential.Key)
	session.Result = credential
	return nil
}

// authenticate runs the registry's auth command. Commands that look
// interactive (contain an interactive keyword such as "login" or
// "auth") go through the piped child-process path; everything else is
// a simple bounded exec.
func (h *Harvester) authenticate(ctx context.Context, authCommand string) (string, error) {
	authCtx, cancel := context.WithTimeout(ctx, h.authTimeout())
	defer cancel()

	var result *ExecResult
	var err error
	if h.Patterns().interactive(authCommand) {
		result, err = h.Runner.Interactive(authCtx, authCommand)
	} else {
		result, err = h.Runner.Shell(authCtx, authCommand)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", merrors.ErrAuthFailed, err)
	}
	if !result.Ok() {
		return "", fmt.Errorf("%w: auth command exited %d: %s",
			merrors.ErrAuthFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Trimmed(), nil
}

// extract dispatches on the service's extraction method.
func (h *Harvester) extract(svc *registry.Service) ([]Extracted, error) {
	switch svc.CLI.KeyExtractionMethod {
	case registry.ExtractConfig:
		return h.extractFromConfig(svc, h.Patterns())
	case registry.ExtractEnvironment:
		return h.extractFromEnvironment(svc)
	case registry.ExtractCommand:
		return nil, fmt.Errorf("%w: command extraction is not implemented", merrors.ErrExtractionUnsupported)
	default:
		return nil, fmt.Errorf("%w: %q", merrors.ErrExtractionUnsupported, svc.CLI.KeyExtractionMethod)
	}
}

// normalize wraps the first extracted candidate into a Credential with
// full provenance. A candidate matching none of the declared key
// formats logs a warning but does not fail: key formats evolve faster
// than registry entries.
func (h *Harvester) normalize(svc *registry.Service, candidate Extracted) *Credential {
	envVar := ""
	matched := false
	for _, format := range svc.KeyFormats {
		re, err := regexp.Compile("^" + format.Pattern + "$")
		if err != nil {
			continue
		}
		if re.MatchString(candidate.Value) {
			envVar = format.EnvVarName
			matched = true
			break
		}
	}
	if !matched {
		h.Logger.Warnf("credential for %s matches no declared key format", svc.ID)
		if len(svc.KeyFormats) > 0 {
			envVar = svc.KeyFormats[0].EnvVarName
		}
	}
	if envVar == "" {
		envVar = strings.ToUpper(strings.ReplaceAll(svc.ID, "-", "_")) + "_API_KEY"
	}

	authMethod := ""
	if len(svc.AuthMethods) > 0 {
		authMethod = svc.AuthMethods[0]
	}

	now := time.Now().UTC()
	return &Credential{
		Key:           envVar,
		Value:         candidate.Value,
		Description:   fmt.Sprintf("%s credential harvested from %s", svc.Name, svc.CLI.ToolName),
		Created:       now,
		LastUpdated:   now,
		Tags:          []string{"harvested", svc.Category},
		Category:      svc.Category,
		Source:        "cli-harvester",
		Service:       svc.ID,
		HarvestMethod: "cli",
		AuthMethod:    authMethod,
		Metadata: HarvestMetadata{
			HarvestedAt: now,
			CLITool:     svc.CLI.ToolName,
		},
	}
}
