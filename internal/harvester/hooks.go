package harvester

import (
	"sync"

	logger "github.com/finchsec/magpie/internal/logging"
)

// SessionEvent is the payload for session lifecycle hooks.
type SessionEvent struct {
	Session *Session
}

// ToolEvent is the payload for the tool-installed hook.
type ToolEvent struct {
	Session *Session
	Tool    string
	Output  string
}

// AuthEvent is the payload for the authentication-completed hook.
type AuthEvent struct {
	Session *Session
	Output  string
}

// CredentialEvent is the payload for the credentials-extracted hook.
type CredentialEvent struct {
	Session *Session
	Count   int
}

// ErrorEvent is the payload for the harvest-error hook.
type ErrorEvent struct {
	Session *Session
	Step    string
	Err     error
}

// Hooks is a statically-typed event bus for harvest execution.
// Registration is additive: there is no unregister primitive. Handler
// panics are recovered and logged, never allowed to abort a harvest.
type Hooks struct {
	mu  sync.Mutex
	log logger.Logger

	sessionStarted          []func(SessionEvent)
	sessionCompleted        []func(SessionEvent)
	sessionFailed           []func(SessionEvent)
	toolInstalled           []func(ToolEvent)
	authenticationCompleted []func(AuthEvent)
	credentialsExtracted    []func(CredentialEvent)
	harvestError            []func(ErrorEvent)
}

func newHooks(log logger.Logger) *Hooks {
	return &Hooks{log: log}
}

// OnSessionStarted registers a handler for session start.
func (h *Hooks) OnSessionStarted(fn func(SessionEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionStarted = append(h.sessionStarted, fn)
}

// OnSessionCompleted registers a handler for successful sessions.
func (h *Hooks) OnSessionCompleted(fn func(SessionEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionCompleted = append(h.sessionCompleted, fn)
}

// OnSessionFailed registers a handler for failed sessions.
func (h *Hooks) OnSessionFailed(fn func(SessionEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionFailed = append(h.sessionFailed, fn)
}

// OnToolInstalled registers a handler for tool installations.
func (h *Hooks) OnToolInstalled(fn func(ToolEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toolInstalled = append(h.toolInstalled, fn)
}

// OnAuthenticationCompleted registers a handler for completed auth steps.
func (h *Hooks) OnAuthenticationCompleted(fn func(AuthEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authenticationCompleted = append(h.authenticationCompleted, fn)
}

// OnCredentialsExtracted registers a handler for extraction results.
func (h *Hooks) OnCredentialsExtracted(fn func(CredentialEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.credentialsExtracted = append(h.credentialsExtracted, fn)
}

// OnHarvestError registers a handler for step errors.
func (h *Hooks) OnHarvestError(fn func(ErrorEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.harvestError = append(h.harvestError, fn)
}

// emit runs every handler for one event, isolating panics per handler.
func emit[E any](h *Hooks, name string, handlers []func(E), event E) {
	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.log.Errorf("hook handler for %s panicked: %v", name, r)
				}
			}()
			fn(event)
		}()
	}
}

func (h *Hooks) emitSessionStarted(event SessionEvent) {
	h.mu.Lock()
	handlers := append(([]func(SessionEvent))(nil), h.sessionStarted...)
	h.mu.Unlock()
	emit(h, "session_started", handlers, event)
}

func (h *Hooks) emitSessionCompleted(event SessionEvent) {
	h.mu.Lock()
	handlers := append(([]func(SessionEvent))(nil), h.sessionCompleted...)
	h.mu.Unlock()
	emit(h, "session_completed", handlers, event)
}

func (h *Hooks) emitSessionFailed(event SessionEvent) {
	h.mu.Lock()
	handlers := append(([]func(SessionEvent))(nil), h.sessionFailed...)
	h.mu.Unlock()
	emit(h, "session_failed", handlers, event)
}

func (h *Hooks) emitToolInstalled(event ToolEvent) {
	h.mu.Lock()
	handlers := append(([]func(ToolEvent))(nil), h.toolInstalled...)
	h.mu.Unlock()
	emit(h, "tool_installed", handlers, event)
}

func (h *Hooks) emitAuthenticationCompleted(event AuthEvent) {
	h.mu.Lock()
	handlers := append(([]func(AuthEvent))(nil), h.authenticationCompleted...)
	h.mu.Unlock()
	emit(h, "authentication_completed", handlers, event)
}

func (h *Hooks) emitCredentialsExtracted(event CredentialEvent) {
	h.mu.Lock()
	handlers := append(([]func(CredentialEvent))(nil), h.credentialsExtracted...)
	h.mu.Unlock()
	emit(h, "credentials_extracted", handlers, event)
}

func (h *Hooks) emitHarvestError(event ErrorEvent) {
	h.mu.Lock()
	handlers := append(([]func(ErrorEvent))(nil), h.harvestError...)
	h.mu.Unlock()
	emit(h, "harvest_error", handlers, event)
}
