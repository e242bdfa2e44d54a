package harvester

import (
	"testing"

	logger "github.com/finchsec/magpie/internal/logging"
)

func TestHookPanicIsolation(t *testing.T) {
	hooks := newHooks(logger.Logger{})

	var order []string
	hooks.OnSessionStarted(func(SessionEvent) {
		order = append(order, "first")
		panic("handler exploded")
	})
	hooks.OnSessionStarted(func(SessionEvent) {
		order = append(order, "second")
	})

	// Must not panic, and the second handler must still run.
	hooks.emitSessionStarted(SessionEvent{})

	if len(order) != 2 || order[1] != "second" {
		t.Errorf("handler order = %v, want both handlers to run", order)
	}
}

func TestHooksReceiveTypedPayloads(t *testing.T) {
	hooks := newHooks(logger.Logger{})

	var gotTool ToolEvent
	hooks.OnToolInstalled(func(e ToolEvent) { gotTool = e })

	var gotErr ErrorEvent
	hooks.OnHarvestError(func(e ErrorEvent) { gotErr = e })

	session := newSession("github")
	hooks.emitToolInstalled(ToolEvent{Session: session, Tool: "gh", Output: "installed"})
	hooks.emitHarvestError(ErrorEvent{Session: session, Step: StepInstallTool})

	if gotTool.Tool != "gh" || gotTool.Session != session {
		t.Errorf("tool event = %+v", gotTool)
	}
	if gotErr.Step != StepInstallTool {
		t.Errorf("error event step = %q", gotErr.Step)
	}
}

func TestHooksWithNoHandlers(t *testing.T) {
	hooks := newHooks(logger.Logger{})

	// Emitting with nothing registered is a no-op, not a crash.
	hooks.emitSessionStarted(SessionEvent{})
	hooks.emitSessionCompleted(SessionEvent{})
	hooks.emitSessionFailed(SessionEvent{})
	hooks.emitAuthenticationCompleted(AuthEvent{})
	hooks.emitCredentialsExtracted(CredentialEvent{})
}
