package harvester

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecResult captures the outcome of one subprocess invocation.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the external commands the harvester drives: version
// probes, installers, and auth flows. Tests substitute a fake so the
// workflow can run without any tools installed.
type Runner interface {
	// Run executes a program directly with arguments.
	Run(ctx context.Context, name string, args ...string) (*ExecResult, error)

	// Shell executes a full command line through the system shell.
	// Install and auth commands come from the registry as single
	// strings and may contain pipes or redirects.
	Shell(ctx context.Context, command string) (*ExecResult, error)

	// Interactive executes a command line with piped stdio and closes
	// stdin immediately. This stands in for real interactive auth
	// flows: tools that require a terminal fail fast instead of
	// hanging forever.
	Interactive(ctx context.Context, command string) (*ExecResult, error)
}

type execRunner struct{}

// NewExecRunner returns the production Runner backed by os/exec.
func NewExecRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (*ExecResult, error) {
	return runCmd(exec.CommandContext(ctx, name, args...))
}

func (execRunner) Shell(ctx context.Context, command string) (*ExecResult, error) {
	return runCmd(exec.CommandContext(ctx, "sh", "-c", command))
}

func (execRunner) Interactive(ctx context.Context, command string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, err
	}
	// No terminal to answer prompts from: close stdin so the child
	// sees EOF instead of blocking.
	stdin.Close()

	err = cmd.Wait()
	return buildResult(&outBuf, &errBuf, err)
}

func runCmd(cmd *exec.Cmd) (*ExecResult, error) {
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return buildResult(&outBuf, &errBuf, err)
}

// buildResult converts an exec error into an ExecResult. Non-zero
// exits are reported through ExitCode, not as a Go error; only
// failures to launch (binary missing, context cancelled) surface as
// errors.
func buildResult(outBuf, errBuf *bytes.Buffer, err error) (*ExecResult, error) {
	result := &ExecResult{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// Ok reports whether the command exited successfully.
func (r *ExecResult) Ok() bool {
	return r.ExitCode == 0
}

// Trimmed returns the stdout with surrounding whitespace removed, or
// stderr when stdout is empty.
func (r *ExecResult) Trimmed() string {
	out := strings.TrimSpace(r.Stdout)
	if out == "" {
		out = strings.TrimSpace(r.Stderr)
	}
	return out
}
