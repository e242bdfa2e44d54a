package harvester

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	merrors "github.com/finchsec/magpie/internal/errors"
)

// toolCache memoizes tool-detection results for the process lifetime.
// Concurrent checks for the same tool coalesce through singleflight,
// so parallel sessions never race an install against a probe.
type toolCache struct {
	mu        sync.Mutex
	installed map[string]bool
	group     singleflight.Group
}

func newToolCache() *toolCache {
	return &toolCache{installed: make(map[string]bool)}
}

func (c *toolCache) get(tool string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.installed[tool]
	return v, ok
}

func (c *toolCache) set(tool string, installed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.installed[tool] = installed
}

func (c *toolCache) invalidate(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.installed, tool)
}

// detectResult carries the probe outcome plus whatever version output
// the tool produced.
type detectResult struct {
	installed bool
	output    string
}

// CheckToolInstalled probes for the tool, preferring the cached
// answer. The primary probe is `<tool> --version`; if that fails the
// harvester falls back through `which`, `where`, `<tool> version`, and
// `<tool> -v` before concluding the tool is absent.
func (h *Harvester) CheckToolInstalled(ctx context.Context, tool string) (bool, string, error) {
	if installed, ok := h.cache.get(tool); ok {
		return installed, "", nil
	}

	v, err, _ := h.cache.group.Do(tool, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the cache while we waited.
		if installed, ok := h.cache.get(tool); ok {
			return detectResult{installed: installed}, nil
		}
		result := h.probeTool(ctx, tool)
		h.cache.set(tool, result.installed)
		return result, nil
	})
	if err != nil {
		return false, "", err
	}

	result := v.(detectResult)
	return result.installed, result.output, nil
}

// probeTool runs the detection command ladder.
func (h *Harvester) probeTool(ctx context.Context, tool string) detectResult {
	probes := [][]string{
		{tool, "--version"},
		{"which", tool},
		{"where", tool},
		{tool, "version"},
		{tool, "-v"},
	}

	for _, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, h.probeTimeout())
		result, err := h.Runner.Run(probeCtx, probe[0], probe[1:]...)
		cancel()
		if err != nil || !result.Ok() {
			continue
		}
		return detectResult{installed: true, output: result.Trimmed()}
	}
	return detectResult{}
}

// InstallTool runs the registry's install command under the install
// timeout, then invalidates the cache entry and re-probes. An install
// command that exits zero but still fails the re-probe is a failure,
// not silently accepted.
func (h *Harvester) InstallTool(ctx context.Context, tool, installCommand string) (string, error) {
	if installCommand == "" {
		return "", fmt.Errorf("%w: %s has no install command", merrors.ErrToolNotInstalled, tool)
	}

	installCtx, cancel := context.WithTimeout(ctx, h.installTimeout())
	defer cancel()

	result, err := h.Runner.Shell(installCtx, installCommand)
	if err != nil {
		return "", fmt.Errorf("%w: %v", merrors.ErrInstallFailed, err)
	}
	if !result.Ok() {
		return "", fmt.Errorf("%w: install command exited %d: %s",
			merrors.ErrInstallFailed, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	h.cache.invalidate(tool)
	installed, output, err := h.CheckToolInstalled(ctx, tool)
	if err != nil {
		return "", err
	}
	if !installed {
		return "", fmt.Errorf("%w: %s still not detectable after install", merrors.ErrInstallFailed, tool)
	}
	return output, nil
}

func (h *Harvester) probeTimeout() time.Duration {
	if h.ProbeTimeout > 0 {
		return h.ProbeTimeout
	}
	return 10 * time.Second
}

func (h *Harvester) installTimeout() time.Duration {
	if h.InstallTimeout > 0 {
		return h.InstallTimeout
	}
	return 5 * time.Minute
}

func (h *Harvester) authTimeout() time.Duration {
	if h.AuthTimeout > 0 {
		return h.AuthTimeout
	}
	return 60 * time.Second
}
