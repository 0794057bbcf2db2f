// Package tracer is the narrow facade over the out-of-scope, third-party
// ray-tracing library (§1): scene loading, wave-propagation solving, and
// GPU backend selection. Only its interface lives in this repo; a real
// deployment supplies an implementation wired to the actual solver.
//
// Adapted from the teacher's transcoder.Engine, which probes FFmpeg's
// compiled-in encoders to pick a hardware codec without silently falling
// back; here the same probe-then-refuse shape picks (or refuses) a GPU
// backend for the wave solver.
package tracer

import (
	"fmt"
	"os/exec"
	"strings"

	"simbench/pkg/apierr"
)

// Backend identifies a ray-tracer compute backend.
type Backend string

const (
	BackendCUDA  Backend = "CUDA/OptiX"
	BackendCPU   Backend = "CPU/LLVM"
)

// RunOptions controls a single ray-trace invocation.
type RunOptions struct {
	Scene           string
	RequireGPU      bool
	AllowFallback   bool
	MaxDepth        int
	SamplesPerPixel int
}

// Tracer is the facade the JobScheduler's sim-job worker invokes. A
// production implementation wraps the real solver binary/library; Engine
// below is the default, dependency-free implementation used when no GPU
// solver is configured, plus the hardware-probing logic every
// implementation is expected to reuse.
type Tracer interface {
	// SelectBackend inspects the host and opts.RequireGPU, returning the
	// backend that will actually run the trace. It never falls back
	// silently: if RequireGPU is set, fallback is disallowed unless
	// AllowFallback is explicitly set, and the backend is missing, it
	// returns a *apierr.BackendUnavailable.
	SelectBackend(opts RunOptions) (Backend, error)
}

// Engine is the default Tracer: it probes for a CUDA-capable solver binary
// on PATH (grounded on the teacher's exec.LookPath + "-encoders" probe) and
// otherwise reports CPU/LLVM.
type Engine struct {
	// probeBinary is the binary whose presence indicates a CUDA/OptiX
	// capable solver is installed. Exposed for tests.
	probeBinary string
}

// NewEngine returns the default Engine, probing for binary on PATH.
func NewEngine(binary string) *Engine {
	if binary == "" {
		binary = "ris-tracer-cuda"
	}
	return &Engine{probeBinary: binary}
}

func (e *Engine) SelectBackend(opts RunOptions) (Backend, error) {
	hasGPU := e.detectGPU()

	if !opts.RequireGPU {
		return BackendCPU, nil
	}
	if hasGPU {
		return BackendCUDA, nil
	}
	if opts.AllowFallback {
		return BackendCPU, nil
	}
	return "", &apierr.BackendUnavailable{Requested: string(BackendCUDA), Detected: string(BackendCPU)}
}

// detectGPU mirrors the teacher's detectFFmpegCapabilities: ask the
// solver's own binary what it supports rather than probing drivers
// directly, because that is what actually proves the hardware path works.
func (e *Engine) detectGPU() bool {
	path, err := exec.LookPath(e.probeBinary)
	if err != nil {
		return false
	}
	out, err := exec.Command(path, "--capabilities").CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), "cuda") || strings.Contains(string(out), "optix")
}

// VerdictLine renders the single-line verdict §7 requires on a
// BackendUnavailable exit.
func VerdictLine(detected Backend) string {
	return fmt.Sprintf("RT backend is %s", detected)
}
