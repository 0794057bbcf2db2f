package scheduler

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"simbench/pkg/models"
)

// VRAMGuard reports whether device memory is scarce enough that a sim job's
// depth/sample parameters should be downgraded before dispatch (§4.6). It
// is best-effort and must never block dispatch.
type VRAMGuard interface {
	Check(ctx context.Context) (freeBytes uint64, freePct float64, err error)
}

// HostMemoryGuard is the default VRAMGuard: since real VRAM telemetry
// requires NVML (out of scope, §1), this reports free host RAM as an
// advisory stand-in, the same posture the teacher's SystemMonitor takes for
// "is this worker busy" (CPU/RAM, best-effort, never blocking). A
// deployment with real GPUs is expected to supply an NVML-backed
// implementation through this same interface.
type HostMemoryGuard struct{}

func (HostMemoryGuard) Check(ctx context.Context) (uint64, float64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	freePct := 100 - v.UsedPercent
	return v.Available, freePct, nil
}

// applyGuard runs guard and, if free memory is below thresholdPct, marks
// job.VRAMGuard as applied and downscales depth/sample fields found in the
// payload (sim jobs only, §4.6). Errors from the guard are swallowed:
// best-effort means a guard failure must not fail the job.
func applyGuard(ctx context.Context, guard VRAMGuard, thresholdPct float64, job *models.Job, payload map[string]any) {
	if guard == nil {
		return
	}
	freeBytes, freePct, err := guard.Check(ctx)
	if err != nil {
		return
	}
	if freePct >= thresholdPct {
		return
	}

	job.VRAMGuard = &models.VRAMGuardResult{
		Applied:       true,
		FreeBytes:     freeBytes,
		ThresholdPct:  thresholdPct,
		DownscaleNote: "free device memory below threshold; depth/samples downscaled",
	}
	downscale(payload)
}

// downscale halves any "max_depth"/"samples_per_pixel"-shaped numeric
// fields it finds in a raw simulation payload, in place, both at the top
// level and inside its "runtime" and "simulation" sections.
func downscale(payload map[string]any) {
	if payload == nil {
		return
	}
	for _, key := range []string{"max_depth", "samples_per_pixel", "spp"} {
		if v, ok := payload[key]; ok {
			if f, ok := toFloat(v); ok && f > 1 {
				payload[key] = f / 2
			}
		}
	}
	for _, section := range []string{"runtime", "simulation"} {
		if nested, ok := payload[section].(map[string]any); ok {
			downscale(nested)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
