package models

import "time"

// JobStatus mirrors the queued -> running -> {completed|failed} lifecycle of
// §3 "Job". It intentionally reuses the Run status vocabulary minus
// "initializing", which only ever applies to a Run's directory, not a Job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobAction distinguishes the RIS "run" vs "validate" actions (§3). Sim jobs
// always use JobActionRun.
type JobAction string

const (
	JobActionRun      JobAction = "run"
	JobActionValidate JobAction = "validate"
)

// JobMode distinguishes RIS pattern-mode submodes. Sim jobs leave it empty.
type JobMode string

const (
	ModePattern JobMode = "pattern"
	ModeLink    JobMode = "link"
)

// VRAMGuardResult records whether the scheduler's VRAM guard downgraded a
// sim job's parameters before dispatch (§4.6).
type VRAMGuardResult struct {
	Applied       bool    `json:"applied"`
	FreeBytes     uint64  `json:"free_bytes,omitempty"`
	ThresholdPct  float64 `json:"threshold_pct,omitempty"`
	DownscaleNote string  `json:"downscale_note,omitempty"`
}

// Job is the scheduler's in-memory unit of work. It is never persisted
// across process restarts; only its Run's artifacts survive.
type Job struct {
	JobID           string           `json:"job_id"`
	RunID           string           `json:"run_id"`
	Kind            RunKind          `json:"kind"`
	Action          JobAction        `json:"action"`
	Mode            JobMode          `json:"mode,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Status          JobStatus        `json:"status"`
	Error           string           `json:"error,omitempty"`
	VRAMGuard       *VRAMGuardResult `json:"vram_guard,omitempty"`
	PayloadSnapshot any              `json:"payload_snapshot,omitempty"`
}

// JobSubmission is returned immediately by both POST /api/jobs and
// POST /api/ris/jobs.
type JobSubmission struct {
	RunID string `json:"run_id"`
	JobID string `json:"job_id"`
}

// ProgressRecord is the single current-state record per run (§3, §4.2). It
// is monotone in (StepIndex, Progress); Error is set iff Status is failed.
type ProgressRecord struct {
	Status     RunStatus `json:"status"`
	StepIndex  int       `json:"step_index"`
	StepName   string    `json:"step_name"`
	TotalSteps int       `json:"total_steps"`
	Progress   *float64  `json:"progress"`
	Error      *string   `json:"error"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Less reports whether r would be superseded by other under the
// (step_index, progress) monotonicity rule (§4.2), ignoring status.
func (r ProgressRecord) Less(other ProgressRecord) bool {
	if r.StepIndex != other.StepIndex {
		return r.StepIndex < other.StepIndex
	}
	rp, op := 0.0, 0.0
	if r.Progress != nil {
		rp = *r.Progress
	}
	if other.Progress != nil {
		op = *other.Progress
	}
	return rp < op
}
