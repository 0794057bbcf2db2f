// Package models holds the wire and domain types shared by every component
// of the control plane: runs, jobs, progress records, and the RIS/grid
// configuration schemas.
package models

import "time"

// RunKind distinguishes the two disjoint job families.
type RunKind string

const (
	KindSim RunKind = "sim"
	KindRis RunKind = "ris"
)

// RunStatus is the state-machine status of a Run (§4.6).
type RunStatus string

const (
	StatusInitializing RunStatus = "initializing"
	StatusQueued        RunStatus = "queued"
	StatusRunning       RunStatus = "running"
	StatusCompleted     RunStatus = "completed"
	StatusFailed        RunStatus = "failed"
)

// Terminal reports whether s is a terminal status (no further transition is
// permitted once written).
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run describes the on-disk artifact collection owned by RunStore for one
// execution. RunID has the form YYYYMMDD-HHMMSS-NNNNN (§3).
type Run struct {
	RunID     string    `json:"run_id"`
	Kind      RunKind   `json:"kind"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RunListEntry is the summary shape returned by GET /api/runs.
type RunListEntry struct {
	RunID      string      `json:"run_id"`
	Kind       RunKind     `json:"kind"`
	Status     RunStatus   `json:"status"`
	HasViewer  bool        `json:"has_viewer"`
	Summary    *RunSummary `json:"summary,omitempty"`
}

// RunSummary is the contents of summary.json: the durable, human/machine
// readable record of what a run produced.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Kind        RunKind   `json:"kind"`
	Status      RunStatus `json:"status"`
	ConfigHash  string    `json:"config_hash"`
	CreatedAt   time.Time `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string    `json:"error,omitempty"`
	Artifacts   []string  `json:"artifacts"`
}
