package models

// SimJobRequest is the body of POST /api/jobs (§6). Unknown fields are
// rejected by the gateway decoder.
type SimJobRequest struct {
	Kind       string         `json:"kind"`
	Profile    string         `json:"profile"`
	BaseConfig map[string]any `json:"base_config,omitempty"`
	Preset     string         `json:"preset,omitempty"`
	Runtime    map[string]any `json:"runtime,omitempty"`
	Simulation map[string]any `json:"simulation,omitempty"`
	RadioMap   *GridRequest   `json:"radio_map,omitempty"`
	Scene      string         `json:"scene"`
	Ris        map[string]any `json:"ris,omitempty"`
}

// RisJobRequest is the body of POST /api/ris/jobs (§6).
type RisJobRequest struct {
	Action     JobAction `json:"action"`
	ConfigPath string    `json:"config_path,omitempty"`
	ConfigData *RisConfig `json:"config_data,omitempty"`
	Mode       JobMode   `json:"mode,omitempty"`
	Ref        *ValidateRef `json:"ref,omitempty"`
}

// ValidateRef carries the reference pattern fed to RisKernel.validate.
type ValidateRef struct {
	ThetaDeg []float64 `json:"theta_deg"`
	PatternDb []float64 `json:"pattern_db"`
}

// ConfigsResponse is GET /api/configs.
type ConfigsResponse struct {
	Configs []NamedConfig `json:"configs"`
}

type NamedConfig struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Data any    `json:"data"`
}

// RunsResponse is GET /api/runs.
type RunsResponse struct {
	Runs []RunListEntry `json:"runs"`
}

// RunDetailResponse is GET /api/run/{run_id}.
type RunDetailResponse struct {
	Config   any             `json:"config"`
	Summary  *RunSummary     `json:"summary"`
	Progress *ProgressRecord `json:"progress"`
}

// JobsResponse is GET /api/jobs and GET /api/ris/jobs.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}
