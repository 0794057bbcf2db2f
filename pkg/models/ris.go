package models

// Vec3 is a plain 3-vector used throughout the RIS geometry and pattern
// math. It is JSON/YAML encoded as a 3-element array.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) MarshalYAML() (any, error) {
	return [3]float64{v.X, v.Y, v.Z}, nil
}

func (v *Vec3) UnmarshalYAML(unmarshal func(any) error) error {
	var arr [3]float64
	if err := unmarshal(&arr); err != nil {
		return err
	}
	v.X, v.Y, v.Z = arr[0], arr[1], arr[2]
	return nil
}

func (v Vec3) MarshalJSON() ([]byte, error) {
	return marshalJSON([3]float64{v.X, v.Y, v.Z})
}

func (v *Vec3) UnmarshalJSON(data []byte) error {
	var arr [3]float64
	if err := unmarshalJSON(data, &arr); err != nil {
		return err
	}
	v.X, v.Y, v.Z = arr[0], arr[1], arr[2]
	return nil
}

// Geometry is RisConfig.geometry (§3).
type Geometry struct {
	Nx         int     `json:"nx" yaml:"nx"`
	Ny         int     `json:"ny" yaml:"ny"`
	Dx         float64 `json:"dx" yaml:"dx"`
	Dy         float64 `json:"dy" yaml:"dy"`
	Origin     Vec3    `json:"origin" yaml:"origin"`
	Normal     Vec3    `json:"normal" yaml:"normal"`
	XAxisHint  Vec3    `json:"x_axis_hint" yaml:"x_axis_hint"`
	AllowSubWavelengthSpacing bool `json:"allow_sub_wavelength_spacing,omitempty" yaml:"allow_sub_wavelength_spacing,omitempty"`
}

// ControlKind tags the RisConfig.control variant.
type ControlKind string

const (
	ControlSteer    ControlKind = "steer"
	ControlUniform  ControlKind = "uniform"
	ControlFocus    ControlKind = "focus"
	ControlGradient ControlKind = "gradient"
)

// Control is the tagged-variant control law (§3). Exactly one of the
// per-kind fields is populated, selected by Kind.
type Control struct {
	Kind ControlKind `json:"kind" yaml:"kind"`

	// steer
	AzDeg        float64 `json:"az_deg,omitempty" yaml:"az_deg,omitempty"`
	ElDeg        float64 `json:"el_deg,omitempty" yaml:"el_deg,omitempty"`
	PhaseOffsetDeg float64 `json:"phase_offset_deg,omitempty" yaml:"phase_offset_deg,omitempty"`

	// uniform
	PhaseDeg float64 `json:"phase_deg,omitempty" yaml:"phase_deg,omitempty"`

	// focus
	FocalPoint Vec3 `json:"focal_point,omitempty" yaml:"focal_point,omitempty"`

	// gradient
	Sources Vec3 `json:"sources,omitempty" yaml:"sources,omitempty"`
	Targets Vec3 `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// Quantization is RisConfig.quantization (§3). Bits == 0 means continuous.
type Quantization struct {
	Bits int `json:"bits" yaml:"bits"`
}

// Normalization is the pattern_mode normalization policy.
type Normalization string

const (
	NormPeak0dB Normalization = "peak_0db"
	NormNone    Normalization = "none"
)

// RxSweep is the theta sweep range used by pattern_sweep.
type RxSweep struct {
	StartDeg float64 `json:"start" yaml:"start"`
	StopDeg  float64 `json:"stop" yaml:"stop"`
	StepDeg  float64 `json:"step" yaml:"step"`
}

// PatternMode is RisConfig.pattern_mode (§3).
type PatternMode struct {
	Normalization Normalization `json:"normalization" yaml:"normalization"`
	RxSweep       RxSweep       `json:"rx_sweep_deg" yaml:"rx_sweep_deg"`
}

// Experiment is RisConfig.experiment (§3).
type Experiment struct {
	FrequencyHz      float64 `json:"frequency_hz" yaml:"frequency_hz"`
	TxAngleDeg       float64 `json:"tx_angle_deg" yaml:"tx_angle_deg"`
	TxDistanceM      float64 `json:"tx_distance_m" yaml:"tx_distance_m"`
	RxDistanceM      float64 `json:"rx_distance_m" yaml:"rx_distance_m"`
	TxGainDbi        float64 `json:"tx_gain_dbi" yaml:"tx_gain_dbi"`
	RxGainDbi        float64 `json:"rx_gain_dbi" yaml:"rx_gain_dbi"`
	TxPowerDbm       float64 `json:"tx_power_dbm" yaml:"tx_power_dbm"`
	ReflectionCoeff  float64 `json:"reflection_coeff" yaml:"reflection_coeff"`
}

// RisConfig is the full per-run RIS configuration applied before the run
// starts (§3).
type RisConfig struct {
	Geometry     Geometry     `json:"geometry" yaml:"geometry"`
	Control      Control      `json:"control" yaml:"control"`
	Quantization Quantization `json:"quantization" yaml:"quantization"`
	PatternMode  PatternMode  `json:"pattern_mode" yaml:"pattern_mode"`
	Experiment   Experiment   `json:"experiment" yaml:"experiment"`
}

// RadioMapGrid is the canonical grid metadata emitted by GridAligner (§3,
// §4.3). XS/YS hold the per-axis coordinate lists; the full 2D
// cell_centers array consumed by the viewer is derived from them.
type RadioMapGrid struct {
	CellSizeX    float64    `json:"cell_size_x"`
	CellSizeY    float64    `json:"cell_size_y"`
	CenterX      float64    `json:"center_x"`
	CenterY      float64    `json:"center_y"`
	CenterZ      float64    `json:"center_z"`
	SizeX        float64    `json:"size_x"`
	SizeY        float64    `json:"size_y"`
	OrientationX float64    `json:"orientation_x"`
	OrientationY float64    `json:"orientation_y"`
	OrientationZ float64    `json:"orientation_z"`
	XS           []float64  `json:"xs"`
	YS           []float64  `json:"ys"`
}

// GridRequest is the input to GridAligner.Align (§4.3).
type GridRequest struct {
	RequestedSizeX float64     `json:"requested_size_x"`
	RequestedSizeY float64     `json:"requested_size_y"`
	CellSizeX      float64     `json:"cell_size_x"`
	CellSizeY      float64     `json:"cell_size_y"`
	CenterX        float64     `json:"center_x"`
	CenterY        float64     `json:"center_y"`
	CenterZ        float64     `json:"center_z"`
	AutoSize       *AutoSize   `json:"auto_size,omitempty"`
	Bounds         *Rect       `json:"bounds,omitempty"`
}

// AutoSize requests a bounding-box-derived requested size (§4.3 step 1).
type AutoSize struct {
	Enabled     bool      `json:"enabled"`
	PaddingM    float64   `json:"padding_m"`
	Devices     []Vec3    `json:"devices,omitempty"`
	IncludeRis  bool      `json:"include_ris,omitempty"`
	RisCorners  []Vec3    `json:"ris_corners,omitempty"`
}

// Rect is an axis-aligned bound carried in GridRequest.Bounds; Align does
// not read it, so requests are not clamped to it.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}
