// Command riseworker is the RIS-job worker subprocess: it reads the config
// the scheduler wrote to its run directory, synthesizes and quantizes the
// phase map, sweeps the far-field pattern, optionally validates against a
// reference, writes the artifact set, and reports progress on stdout using
// the "PROGRESS {json}" line protocol (§4.5, §4.6, §6).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"simbench/internal/artifact"
	"simbench/internal/ris"
	"simbench/internal/runstore"
	"simbench/pkg/models"
)

// quantizationBinConvention records the §9 decision 1: the highest phase
// bin is inclusive of +pi.
const quantizationBinConvention = "high_inclusive"

func main() {
	runID := flag.String("run-id", "", "run id assigned by the scheduler")
	runDir := flag.String("run-dir", "", "run directory, also the process cwd")
	action := flag.String("action", string(models.JobActionRun), "run|validate")
	mode := flag.String("mode", "", "pattern|link (currently only pattern is implemented)")
	flag.Parse()

	if *runID == "" || *runDir == "" {
		fmt.Fprintln(os.Stderr, "riseworker: -run-id and -run-dir are required")
		os.Exit(2)
	}

	if err := run(*runID, *runDir, *action, *mode); err != nil {
		emitProgress(models.ProgressRecord{
			Status:    models.StatusFailed,
			StepName:  "failed",
			Error:     errPtr(err.Error()),
			UpdatedAt: time.Now().UTC(),
		})
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(runID, runDir, action, mode string) error {
	data, err := os.ReadFile("config.json")
	if err != nil {
		return fmt.Errorf("read config.json: %w", err)
	}
	var req models.RisJobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode config.json: %w", err)
	}
	if req.ConfigData == nil {
		// The scheduler always resolves config_path into config_data before
		// writing config.json; a nil ConfigData here means config.json was
		// hand-edited or written by something other than the scheduler.
		return fmt.Errorf("config_data is required")
	}
	cfg := *req.ConfigData

	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 0, StepName: "synthesizing_phase", TotalSteps: 5, Progress: f64Ptr(0.1), UpdatedAt: time.Now().UTC()})

	if err := ris.CheckSpacing(cfg.Geometry, cfg.Quantization, cfg.Experiment.FrequencyHz); err != nil {
		return fmt.Errorf("check element spacing: %w", err)
	}

	phaseMap, err := ris.SynthesizePhase(cfg.Geometry, cfg.Control, cfg.Experiment.FrequencyHz)
	if err != nil {
		return fmt.Errorf("synthesize phase: %w", err)
	}
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1, StepName: "quantizing", TotalSteps: 5, Progress: f64Ptr(0.3), UpdatedAt: time.Now().UTC()})

	quantized := ris.Quantize(phaseMap, cfg.Quantization.Bits)

	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 2, StepName: "sweeping_pattern", TotalSteps: 5, Progress: f64Ptr(0.5), UpdatedAt: time.Now().UTC()})
	sweep, err := ris.PatternSweep(cfg.Geometry, quantized, cfg.PatternMode, cfg.Experiment)
	if err != nil {
		return fmt.Errorf("sweep pattern: %w", err)
	}

	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 3, StepName: "computing_metrics", TotalSteps: 5, Progress: f64Ptr(0.7), UpdatedAt: time.Now().UTC()})
	metrics := ris.ComputeSidelobeMetrics(sweep.ThetaDeg, sweep.PatternDb)

	store, err := runstore.New(filepath.Dir(runDir))
	if err != nil {
		return fmt.Errorf("attach run store: %w", err)
	}
	writer := artifact.New(store, nil)

	patternArtifacts := artifact.RisPatternArtifacts{
		PhaseMap:      quantized,
		Sweep:         sweep,
		Metrics:       metrics,
		BinConvention: quantizationBinConvention,
	}

	var result ris.ValidateResult
	isValidate := action == string(models.JobActionValidate)
	if isValidate {
		if req.Ref == nil {
			return fmt.Errorf("action=validate requires ref.theta_deg/ref.pattern_db")
		}
		result = ris.Validate(sweep.ThetaDeg, sweep.PatternDb, req.Ref.ThetaDeg, req.Ref.PatternDb)
	}
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 4, StepName: "writing_artifacts", TotalSteps: 5, Progress: f64Ptr(0.9), UpdatedAt: time.Now().UTC()})

	var artifactPaths []string
	if isValidate {
		if err := writer.WriteRisValidate(runID, artifact.RisValidateArtifacts{
			Pattern:      patternArtifacts,
			Result:       result,
			RefTheta:     req.Ref.ThetaDeg,
			RefPatternDb: req.Ref.PatternDb,
		}); err != nil {
			return fmt.Errorf("write validate artifacts: %w", err)
		}
		artifactPaths = []string{"plots/validation_overlay.png", "metrics.json"}
	} else {
		if err := writer.WriteRisPattern(runID, patternArtifacts); err != nil {
			return fmt.Errorf("write pattern artifacts: %w", err)
		}
		artifactPaths = []string{"plots/pattern_cartesian.png", "data/pattern_db.npy", "metrics.json"}
	}

	status := models.StatusCompleted
	summaryErr := ""
	if isValidate && !result.Pass {
		// A failed validation is still a completed run: the comparison
		// ran to completion and produced a trustworthy verdict (§7 only
		// uses "failed" for runs that could not finish).
		summaryErr = fmt.Sprintf("validation did not pass: rmse_db=%.3f peak_deg_error=%.3f", result.RmseDb, result.PeakDegError)
	}

	now := time.Now().UTC()
	if err := writer.WriteSummary(runID, models.RunSummary{
		RunID:      runID,
		Kind:       models.KindRis,
		Status:     status,
		ConfigHash: readConfigHash(),
		CreatedAt:  now,
		FinishedAt: &now,
		Error:      summaryErr,
		Artifacts:  artifactPaths,
	}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	emitProgress(models.ProgressRecord{Status: models.StatusCompleted, StepIndex: 5, StepName: "completed", TotalSteps: 5, Progress: f64Ptr(1.0), UpdatedAt: time.Now().UTC()})
	return nil
}

func readConfigHash() string {
	data, err := os.ReadFile("config_hash")
	if err != nil {
		return ""
	}
	return string(data)
}

func emitProgress(rec models.ProgressRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	fmt.Println("PROGRESS " + string(data))
}

func errPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
