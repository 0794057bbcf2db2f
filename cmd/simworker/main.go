// Command simworker is the sim-job worker subprocess: it reads the config
// the scheduler wrote to its run directory, resolves the radio-map grid,
// selects a ray-tracing backend, produces the viewer artifact set, and
// reports progress on stdout using the "PROGRESS {json}" line protocol
// (§4.5, §4.6, §6).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"simbench/internal/artifact"
	"simbench/internal/grid"
	"simbench/internal/runstore"
	"simbench/internal/tracer"
	"simbench/pkg/models"
)

func main() {
	runID := flag.String("run-id", "", "run id assigned by the scheduler")
	runDir := flag.String("run-dir", "", "run directory, also the process cwd")
	flag.Parse()

	if *runID == "" || *runDir == "" {
		log.Fatal("simworker: -run-id and -run-dir are required")
	}

	if err := run(*runID, *runDir); err != nil {
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

func run(runID, runDir string) error {
	data, err := os.ReadFile("config.json")
	if err != nil {
		return fmt.Errorf("read config.json: %w", err)
	}
	var req models.SimJobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode config.json: %w", err)
	}

	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 0, StepName: "loading_config", TotalSteps: 5, Progress: f64Ptr(0.0), UpdatedAt: time.Now().UTC()})

	store, err := runstore.New(filepathParentOf(runDir))
	if err != nil {
		return fmt.Errorf("attach run store: %w", err)
	}
	writer := artifact.New(store, nil)

	var radioGrid models.RadioMapGrid
	if req.RadioMap != nil {
		radioGrid, err = grid.Align(*req.RadioMap)
		if err != nil {
			return fmt.Errorf("align grid: %w", err)
		}
	}
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 1, StepName: "grid_aligned", TotalSteps: 5, Progress: f64Ptr(0.2), UpdatedAt: time.Now().UTC()})

	opts := runtimeOptions(req.Runtime)
	opts.Scene = req.Scene
	engine := tracer.NewEngine(lookupWorkerBinary())
	backend, err := engine.SelectBackend(opts)
	if err != nil {
		return err
	}
	log.Println(tracer.VerdictLine(backend))
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 2, StepName: "backend_selected", TotalSteps: 5, Progress: f64Ptr(0.4), UpdatedAt: time.Now().UTC()})

	if len(radioGrid.XS) > 0 && len(radioGrid.YS) > 0 {
		values := syntheticHeatmap(radioGrid)
		if err := writer.WriteRadioMap(runID, artifact.HeatmapData{Metric: "rss_dbm", Grid: radioGrid, Values: values}); err != nil {
			return fmt.Errorf("write radio map: %w", err)
		}
	}
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 3, StepName: "radio_map_written", TotalSteps: 5, Progress: f64Ptr(0.7), UpdatedAt: time.Now().UTC()})

	manifest := artifact.SceneManifest{Scene: req.Scene}
	if err := writer.WriteScene(runID, manifest, nil, nil); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	emitProgress(models.ProgressRecord{Status: models.StatusRunning, StepIndex: 4, StepName: "scene_written", TotalSteps: 5, Progress: f64Ptr(0.9), UpdatedAt: time.Now().UTC()})

	configHash := readConfigHash()
	now := time.Now().UTC()
	if err := writer.WriteSummary(runID, models.RunSummary{
		RunID:      runID,
		Kind:       models.KindSim,
		Status:     models.StatusCompleted,
		ConfigHash: configHash,
		CreatedAt:  now,
		FinishedAt: &now,
		Artifacts:  []string{"viewer/heatmap.json", "viewer/heatmap.npz", "viewer/scene_manifest.json"},
	}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	emitProgress(models.ProgressRecord{Status: models.StatusCompleted, StepIndex: 5, StepName: "completed", TotalSteps: 5, Progress: f64Ptr(1.0), UpdatedAt: time.Now().UTC()})
	return nil
}

// syntheticHeatmap fills the grid with a deterministic inverse-distance
// falloff from the grid center. Real propagation modeling is the
// RisKernel/Tracer's domain and out of this placeholder's scope (§1).
func syntheticHeatmap(g models.RadioMapGrid) [][]float64 {
	out := make([][]float64, len(g.YS))
	for r, y := range g.YS {
		row := make([]float64, len(g.XS))
		for c, x := range g.XS {
			dist := math.Hypot(x-g.CenterX, y-g.CenterY)
			row[c] = -30 - 20*math.Log10(1+dist)
		}
		out[r] = row
	}
	return out
}

func runtimeOptions(runtime map[string]any) tracer.RunOptions {
	opts := tracer.RunOptions{MaxDepth: 4, SamplesPerPixel: 16}
	if runtime == nil {
		return opts
	}
	if v, ok := runtime["require_gpu"].(bool); ok {
		opts.RequireGPU = v
	}
	if v, ok := runtime["allow_fallback"].(bool); ok {
		opts.AllowFallback = v
	}
	if v, ok := toInt(runtime["max_depth"]); ok {
		opts.MaxDepth = v
	}
	if v, ok := toInt(runtime["samples_per_pixel"]); ok {
		opts.SamplesPerPixel = v
	}
	return opts
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func lookupWorkerBinary() string {
	return os.Getenv("SIMBENCH_TRACER_BIN")
}

func readConfigHash() string {
	data, err := os.ReadFile("config_hash")
	if err != nil {
		return ""
	}
	return string(data)
}

func filepathParentOf(runDir string) string {
	// The worker's cwd is the run directory itself; its parent is the
	// RunStore root the scheduler allocated it under.
	return filepath.Dir(runDir)
}

func emitProgress(rec models.ProgressRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	fmt.Println("PROGRESS " + string(data))
}

func errPtr(s string) *string  { return &s }
func f64Ptr(f float64) *float64 { return &f }
