// Package scheduler implements C6: two disjoint FIFO job queues (sim, ris),
// each with a bounded concurrency cap, worker subprocess invocation, VRAM
// guarding, and reaping into terminal status (§4.6).
package scheduler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"simbench/internal/cfghash"
	"simbench/internal/progress"
	"simbench/internal/runstore"
	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

const progressLinePrefix = "PROGRESS "

// Config bounds the scheduler's behavior; all fields come from
// internal/config.Config.
type Config struct {
	SimConcurrency   int
	RisConcurrency   int
	VRAMThresholdPct float64
	SimWorkerBin     string
	RisWorkerBin     string
}

// Scheduler is the concrete JobScheduler (§4.6).
type Scheduler struct {
	store   *runstore.Store
	journal *progress.Journal
	guard   VRAMGuard
	cfg     Config

	mu  sync.Mutex
	jobs map[string]*models.Job

	simQueue chan *dispatchable
	risQueue chan *dispatchable
	simSlots chan struct{}
	risSlots chan struct{}

	wg sync.WaitGroup
}

type dispatchable struct {
	job      *models.Job
	payload  map[string]any // resolved, post-merge, post-snap config
	workerBin string
}

// New constructs a Scheduler and starts its dispatcher goroutines. Callers
// should call Close on shutdown to let in-flight workers drain.
func New(store *runstore.Store, journal *progress.Journal, guard VRAMGuard, cfg Config) *Scheduler {
	if guard == nil {
		guard = HostMemoryGuard{}
	}
	s := &Scheduler{
		store:    store,
		journal:  journal,
		guard:    guard,
		cfg:      cfg,
		jobs:     make(map[string]*models.Job),
		simQueue: make(chan *dispatchable, 4096),
		risQueue: make(chan *dispatchable, 4096),
		simSlots: make(chan struct{}, cfg.SimConcurrency),
		risSlots: make(chan struct{}, cfg.RisConcurrency),
	}
	s.wg.Add(2)
	go s.runDispatcher(s.simQueue, s.simSlots)
	go s.runDispatcher(s.risQueue, s.risSlots)
	return s
}

// SubmitSim enqueues a sim job (§6 POST /api/jobs). Dispatch order equals
// submission order within the sim queue (§5).
func (s *Scheduler) SubmitSim(req models.SimJobRequest) (models.JobSubmission, error) {
	payload := map[string]any{
		"profile":     req.Profile,
		"base_config": req.BaseConfig,
		"preset":      req.Preset,
		"runtime":     req.Runtime,
		"simulation":  req.Simulation,
		"scene":       req.Scene,
		"ris":         req.Ris,
	}
	if req.RadioMap != nil {
		payload["radio_map"] = req.RadioMap
	}
	return s.submit(models.KindSim, models.JobActionRun, "", payload, s.cfg.SimWorkerBin, s.simQueue)
}

// SubmitRis enqueues a RIS job (§6 POST /api/ris/jobs). Exactly one of
// config_path/config_data is expected; config_path is resolved and parsed
// here, synchronously, before hashing/dispatch, so the worker always
// receives a concrete config_data (§6).
func (s *Scheduler) SubmitRis(req models.RisJobRequest) (models.JobSubmission, error) {
	if req.Action != models.JobActionRun && req.Action != models.JobActionValidate {
		return models.JobSubmission{}, &apierr.InvalidConfig{Reason: "ris job action must be run|validate"}
	}

	if req.ConfigData == nil {
		if req.ConfigPath == "" {
			return models.JobSubmission{}, &apierr.InvalidConfig{Reason: "one of config_path or config_data is required"}
		}
		resolved, err := loadRisConfig(req.ConfigPath)
		if err != nil {
			return models.JobSubmission{}, err
		}
		req.ConfigData = resolved
	}

	payload := map[string]any{
		"action":      req.Action,
		"config_path": req.ConfigPath,
		"config_data": req.ConfigData,
		"mode":        req.Mode,
		"ref":         req.Ref,
	}
	return s.submit(models.KindRis, req.Action, req.Mode, payload, s.cfg.RisWorkerBin, s.risQueue)
}

// loadRisConfig reads and parses a submitted config_path into a RisConfig,
// the same gopkg.in/yaml.v3 decoder used for the config.yaml snapshot
// (§6).
func loadRisConfig(path string) (*models.RisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierr.InvalidConfig{Reason: fmt.Sprintf("config_path %q: %v", path, err)}
	}
	var cfg models.RisConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &apierr.InvalidConfig{Reason: fmt.Sprintf("config_path %q: %v", path, err)}
	}
	return &cfg, nil
}

func (s *Scheduler) submit(kind models.RunKind, action models.JobAction, mode models.JobMode, payload map[string]any, workerBin string, queue chan *dispatchable) (models.JobSubmission, error) {
	run, err := s.store.Allocate(kind)
	if err != nil {
		return models.JobSubmission{}, fmt.Errorf("scheduler: allocate run: %w", err)
	}

	job := &models.Job{
		JobID:           uuid.NewString(),
		RunID:           run.RunID,
		Kind:            kind,
		Action:          action,
		Mode:            mode,
		CreatedAt:       time.Now().UTC(),
		Status:          models.JobQueued,
		PayloadSnapshot: payload,
	}

	s.mu.Lock()
	s.jobs[job.JobID] = job
	s.mu.Unlock()

	if err := s.journal.Update(run.RunID, models.ProgressRecord{
		Status:    models.StatusQueued,
		StepName:  "queued",
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		s.failJob(job, err)
		return models.JobSubmission{}, err
	}

	queue <- &dispatchable{job: job, payload: payload, workerBin: workerBin}

	return models.JobSubmission{RunID: run.RunID, JobID: job.JobID}, nil
}

// runDispatcher pulls jobs off queue in submission order and dispatches
// each in its own goroutine once a slot is free. With cap==1 a queue runs
// strictly serially (completion order equals submission order); with a
// higher cap, completion order may differ from submission order, which
// §5 permits.
func (s *Scheduler) runDispatcher(queue chan *dispatchable, slots chan struct{}) {
	defer s.wg.Done()
	for d := range queue {
		slots <- struct{}{}
		s.wg.Add(1)
		go func(d *dispatchable) {
			defer s.wg.Done()
			defer func() { <-slots }()
			s.dispatch(d)
		}(d)
	}
}

// dispatch implements the queued -> running -> {completed|failed}
// transition for one job (§4.6).
func (s *Scheduler) dispatch(d *dispatchable) {
	job := d.job
	ctx := context.Background()

	if job.Kind == models.KindSim {
		applyGuard(ctx, s.guard, s.cfg.VRAMThresholdPct, job, d.payload)
	}

	digest, canonJSON, err := cfghash.Hash(d.payload)
	if err != nil {
		s.failJob(job, fmt.Errorf("scheduler: hash config: %w", err))
		return
	}
	if err := s.store.WriteAtomic(job.RunID, "config_hash", []byte(digest)); err != nil {
		s.failJob(job, err)
		return
	}
	if err := s.store.WriteAtomic(job.RunID, "config.json", canonJSON); err != nil {
		s.failJob(job, err)
		return
	}
	if yamlBytes, err := toYAML(d.payload); err == nil {
		_ = s.store.WriteAtomic(job.RunID, "config.yaml", yamlBytes)
	}

	s.setRunning(job)

	cmd := s.buildCommand(ctx, d)
	if err := s.runWorker(job, cmd); err != nil {
		s.failJob(job, err)
		return
	}

	s.completeJob(job)
}

func (s *Scheduler) setRunning(job *models.Job) {
	s.mu.Lock()
	job.Status = models.JobRunning
	s.mu.Unlock()
	_ = s.journal.Update(job.RunID, models.ProgressRecord{
		Status:    models.StatusRunning,
		StepName:  "dispatched",
		UpdatedAt: time.Now().UTC(),
	})
}

func (s *Scheduler) buildCommand(ctx context.Context, d *dispatchable) *exec.Cmd {
	job := d.job
	args := []string{"-run-id", job.RunID, "-run-dir", s.store.RunDir(job.RunID)}
	if job.Kind == models.KindRis {
		args = append(args, "-action", string(job.Action))
		if job.Mode != "" {
			args = append(args, "-mode", string(job.Mode))
		}
	}
	cmd := exec.CommandContext(ctx, d.workerBin, args...)
	cmd.Dir = s.store.RunDir(job.RunID)
	cmd.Env = append(os.Environ(),
		"SIMBENCH_RUN_ID="+job.RunID,
		"SIMBENCH_RUN_DIR="+s.store.RunDir(job.RunID),
	)
	return cmd
}

// runWorker starts cmd, captures stdout/stderr line-by-line (grounded on the
// teacher's FFmpegTranscoder.Execute, which scans ffmpeg's stderr for
// "time="/"fps=" the same way this scans stdout for "PROGRESS "), and
// blocks until the child exits.
func (s *Scheduler) runWorker(job *models.Job, cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("scheduler: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("scheduler: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scheduler: start worker: %w", err)
	}

	var lastStderr string
	var lastMu sync.Mutex
	var lineWg sync.WaitGroup
	lineWg.Add(2)

	go func() {
		defer lineWg.Done()
		s.scanLines(job.RunID, stdout)
	}()
	go func() {
		defer lineWg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			lastMu.Lock()
			lastStderr = line
			lastMu.Unlock()
			_ = s.journal.AppendLog(job.RunID, line)
		}
	}()

	lineWg.Wait()
	err = cmd.Wait()
	if err == nil {
		return nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return &apierr.WorkerCrash{ExitCode: -1, LastLine: err.Error()}
	}
	lastMu.Lock()
	line := lastStderr
	lastMu.Unlock()
	if line == "" {
		line = fmt.Sprintf("exit %d", exitErr.ExitCode())
	}
	return &apierr.WorkerCrash{ExitCode: exitErr.ExitCode(), LastLine: line}
}

// scanLines implements the §6 progress-line protocol: a line beginning with
// "PROGRESS " followed by compact JSON updates the journal; every other
// line is appended verbatim to run.log.
func (s *Scheduler) scanLines(runID string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if rest, ok := strings.CutPrefix(line, progressLinePrefix); ok {
			var rec models.ProgressRecord
			if err := json.Unmarshal([]byte(rest), &rec); err == nil {
				_ = s.journal.Update(runID, rec)
				continue
			}
		}
		_ = s.journal.AppendLog(runID, line)
	}
}

func (s *Scheduler) failJob(job *models.Job, err error) {
	s.mu.Lock()
	job.Status = models.JobFailed
	job.Error = err.Error()
	s.mu.Unlock()

	msg := err.Error()
	_ = s.journal.Update(job.RunID, models.ProgressRecord{
		Status:    models.StatusFailed,
		StepName:  "failed",
		Error:     &msg,
		UpdatedAt: time.Now().UTC(),
	})
}

func (s *Scheduler) completeJob(job *models.Job) {
	s.mu.Lock()
	job.Status = models.JobCompleted
	s.mu.Unlock()

	// Only write the terminal record if the worker has not already done so
	// (Update is a no-op once a terminal status is recorded).
	_ = s.journal.Update(job.RunID, models.ProgressRecord{
		Status:    models.StatusCompleted,
		StepName:  "completed",
		UpdatedAt: time.Now().UTC(),
	})
}

// Jobs returns a snapshot of all known jobs for the given kind, most
// recently created first, for GET /api/jobs and GET /api/ris/jobs.
func (s *Scheduler) Jobs(kind models.RunKind) []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Kind == kind {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Close stops accepting new work and waits for in-flight workers to finish
// (§5 "orderly drain").
func (s *Scheduler) Close() {
	close(s.simQueue)
	close(s.risQueue)
	s.wg.Wait()
}

func toYAML(v any) ([]byte, error) {
	return yaml.Marshal(v)
}
