package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/engine"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
	"github.com/vk/rnaflow/internal/tasks"
)

var (
	// ErrOutOfOrder is returned when a stage runs before its prerequisites.
	ErrOutOfOrder = errors.New("stage prerequisites have not completed")
	// ErrStageNotInPlan is returned for stages the configuration excludes.
	ErrStageNotInPlan = errors.New("stage is not part of this run's plan")
	// ErrUnsupportedStage is returned when a stage does not apply to the
	// configured aligner.
	ErrUnsupportedStage = errors.New("stage is not supported by this configuration")
)

// Observer is notified around every stage submission.
type Observer interface {
	StageStarted(s Stage)
	StageFinished(s Stage, err error)
}

// stageDef says how to build a stage's root tasks and whether its tasks may
// run concurrently.
type stageDef struct {
	roots    func(env tasks.Env) ([]task.Task, error)
	parallel bool
}

func perSample(build func(tasks.Env, config.Sample) task.Task) func(tasks.Env) ([]task.Task, error) {
	return func(env tasks.Env) ([]task.Task, error) {
		var out []task.Task
		for _, smp := range env.Cfg.Samples() {
			out = append(out, build(env, smp))
		}
		return out, nil
	}
}

func single(build func(tasks.Env) task.Task) func(tasks.Env) ([]task.Task, error) {
	return func(env tasks.Env) ([]task.Task, error) {
		return []task.Task{build(env)}, nil
	}
}

func many(build func(tasks.Env) []task.Task) func(tasks.Env) ([]task.Task, error) {
	return func(env tasks.Env) ([]task.Task, error) {
		return build(env), nil
	}
}

func perType(build func(tasks.Env, tasks.Annotation, string) task.Task, a tasks.Annotation) func(tasks.Env) ([]task.Task, error) {
	return func(env tasks.Env) ([]task.Task, error) {
		var out []task.Task
		for _, ft := range tasks.FeatureTypes(env.Cfg, a) {
			out = append(out, build(env, a, ft))
		}
		return out, nil
	}
}

// hisatSummary builds the mapping summary, refusing non-HISAT2 runs.
func hisatSummary(env tasks.Env) ([]task.Task, error) {
	if env.Cfg.Aligner() != config.AlignerHISAT2 {
		return nil, fmt.Errorf("%w: %s requires the HISAT2 aligner", ErrUnsupportedStage, StageMapHisatSummarize)
	}
	return []task.Task{tasks.SummarizeMap(env)}, nil
}

var stageTable = map[Stage]stageDef{
	StageQC:                  {roots: perSample(tasks.FaQC), parallel: true},
	StageCreateDB:            {roots: single(tasks.Index), parallel: true},
	StageMapReads:            {roots: many(tasks.MapAll), parallel: true},
	StageMapSummarize:        {roots: single(tasks.SummarizeMap)},
	StageMapHisatSummarize:   {roots: hisatSummary},
	StageExtractPP:           {roots: perSample(tasks.ExtractPP), parallel: true},
	StageNovelRegions:        {roots: perSample(tasks.FindNovelRegions), parallel: true},
	StageFindNovelRegions:    {roots: perSample(tasks.FindNovelRegions)},
	StageCreateNewGFF:        {roots: single(tasks.CompileGFF)},
	StageFeatureCount:        {roots: perType(tasks.FeatureCounts, tasks.Original)},
	StageFeatureCountUpdated: {roots: perType(tasks.FeatureCounts, tasks.Updated)},
	StageRunStringTie:        {roots: many(tasks.StringTieAll)},
	StageMergeStringTie:      {roots: single(tasks.MergeStringTies)},
	StageReStringTie:         {roots: many(tasks.ReStringTieAll)},
	StageEdgeR:               {roots: perType(tasks.EdgeR, tasks.Original)},
	StageDESeq2:              {roots: perType(tasks.DESeq2, tasks.Updated)},
	StageBallgown:            {roots: single(tasks.Ballgown)},
}

// Option configures a Driver.
type Option func(*Driver)

// WithObserver registers o for stage notifications.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observers = append(d.observers, o)
	}
}

// Driver runs the stages of one configured run.
type Driver struct {
	cfg       config.RunConfig
	env       tasks.Env
	builder   engine.Builder
	plan      Plan
	observers []Observer

	mu   sync.Mutex
	done map[Stage]bool
}

// New returns a driver for cfg that starts tools through l and submits work
// to b.
func New(cfg config.RunConfig, l launcher.Launcher, b engine.Builder, opts ...Option) *Driver {
	d := &Driver{
		cfg:     cfg,
		env:     tasks.Env{Cfg: cfg, Launcher: l},
		builder: b,
		plan:    NewPlan(cfg),
		done:    make(map[Stage]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan returns the stages this driver accepts.
func (d *Driver) Plan() Plan { return d.plan }

// Completed reports whether s, or the stage it stands in for, finished in
// this driver.
func (d *Driver) Completed(s Stage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done[s.canonical()]
}

// RunPlan runs the given stages in plan order, or the whole plan when none
// are given. It stops at the first failing stage.
func (d *Driver) RunPlan(ctx context.Context, stages ...Stage) error {
	if len(stages) == 0 {
		stages = d.plan.Stages()
	}
	for _, s := range d.plan.Order(stages) {
		if err := d.Run(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Run validates, builds and submits one stage.
func (d *Driver) Run(ctx context.Context, s Stage) error {
	logger := ctxlog.FromContext(ctx).With("stage", s.String())

	def, ok := stageTable[s]
	if !ok {
		return fmt.Errorf("unknown stage %v", s)
	}
	if !d.plan.Contains(s) {
		return fmt.Errorf("%w: %s", ErrStageNotInPlan, s)
	}
	if err := d.checkPrerequisites(s); err != nil {
		return err
	}

	roots, err := def.roots(d.env)
	if err != nil {
		return err
	}

	workers := 1
	if def.parallel {
		workers = d.cfg.Jobs()
	}

	d.notifyStarted(s)
	logger.Info("▶️ Starting stage.", "tasks", len(roots), "workers", workers)
	start := time.Now()

	err = d.builder.Build(ctx, roots, engine.Options{
		Workers:      workers,
		SchedulerURL: d.cfg.SchedulerURL(),
	})
	d.notifyFinished(s, err)
	if err != nil {
		logger.Error("❌ Stage failed.", "error", err, "duration", time.Since(start))
		return fmt.Errorf("stage %s failed: %w", s, err)
	}

	d.mu.Lock()
	d.done[s.canonical()] = true
	d.mu.Unlock()
	logger.Info("✅ Stage finished.", "duration", time.Since(start))
	return nil
}

// checkPrerequisites accepts a prerequisite that completed in this driver or
// whose outputs already exist from an earlier invocation.
func (d *Driver) checkPrerequisites(s Stage) error {
	var missing []string
	for _, pre := range d.plan.Prerequisites(s) {
		if d.Completed(pre) || d.onDisk(pre) {
			continue
		}
		missing = append(missing, pre.String())
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s needs %v", ErrOutOfOrder, s, missing)
	}
	return nil
}

func (d *Driver) onDisk(s Stage) bool {
	roots, err := stageTable[s].roots(d.env)
	if err != nil || len(roots) == 0 {
		return false
	}
	for _, t := range roots {
		if !task.Complete(t) {
			return false
		}
	}
	return true
}

func (d *Driver) notifyStarted(s Stage) {
	for _, o := range d.observers {
		o.StageStarted(s)
	}
}

func (d *Driver) notifyFinished(s Stage, err error) {
	for _, o := range d.observers {
		o.StageFinished(s, err)
	}
}

// QC trims and filters the reads of every sample with FaQC.
func (d *Driver) QC(ctx context.Context) error {
	return d.Run(ctx, StageQC)
}

// CreateDB builds the index of the configured aligner.
func (d *Driver) CreateDB(ctx context.Context) error {
	return d.Run(ctx, StageCreateDB)
}

// MapReads aligns every sample against the index, one task per sample.
func (d *Driver) MapReads(ctx context.Context) error {
	return d.Run(ctx, StageMapReads)
}

// MapSummarize writes the mapping summary table. It always runs with one
// worker.
func (d *Driver) MapSummarize(ctx context.Context) error {
	return d.Run(ctx, StageMapSummarize)
}

// MapHisatSummarize is the HISAT2-only form of MapSummarize.
func (d *Driver) MapHisatSummarize(ctx context.Context) error {
	return d.Run(ctx, StageMapHisatSummarize)
}

// ExtractPP keeps the properly paired reads of every alignment.
func (d *Driver) ExtractPP(ctx context.Context) error {
	return d.Run(ctx, StageExtractPP)
}

// NovelRegions finds transcribed regions missing from the annotation.
func (d *Driver) NovelRegions(ctx context.Context) error {
	return d.Run(ctx, StageNovelRegions)
}

// FindNovelRegions detects novel regions one sample at a time.
func (d *Driver) FindNovelRegions(ctx context.Context) error {
	return d.Run(ctx, StageFindNovelRegions)
}

// CreateNewGFF merges the novel regions into updated.gff.
func (d *Driver) CreateNewGFF(ctx context.Context) error {
	return d.Run(ctx, StageCreateNewGFF)
}

// FeatureCount counts reads per feature of the original annotation.
func (d *Driver) FeatureCount(ctx context.Context) error {
	return d.Run(ctx, StageFeatureCount)
}

// FeatureCountUpdated counts reads per feature of updated.gff.
func (d *Driver) FeatureCountUpdated(ctx context.Context) error {
	return d.Run(ctx, StageFeatureCountUpdated)
}

// RunStringTie assembles transcripts per sample.
func (d *Driver) RunStringTie(ctx context.Context) error {
	return d.Run(ctx, StageRunStringTie)
}

// MergeStringTie merges the per-sample assemblies.
func (d *Driver) MergeStringTie(ctx context.Context) error {
	return d.Run(ctx, StageMergeStringTie)
}

// ReStringTie re-estimates abundances against the merged assembly.
func (d *Driver) ReStringTie(ctx context.Context) error {
	return d.Run(ctx, StageReStringTie)
}

// RunEdgeR tests differential expression with edgeR.
func (d *Driver) RunEdgeR(ctx context.Context) error {
	return d.Run(ctx, StageEdgeR)
}

// RunDESeq2 tests differential expression with DESeq2.
func (d *Driver) RunDESeq2(ctx context.Context) error {
	return d.Run(ctx, StageDESeq2)
}

// RunBallgown tests differential transcript expression with ballgown.
func (d *Driver) RunBallgown(ctx context.Context) error {
	return d.Run(ctx, StageBallgown)
}
