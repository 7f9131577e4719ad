// Package manifest records what a run did in a YAML file under the work
// directory: the run id, settings that shape the plan, and the outcome of
// every stage.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Stage status values.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// StageRecord is the outcome of one stage submission.
type StageRecord struct {
	Name     string    `yaml:"name"`
	Status   string    `yaml:"status"`
	Started  time.Time `yaml:"started"`
	Duration string    `yaml:"duration,omitempty"`
	Error    string    `yaml:"error,omitempty"`
}

// Manifest is the document written to run_manifest.yaml.
type Manifest struct {
	RunID    string        `yaml:"run_id"`
	Started  time.Time     `yaml:"started"`
	Finished *time.Time    `yaml:"finished,omitempty"`
	Workdir  string        `yaml:"workdir"`
	Aligner  string        `yaml:"aligner"`
	Kingdom  string        `yaml:"kingdom"`
	Samples  []string      `yaml:"samples"`
	Stages   []StageRecord `yaml:"stages"`
}

// Recorder keeps a Manifest current as stages start and finish, rewriting the
// file after every change. It implements pipeline.Observer.
type Recorder struct {
	path string
	now  func() time.Time

	mu  sync.Mutex
	m   Manifest
	err error
}

// NewRecorder starts a manifest for cfg with a fresh run id.
func NewRecorder(cfg config.RunConfig) *Recorder {
	r := &Recorder{path: cfg.ManifestPath(), now: time.Now}
	r.m = Manifest{
		RunID:   uuid.NewString(),
		Started: r.now().UTC(),
		Workdir: cfg.Workdir(),
		Aligner: cfg.Aligner().String(),
		Kingdom: cfg.Kingdom().String(),
		Samples: cfg.SampleNames(),
	}
	return r
}

// RunID returns the id of this run.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.RunID
}

// Path returns the manifest file location.
func (r *Recorder) Path() string { return r.path }

// Snapshot returns a copy of the current manifest.
func (r *Recorder) Snapshot() Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.m
	m.Samples = append([]string(nil), r.m.Samples...)
	m.Stages = append([]StageRecord(nil), r.m.Stages...)
	return m
}

// StageStarted implements pipeline.Observer.
func (r *Recorder) StageStarted(s pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Stages = append(r.m.Stages, StageRecord{
		Name:    s.String(),
		Status:  StatusRunning,
		Started: r.now().UTC(),
	})
	r.flushLocked()
}

// StageFinished implements pipeline.Observer.
func (r *Recorder) StageFinished(s pipeline.Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.m.Stages) - 1; i >= 0; i-- {
		rec := &r.m.Stages[i]
		if rec.Name != s.String() || rec.Status != StatusRunning {
			continue
		}
		rec.Duration = r.now().UTC().Sub(rec.Started).Round(time.Millisecond).String()
		rec.Status = StatusDone
		if err != nil {
			rec.Status = StatusFailed
			rec.Error = err.Error()
		}
		break
	}
	r.flushLocked()
}

// Finish stamps the finish time and writes the manifest. It returns the
// first write error seen during the run.
func (r *Recorder) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.now().UTC()
	r.m.Finished = &t
	r.flushLocked()
	return r.err
}

func (r *Recorder) flushLocked() {
	if err := Write(r.path, r.m); err != nil && r.err == nil {
		r.err = err
	}
}

// Write stores m at path as YAML, replacing any previous file atomically.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Read loads a manifest written by Write.
func Read(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return m, nil
}
