package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/fsutil"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

// Annotation selects which GFF a counting or assembly task uses.
type Annotation int

const (
	// Original is the reference annotation from the run configuration.
	Original Annotation = iota
	// Updated is <workdir>/updated.gff.
	Updated
)

func (a Annotation) String() string {
	if a == Updated {
		return "updated"
	}
	return "original"
}

// Path returns the GFF file of a under cfg.
func (a Annotation) Path(cfg config.RunConfig) string {
	if a == Updated {
		return cfg.UpdatedGFF()
	}
	return cfg.GFF()
}

// deps returns the task producing the annotation, if any.
func (a Annotation) deps(env Env) []task.Task {
	if a == Updated {
		return []task.Task{CompileGFF(env)}
	}
	return nil
}

// CountsPath is the featureCounts table for one annotation and feature type.
func CountsPath(cfg config.RunConfig, a Annotation, featureType string) string {
	return filepath.Join(cfg.FeatureCountDir(), fmt.Sprintf("%s_%s_count.tsv", a, featureType))
}

// FeatureTypes returns the feature types counted against a. The updated
// annotation also counts novel regions when they are discovered.
func FeatureTypes(cfg config.RunConfig, a Annotation) []string {
	types := cfg.FeatureTypes()
	if a == Updated && cfg.Kingdom().Prokaryotic() {
		types = append(types, NovelFeatureType)
	}
	return types
}

// FeatureCounts counts the reads of every sample per feature of one type.
func FeatureCounts(env Env, a Annotation, featureType string) task.Task {
	out := CountsPath(env.Cfg, a, featureType)
	maps := MapAll(env)
	return &task.Func{
		Name:    id("feature_counts", a.String(), featureType),
		Deps:    append(maps, a.deps(env)...),
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			if err := fsutil.EnsureDirs(env.Cfg.FeatureCountDir()); err != nil {
				return err
			}
			args := []string{
				"-a", a.Path(env.Cfg),
				"-t", featureType,
				"-g", "ID",
				"-T", env.cpus(),
			}
			if anyPaired(env.Cfg) {
				args = append(args, "-p")
			}
			args = append(args, "-o", out)
			for _, name := range env.Cfg.SampleNames() {
				args = append(args, env.Cfg.AlignmentPath(name))
			}
			return env.run(ctx, launcher.Command{Name: "featureCounts", Args: args})
		},
	}
}

// FeatureCountsAll returns one counting task per feature type of a.
func FeatureCountsAll(env Env, a Annotation) []task.Task {
	var out []task.Task
	for _, ft := range FeatureTypes(env.Cfg, a) {
		out = append(out, FeatureCounts(env, a, ft))
	}
	return out
}

func anyPaired(cfg config.RunConfig) bool {
	for _, smp := range cfg.Samples() {
		for _, rp := range smp.Reads {
			if rp.Paired() {
				return true
			}
		}
	}
	return false
}
