package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

func stringTieGTF(cfg config.RunConfig, sample string) string {
	return filepath.Join(cfg.StringTieDir(), sample, sample+".gtf")
}

// MergedGTFPath is the merged transcript assembly of all samples.
func MergedGTFPath(cfg config.RunConfig) string {
	return filepath.Join(cfg.StringTieDir(), "merged.gtf")
}

// ReStringTieDir holds the per-sample re-estimated abundances read by
// ballgown.
func ReStringTieDir(cfg config.RunConfig) string {
	return filepath.Join(cfg.StringTieDir(), "restringtie")
}

func reStringTieGTF(cfg config.RunConfig, sample string) string {
	return filepath.Join(ReStringTieDir(cfg), sample, sample+".gtf")
}

// StringTieScores assembles the transcripts of one sample guided by the
// updated annotation.
func StringTieScores(env Env, smp config.Sample) task.Task {
	out := stringTieGTF(env.Cfg, smp.Name)
	return &task.Func{
		Name:    id("stringtie", smp.Name),
		Deps:    []task.Task{Map(env, smp), CompileGFF(env)},
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			if err := ensureParents(out); err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{
				Name: "stringtie",
				Args: []string{
					env.Cfg.AlignmentPath(smp.Name),
					"-p", env.cpus(),
					"-G", env.Cfg.UpdatedGFF(),
					"-o", out,
					"-A", filepath.Join(filepath.Dir(out), "gene_abund.tab"),
				},
			})
		},
	}
}

// StringTieAll returns one assembly task per sample.
func StringTieAll(env Env) []task.Task {
	var out []task.Task
	for _, smp := range env.Cfg.Samples() {
		out = append(out, StringTieScores(env, smp))
	}
	return out
}

// MergeStringTies merges the per-sample assemblies into one annotation.
func MergeStringTies(env Env) task.Task {
	out := MergedGTFPath(env.Cfg)
	list := filepath.Join(env.Cfg.StringTieDir(), "mergelist.txt")
	return &task.Func{
		Name:    "merge_stringtie",
		Deps:    StringTieAll(env),
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			var gtfs []string
			for _, name := range env.Cfg.SampleNames() {
				gtfs = append(gtfs, stringTieGTF(env.Cfg, name))
			}
			err := writeAtomic(list, func(f *os.File) error {
				_, err := f.WriteString(strings.Join(gtfs, "\n") + "\n")
				return err
			})
			if err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{
				Name: "stringtie",
				Args: []string{"--merge", "-p", env.cpus(), "-G", env.Cfg.UpdatedGFF(), "-o", out, list},
			})
		},
	}
}

// ReStringTie re-estimates the abundances of one sample against the merged
// assembly, writing ballgown tables.
func ReStringTie(env Env, smp config.Sample) task.Task {
	out := reStringTieGTF(env.Cfg, smp.Name)
	return &task.Func{
		Name:    id("restringtie", smp.Name),
		Deps:    []task.Task{Map(env, smp), MergeStringTies(env)},
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			if err := ensureParents(out); err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{
				Name: "stringtie",
				Args: []string{
					"-e", "-B",
					"-p", env.cpus(),
					"-G", MergedGTFPath(env.Cfg),
					"-o", out,
					env.Cfg.AlignmentPath(smp.Name),
				},
			})
		},
	}
}

// ReStringTieAll returns one re-estimation task per sample.
func ReStringTieAll(env Env) []task.Task {
	var out []task.Task
	for _, smp := range env.Cfg.Samples() {
		out = append(out, ReStringTie(env, smp))
	}
	return out
}
