package tasks

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

//go:embed rscripts/*.R
var rscripts embed.FS

// DGE methods and the R script each runs.
const (
	MethodEdgeR    = "edgeR"
	MethodDESeq2   = "DESeq2"
	MethodBallgown = "ballgown"
)

// DGEResultPath is the result table of a count-based method for one
// annotation and feature type.
func DGEResultPath(env Env, method string, a Annotation, featureType string) string {
	return filepath.Join(env.Cfg.DGEDir(method), fmt.Sprintf("%s_%s_%s.tsv", a, featureType, method))
}

// PathwayResultPath is the KEGG enrichment table written next to a DGE
// result when an organism code is configured.
func PathwayResultPath(result string) string {
	return strings.TrimSuffix(result, ".tsv") + "_kegg.tsv"
}

// installScript copies an embedded R script into dir.
func installScript(dir, method string) (string, error) {
	data, err := rscripts.ReadFile("rscripts/" + method + ".R")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, method+".R")
	err = writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
	return path, err
}

func countBasedDGE(env Env, method string, a Annotation, featureType string) task.Task {
	out := DGEResultPath(env, method, a, featureType)
	dir := env.Cfg.DGEDir(method)
	targets := []string{out}
	if env.Cfg.OrgCode() != "" {
		targets = append(targets, PathwayResultPath(out))
	}
	return &task.Func{
		Name:    id(strings.ToLower(method), a.String(), featureType),
		Deps:    []task.Task{FeatureCounts(env, a, featureType)},
		Targets: targets,
		Fn: func(ctx context.Context) error {
			if _, err := LoadDesign(env.Cfg.ExpDesign(), env.Cfg.SampleNames()); err != nil {
				return err
			}
			script, err := installScript(dir, method)
			if err != nil {
				return err
			}
			org := env.Cfg.OrgCode()
			if org == "" {
				org = "NA"
			}
			return env.run(ctx, launcher.Command{
				Name: "Rscript",
				Args: []string{
					script,
					CountsPath(env.Cfg, a, featureType),
					env.Cfg.ExpDesign(),
					strings.Join(env.Cfg.SampleNames(), ","),
					strconv.FormatFloat(env.Cfg.PValue(), 'g', -1, 64),
					org,
					out,
				},
			})
		},
	}
}

// EdgeR tests differential expression of one feature type with edgeR.
func EdgeR(env Env, a Annotation, featureType string) task.Task {
	return countBasedDGE(env, MethodEdgeR, a, featureType)
}

// DESeq2 tests differential expression of one feature type with DESeq2.
func DESeq2(env Env, a Annotation, featureType string) task.Task {
	return countBasedDGE(env, MethodDESeq2, a, featureType)
}

// BallgownResultPath is the transcript-level ballgown result table.
func BallgownResultPath(env Env) string {
	return filepath.Join(env.Cfg.DGEDir(MethodBallgown), "transcripts_ballgown.tsv")
}

// Ballgown tests differential transcript expression from the re-estimated
// StringTie abundances.
func Ballgown(env Env) task.Task {
	out := BallgownResultPath(env)
	dir := env.Cfg.DGEDir(MethodBallgown)
	return &task.Func{
		Name:    "ballgown",
		Deps:    ReStringTieAll(env),
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			if _, err := LoadDesign(env.Cfg.ExpDesign(), env.Cfg.SampleNames()); err != nil {
				return err
			}
			script, err := installScript(dir, MethodBallgown)
			if err != nil {
				return err
			}
			return env.run(ctx, launcher.Command{
				Name: "Rscript",
				Args: []string{
					script,
					ReStringTieDir(env.Cfg),
					env.Cfg.ExpDesign(),
					strconv.FormatFloat(env.Cfg.PValue(), 'g', -1, 64),
					out,
				},
			})
		},
	}
}
