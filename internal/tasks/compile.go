package tasks

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/task"
)

// NovelFeatureType is the GFF type given to discovered regions.
const NovelFeatureType = "novel_region"

// MergeNovel joins overlapping regions of all samples and turns them into
// GFF features.
func MergeNovel(perSample [][]NovelRegion) []Feature {
	bySeq := make(map[string][]interval)
	for _, regions := range perSample {
		for _, r := range regions {
			bySeq[r.SeqID] = append(bySeq[r.SeqID], interval{start: int(r.Start) - 1, end: int(r.End)})
		}
	}
	seqs := make([]string, 0, len(bySeq))
	for s := range bySeq {
		seqs = append(seqs, s)
	}
	sort.Strings(seqs)

	var out []Feature
	for _, seq := range seqs {
		for _, iv := range mergeIntervals(bySeq[seq]) {
			name := fmt.Sprintf("novel_%s_%d_%d", seq, iv.start+1, iv.end)
			out = append(out, Feature{
				SeqID:      seq,
				Source:     "rnaflow",
				Type:       NovelFeatureType,
				Start:      iv.start + 1,
				End:        iv.end,
				Attributes: fmt.Sprintf("ID=%s;Name=%s", name, name),
			})
		}
	}
	return out
}

// CompileGFF writes the updated annotation: the reference features plus the
// merged novel regions of every sample. Without prokaryote stages it is a
// copy of the reference annotation.
func CompileGFF(env Env) task.Task {
	out := env.Cfg.UpdatedGFF()
	var deps []task.Task
	if env.Cfg.Kingdom().Prokaryotic() {
		for _, smp := range env.Cfg.Samples() {
			deps = append(deps, FindNovelRegions(env, smp))
		}
	}
	return &task.Func{
		Name:    "compile_gff",
		Deps:    deps,
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			features, err := ReadGFFFile(env.Cfg.GFF())
			if err != nil {
				return err
			}
			var perSample [][]NovelRegion
			if env.Cfg.Kingdom().Prokaryotic() {
				for _, name := range env.Cfg.SampleNames() {
					regions, err := readNovelFile(novelPath(env.Cfg, name))
					if err != nil {
						return err
					}
					perSample = append(perSample, regions)
				}
			}
			novel := MergeNovel(perSample)
			ctxlog.FromContext(ctx).Debug("Compiling updated annotation.", "reference_features", len(features), "novel_features", len(novel))
			return writeAtomic(out, func(f *os.File) error {
				return WriteGFF(f, append(features, novel...))
			})
		},
	}
}

func readNovelFile(path string) ([]NovelRegion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadNovelRegions(f)
}
