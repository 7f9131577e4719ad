package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

// NovelRegion is a transcribed region outside every annotated feature.
// Start and End are 1-based and inclusive.
type NovelRegion struct {
	SeqID        string `tsv:"seqid"`
	Start        int64  `tsv:"start"`
	End          int64  `tsv:"end"`
	MeanCoverage string `tsv:"mean_coverage"`
}

// NovelOptions are the thresholds of the coverage sweep.
type NovelOptions struct {
	MinCoverage int
	MinLength   int
}

// FindNovel sweeps the per-base coverage of the alignments in r and returns
// every run of at least MinLength bases covered by at least MinCoverage
// reads that does not overlap an annotated feature.
func FindNovel(r io.Reader, annot *AnnotationIndex, opts NovelOptions) ([]NovelRegion, error) {
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, errors.Wrap(err, "open bam")
	}
	defer br.Close()

	refs := br.Header().Refs()
	cov := make([][]int32, len(refs))
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read bam")
		}
		if rec.Ref == nil || rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary) != 0 {
			continue
		}
		id := rec.Ref.ID()
		if cov[id] == nil {
			cov[id] = make([]int32, rec.Ref.Len()+1)
		}
		addCoverage(cov[id], rec)
	}

	var regions []NovelRegion
	for i, ref := range refs {
		if cov[i] == nil {
			continue
		}
		regions = append(regions, sweep(ref.Name(), cov[i], annot, opts)...)
	}
	return regions, nil
}

// addCoverage records the aligned bases of rec as +1/-1 steps in diff.
func addCoverage(diff []int32, rec *sam.Record) {
	pos := rec.Pos
	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			start, end := pos, pos+n
			if start < 0 {
				start = 0
			}
			if end > len(diff)-1 {
				end = len(diff) - 1
			}
			if start < end {
				diff[start]++
				diff[end]--
			}
		}
		if op.Type().Consumes().Reference > 0 {
			pos += n
		}
	}
}

func sweep(seq string, diff []int32, annot *AnnotationIndex, opts NovelOptions) []NovelRegion {
	var out []NovelRegion
	emit := func(start, end int, sum int64) {
		if end-start < opts.MinLength || annot.Overlaps(seq, start, end) {
			return
		}
		out = append(out, NovelRegion{
			SeqID:        seq,
			Start:        int64(start + 1),
			End:          int64(end),
			MeanCoverage: fmt.Sprintf("%.2f", float64(sum)/float64(end-start)),
		})
	}

	var depth int32
	var sum int64
	runStart := -1
	for p := 0; p < len(diff)-1; p++ {
		depth += diff[p]
		if int(depth) >= opts.MinCoverage {
			if runStart < 0 {
				runStart, sum = p, 0
			}
			sum += int64(depth)
			continue
		}
		if runStart >= 0 {
			emit(runStart, p, sum)
			runStart = -1
		}
	}
	if runStart >= 0 {
		emit(runStart, len(diff)-1, sum)
	}
	return out
}

// WriteNovelRegions writes regions as a headed TSV table.
func WriteNovelRegions(w io.Writer, regions []NovelRegion) error {
	tw := tsv.NewRowWriter(w)
	for i := range regions {
		if err := tw.Write(&regions[i]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ReadNovelRegions reads a table written by WriteNovelRegions.
func ReadNovelRegions(r io.Reader) ([]NovelRegion, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true

	var regions []NovelRegion
	for {
		var row NovelRegion
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "read novel regions")
		}
		regions = append(regions, row)
	}
	return regions, nil
}

func ppPath(cfg config.RunConfig, sample string) string {
	return filepath.Join(cfg.NovelDir(), sample+".pp.bam")
}

func novelPath(cfg config.RunConfig, sample string) string {
	return filepath.Join(cfg.NovelDir(), sample+".novel.tsv")
}

// ExtractPP keeps only the properly paired alignments of one sample.
func ExtractPP(env Env, smp config.Sample) task.Task {
	out := ppPath(env.Cfg, smp.Name)
	return &task.Func{
		Name:    id("extract_pp", smp.Name),
		Deps:    []task.Task{Map(env, smp)},
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			if err := ensureParents(out); err != nil {
				return err
			}
			tmp := out + ".tmp"
			err := env.run(ctx, launcher.Command{
				Name: "samtools",
				Args: []string{"view", "-b", "-f", "3", "-@", env.cpus(), "-o", tmp, env.Cfg.AlignmentPath(smp.Name)},
			})
			if err != nil {
				os.Remove(tmp)
				return fmt.Errorf("extracting properly paired reads of %s: %w", smp.Name, err)
			}
			return os.Rename(tmp, out)
		},
	}
}

// FindNovelRegions discovers novel transcribed regions of one sample from
// its properly paired alignments.
func FindNovelRegions(env Env, smp config.Sample) task.Task {
	out := novelPath(env.Cfg, smp.Name)
	opts := NovelOptions{MinCoverage: env.Cfg.MinCoverage(), MinLength: env.Cfg.MinLength()}
	return &task.Func{
		Name:    id("novel_regions", smp.Name),
		Deps:    []task.Task{ExtractPP(env, smp)},
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			features, err := ReadGFFFile(env.Cfg.GFF())
			if err != nil {
				return err
			}
			f, err := os.Open(ppPath(env.Cfg, smp.Name))
			if err != nil {
				return errors.Wrapf(err, "%s", smp.Name)
			}
			defer f.Close()

			regions, err := FindNovel(f, NewAnnotationIndex(features), opts)
			if err != nil {
				return errors.Wrapf(err, "%s", smp.Name)
			}
			ctxlog.FromContext(ctx).Debug("Novel regions found.", "sample", smp.Name, "count", len(regions))
			return writeAtomic(out, func(f *os.File) error {
				return WriteNovelRegions(f, regions)
			})
		},
	}
}
