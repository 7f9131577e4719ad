package tasks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/task"
)

// MapStats holds the alignment statistics of one sample. Counts of mapped,
// unmapped and properly paired reads refer to primary alignments only.
type MapStats struct {
	Sample        string `tsv:"Sample"`
	Total         int64  `tsv:"Total"`
	Mapped        int64  `tsv:"Mapped"`
	Unmapped      int64  `tsv:"Unmapped"`
	ProperPair    int64  `tsv:"ProperlyPaired"`
	Secondary     int64  `tsv:"Secondary"`
	Supplementary int64  `tsv:"Supplementary"`
	MappedPct     string `tsv:"MappedPercent"`
}

// ReadMapStats scans a BAM stream and counts its alignments.
func ReadMapStats(sample string, r io.Reader) (MapStats, error) {
	st := MapStats{Sample: sample}
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return st, errors.Wrapf(err, "%s: open bam", sample)
	}
	defer br.Close()

	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, errors.Wrapf(err, "%s: read bam", sample)
		}
		switch {
		case rec.Flags&sam.Secondary != 0:
			st.Secondary++
			continue
		case rec.Flags&sam.Supplementary != 0:
			st.Supplementary++
			continue
		}
		st.Total++
		if rec.Flags&sam.Unmapped != 0 {
			st.Unmapped++
			continue
		}
		st.Mapped++
		if rec.Flags&sam.Paired != 0 && rec.Flags&sam.ProperPair != 0 {
			st.ProperPair++
		}
	}
	if st.Total > 0 {
		st.MappedPct = fmt.Sprintf("%.2f", 100*float64(st.Mapped)/float64(st.Total))
	} else {
		st.MappedPct = "0.00"
	}
	return st, nil
}

func readMapStatsFile(sample, path string) (MapStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return MapStats{Sample: sample}, errors.Wrapf(err, "%s: open", sample)
	}
	defer f.Close()
	return ReadMapStats(sample, f)
}

// WriteMapSummary writes one row per sample.
func WriteMapSummary(w io.Writer, rows []MapStats) error {
	tw := tsv.NewRowWriter(w)
	for i := range rows {
		if err := tw.Write(&rows[i]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// SummarizeMap computes the alignment statistics of every sample from its
// BAM and writes the mapping summary table.
func SummarizeMap(env Env) task.Task {
	out := env.Cfg.MapSummaryPath()
	samples := env.Cfg.SampleNames()
	return &task.Func{
		Name:    "summarize_map",
		Deps:    MapAll(env),
		Targets: []string{out},
		Fn: func(ctx context.Context) error {
			logger := ctxlog.FromContext(ctx)
			rows := make([]MapStats, len(samples))
			err := traverse.Each(len(samples), func(i int) error {
				st, err := readMapStatsFile(samples[i], env.Cfg.AlignmentPath(samples[i]))
				rows[i] = st
				return err
			})
			if err != nil {
				return err
			}
			for _, r := range rows {
				logger.Debug("Mapping statistics.", "sample", r.Sample, "total", r.Total, "mapped_pct", r.MappedPct)
			}
			return writeAtomic(out, func(f *os.File) error {
				return WriteMapSummary(f, rows)
			})
		},
	}
}
