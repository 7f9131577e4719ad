package tasks

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// Feature is one GFF line. Start and End are 1-based and inclusive.
type Feature struct {
	SeqID      string
	Source     string
	Type       string
	Start      int
	End        int
	Score      string
	Strand     string
	Phase      string
	Attributes string
}

// ReadGFF parses features from r. Comment lines are skipped and an embedded
// ##FASTA section ends the feature table.
func ReadGFF(r io.Reader) ([]Feature, error) {
	var body bytes.Buffer
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "##FASTA") {
			break
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read gff")
	}

	tr := tsv.NewReader(&body)
	tr.Comment = '#'
	tr.LazyQuotes = true

	var features []Feature
	for {
		var f Feature
		if err := tr.Read(&f); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "parse gff")
		}
		features = append(features, f)
	}
	return features, nil
}

// ReadGFFFile reads the features of the GFF file at path.
func ReadGFFFile(path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	features, err := ReadGFF(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return features, nil
}

// WriteGFF writes a GFF3 header followed by features.
func WriteGFF(w io.Writer, features []Feature) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("##gff-version 3")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, f := range features {
		tw.WriteString(f.SeqID)
		tw.WriteString(f.Source)
		tw.WriteString(f.Type)
		tw.WriteInt64(int64(f.Start))
		tw.WriteInt64(int64(f.End))
		tw.WriteString(orDot(f.Score))
		tw.WriteString(orDot(f.Strand))
		tw.WriteString(orDot(f.Phase))
		tw.WriteString(orDot(f.Attributes))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// interval is a half-open, 0-based range stored in the annotation index.
type interval struct {
	start, end int
}

func (iv interval) Compare(c llrb.Comparable) int {
	return iv.start - c.(interval).start
}

// AnnotationIndex answers whether a region overlaps any annotated feature.
type AnnotationIndex struct {
	bySeq map[string]*llrb.Tree
}

// NewAnnotationIndex merges overlapping features per sequence and indexes
// the resulting disjoint intervals.
func NewAnnotationIndex(features []Feature) *AnnotationIndex {
	raw := make(map[string][]interval)
	for _, f := range features {
		raw[f.SeqID] = append(raw[f.SeqID], interval{start: f.Start - 1, end: f.End})
	}
	idx := &AnnotationIndex{bySeq: make(map[string]*llrb.Tree, len(raw))}
	for seq, ivs := range raw {
		t := &llrb.Tree{}
		for _, iv := range mergeIntervals(ivs) {
			t.Insert(iv)
		}
		idx.bySeq[seq] = t
	}
	return idx
}

// Overlaps reports whether the 0-based half-open range [start, end) on seq
// touches an annotated base.
func (a *AnnotationIndex) Overlaps(seq string, start, end int) bool {
	t, ok := a.bySeq[seq]
	if !ok || end <= start {
		return false
	}
	// Intervals are disjoint, so the one with the greatest start before end
	// is the only candidate.
	c := t.Floor(interval{start: end - 1})
	if c == nil {
		return false
	}
	return c.(interval).end > start
}

// mergeIntervals sorts ivs and joins overlapping or adjacent ranges.
func mergeIntervals(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := append([]interval(nil), ivs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	out := []interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.start <= last.end {
			if iv.end > last.end {
				last.end = iv.end
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
