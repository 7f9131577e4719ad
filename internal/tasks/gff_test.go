package tasks

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGFF = `##gff-version 3
# a comment
chr1	RefSeq	gene	101	200	.	+	.	ID=gene1;Name=thrL
chr1	RefSeq	CDS	101	200	.	+	0	ID=cds1;Parent=gene1
chr1	RefSeq	gene	301	400	.	-	.	ID=gene2
##FASTA
>chr1
ACGT
`

func TestReadGFF(t *testing.T) {
	features, err := ReadGFF(strings.NewReader(sampleGFF))
	require.NoError(t, err)
	require.Len(t, features, 3)

	want := Feature{
		SeqID: "chr1", Source: "RefSeq", Type: "CDS", Start: 101, End: 200,
		Score: ".", Strand: "+", Phase: "0", Attributes: "ID=cds1;Parent=gene1",
	}
	if diff := cmp.Diff(want, features[1]); diff != "" {
		t.Errorf("feature mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteGFF_RoundTrip(t *testing.T) {
	features, err := ReadGFF(strings.NewReader(sampleGFF))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteGFF(&buf, features))
	assert.True(t, strings.HasPrefix(buf.String(), "##gff-version 3\n"))

	again, err := ReadGFF(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(features, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIntervals(t *testing.T) {
	got := mergeIntervals([]interval{{50, 60}, {0, 10}, {5, 20}, {20, 30}, {70, 80}})
	assert.Equal(t, []interval{{0, 30}, {50, 60}, {70, 80}}, got)
	assert.Nil(t, mergeIntervals(nil))
}

func TestAnnotationIndex_Overlaps(t *testing.T) {
	idx := NewAnnotationIndex([]Feature{
		{SeqID: "chr1", Start: 101, End: 200},
		{SeqID: "chr1", Start: 150, End: 250},
		{SeqID: "chr1", Start: 401, End: 500},
	})

	testCases := []struct {
		name       string
		seq        string
		start, end int
		want       bool
	}{
		{"before first", "chr1", 0, 100, false},
		{"touches first base", "chr1", 0, 101, true},
		{"inside merged", "chr1", 210, 220, true},
		{"gap", "chr1", 250, 400, false},
		{"spans second", "chr1", 300, 600, true},
		{"after last", "chr1", 500, 900, false},
		{"other sequence", "chr2", 0, 1000, false},
		{"empty range", "chr1", 150, 150, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, idx.Overlaps(tc.seq, tc.start, tc.end))
		})
	}
}
