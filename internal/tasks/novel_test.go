package tasks

import (
	"bytes"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindNovel(t *testing.T) {
	pp := sam.Paired | sam.ProperPair | sam.Read1
	var recs []*sam.Record
	// Six reads covering [100, 180) on chr1: inside gene1, not novel.
	for i := 0; i < 6; i++ {
		recs = append(recs, newRecord("a", chr1, 100, pp, match(80)))
	}
	// Six reads covering [600, 700) on chr1: unannotated.
	for i := 0; i < 6; i++ {
		recs = append(recs, newRecord("b", chr1, 600, pp, match(100)))
	}
	// Deep but short: [800, 820).
	for i := 0; i < 6; i++ {
		recs = append(recs, newRecord("c", chr1, 800, pp, match(20)))
	}
	// Shallow: only two reads on chr2.
	for i := 0; i < 2; i++ {
		recs = append(recs, newRecord("d", chr2, 0, pp, match(100)))
	}
	var buf bytes.Buffer
	writeBAM(t, &buf, recs...)

	annot := NewAnnotationIndex([]Feature{{SeqID: "chr1", Start: 101, End: 200}})
	regions, err := FindNovel(&buf, annot, NovelOptions{MinCoverage: 5, MinLength: 50})
	require.NoError(t, err)

	assert.Equal(t, []NovelRegion{
		{SeqID: "chr1", Start: 601, End: 700, MeanCoverage: "6.00"},
	}, regions)
}

func TestFindNovel_SplicedReadsSkipIntrons(t *testing.T) {
	cigar := []sam.CigarOp{
		sam.NewCigarOp(sam.CigarMatch, 60),
		sam.NewCigarOp(sam.CigarSkipped, 200),
		sam.NewCigarOp(sam.CigarMatch, 60),
	}
	var recs []*sam.Record
	for i := 0; i < 5; i++ {
		recs = append(recs, newRecord("s", chr1, 0, sam.Paired|sam.ProperPair, cigar...))
	}
	var buf bytes.Buffer
	writeBAM(t, &buf, recs...)

	regions, err := FindNovel(&buf, NewAnnotationIndex(nil), NovelOptions{MinCoverage: 5, MinLength: 50})
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, int64(1), regions[0].Start)
	assert.Equal(t, int64(60), regions[0].End)
	assert.Equal(t, int64(261), regions[1].Start)
	assert.Equal(t, int64(320), regions[1].End)
}

func TestNovelRegions_RoundTrip(t *testing.T) {
	in := []NovelRegion{
		{SeqID: "chr1", Start: 601, End: 700, MeanCoverage: "6.00"},
		{SeqID: "chr2", Start: 1, End: 90, MeanCoverage: "12.50"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteNovelRegions(&buf, in))

	out, err := ReadNovelRegions(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMergeNovel(t *testing.T) {
	features := MergeNovel([][]NovelRegion{
		{{SeqID: "chr2", Start: 1, End: 90}, {SeqID: "chr1", Start: 601, End: 700}},
		{{SeqID: "chr1", Start: 650, End: 760}},
	})
	require.Len(t, features, 2)
	assert.Equal(t, "chr1", features[0].SeqID)
	assert.Equal(t, 601, features[0].Start)
	assert.Equal(t, 760, features[0].End)
	assert.Equal(t, NovelFeatureType, features[0].Type)
	assert.Equal(t, "ID=novel_chr1_601_760;Name=novel_chr1_601_760", features[0].Attributes)
	assert.Equal(t, "chr2", features[1].SeqID)
}
