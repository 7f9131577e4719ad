package tasks

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/require"
)

var (
	chr1, _ = sam.NewReference("chr1", "", "", 1000, nil, nil)
	chr2, _ = sam.NewReference("chr2", "", "", 500, nil, nil)
	header  *sam.Header
)

func init() {
	var err error
	header, err = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	if err != nil {
		panic(err)
	}
}

func newRecord(name string, ref *sam.Reference, pos int, flags sam.Flags, cigar ...sam.CigarOp) *sam.Record {
	n := 0
	for _, op := range cigar {
		if op.Type().Consumes().Query > 0 {
			n += op.Len()
		}
	}
	return &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MatePos: -1,
		MapQ:    60,
		Flags:   flags,
		Cigar:   cigar,
		Seq:     sam.NewSeq(bytes.Repeat([]byte("A"), n)),
		Qual:    bytes.Repeat([]byte{30}, n),
	}
}

func match(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarMatch, n) }

func writeBAM(t *testing.T, w io.Writer, recs ...*sam.Record) {
	t.Helper()
	bw, err := bam.NewWriter(w, header, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, bw.Write(r))
	}
	require.NoError(t, bw.Close())
}

func writeBAMFile(t *testing.T, path string, recs ...*sam.Record) {
	t.Helper()
	require.NoError(t, ensureParents(path))
	f, err := os.Create(path)
	require.NoError(t, err)
	writeBAM(t, f, recs...)
	require.NoError(t, f.Close())
}
