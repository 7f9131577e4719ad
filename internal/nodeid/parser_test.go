package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		rawID   string
		want    []string
		wantErr bool
	}{
		{rawID: "compile_gff", want: []string{"compile_gff"}},
		{rawID: "map_hisat.sample_b", want: []string{"map_hisat", "sample_b"}},
		{rawID: "deseq2.updated.novel_region", want: []string{"deseq2", "updated", "novel_region"}},
		{rawID: "a..b", wantErr: true},
		{rawID: "", wantErr: true},
		{rawID: "a.-.c", wantErr: true},
		{rawID: "map/migun", wantErr: true},
		{rawID: "faqc.s[1]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rawID, func(t *testing.T) {
			addr, err := Parse(tt.rawID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr.Segments)
		})
	}
	assert.Panics(t, func() { MustParse("a..b") })
}

func TestValidSegment(t *testing.T) {
	assert.True(t, ValidSegment("migun"))
	assert.True(t, ValidSegment("BTT_test15-R1"))
	assert.False(t, ValidSegment(""))
	assert.False(t, ValidSegment("-"))
	assert.False(t, ValidSegment("a b"))
	assert.False(t, ValidSegment("a.b"))
}
