package tasks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDesign(t *testing.T) {
	rows, err := ReadDesign(strings.NewReader("# design\nSampleID\tGroup\nsamp1\tcontrol\nsamp2\ttreated\n"))
	require.NoError(t, err)
	assert.Equal(t, []DesignRow{{"samp1", "control"}, {"samp2", "treated"}}, rows)
}

func TestValidateDesign(t *testing.T) {
	samples := []string{"a", "b"}

	testCases := []struct {
		name    string
		rows    []DesignRow
		wantErr string
	}{
		{"valid", []DesignRow{{"a", "x"}, {"b", "y"}}, ""},
		{"unknown sample", []DesignRow{{"a", "x"}, {"c", "y"}}, "unknown sample"},
		{"duplicate", []DesignRow{{"a", "x"}, {"a", "y"}}, "twice"},
		{"missing sample", []DesignRow{{"a", "x"}}, "missing from the experimental design"},
		{"one group", []DesignRow{{"a", "x"}, {"b", "x"}}, "at least two groups"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDesign(tc.rows, samples)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
