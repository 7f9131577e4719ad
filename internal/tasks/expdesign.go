package tasks

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/tsv"
)

// DesignRow assigns a sample to an experimental group.
type DesignRow struct {
	SampleID string `tsv:"SampleID"`
	Group    string `tsv:"Group"`
}

// ReadDesign parses an experimental design table with a SampleID and a Group
// column. Lines starting with '#' are ignored.
func ReadDesign(r io.Reader) ([]DesignRow, error) {
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true

	var rows []DesignRow
	for {
		var row DesignRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("invalid experimental design: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ValidateDesign checks that every sample appears exactly once and that at
// least two groups are compared.
func ValidateDesign(rows []DesignRow, samples []string) error {
	known := make(map[string]bool, len(samples))
	for _, s := range samples {
		known[s] = true
	}
	seen := make(map[string]bool, len(rows))
	groups := make(map[string]bool)
	for _, r := range rows {
		if !known[r.SampleID] {
			return fmt.Errorf("experimental design names unknown sample %q", r.SampleID)
		}
		if seen[r.SampleID] {
			return fmt.Errorf("experimental design lists sample %q twice", r.SampleID)
		}
		seen[r.SampleID] = true
		groups[r.Group] = true
	}
	for _, s := range samples {
		if !seen[s] {
			return fmt.Errorf("sample %q is missing from the experimental design", s)
		}
	}
	if len(groups) < 2 {
		return fmt.Errorf("experimental design needs at least two groups, got %d", len(groups))
	}
	return nil
}

// LoadDesign reads and validates the design file at path.
func LoadDesign(path string, samples []string) ([]DesignRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open experimental design: %w", err)
	}
	defer f.Close()
	rows, err := ReadDesign(f)
	if err != nil {
		return nil, err
	}
	if err := ValidateDesign(rows, samples); err != nil {
		return nil, err
	}
	return rows, nil
}
