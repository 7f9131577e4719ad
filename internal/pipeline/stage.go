package pipeline

import (
	"fmt"
	"strings"
)

// Stage identifies one pipeline step.
type Stage int

const (
	StageQC Stage = iota
	StageCreateDB
	StageMapReads
	StageMapSummarize
	StageMapHisatSummarize
	StageExtractPP
	StageNovelRegions
	StageFindNovelRegions
	StageCreateNewGFF
	StageFeatureCount
	StageFeatureCountUpdated
	StageRunStringTie
	StageMergeStringTie
	StageReStringTie
	StageEdgeR
	StageDESeq2
	StageBallgown
)

var stageNames = map[Stage]string{
	StageQC:                  "qc",
	StageCreateDB:            "create_db",
	StageMapReads:            "map_reads",
	StageMapSummarize:        "map_summarize",
	StageMapHisatSummarize:   "map_hisat_summarize",
	StageExtractPP:           "extract_pp",
	StageNovelRegions:        "novel_regions",
	StageFindNovelRegions:    "find_novel_regions",
	StageCreateNewGFF:        "create_new_gff",
	StageFeatureCount:        "feature_count",
	StageFeatureCountUpdated: "feature_count_updated",
	StageRunStringTie:        "run_stringtie",
	StageMergeStringTie:      "merge_stringtie",
	StageReStringTie:         "restringtie",
	StageEdgeR:               "edger",
	StageDESeq2:              "deseq2",
	StageBallgown:            "ballgown",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ParseStage looks a stage up by name.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// ParseStages parses a comma-separated stage list. Empty input yields nil.
func ParseStages(list string) ([]Stage, error) {
	var out []Stage
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStage(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// canonical maps an alternate stage to the plan stage it stands in for.
func (s Stage) canonical() Stage {
	switch s {
	case StageMapHisatSummarize:
		return StageMapSummarize
	case StageFindNovelRegions:
		return StageNovelRegions
	}
	return s
}
