package pipeline

import "github.com/vk/rnaflow/internal/config"

// prerequisites lists the stages whose outputs a stage reads. Entries absent
// from a plan are ignored.
var prerequisites = map[Stage][]Stage{
	StageCreateDB:            nil,
	StageQC:                  nil,
	StageMapReads:            {StageQC, StageCreateDB},
	StageMapSummarize:        {StageMapReads},
	StageExtractPP:           {StageMapReads},
	StageNovelRegions:        {StageExtractPP},
	StageCreateNewGFF:        {StageNovelRegions},
	StageFeatureCount:        {StageMapReads},
	StageFeatureCountUpdated: {StageMapReads, StageCreateNewGFF},
	StageRunStringTie:        {StageMapReads, StageCreateNewGFF},
	StageMergeStringTie:      {StageRunStringTie},
	StageReStringTie:         {StageMergeStringTie},
	StageEdgeR:               {StageFeatureCount},
	StageDESeq2:              {StageFeatureCountUpdated},
	StageBallgown:            {StageReStringTie},
}

// Plan is the ordered list of stages of one run.
type Plan struct {
	stages []Stage
	index  map[Stage]int
}

// NewPlan derives the stage list from the aligner, kingdom, QC flag and
// presence of an experimental design.
func NewPlan(cfg config.RunConfig) Plan {
	var stages []Stage
	if cfg.QC() {
		stages = append(stages, StageQC)
	}
	stages = append(stages, StageCreateDB, StageMapReads, StageMapSummarize)

	k := cfg.Kingdom()
	if k.Prokaryotic() {
		stages = append(stages, StageExtractPP, StageNovelRegions)
	}
	stages = append(stages, StageCreateNewGFF)
	if k.Eukaryotic() {
		stages = append(stages, StageRunStringTie, StageMergeStringTie, StageReStringTie)
	}
	stages = append(stages, StageFeatureCount, StageFeatureCountUpdated)

	if cfg.HasExpDesign() {
		stages = append(stages, StageEdgeR, StageDESeq2)
		if k.Eukaryotic() {
			stages = append(stages, StageBallgown)
		}
	}

	p := Plan{stages: stages, index: make(map[Stage]int, len(stages))}
	for i, s := range stages {
		p.index[s] = i
	}
	return p
}

// Stages returns the plan in execution order.
func (p Plan) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Contains reports whether s, or the stage it stands in for, is planned.
func (p Plan) Contains(s Stage) bool {
	_, ok := p.index[s.canonical()]
	return ok
}

// Prerequisites returns the planned stages s depends on.
func (p Plan) Prerequisites(s Stage) []Stage {
	var out []Stage
	for _, pre := range prerequisites[s.canonical()] {
		if _, ok := p.index[pre]; ok {
			out = append(out, pre)
		}
	}
	return out
}

// Order sorts stages by their position in the plan. Unplanned stages keep
// their relative order at the end.
func (p Plan) Order(stages []Stage) []Stage {
	out := append([]Stage(nil), stages...)
	pos := func(s Stage) int {
		if i, ok := p.index[s.canonical()]; ok {
			return i
		}
		return len(p.stages)
	}
	// Insertion sort keeps equal positions stable.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && pos(out[j]) < pos(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
