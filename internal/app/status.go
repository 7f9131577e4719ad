package app

import (
	"sync"

	"github.com/vk/rnaflow/internal/pipeline"
)

type stageStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type runStatus struct {
	RunID  string        `json:"run_id,omitempty"`
	Stages []stageStatus `json:"stages"`
}

// statusBoard tracks stage progress for the /status endpoint.
type statusBoard struct {
	mu     sync.Mutex
	runID  string
	stages []stageStatus
}

func newStatusBoard() *statusBoard { return &statusBoard{} }

func (b *statusBoard) setRunID(id string) {
	b.mu.Lock()
	b.runID = id
	b.mu.Unlock()
}

func (b *statusBoard) StageStarted(s pipeline.Stage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stages = append(b.stages, stageStatus{Name: s.String(), Status: "running"})
}

func (b *statusBoard) StageFinished(s pipeline.Stage, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.stages) - 1; i >= 0; i-- {
		if b.stages[i].Name != s.String() {
			continue
		}
		b.stages[i].Status = "done"
		if err != nil {
			b.stages[i].Status = "failed"
			b.stages[i].Error = err.Error()
		}
		return
	}
}

func (b *statusBoard) snapshot() runStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return runStatus{RunID: b.runID, Stages: append([]stageStatus{}, b.stages...)}
}
