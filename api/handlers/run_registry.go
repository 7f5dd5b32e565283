package handlers

import (
	"fmt"
	"sync"

	"github.com/agora-sim/agora/sim"
)

// Run lifecycle states reported by the API.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

type activeRun struct {
	runner  *sim.Runner
	status  string
	summary *sim.RunSummary
	err     string
}

type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*activeRun
}

var registry = &runRegistry{
	runs: make(map[string]*activeRun),
}

func registerRun(runID string, runner *sim.Runner) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.runs[runID] = &activeRun{runner: runner, status: StatusRunning}
}

func finishRun(runID string, summary *sim.RunSummary, err error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	run, exists := registry.runs[runID]
	if !exists {
		return
	}
	if err != nil {
		run.status = StatusFailed
		run.err = err.Error()
		return
	}
	run.status = StatusDone
	run.summary = summary
}

func getRun(runID string) (*activeRun, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	run, exists := registry.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run %s not registered", runID)
	}
	return run, nil
}

func liveStatuses() map[string]string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make(map[string]string, len(registry.runs))
	for id, run := range registry.runs {
		out[id] = run.status
	}
	return out
}
