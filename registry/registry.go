// Package registry holds the run-scoped agent roster: who participates,
// with what style, and each agent's evolving cumulative state.
package registry

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/agora-sim/agora/core"
)

// Roster is the set of agents taking part in one simulation run.
type Roster struct {
	mu       sync.RWMutex
	profiles map[string]core.AgentProfile
	states   map[string]*core.AgentState
}

func NewRoster() *Roster {
	return &Roster{
		profiles: make(map[string]core.AgentProfile),
		states:   make(map[string]*core.AgentState),
	}
}

// Register adds an agent to the roster. Re-registering an existing ID
// is an error: agent identity is fixed for the run.
func (r *Roster) Register(p core.AgentProfile) error {
	if p.ID == "" {
		return fmt.Errorf("agent profile missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.ID]; exists {
		return fmt.Errorf("agent %s already registered", p.ID)
	}
	r.profiles[p.ID] = p
	r.states[p.ID] = &core.AgentState{
		AgentID:         p.ID,
		RemainingBudget: p.InitialBudget,
	}
	return nil
}

// Profiles returns every registered profile sorted by agent ID.
func (r *Roster) Profiles() []core.AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.AgentProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// States returns the live state map shared with the round engine.
func (r *Roster) States() map[string]*core.AgentState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states
}

// Get looks up one agent's profile.
func (r *Roster) Get(id string) (core.AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// State looks up one agent's cumulative state.
func (r *Roster) State(id string) (*core.AgentState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[id]
	return s, ok
}

func (r *Roster) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Build populates a roster with n agents named agent_00, agent_01, ...
// Styles are dealt evenly across the four communication styles, then
// shuffled with the given seed so style does not correlate with ID.
func Build(n int, budget float64, seed int64) (*Roster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("roster size must be positive, got %d", n)
	}
	base := []core.CommunicationStyle{
		core.StyleAssertive,
		core.StyleTimid,
		core.StyleCalibrated,
		core.StyleNeutral,
	}
	styles := make([]core.CommunicationStyle, n)
	for i := range styles {
		styles[i] = base[i%len(base)]
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { styles[i], styles[j] = styles[j], styles[i] })

	roster := NewRoster()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("agent_%02d", i)
		err := roster.Register(core.AgentProfile{
			ID:            id,
			Name:          id,
			Style:         styles[i],
			InitialBudget: budget,
		})
		if err != nil {
			return nil, err
		}
	}
	return roster, nil
}
