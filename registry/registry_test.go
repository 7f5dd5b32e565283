package registry

import (
	"testing"

	"github.com/agora-sim/agora/core"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRoster()
	p := core.AgentProfile{ID: "agent_00", Style: core.StyleNeutral, InitialBudget: 1.0}
	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(p); err == nil {
		t.Error("duplicate registration accepted")
	}
	if err := r.Register(core.AgentProfile{}); err == nil {
		t.Error("empty agent ID accepted")
	}
}

func TestProfilesSortedByID(t *testing.T) {
	r := NewRoster()
	for _, id := range []string{"agent_02", "agent_00", "agent_01"} {
		if err := r.Register(core.AgentProfile{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	ps := r.Profiles()
	for i, want := range []string{"agent_00", "agent_01", "agent_02"} {
		if ps[i].ID != want {
			t.Errorf("Profiles()[%d] = %s, want %s", i, ps[i].ID, want)
		}
	}
}

func TestBuildDealsStylesEvenly(t *testing.T) {
	r, err := Build(20, 1.0, 42)
	if err != nil {
		t.Fatal(err)
	}
	if r.Size() != 20 {
		t.Fatalf("roster size = %d, want 20", r.Size())
	}
	counts := make(map[core.CommunicationStyle]int)
	for _, p := range r.Profiles() {
		counts[p.Style]++
		if p.InitialBudget != 1.0 {
			t.Errorf("agent %s budget = %v, want 1.0", p.ID, p.InitialBudget)
		}
	}
	for style, n := range counts {
		if n != 5 {
			t.Errorf("style %s has %d agents, want 5", style, n)
		}
	}
	st, ok := r.State("agent_19")
	if !ok || st.RemainingBudget != 1.0 {
		t.Errorf("agent_19 initial state = %+v, %v", st, ok)
	}
}

func TestBuildReproducible(t *testing.T) {
	a, _ := Build(8, 1.0, 7)
	b, _ := Build(8, 1.0, 7)
	for i, p := range a.Profiles() {
		if b.Profiles()[i].Style != p.Style {
			t.Fatalf("same seed produced different style assignment at %d", i)
		}
	}
}
