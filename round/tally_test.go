package round

import (
	"reflect"
	"testing"

	"github.com/agora-sim/agora/core"
)

func TestTallyPlurality(t *testing.T) {
	tally := NewTally([]string{"A", "B"})
	for _, v := range []core.Vote{
		{AgentID: "agent_00", Option: "A"},
		{AgentID: "agent_01", Option: "A"},
		{AgentID: "agent_02", Option: "B"},
	} {
		if err := tally.Cast(v); err != nil {
			t.Fatal(err)
		}
	}
	winner, ok := tally.Result()
	if !ok || winner != "A" {
		t.Errorf("Result() = %q, %v; want A", winner, ok)
	}
}

func TestTallyTieGoesToEarliestProposed(t *testing.T) {
	// Two agents split evenly: the option proposed first wins.
	tally := NewTally([]string{"B", "A"})
	tally.Cast(core.Vote{AgentID: "agent_00", Option: "A"})
	tally.Cast(core.Vote{AgentID: "agent_01", Option: "B"})
	winner, ok := tally.Result()
	if !ok || winner != "B" {
		t.Errorf("tie resolved to %q, want earliest-proposed B", winner)
	}
}

func TestTallyRejectsOutsideCandidate(t *testing.T) {
	tally := NewTally([]string{"A", "B"})
	if err := tally.Cast(core.Vote{AgentID: "agent_00", Option: "C"}); err != ErrInvalidCandidate {
		t.Errorf("Cast outside candidate set returned %v, want ErrInvalidCandidate", err)
	}
	// The rejected vote does not block the tally.
	tally.Cast(core.Vote{AgentID: "agent_01", Option: "B"})
	winner, ok := tally.Result()
	if !ok || winner != "B" {
		t.Errorf("Result() = %q, %v; want B", winner, ok)
	}
}

func TestTallyNoVotes(t *testing.T) {
	tally := NewTally([]string{"A", "B"})
	if winner, ok := tally.Result(); ok {
		t.Errorf("empty tally produced winner %q", winner)
	}
}

func TestTallyDeduplicatesCandidates(t *testing.T) {
	tally := NewTally([]string{"A", "B", "A", "B"})
	if got := tally.Candidates(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Candidates() = %v, want [A B]", got)
	}
}

func TestTallyDeterministic(t *testing.T) {
	votes := []core.Vote{
		{AgentID: "agent_00", Option: "B"},
		{AgentID: "agent_01", Option: "A"},
		{AgentID: "agent_02", Option: "B"},
		{AgentID: "agent_03", Option: "C"},
	}
	var first string
	for i := 0; i < 50; i++ {
		tally := NewTally([]string{"A", "B", "C"})
		for _, v := range votes {
			tally.Cast(v)
		}
		winner, ok := tally.Result()
		if !ok {
			t.Fatal("no winner")
		}
		if i == 0 {
			first = winner
		} else if winner != first {
			t.Fatalf("run %d produced %q, first run produced %q", i, winner, first)
		}
	}
	if first != "B" {
		t.Errorf("winner = %q, want B", first)
	}
}
