package round

import (
	"errors"

	"github.com/agora-sim/agora/core"
)

// ErrInvalidCandidate marks a vote for an option that was never on the
// table this round. The vote is dropped from the tally; it never blocks
// tally completion.
var ErrInvalidCandidate = errors.New("vote references an option outside the candidate set")

// Tally counts one vote per agent over the round's candidate set. The
// candidate order is the proposal order: the proposer's option first,
// then options introduced by accepted interventions in submission
// order. Ties resolve to the earliest-proposed candidate, which makes
// the result bit-for-bit reproducible for identical inputs.
type Tally struct {
	candidates []string
	index      map[string]int
	counts     []int
	votes      []core.Vote
}

// NewTally builds a tally over candidates, deduplicating while keeping
// first-appearance order.
func NewTally(candidates []string) *Tally {
	t := &Tally{index: make(map[string]int, len(candidates))}
	for _, c := range candidates {
		if _, seen := t.index[c]; seen {
			continue
		}
		t.index[c] = len(t.candidates)
		t.candidates = append(t.candidates, c)
	}
	t.counts = make([]int, len(t.candidates))
	return t
}

// Candidates returns the candidate set in proposal order.
func (t *Tally) Candidates() []string {
	out := make([]string, len(t.candidates))
	copy(out, t.candidates)
	return out
}

// Cast records one vote. Votes outside the candidate set return
// ErrInvalidCandidate and are not counted.
func (t *Tally) Cast(v core.Vote) error {
	i, ok := t.index[v.Option]
	if !ok {
		return ErrInvalidCandidate
	}
	t.counts[i]++
	t.votes = append(t.votes, v)
	return nil
}

// Votes returns the accepted votes in cast order.
func (t *Tally) Votes() []core.Vote {
	out := make([]core.Vote, len(t.votes))
	copy(out, t.votes)
	return out
}

// Result returns the plurality winner. The earliest-proposed candidate
// wins ties. ok is false when no valid vote was cast.
func (t *Tally) Result() (winner string, ok bool) {
	best := -1
	for i, n := range t.counts {
		if n > 0 && (best < 0 || n > t.counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return t.candidates[best], true
}
