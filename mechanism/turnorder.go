package mechanism

import (
	"math/rand"
	"sync"
)

// Scheduler produces the proposer order for turn-taking rounds. The
// order is a fresh permutation every round, drawn from an explicit
// seeded source so runs replay identically for a given seed.
type Scheduler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduler creates a scheduler seeded for reproducible runs.
func NewScheduler(seed int64) *Scheduler {
	return &Scheduler{rng: rand.New(rand.NewSource(seed))}
}

// Order returns a shuffled copy of agentIDs. The input is not mutated.
func (s *Scheduler) Order(agentIDs []string) []string {
	out := make([]string, len(agentIDs))
	copy(out, agentIDs)

	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	s.mu.Unlock()
	return out
}

// Norm returns a sample from the standard normal distribution, used
// for bid noise. Shares the scheduler's seeded source so a single seed
// drives all of a run's randomness.
func (s *Scheduler) Norm() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64()
}
