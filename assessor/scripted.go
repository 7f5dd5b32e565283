package assessor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/agora-sim/agora/core"
)

// ScriptedAssessor is a deterministic, offline stand-in for the LLM
// backend. It picks the ground-truth option with probability Accuracy
// and a wrong option otherwise, from an explicit seeded source. Used by
// tests and by runs without an API key.
type ScriptedAssessor struct {
	mu  sync.Mutex
	rng *rand.Rand

	// Accuracy is the chance an agent's private pick is correct.
	Accuracy float64
	// FixedTokens, when >0, pins every message's token count.
	FixedTokens int
	// FailAgents lists agent IDs whose Assess call errors, for
	// exercising the abstention path.
	FailAgents map[string]bool
}

// NewScripted creates a scripted assessor with the given seed.
func NewScripted(seed int64, accuracy float64) *ScriptedAssessor {
	return &ScriptedAssessor{
		rng:      rand.New(rand.NewSource(seed)),
		Accuracy: accuracy,
	}
}

func (s *ScriptedAssessor) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *ScriptedAssessor) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *ScriptedAssessor) tokens() int {
	if s.FixedTokens > 0 {
		return s.FixedTokens
	}
	return 20 + s.intn(41)
}

func (s *ScriptedAssessor) Assess(ctx context.Context, v core.Vignette, p core.AgentProfile) (core.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return core.Assessment{}, err
	}
	if s.FailAgents[p.ID] {
		return core.Assessment{}, fmt.Errorf("scripted failure for %s", p.ID)
	}

	option := v.GroundTruth
	if s.float() >= s.Accuracy {
		// Pick a wrong option when one exists.
		wrong := make([]string, 0, len(v.Options))
		for _, opt := range v.Options {
			if opt != v.GroundTruth {
				wrong = append(wrong, opt)
			}
		}
		if len(wrong) > 0 {
			option = wrong[s.intn(len(wrong))]
		}
	}

	return core.Assessment{
		AgentID:    p.ID,
		VignetteID: v.ID,
		Option:     option,
		Confidence: 0.5 + s.float()*0.5,
		Rationale:  fmt.Sprintf("scripted %s reasoning", p.Style),
	}, nil
}

func (s *ScriptedAssessor) Propose(ctx context.Context, v core.Vignette, p core.AgentProfile, a core.Assessment) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	return Message{
		Text:   fmt.Sprintf("I believe %q is the right course.", a.Option),
		Tokens: s.tokens(),
	}, nil
}

func (s *ScriptedAssessor) Critique(ctx context.Context, v core.Vignette, p core.AgentProfile, proposal string, a core.Assessment) (*Critique, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Confidence < p.Style.InterventionThreshold() {
		return nil, nil
	}
	return &Critique{
		Text:        fmt.Sprintf("Consider %q instead.", a.Option),
		Tokens:      s.tokens(),
		Alternative: a.Option,
	}, nil
}

func (s *ScriptedAssessor) Vote(ctx context.Context, v core.Vignette, p core.AgentProfile, candidates []string, a core.Assessment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, c := range candidates {
		if c == a.Option {
			return a.Option, nil
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no candidates to vote on")
	}
	return candidates[0], nil
}

var _ Assessor = (*ScriptedAssessor)(nil)
var _ Assessor = (*OpenAIAssessor)(nil)
