// Package assessor provides the external reasoning capability the
// deliberation engine consumes: turning a vignette into an option
// choice, arguing for it, critiquing proposals, and voting. The engine
// treats all of it as opaque text plus numeric confidence and token
// counts.
package assessor

import (
	"context"

	"github.com/agora-sim/agora/core"
)

// Message is a produced statement with its token count. The engine
// only uses the count, for pricing.
type Message struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Critique is an optional paid response to a proposal. Alternative, if
// set, introduces a new candidate option into the round.
type Critique struct {
	Text        string `json:"text"`
	Tokens      int    `json:"tokens"`
	Alternative string `json:"alternative,omitempty"`
}

// Assessor is the reasoning backend for one run. Implementations must
// be safe for concurrent use: the engine calls them for many agents in
// parallel within a phase.
//
// Any error (or context deadline) returned from Assess degrades the
// agent to abstention for the round; errors from the other methods
// degrade only that contribution.
type Assessor interface {
	// Assess privately evaluates a vignette for one agent, with no
	// visibility into any other agent's output.
	Assess(ctx context.Context, v core.Vignette, p core.AgentProfile) (core.Assessment, error)

	// Propose crafts the public case for the assessment's option.
	Propose(ctx context.Context, v core.Vignette, p core.AgentProfile, a core.Assessment) (Message, error)

	// Critique optionally responds to a proposal. A nil Critique with a
	// nil error means the agent declines to speak.
	Critique(ctx context.Context, v core.Vignette, p core.AgentProfile, proposal string, a core.Assessment) (*Critique, error)

	// Vote picks one option from the round's candidate set.
	Vote(ctx context.Context, v core.Vignette, p core.AgentProfile, candidates []string, a core.Assessment) (string, error)
}
