package mechanism

import "fmt"

// Kind names one of the three deliberation mechanisms.
type Kind string

const (
	Auction        Kind = "auction"
	FreeDiscussion Kind = "free_discussion"
	TurnTaking     Kind = "turn_taking"
)

// ParseKind resolves a configured mechanism name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Auction, FreeDiscussion, TurnTaking:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown mechanism: %q", s)
}

// ProposerStrategy selects the behavior inside the proposal-selection
// phase. The surrounding phase sequence never varies.
type ProposerStrategy int

const (
	// StrategyAuction runs a sealed-bid auction; one winner proposes.
	StrategyAuction ProposerStrategy = iota
	// StrategyRotation has every agent propose once, in a freshly
	// shuffled order each round.
	StrategyRotation
	// StrategySimultaneous admits every agent's assessment as a
	// proposal at once.
	StrategySimultaneous
)

// Capabilities is the tagged-variant configuration the orchestrator
// consumes. The three mechanisms differ only through it.
type Capabilities struct {
	HasAuction bool
	HasBudget  bool
	Strategy   ProposerStrategy
}

// Capabilities maps a mechanism to its capability set.
func (k Kind) Capabilities() Capabilities {
	switch k {
	case Auction:
		return Capabilities{HasAuction: true, HasBudget: true, Strategy: StrategyAuction}
	case TurnTaking:
		return Capabilities{Strategy: StrategyRotation}
	default:
		return Capabilities{Strategy: StrategySimultaneous}
	}
}
