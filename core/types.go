package core

import (
	"fmt"
	"time"
)

// CommunicationStyle shapes how aggressively an agent bids for the
// proposer role and how readily it spends budget on interventions.
type CommunicationStyle string

const (
	StyleAssertive  CommunicationStyle = "assertive"
	StyleTimid      CommunicationStyle = "timid"
	StyleCalibrated CommunicationStyle = "calibrated"
	StyleNeutral    CommunicationStyle = "neutral"
)

// ParseStyle validates a style tag.
func ParseStyle(s string) (CommunicationStyle, error) {
	switch CommunicationStyle(s) {
	case StyleAssertive, StyleTimid, StyleCalibrated, StyleNeutral:
		return CommunicationStyle(s), nil
	}
	return "", fmt.Errorf("unknown communication style: %q", s)
}

// BidMultiplier scales confidence-proportional bids per style.
func (s CommunicationStyle) BidMultiplier() float64 {
	switch s {
	case StyleAssertive:
		return 1.5
	case StyleTimid:
		return 0.5
	default:
		return 1.0
	}
}

// InterventionThreshold is the minimum confidence at which an agent of
// this style will spend budget on a critique.
func (s CommunicationStyle) InterventionThreshold() float64 {
	switch s {
	case StyleAssertive:
		return 0.3
	case StyleTimid:
		return 0.7
	default:
		return 0.5
	}
}

// Vignette is a single decision scenario with enumerated options and a
// known-correct option. Immutable once loaded.
type Vignette struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Scenario    string   `json:"scenario"`
	Options     []string `json:"options"`
	GroundTruth string   `json:"ground_truth"`
}

// Validate checks the structural constraints on a loaded vignette.
func (v Vignette) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vignette missing id")
	}
	if len(v.Options) < 2 || len(v.Options) > 5 {
		return fmt.Errorf("vignette %s has %d options, want 2-5", v.ID, len(v.Options))
	}
	if v.GroundTruth == "" {
		return fmt.Errorf("vignette %s missing ground truth", v.ID)
	}
	for _, opt := range v.Options {
		if opt == v.GroundTruth {
			return nil
		}
	}
	return fmt.Errorf("vignette %s ground truth %q not among options", v.ID, v.GroundTruth)
}

// AgentProfile is the immutable identity of an agent for a run.
type AgentProfile struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Style         CommunicationStyle `json:"style"`
	InitialBudget float64            `json:"initial_budget"`
}

// AgentState carries an agent's mutable standing across rounds of a run.
// The remaining budget lives in the Ledger; this mirrors it for records.
type AgentState struct {
	AgentID            string  `json:"agent_id"`
	RemainingBudget    float64 `json:"remaining_budget"`
	CumulativeReward   float64 `json:"cumulative_reward"`
	RoundsParticipated int     `json:"rounds_participated"`
	TimesProposer      int     `json:"times_proposer"`
	InterventionsMade  int     `json:"interventions_made"`
	TotalTokensUsed    int     `json:"total_tokens_used"`
	TotalPaid          float64 `json:"total_paid"`
}

// Efficiency is cumulative reward per unit of budget spent.
func (s *AgentState) Efficiency() float64 {
	if s.TotalPaid > 0 {
		return s.CumulativeReward / s.TotalPaid
	}
	return 0
}

// Assessment is an agent's private read of a vignette, produced before
// any communication. Abstained assessments carry no option and zero
// confidence.
type Assessment struct {
	AgentID    string  `json:"agent_id"`
	VignetteID string  `json:"vignette_id"`
	Option     string  `json:"option"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Abstained  bool    `json:"abstained"`
}

// Bid is a sealed offer for the proposer role.
type Bid struct {
	AgentID string  `json:"agent_id"`
	Amount  float64 `json:"amount"`
}

// Proposal is a proposer's public case for its option.
type Proposal struct {
	AgentID string  `json:"agent_id"`
	Option  string  `json:"option"`
	Message string  `json:"message"`
	Tokens  int     `json:"tokens"`
	Cost    float64 `json:"cost"`
}

// Intervention is a paid critique from a non-proposer, optionally
// introducing an alternative candidate option.
type Intervention struct {
	AgentID     string  `json:"agent_id"`
	Message     string  `json:"message"`
	Tokens      int     `json:"tokens"`
	Cost        float64 `json:"cost"`
	Alternative string  `json:"alternative,omitempty"`
}

// Vote is one agent's pick from the round's candidate set.
type Vote struct {
	AgentID string `json:"agent_id"`
	Option  string `json:"option"`
}

// RoundRecord is the full audit trail of one deliberation round. It is
// the only artifact the engine persists, and it is immutable once the
// round reaches payoff.
type RoundRecord struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	VignetteID string    `json:"vignette_id"`
	Mechanism  string    `json:"mechanism"`
	Timestamp  time.Time `json:"timestamp"`

	Assessments map[string]Assessment `json:"assessments"`

	Bids           []Bid   `json:"bids,omitempty"`
	AuctionWinner  string  `json:"auction_winner,omitempty"`
	AuctionPayment float64 `json:"auction_payment,omitempty"`

	ProposerIDs   []string       `json:"proposer_ids"`
	Proposals     []Proposal     `json:"proposals"`
	Interventions []Intervention `json:"interventions"`

	Candidates  []string `json:"candidates"`
	Votes       []Vote   `json:"votes"`
	FinalOption string   `json:"final_option"`
	GroundTruth string   `json:"ground_truth"`
	Correct     bool     `json:"correct"`

	CostsByAgent   map[string]float64 `json:"costs_by_agent"`
	RewardsByAgent map[string]float64 `json:"rewards_by_agent"`
	TotalCost      float64            `json:"total_cost"`
	TotalTokens    int                `json:"total_tokens"`
}
