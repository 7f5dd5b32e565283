package round

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/auction"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/core"
	"github.com/agora-sim/agora/mechanism"
)

// Phase is one state of the round state machine. Transitions are
// strictly forward; a started round always runs through to payoff.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseAssessment
	PhaseProposalSelection
	PhaseIntervention
	PhaseVote
	PhasePayoff
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "START"
	case PhaseAssessment:
		return "ASSESSMENT"
	case PhaseProposalSelection:
		return "PROPOSAL_SELECTION"
	case PhaseIntervention:
		return "INTERVENTION"
	case PhaseVote:
		return "VOTE"
	case PhasePayoff:
		return "PAYOFF"
	default:
		return "DONE"
	}
}

// DefaultAgentTimeout bounds each per-agent call within a phase.
const DefaultAgentTimeout = 30 * time.Second

// Config fixes one run's round parameters. Immutable after New.
type Config struct {
	Mechanism    mechanism.Kind
	Pricing      auction.PricingRule
	TokenPrice   float64
	BaseReward   float64
	BidNoise     float64 // stddev of Gaussian bid jitter
	AgentTimeout time.Duration
}

// Orchestrator runs the 5-phase deliberation state machine, one full
// pass per vignette. Per-agent work inside a phase runs in parallel;
// phases are strict barriers. All money moves through the ledger's
// clamped debit/credit contract.
type Orchestrator struct {
	cfg     Config
	caps    mechanism.Capabilities
	pricing auction.PricingRule
	backend assessor.Assessor
	ledger  *core.Ledger
	sched   *mechanism.Scheduler
	bus     *communication.Bus
}

// NewOrchestrator validates the configuration and wires the round
// engine. Configuration problems here are fatal to the run: no round
// may start under an unresolvable mechanism or pricing rule.
func NewOrchestrator(cfg Config, backend assessor.Assessor, ledger *core.Ledger, sched *mechanism.Scheduler, bus *communication.Bus) (*Orchestrator, error) {
	kind, err := mechanism.ParseKind(string(cfg.Mechanism))
	if err != nil {
		return nil, err
	}
	caps := kind.Capabilities()
	var pricing auction.PricingRule
	if caps.HasAuction {
		pricing, err = auction.ParseRule(string(cfg.Pricing))
		if err != nil {
			return nil, err
		}
	}
	if cfg.TokenPrice < 0 {
		return nil, fmt.Errorf("token price must be >= 0, got %v", cfg.TokenPrice)
	}
	if cfg.BaseReward < 0 {
		return nil, fmt.Errorf("base reward must be >= 0, got %v", cfg.BaseReward)
	}
	if caps.HasBudget && ledger == nil {
		return nil, fmt.Errorf("mechanism %s requires a ledger", kind)
	}
	if backend == nil {
		return nil, fmt.Errorf("assessor backend is required")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = DefaultAgentTimeout
	}
	return &Orchestrator{
		cfg:     cfg,
		caps:    caps,
		pricing: pricing,
		backend: backend,
		ledger:  ledger,
		sched:   sched,
		bus:     bus,
	}, nil
}

func (o *Orchestrator) announce(runID string, v core.Vignette, p Phase) {
	o.bus.Publish(communication.SubjectPhase, communication.PhaseEvent{
		RunID:      runID,
		VignetteID: v.ID,
		Phase:      p.String(),
	})
}

// Run executes one full round over the vignette and returns its
// immutable record. Per-agent faults degrade that agent to abstention;
// the round itself always reaches payoff.
func (o *Orchestrator) Run(ctx context.Context, runID string, v core.Vignette, profiles []core.AgentProfile, states map[string]*core.AgentState) (*core.RoundRecord, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	roster := make([]core.AgentProfile, len(profiles))
	copy(roster, profiles)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	rec := &core.RoundRecord{
		ID:             uuid.New().String(),
		RunID:          runID,
		VignetteID:     v.ID,
		Mechanism:      string(o.cfg.Mechanism),
		Timestamp:      time.Now().UTC(),
		GroundTruth:    v.GroundTruth,
		CostsByAgent:   make(map[string]float64, len(roster)),
		RewardsByAgent: make(map[string]float64, len(roster)),
	}

	// ASSESSMENT: private, parallel, information-hidden.
	o.announce(runID, v, PhaseAssessment)
	rec.Assessments = o.collectAssessments(ctx, v, roster)

	eligible := make([]core.AgentProfile, 0, len(roster))
	for _, p := range roster {
		if !rec.Assessments[p.ID].Abstained {
			eligible = append(eligible, p)
		}
	}

	// PROPOSAL_SELECTION: mechanism-dependent behavior, fixed slot.
	o.announce(runID, v, PhaseProposalSelection)
	switch o.caps.Strategy {
	case mechanism.StrategyAuction:
		o.runAuction(ctx, v, eligible, rec)
	case mechanism.StrategyRotation:
		o.runRotation(ctx, v, eligible, rec)
	default:
		o.runSimultaneous(ctx, v, eligible, rec)
	}

	// INTERVENTION: paid critiques from whoever did not propose.
	o.announce(runID, v, PhaseIntervention)
	o.collectInterventions(ctx, v, eligible, rec)

	// VOTE: one vote per participating agent over the candidate set.
	o.announce(runID, v, PhaseVote)
	tally := o.collectVotes(ctx, v, eligible, rec)
	rec.Candidates = tally.Candidates()
	rec.Votes = tally.Votes()
	if winner, ok := tally.Result(); ok {
		rec.FinalOption = winner
	}
	o.bus.Publish(communication.SubjectTally, map[string]interface{}{
		"run_id":      runID,
		"vignette_id": v.ID,
		"final":       rec.FinalOption,
		"candidates":  rec.Candidates,
	})

	// PAYOFF: settle once, emit the record, done.
	o.announce(runID, v, PhasePayoff)
	rec.Correct = rec.FinalOption != "" && rec.FinalOption == v.GroundTruth

	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}
	rec.RewardsByAgent = ComputePayoffs(o.cfg.BaseReward, rec.Correct, rec.CostsByAgent, ids)

	for _, cost := range rec.CostsByAgent {
		rec.TotalCost += cost
	}
	o.applyToStates(rec, roster, states)

	o.announce(runID, v, PhaseDone)
	o.bus.Publish(communication.SubjectRecord, rec)
	return rec, nil
}

// applyToStates folds the settled round into each agent's cumulative
// state. This is the only mutation of AgentState per round.
func (o *Orchestrator) applyToStates(rec *core.RoundRecord, roster []core.AgentProfile, states map[string]*core.AgentState) {
	proposers := make(map[string]bool, len(rec.ProposerIDs))
	for _, id := range rec.ProposerIDs {
		proposers[id] = true
	}
	intervened := make(map[string]int)
	tokensByAgent := make(map[string]int)
	for _, iv := range rec.Interventions {
		intervened[iv.AgentID]++
		tokensByAgent[iv.AgentID] += iv.Tokens
	}
	for _, p := range rec.Proposals {
		tokensByAgent[p.AgentID] += p.Tokens
		rec.TotalTokens += p.Tokens
	}
	for _, iv := range rec.Interventions {
		rec.TotalTokens += iv.Tokens
	}

	for _, p := range roster {
		st := states[p.ID]
		if st == nil {
			continue
		}
		st.CumulativeReward += rec.RewardsByAgent[p.ID]
		st.TotalPaid += rec.CostsByAgent[p.ID]
		st.TotalTokensUsed += tokensByAgent[p.ID]
		st.InterventionsMade += intervened[p.ID]
		if proposers[p.ID] {
			st.TimesProposer++
		}
		if !rec.Assessments[p.ID].Abstained {
			st.RoundsParticipated++
		}
		if o.caps.HasBudget {
			st.RemainingBudget = o.ledger.Balance(p.ID)
		}
	}
}

// debit charges through the ledger and records the actual amount in the
// round's cost breakdown, keeping the record equal to the sum of debits
// actually applied.
func (o *Orchestrator) debit(rec *core.RoundRecord, agentID string, amount float64) float64 {
	actual := o.ledger.Debit(agentID, amount)
	if actual > 0 {
		rec.CostsByAgent[agentID] += actual
	}
	return actual
}

func logShortCharge(agentID string, requested, actual float64) {
	if actual < requested {
		log.Printf("agent %s could only cover %.4f of %.4f", agentID, actual, requested)
	}
}
