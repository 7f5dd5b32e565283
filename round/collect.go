package round

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/core"
)

func (o *Orchestrator) agentCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.cfg.AgentTimeout)
}

// collectAssessments gathers every agent's private read in parallel.
// No agent sees another's output: each goroutine only touches its own
// slot. Failures and timeouts become abstentions, never round errors.
func (o *Orchestrator) collectAssessments(ctx context.Context, v core.Vignette, roster []core.AgentProfile) map[string]core.Assessment {
	results := make([]core.Assessment, len(roster))

	var wg sync.WaitGroup
	for i, p := range roster {
		wg.Add(1)
		go func(i int, p core.AgentProfile) {
			defer wg.Done()
			actx, cancel := o.agentCtx(ctx)
			defer cancel()

			a, err := o.backend.Assess(actx, v, p)
			if err != nil {
				log.Printf("agent %s abstains: %v", p.ID, err)
				results[i] = core.Assessment{
					AgentID:    p.ID,
					VignetteID: v.ID,
					Abstained:  true,
				}
				return
			}
			a.AgentID = p.ID
			a.VignetteID = v.ID
			results[i] = a
		}(i, p)
	}
	wg.Wait()

	out := make(map[string]core.Assessment, len(roster))
	for i, p := range roster {
		out[p.ID] = results[i]
	}
	return out
}

// runAuction resolves the sealed-bid auction and has the winner
// propose. Agents with an exhausted balance submit no bid but stay
// eligible to intervene and vote.
func (o *Orchestrator) runAuction(ctx context.Context, v core.Vignette, eligible []core.AgentProfile, rec *core.RoundRecord) {
	var bids []core.Bid
	for _, p := range eligible {
		balance := o.ledger.Balance(p.ID)
		if balance <= 0 {
			continue
		}
		bids = append(bids, core.Bid{
			AgentID: p.ID,
			Amount:  o.bidFor(p, rec.Assessments[p.ID], balance),
		})
	}
	rec.Bids = bids
	if len(bids) == 0 {
		log.Printf("round %s: no bids, no proposer this round", rec.ID)
		return
	}

	res, err := o.resolveAuction(bids)
	if err != nil {
		log.Printf("round %s: auction unresolvable: %v", rec.ID, err)
		return
	}

	// Apply debits immediately upon resolution, in deterministic order.
	charged := make([]string, 0, len(res.Charges))
	for id := range res.Charges {
		charged = append(charged, id)
	}
	sort.Strings(charged)
	for _, id := range charged {
		actual := o.debit(rec, id, res.Charges[id])
		logShortCharge(id, res.Charges[id], actual)
	}

	rec.AuctionWinner = res.WinnerID
	rec.AuctionPayment = res.Payment
	rec.ProposerIDs = []string{res.WinnerID}
	o.bus.Publish(communication.SubjectAuction, res)

	winner := profileByID(eligible, res.WinnerID)
	o.propose(ctx, v, winner, rec, o.caps.HasBudget)
}

// runRotation has every agent propose exactly once, in a fresh random
// order each round. No bidding, no budget.
func (o *Orchestrator) runRotation(ctx context.Context, v core.Vignette, eligible []core.AgentProfile, rec *core.RoundRecord) {
	ids := make([]string, len(eligible))
	for i, p := range eligible {
		ids[i] = p.ID
	}
	for _, id := range o.sched.Order(ids) {
		o.propose(ctx, v, profileByID(eligible, id), rec, false)
	}
}

// runSimultaneous admits every agent's assessment as a proposal at
// once. Messages are produced in parallel; the record keeps roster
// order so downstream tie-breaks stay deterministic.
func (o *Orchestrator) runSimultaneous(ctx context.Context, v core.Vignette, eligible []core.AgentProfile, rec *core.RoundRecord) {
	msgs := make([]assessor.Message, len(eligible))
	var wg sync.WaitGroup
	for i, p := range eligible {
		wg.Add(1)
		go func(i int, p core.AgentProfile) {
			defer wg.Done()
			actx, cancel := o.agentCtx(ctx)
			defer cancel()
			msg, err := o.backend.Propose(actx, v, p, rec.Assessments[p.ID])
			if err != nil {
				log.Printf("agent %s proposal failed: %v", p.ID, err)
				return
			}
			msgs[i] = msg
		}(i, p)
	}
	wg.Wait()

	for i, p := range eligible {
		rec.ProposerIDs = append(rec.ProposerIDs, p.ID)
		rec.Proposals = append(rec.Proposals, core.Proposal{
			AgentID: p.ID,
			Option:  rec.Assessments[p.ID].Option,
			Message: msgs[i].Text,
			Tokens:  msgs[i].Tokens,
		})
	}
}

// propose produces one proposer's public statement. Under a budget the
// message tokens are charged at the configured price; a failed call
// still leaves the proposer's option on the table.
func (o *Orchestrator) propose(ctx context.Context, v core.Vignette, p core.AgentProfile, rec *core.RoundRecord, charge bool) {
	if p.ID == "" {
		return
	}
	a := rec.Assessments[p.ID]

	actx, cancel := o.agentCtx(ctx)
	defer cancel()
	msg, err := o.backend.Propose(actx, v, p, a)
	if err != nil {
		log.Printf("agent %s proposal failed, option stands without a statement: %v", p.ID, err)
		msg = assessor.Message{}
	}

	prop := core.Proposal{
		AgentID: p.ID,
		Option:  a.Option,
		Message: msg.Text,
		Tokens:  msg.Tokens,
	}
	if charge && msg.Tokens > 0 {
		cost := float64(msg.Tokens) * o.cfg.TokenPrice
		actual := o.debit(rec, p.ID, cost)
		logShortCharge(p.ID, cost, actual)
		prop.Cost = actual
	}
	if !containsID(rec.ProposerIDs, p.ID) {
		rec.ProposerIDs = append(rec.ProposerIDs, p.ID)
	}
	rec.Proposals = append(rec.Proposals, prop)
}

// collectInterventions offers every non-proposer a paid critique slot.
// Requests run in parallel; acceptance is reduced in roster order so
// the candidate ordering (and with it the tally tie-break) is
// deterministic. An agent that cannot cover the full cost does not
// speak at all: the clamped charge is refunded and nothing is recorded.
func (o *Orchestrator) collectInterventions(ctx context.Context, v core.Vignette, eligible []core.AgentProfile, rec *core.RoundRecord) {
	var speakers []core.AgentProfile
	for _, p := range eligible {
		if !containsID(rec.ProposerIDs, p.ID) {
			speakers = append(speakers, p)
		}
	}
	if len(speakers) == 0 {
		return
	}

	proposalText := ""
	if len(rec.Proposals) > 0 {
		proposalText = rec.Proposals[0].Message
	}

	critiques := make([]*assessor.Critique, len(speakers))
	var wg sync.WaitGroup
	for i, p := range speakers {
		wg.Add(1)
		go func(i int, p core.AgentProfile) {
			defer wg.Done()
			actx, cancel := o.agentCtx(ctx)
			defer cancel()
			c, err := o.backend.Critique(actx, v, p, proposalText, rec.Assessments[p.ID])
			if err != nil {
				log.Printf("agent %s critique failed: %v", p.ID, err)
				return
			}
			critiques[i] = c
		}(i, p)
	}
	wg.Wait()

	for i, p := range speakers {
		c := critiques[i]
		if c == nil {
			continue
		}
		iv := core.Intervention{
			AgentID:     p.ID,
			Message:     c.Text,
			Tokens:      c.Tokens,
			Alternative: c.Alternative,
		}
		if o.caps.HasBudget {
			cost := float64(c.Tokens) * o.cfg.TokenPrice
			actual := o.debit(rec, p.ID, cost)
			if actual < cost {
				// Cannot partially speak: undo the charge, drop the message.
				o.ledger.Credit(p.ID, actual)
				rec.CostsByAgent[p.ID] -= actual
				log.Printf("agent %s cannot afford intervention (%.4f < %.4f), rejected", p.ID, actual, cost)
				continue
			}
			iv.Cost = actual
		}
		rec.Interventions = append(rec.Interventions, iv)
		o.bus.Publish(communication.SubjectIntervention, iv)
	}
}

// collectVotes gathers one vote per participating agent over the
// round's candidate set and tallies them.
func (o *Orchestrator) collectVotes(ctx context.Context, v core.Vignette, eligible []core.AgentProfile, rec *core.RoundRecord) *Tally {
	var candidates []string
	for _, p := range rec.Proposals {
		if p.Option != "" {
			candidates = append(candidates, p.Option)
		}
	}
	for _, iv := range rec.Interventions {
		if iv.Alternative != "" {
			candidates = append(candidates, iv.Alternative)
		}
	}
	tally := NewTally(candidates)
	if len(tally.Candidates()) == 0 {
		return tally
	}

	picks := make([]string, len(eligible))
	var wg sync.WaitGroup
	for i, p := range eligible {
		wg.Add(1)
		go func(i int, p core.AgentProfile) {
			defer wg.Done()
			actx, cancel := o.agentCtx(ctx)
			defer cancel()
			pick, err := o.backend.Vote(actx, v, p, tally.Candidates(), rec.Assessments[p.ID])
			if err != nil {
				log.Printf("agent %s vote failed, abstaining from tally: %v", p.ID, err)
				return
			}
			picks[i] = pick
		}(i, p)
	}
	wg.Wait()

	for i, p := range eligible {
		if picks[i] == "" {
			continue
		}
		if err := tally.Cast(core.Vote{AgentID: p.ID, Option: picks[i]}); err != nil {
			log.Printf("agent %s vote for %q rejected: %v", p.ID, picks[i], err)
		}
	}
	return tally
}

func profileByID(profiles []core.AgentProfile, id string) core.AgentProfile {
	for _, p := range profiles {
		if p.ID == id {
			return p
		}
	}
	return core.AgentProfile{}
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
