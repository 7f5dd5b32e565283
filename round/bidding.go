package round

import (
	"github.com/agora-sim/agora/auction"
	"github.com/agora-sim/agora/core"
)

// bidFor forms an agent's sealed bid: confidence-proportional spend of
// the remaining balance, scaled by the style's multiplier, with a small
// seeded Gaussian jitter. Always within [0, balance], so the ledger's
// clamp never fires on auction debits in practice.
func (o *Orchestrator) bidFor(p core.AgentProfile, a core.Assessment, balance float64) float64 {
	bid := a.Confidence * balance * p.Style.BidMultiplier()
	if o.cfg.BidNoise > 0 {
		bid += o.sched.Norm() * o.cfg.BidNoise
	}
	if bid < 0 {
		return 0
	}
	if bid > balance {
		return balance
	}
	return bid
}

func (o *Orchestrator) resolveAuction(bids []core.Bid) (auction.Result, error) {
	return auction.Resolve(o.pricing, bids)
}
