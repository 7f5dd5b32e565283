package auction

import (
	"fmt"
	"sort"

	"github.com/agora-sim/agora/core"
)

// PricingRule selects how the winning proposer (and, for all-pay, the
// losers) are charged.
type PricingRule string

const (
	FirstPrice  PricingRule = "first_price"
	SecondPrice PricingRule = "second_price"
	AllPay      PricingRule = "all_pay"
)

// ParseRule resolves a configured rule name, accepting the legacy
// "sealed_bid" and "vickrey" spellings.
func ParseRule(s string) (PricingRule, error) {
	switch s {
	case "first_price", "sealed_bid":
		return FirstPrice, nil
	case "second_price", "vickrey":
		return SecondPrice, nil
	case "all_pay":
		return AllPay, nil
	}
	return "", fmt.Errorf("unknown pricing rule: %q", s)
}

// Result is the outcome of resolving one set of sealed bids.
type Result struct {
	WinnerID string             `json:"winner_id"`
	Payment  float64            `json:"payment"`
	Charges  map[string]float64 `json:"charges"` // agentID -> amount owed
}

// Resolve picks the winner and the amounts owed under the given rule.
// The winner is the highest bid; ties go to the lowest agent ID. Bids
// are assumed already capped by each agent's balance - the ledger's
// clamped debit backstops any violation.
func Resolve(rule PricingRule, bids []core.Bid) (Result, error) {
	if len(bids) == 0 {
		return Result{}, fmt.Errorf("no bids to resolve")
	}

	ranked := make([]core.Bid, len(bids))
	copy(ranked, bids)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return ranked[i].AgentID < ranked[j].AgentID
	})
	winner := ranked[0]

	res := Result{
		WinnerID: winner.AgentID,
		Charges:  make(map[string]float64, len(bids)),
	}

	switch rule {
	case FirstPrice:
		res.Payment = winner.Amount
		res.Charges[winner.AgentID] = winner.Amount
	case SecondPrice:
		// Winner pays the best bid among the others. A sole bidder
		// gets no discount and pays its own bid.
		if len(ranked) == 1 {
			res.Payment = winner.Amount
		} else {
			res.Payment = ranked[1].Amount
		}
		res.Charges[winner.AgentID] = res.Payment
	case AllPay:
		res.Payment = winner.Amount
		for _, b := range ranked {
			res.Charges[b.AgentID] = b.Amount
		}
	default:
		return Result{}, fmt.Errorf("unknown pricing rule: %q", rule)
	}

	return res, nil
}
