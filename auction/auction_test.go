package auction

import (
	"testing"

	"github.com/agora-sim/agora/core"
)

func bids(pairs ...interface{}) []core.Bid {
	var out []core.Bid
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.Bid{AgentID: pairs[i].(string), Amount: pairs[i+1].(float64)})
	}
	return out
}

func TestParseRule(t *testing.T) {
	cases := map[string]PricingRule{
		"first_price":  FirstPrice,
		"sealed_bid":   FirstPrice,
		"second_price": SecondPrice,
		"vickrey":      SecondPrice,
		"all_pay":      AllPay,
	}
	for in, want := range cases {
		got, err := ParseRule(in)
		if err != nil || got != want {
			t.Errorf("ParseRule(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseRule("dutch"); err == nil {
		t.Error("ParseRule accepted unknown rule")
	}
}

func TestFirstPriceWinnerPaysOwnBid(t *testing.T) {
	res, err := Resolve(FirstPrice, bids("agent_00", 0.80, "agent_01", 0.50, "agent_02", 0.50))
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerID != "agent_00" {
		t.Errorf("winner = %s, want agent_00", res.WinnerID)
	}
	if res.Payment != 0.80 {
		t.Errorf("payment = %v, want 0.80", res.Payment)
	}
	if len(res.Charges) != 1 || res.Charges["agent_00"] != 0.80 {
		t.Errorf("charges = %v, want only winner at 0.80", res.Charges)
	}
}

func TestSecondPriceWinnerPaysSecondBid(t *testing.T) {
	res, err := Resolve(SecondPrice, bids("agent_00", 0.80, "agent_01", 0.50, "agent_02", 0.50))
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerID != "agent_00" || res.Payment != 0.50 {
		t.Errorf("got winner=%s payment=%v, want agent_00 at 0.50", res.WinnerID, res.Payment)
	}
}

func TestSecondPriceSoleBidderPaysOwnBid(t *testing.T) {
	res, err := Resolve(SecondPrice, bids("agent_03", 0.33))
	if err != nil {
		t.Fatal(err)
	}
	if res.Payment != 0.33 {
		t.Errorf("sole bidder payment = %v, want 0.33", res.Payment)
	}
}

func TestSecondPriceTwoBidders(t *testing.T) {
	res, err := Resolve(SecondPrice, bids("agent_00", 0.70, "agent_01", 0.20))
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerID != "agent_00" || res.Payment != 0.20 {
		t.Errorf("got winner=%s payment=%v, want agent_00 at 0.20", res.WinnerID, res.Payment)
	}
}

func TestAllPayEveryBidderCharged(t *testing.T) {
	res, err := Resolve(AllPay, bids("agent_00", 0.10, "agent_01", 0.60, "agent_02", 0.30))
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerID != "agent_01" || res.Payment != 0.60 {
		t.Errorf("got winner=%s payment=%v, want agent_01 at 0.60", res.WinnerID, res.Payment)
	}
	want := map[string]float64{"agent_00": 0.10, "agent_01": 0.60, "agent_02": 0.30}
	for id, amt := range want {
		if res.Charges[id] != amt {
			t.Errorf("charge[%s] = %v, want %v", id, res.Charges[id], amt)
		}
	}
}

func TestTieBreakLowestAgentID(t *testing.T) {
	res, err := Resolve(FirstPrice, bids("agent_07", 0.50, "agent_02", 0.50, "agent_11", 0.50))
	if err != nil {
		t.Fatal(err)
	}
	if res.WinnerID != "agent_02" {
		t.Errorf("tie went to %s, want agent_02", res.WinnerID)
	}
}

func TestResolveNoBids(t *testing.T) {
	if _, err := Resolve(FirstPrice, nil); err == nil {
		t.Error("Resolve with no bids should fail")
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	in := bids("agent_01", 0.2, "agent_00", 0.9)
	if _, err := Resolve(FirstPrice, in); err != nil {
		t.Fatal(err)
	}
	if in[0].AgentID != "agent_01" || in[1].AgentID != "agent_00" {
		t.Error("Resolve reordered caller's bid slice")
	}
}
