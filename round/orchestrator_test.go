package round

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/core"
	"github.com/agora-sim/agora/mechanism"
)

var testVignette = core.Vignette{
	ID:          "vig-001",
	Category:    "triage",
	Scenario:    "A scarce ICU bed must be allocated between two patients.",
	Options:     []string{"Admit patient A", "Admit patient B", "Defer to committee"},
	GroundTruth: "Admit patient B",
}

func testRoster(n int, budget float64) ([]core.AgentProfile, map[string]*core.AgentState, *core.Ledger) {
	styles := []core.CommunicationStyle{core.StyleAssertive, core.StyleTimid, core.StyleCalibrated, core.StyleNeutral}
	ledger := core.NewLedger()
	profiles := make([]core.AgentProfile, n)
	states := make(map[string]*core.AgentState, n)
	for i := 0; i < n; i++ {
		id := profileID(i)
		profiles[i] = core.AgentProfile{
			ID:            id,
			Name:          id,
			Style:         styles[i%len(styles)],
			InitialBudget: budget,
		}
		states[id] = &core.AgentState{AgentID: id, RemainingBudget: budget}
		ledger.Register(id, budget)
	}
	return profiles, states, ledger
}

func profileID(i int) string {
	return fmt.Sprintf("agent_%02d", i)
}

func newTestOrchestrator(t *testing.T, cfg Config, backend assessor.Assessor, ledger *core.Ledger) *Orchestrator {
	t.Helper()
	if cfg.AgentTimeout == 0 {
		cfg.AgentTimeout = 5 * time.Second
	}
	o, err := NewOrchestrator(cfg, backend, ledger, mechanism.NewScheduler(99), nil)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestConfigurationErrorsAreFatal(t *testing.T) {
	backend := assessor.NewScripted(1, 1.0)
	sched := mechanism.NewScheduler(1)

	if _, err := NewOrchestrator(Config{Mechanism: "committee"}, backend, core.NewLedger(), sched, nil); err == nil {
		t.Error("unknown mechanism accepted")
	}
	if _, err := NewOrchestrator(Config{Mechanism: "auction", Pricing: "dutch"}, backend, core.NewLedger(), sched, nil); err == nil {
		t.Error("unknown pricing rule accepted")
	}
	if _, err := NewOrchestrator(Config{Mechanism: "auction", Pricing: "first_price"}, backend, nil, sched, nil); err == nil {
		t.Error("budgeted mechanism accepted without a ledger")
	}
	if _, err := NewOrchestrator(Config{Mechanism: "free_discussion"}, nil, nil, sched, nil); err == nil {
		t.Error("missing assessor accepted")
	}
}

func TestAuctionRoundConservesBudget(t *testing.T) {
	profiles, states, ledger := testRoster(6, 1.0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "first_price",
		TokenPrice: 0.001,
		BaseReward: 1.0,
	}, assessor.NewScripted(7, 0.8), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}

	var recorded, spent float64
	for _, p := range profiles {
		cost := rec.CostsByAgent[p.ID]
		bal := ledger.Balance(p.ID)
		if bal < 0 {
			t.Errorf("agent %s balance negative: %v", p.ID, bal)
		}
		if !almost(1.0-bal, cost) {
			t.Errorf("agent %s: balance delta %v != recorded cost %v", p.ID, 1.0-bal, cost)
		}
		recorded += cost
		spent += 1.0 - bal
	}
	if !almost(rec.TotalCost, recorded) || !almost(rec.TotalCost, spent) {
		t.Errorf("TotalCost %v, recorded %v, spent %v must agree", rec.TotalCost, recorded, spent)
	}

	for _, p := range profiles {
		want := rec.RewardsByAgent[p.ID]
		if !almost(states[p.ID].CumulativeReward, want) {
			t.Errorf("agent %s cumulative reward %v, want %v", p.ID, states[p.ID].CumulativeReward, want)
		}
	}
}

func TestAuctionFirstPriceWinnerChargedOwnBid(t *testing.T) {
	profiles, states, ledger := testRoster(5, 1.0)
	// Token price zero isolates the auction payment in the cost ledger.
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "first_price",
		BaseReward: 1.0,
	}, assessor.NewScripted(11, 1.0), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}
	if rec.AuctionWinner == "" {
		t.Fatal("no auction winner")
	}

	var winnerBid float64
	for _, b := range rec.Bids {
		if b.AgentID == rec.AuctionWinner {
			winnerBid = b.Amount
		}
	}
	if !almost(rec.AuctionPayment, winnerBid) {
		t.Errorf("payment %v != winner's own bid %v", rec.AuctionPayment, winnerBid)
	}
	if !almost(rec.CostsByAgent[rec.AuctionWinner], winnerBid) {
		t.Errorf("winner charged %v, want %v", rec.CostsByAgent[rec.AuctionWinner], winnerBid)
	}
	for _, p := range profiles {
		if p.ID != rec.AuctionWinner && rec.CostsByAgent[p.ID] != 0 {
			t.Errorf("losing agent %s charged %v under first-price", p.ID, rec.CostsByAgent[p.ID])
		}
	}
}

func TestAuctionSecondPricePayment(t *testing.T) {
	profiles, states, ledger := testRoster(5, 1.0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "vickrey",
		BaseReward: 1.0,
	}, assessor.NewScripted(13, 1.0), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}

	var second float64
	for _, b := range rec.Bids {
		if b.AgentID != rec.AuctionWinner && b.Amount > second {
			second = b.Amount
		}
	}
	if !almost(rec.AuctionPayment, second) {
		t.Errorf("vickrey payment %v, want second-highest bid %v", rec.AuctionPayment, second)
	}
	if !almost(rec.CostsByAgent[rec.AuctionWinner], second) {
		t.Errorf("winner charged %v, want %v", rec.CostsByAgent[rec.AuctionWinner], second)
	}
}

func TestAuctionAllPayChargesEveryBidder(t *testing.T) {
	profiles, states, ledger := testRoster(5, 1.0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "all_pay",
		BaseReward: 1.0,
	}, assessor.NewScripted(17, 1.0), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}

	for _, b := range rec.Bids {
		if got := 1.0 - ledger.Balance(b.AgentID); !almost(got, b.Amount) {
			t.Errorf("bidder %s balance decreased by %v, want own bid %v (win or lose)", b.AgentID, got, b.Amount)
		}
	}
}

func TestTurnTakingEachAgentProposesOnce(t *testing.T) {
	profiles, states, _ := testRoster(6, 0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.TurnTaking,
		BaseReward: 0.5,
	}, assessor.NewScripted(19, 1.0), nil)

	seenOrders := make(map[string]bool)
	for round := 0; round < 5; round++ {
		rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
		if err != nil {
			t.Fatal(err)
		}
		if len(rec.ProposerIDs) != len(profiles) {
			t.Fatalf("round %d: %d proposers, want every agent once", round, len(rec.ProposerIDs))
		}
		seen := make(map[string]bool)
		for _, id := range rec.ProposerIDs {
			if seen[id] {
				t.Fatalf("round %d: agent %s proposed twice", round, id)
			}
			seen[id] = true
		}
		if rec.TotalCost != 0 {
			t.Errorf("round %d: turn-taking incurred cost %v", round, rec.TotalCost)
		}
		order := ""
		for _, id := range rec.ProposerIDs {
			order += id + ","
		}
		seenOrders[order] = true
	}
	if len(seenOrders) < 2 {
		t.Error("proposer order identical across all rounds; expected fresh shuffles")
	}
}

func TestFreeDiscussionZeroCostFullReward(t *testing.T) {
	profiles, states, _ := testRoster(5, 0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.FreeDiscussion,
		BaseReward: 0.5,
	}, assessor.NewScripted(23, 1.0), nil)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}
	if rec.TotalCost != 0 {
		t.Errorf("free discussion total cost = %v, want 0", rec.TotalCost)
	}
	if !rec.Correct {
		t.Fatal("perfectly accurate agents should reach the correct outcome")
	}
	for _, p := range profiles {
		if !almost(rec.RewardsByAgent[p.ID], 0.5) {
			t.Errorf("agent %s reward = %v, want exactly R", p.ID, rec.RewardsByAgent[p.ID])
		}
	}
}

func TestAssessorFailureDegradesToAbstention(t *testing.T) {
	profiles, states, ledger := testRoster(4, 1.0)
	backend := assessor.NewScripted(29, 1.0)
	backend.FailAgents = map[string]bool{"agent_02": true}

	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "first_price",
		TokenPrice: 0.001,
		BaseReward: 1.0,
	}, backend, ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}

	a := rec.Assessments["agent_02"]
	if !a.Abstained || a.Option != "" || a.Confidence != 0 {
		t.Errorf("failed agent not degraded to abstention: %+v", a)
	}
	if rec.CostsByAgent["agent_02"] != 0 {
		t.Errorf("abstaining agent incurred cost %v", rec.CostsByAgent["agent_02"])
	}
	for _, b := range rec.Bids {
		if b.AgentID == "agent_02" {
			t.Error("abstaining agent submitted a bid")
		}
	}
	for _, v := range rec.Votes {
		if v.AgentID == "agent_02" {
			t.Error("abstaining agent voted")
		}
	}
	if rec.FinalOption == "" {
		t.Error("round did not complete despite one abstention")
	}
}

func TestVotesStayWithinCandidates(t *testing.T) {
	profiles, states, ledger := testRoster(6, 1.0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "second_price",
		TokenPrice: 0.001,
		BaseReward: 1.0,
	}, assessor.NewScripted(31, 0.5), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}
	allowed := make(map[string]bool)
	for _, c := range rec.Candidates {
		allowed[c] = true
	}
	for _, v := range rec.Votes {
		if !allowed[v.Option] {
			t.Errorf("recorded vote for %q outside candidate set %v", v.Option, rec.Candidates)
		}
	}
	if rec.FinalOption != "" && !allowed[rec.FinalOption] {
		t.Errorf("final option %q outside candidate set", rec.FinalOption)
	}
}

func TestBidNeverExceedsBalance(t *testing.T) {
	profiles, states, ledger := testRoster(8, 0.25)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "all_pay",
		TokenPrice: 0.001,
		BaseReward: 1.0,
		BidNoise:   0.05,
	}, assessor.NewScripted(37, 0.8), ledger)

	rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range rec.Bids {
		if b.Amount < 0 || b.Amount > 0.25+1e-9 {
			t.Errorf("bid %v outside [0, balance]", b.Amount)
		}
	}
	for _, p := range profiles {
		if ledger.Balance(p.ID) < 0 {
			t.Errorf("agent %s overdrawn", p.ID)
		}
	}
}

func TestBudgetCarriesAcrossRounds(t *testing.T) {
	profiles, states, ledger := testRoster(4, 1.0)
	o := newTestOrchestrator(t, Config{
		Mechanism:  mechanism.Auction,
		Pricing:    "first_price",
		TokenPrice: 0.001,
		BaseReward: 1.0,
	}, assessor.NewScripted(41, 1.0), ledger)

	var totalCost float64
	for i := 0; i < 3; i++ {
		rec, err := o.Run(context.Background(), "run-1", testVignette, profiles, states)
		if err != nil {
			t.Fatal(err)
		}
		totalCost += rec.TotalCost
	}

	var remaining float64
	for _, p := range profiles {
		remaining += ledger.Balance(p.ID)
	}
	if got := totalCost + remaining; math.Abs(got-4.0) > 1e-9 {
		t.Errorf("costs %v + remaining %v = %v, want initial 4.0", totalCost, remaining, got)
	}
}
