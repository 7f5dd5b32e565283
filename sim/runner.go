// Package sim drives complete simulation runs: a roster of agents
// deliberating a sequence of vignettes under one mechanism, with
// results persisted as they settle.
package sim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/auction"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/config"
	"github.com/agora-sim/agora/core"
	"github.com/agora-sim/agora/mechanism"
	"github.com/agora-sim/agora/registry"
	"github.com/agora-sim/agora/results"
	"github.com/agora-sim/agora/round"
	"github.com/agora-sim/agora/storage"
)

// RunSummary is the aggregate outcome of one run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Mechanism   string    `json:"mechanism"`
	AuctionType string    `json:"auction_type,omitempty"`
	Rounds      int       `json:"rounds"`
	Agents      int       `json:"agents"`
	Correct     int       `json:"correct"`
	Accuracy    float64   `json:"accuracy"`
	TotalCost   float64   `json:"total_cost"`
	TotalReward float64   `json:"total_reward"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ResultsDir  string    `json:"results_dir,omitempty"`
}

// Runner executes one run end to end.
type Runner struct {
	cfg     config.RunConfig
	backend assessor.Assessor
	repo    *storage.RoundRepository
	bus     *communication.Bus
	roster  *registry.Roster
	ledger  *core.Ledger
}

// NewRunner validates the configuration, builds the roster, and funds
// the ledger. The repository and bus are optional.
func NewRunner(cfg config.RunConfig, backend assessor.Assessor, repo *storage.RoundRepository, bus *communication.Bus) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("assessor backend is required")
	}

	roster, err := registry.Build(cfg.NumAgents, cfg.InitialBudget, cfg.Seed)
	if err != nil {
		return nil, err
	}
	ledger := core.NewLedger()
	for _, p := range roster.Profiles() {
		ledger.Register(p.ID, p.InitialBudget)
	}

	return &Runner{
		cfg:     cfg,
		backend: backend,
		repo:    repo,
		bus:     bus,
		roster:  roster,
		ledger:  ledger,
	}, nil
}

// Roster exposes the run's agents, for inspection and API serving.
func (r *Runner) Roster() *registry.Roster { return r.roster }

// Ledger exposes the run's budget ledger.
func (r *Runner) Ledger() *core.Ledger { return r.ledger }

// Run deliberates every vignette in order and returns the summary.
// Per-round records are persisted and logged as they settle, so a
// cancelled run keeps everything already decided.
func (r *Runner) Run(ctx context.Context, vignettes []core.Vignette) (*RunSummary, error) {
	return r.RunAs(ctx, uuid.New().String(), vignettes)
}

// RunAs is Run with a caller-chosen run ID, for launchers that hand the
// ID out before the run finishes.
func (r *Runner) RunAs(ctx context.Context, runID string, vignettes []core.Vignette) (*RunSummary, error) {
	if len(vignettes) == 0 {
		return nil, fmt.Errorf("no vignettes to run")
	}
	summary := &RunSummary{
		RunID:       runID,
		Mechanism:   r.cfg.Mechanism,
		AuctionType: r.cfg.AuctionType,
		Agents:      r.roster.Size(),
		StartedAt:   time.Now().UTC(),
	}

	orch, err := round.NewOrchestrator(round.Config{
		Mechanism:  mechanism.Kind(r.cfg.Mechanism),
		Pricing:    auction.PricingRule(r.cfg.AuctionType),
		TokenPrice: r.cfg.TokenPrice,
		BaseReward: r.cfg.RewardAmount,
		BidNoise:   r.cfg.BidNoise,
	}, r.backend, r.ledger, mechanism.NewScheduler(r.cfg.Seed), r.bus)
	if err != nil {
		return nil, err
	}

	var writer *results.Writer
	if r.cfg.DataDir != "" {
		writer, err = results.NewWriter(r.cfg.DataDir, runID)
		if err != nil {
			return nil, err
		}
		defer writer.Close()
		summary.ResultsDir = writer.Dir()
	}

	profiles := r.roster.Profiles()
	states := r.roster.States()

	for i, v := range vignettes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled after %d rounds: %w", summary.Rounds, err)
		}
		log.Printf("run %s: round %d/%d vignette %s", runID, i+1, len(vignettes), v.ID)

		rec, err := orch.Run(ctx, runID, v, profiles, states)
		if err != nil {
			return nil, fmt.Errorf("vignette %s: %w", v.ID, err)
		}

		summary.Rounds++
		if rec.Correct {
			summary.Correct++
		}
		summary.TotalCost += rec.TotalCost
		for _, reward := range rec.RewardsByAgent {
			summary.TotalReward += reward
		}

		if r.repo != nil {
			if err := r.repo.SaveRecord(rec); err != nil {
				log.Printf("run %s: persisting round %s failed: %v", runID, rec.ID, err)
			}
		}
		if writer != nil {
			if err := writer.LogRound(rec, v.Category, profiles, states); err != nil {
				log.Printf("run %s: logging round %s failed: %v", runID, rec.ID, err)
			}
		}
	}

	summary.FinishedAt = time.Now().UTC()
	if summary.Rounds > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Rounds)
	}

	if writer != nil {
		if err := writer.Finalize(runID, r.cfg.Mechanism, profiles, states); err != nil {
			log.Printf("run %s: finalizing results failed: %v", runID, err)
		}
	}
	if r.repo != nil {
		if err := r.repo.SaveSummary(runID, summary); err != nil {
			log.Printf("run %s: persisting summary failed: %v", runID, err)
		}
	}
	return summary, nil
}
