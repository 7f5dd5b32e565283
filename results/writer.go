// Package results writes run output as CSV files for offline analysis,
// one directory per run.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agora-sim/agora/core"
)

var (
	vignetteHeader = []string{
		"round_num", "vignette_id", "category", "mechanism", "proposer_id",
		"n_interventions", "consensus_answer", "consensus_votes",
		"correct", "total_cost", "total_reward", "n_agents",
	}
	agentRoundHeader = []string{
		"round_num", "vignette_id", "agent_id", "communication_style",
		"assessment_choice", "assessment_confidence", "bid_amount",
		"was_proposer", "intervention_cost", "final_vote",
		"agent_reward", "agent_total_cost", "budget_remaining",
	}
	bidHeader = []string{
		"round_num", "vignette_id", "agent_id", "communication_style",
		"confidence", "bid_amount", "winning_bid", "winner",
	}
	agentSummaryHeader = []string{
		"agent_id", "communication_style", "total_rounds", "times_proposer",
		"total_interventions", "total_tokens", "total_cost", "total_reward",
		"net_benefit", "efficiency", "final_budget",
	}
	runSummaryHeader = []string{
		"run_id", "mechanism", "n_rounds", "n_agents", "accuracy",
		"total_cost", "total_reward", "net_reward",
	}
)

// Writer appends round results to a run's CSV files as rounds settle.
type Writer struct {
	dir      string
	roundNum int

	vignetteFile   *os.File
	agentRoundFile *os.File
	bidFile        *os.File

	vignetteCSV   *csv.Writer
	agentRoundCSV *csv.Writer
	bidCSV        *csv.Writer

	rounds  int
	correct int
	cost    float64
	reward  float64
}

// NewWriter creates the run directory and the per-round CSV files.
func NewWriter(dataDir, runID string) (*Writer, error) {
	dir := filepath.Join(dataDir, "run_"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	w := &Writer{dir: dir}
	var err error
	if w.vignetteFile, w.vignetteCSV, err = newCSV(dir, "vignette_results.csv", vignetteHeader); err != nil {
		return nil, err
	}
	if w.agentRoundFile, w.agentRoundCSV, err = newCSV(dir, "agent_round_results.csv", agentRoundHeader); err != nil {
		w.Close()
		return nil, err
	}
	if w.bidFile, w.bidCSV, err = newCSV(dir, "bid_data.csv", bidHeader); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func newCSV(dir, name string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", name, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, cw, nil
}

// Dir returns the run's output directory.
func (w *Writer) Dir() string { return w.dir }

// LogRound appends one settled round to the vignette, per-agent, and
// bid files, and folds it into the run totals. Budgets are read from
// the post-round agent states.
func (w *Writer) LogRound(rec *core.RoundRecord, category string, profiles []core.AgentProfile, states map[string]*core.AgentState) error {
	w.roundNum++
	w.rounds++
	if rec.Correct {
		w.correct++
	}
	w.cost += rec.TotalCost
	var roundReward float64
	for _, r := range rec.RewardsByAgent {
		roundReward += r
	}
	w.reward += roundReward

	proposer := ""
	if len(rec.ProposerIDs) > 0 {
		proposer = rec.ProposerIDs[0]
	}
	consensusVotes := 0
	for _, v := range rec.Votes {
		if v.Option == rec.FinalOption {
			consensusVotes++
		}
	}
	if err := w.vignetteCSV.Write([]string{
		strconv.Itoa(w.roundNum),
		rec.VignetteID,
		category,
		rec.Mechanism,
		proposer,
		strconv.Itoa(len(rec.Interventions)),
		rec.FinalOption,
		strconv.Itoa(consensusVotes),
		boolFlag(rec.Correct),
		money(rec.TotalCost),
		money(roundReward),
		strconv.Itoa(len(profiles)),
	}); err != nil {
		return err
	}

	bidByAgent := make(map[string]float64, len(rec.Bids))
	var topBid float64
	for _, b := range rec.Bids {
		bidByAgent[b.AgentID] = b.Amount
		if b.Amount > topBid {
			topBid = b.Amount
		}
	}
	ivCost := make(map[string]float64)
	for _, iv := range rec.Interventions {
		ivCost[iv.AgentID] += iv.Cost
	}
	voteByAgent := make(map[string]string, len(rec.Votes))
	for _, v := range rec.Votes {
		voteByAgent[v.AgentID] = v.Option
	}
	proposers := make(map[string]bool, len(rec.ProposerIDs))
	for _, id := range rec.ProposerIDs {
		proposers[id] = true
	}

	for _, p := range profiles {
		a := rec.Assessments[p.ID]
		budget := 0.0
		if st := states[p.ID]; st != nil {
			budget = st.RemainingBudget
		}
		if err := w.agentRoundCSV.Write([]string{
			strconv.Itoa(w.roundNum),
			rec.VignetteID,
			p.ID,
			string(p.Style),
			a.Option,
			money(a.Confidence),
			money(bidByAgent[p.ID]),
			boolFlag(proposers[p.ID]),
			money(ivCost[p.ID]),
			voteByAgent[p.ID],
			money(rec.RewardsByAgent[p.ID]),
			money(rec.CostsByAgent[p.ID]),
			money(budget),
		}); err != nil {
			return err
		}
	}

	for _, b := range rec.Bids {
		style := ""
		for _, p := range profiles {
			if p.ID == b.AgentID {
				style = string(p.Style)
			}
		}
		if err := w.bidCSV.Write([]string{
			strconv.Itoa(w.roundNum),
			rec.VignetteID,
			b.AgentID,
			style,
			money(rec.Assessments[b.AgentID].Confidence),
			money(b.Amount),
			money(topBid),
			boolFlag(b.AgentID == rec.AuctionWinner),
		}); err != nil {
			return err
		}
	}

	w.vignetteCSV.Flush()
	w.agentRoundCSV.Flush()
	w.bidCSV.Flush()
	return firstErr(w.vignetteCSV.Error(), w.agentRoundCSV.Error(), w.bidCSV.Error())
}

// Finalize writes the aggregate agent_summary.csv and
// simulation_summary.csv files.
func (w *Writer) Finalize(runID, mechanism string, profiles []core.AgentProfile, states map[string]*core.AgentState) error {
	f, cw, err := newCSV(w.dir, "agent_summary.csv", agentSummaryHeader)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		st := states[p.ID]
		if st == nil {
			continue
		}
		net := st.CumulativeReward - st.TotalPaid
		if err := cw.Write([]string{
			p.ID,
			string(p.Style),
			strconv.Itoa(st.RoundsParticipated),
			strconv.Itoa(st.TimesProposer),
			strconv.Itoa(st.InterventionsMade),
			strconv.Itoa(st.TotalTokensUsed),
			money(st.TotalPaid),
			money(st.CumulativeReward),
			money(net),
			money(st.Efficiency()),
			money(st.RemainingBudget),
		}); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := firstErr(cw.Error(), f.Close()); err != nil {
		return err
	}

	f, cw, err = newCSV(w.dir, "simulation_summary.csv", runSummaryHeader)
	if err != nil {
		return err
	}
	accuracy := 0.0
	if w.rounds > 0 {
		accuracy = float64(w.correct) / float64(w.rounds)
	}
	if err := cw.Write([]string{
		runID,
		mechanism,
		strconv.Itoa(w.rounds),
		strconv.Itoa(len(profiles)),
		money(accuracy),
		money(w.cost),
		money(w.reward),
		money(w.reward - w.cost),
	}); err != nil {
		f.Close()
		return err
	}
	cw.Flush()
	return firstErr(cw.Error(), f.Close())
}

// Close releases the per-round files.
func (w *Writer) Close() error {
	var err error
	for _, f := range []*os.File{w.vignetteFile, w.agentRoundFile, w.bidFile} {
		if f != nil {
			err = firstErr(err, f.Close())
		}
	}
	return err
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
