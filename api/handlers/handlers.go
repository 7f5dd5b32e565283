package handlers

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/config"
	"github.com/agora-sim/agora/core"
	"github.com/agora-sim/agora/sim"
	"github.com/agora-sim/agora/storage"
	"github.com/agora-sim/agora/vignette"
)

var (
	baseCfg config.RunConfig
	repo    *storage.RoundRepository
	bus     *communication.Bus
)

// Init wires the handler package's dependencies before routing starts.
func Init(cfg config.RunConfig, roundRepo *storage.RoundRepository, eventBus *communication.Bus) {
	baseCfg = cfg
	repo = roundRepo
	bus = eventBus
}

// StartRunRequest configures a new simulation run. Every field is
// optional; omitted values fall back to the server's base config or the
// named preset.
type StartRunRequest struct {
	Preset      string  `json:"preset"`
	Mechanism   string  `json:"mechanism"`
	AuctionType string  `json:"auction_type"`
	Agents      int     `json:"agents"`
	Budget      float64 `json:"budget"`
	TokenPrice  float64 `json:"token_price"`
	Reward      float64 `json:"reward"`
	Vignettes   int     `json:"vignettes"`
	Seed        int64   `json:"seed"`
	Dataset     string  `json:"dataset"`

	// Inline vignettes take precedence over the dataset file.
	Scenarios []core.Vignette `json:"scenarios"`
}

// StartRun launches a simulation run in the background and returns its
// ID immediately.
func StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run request"})
		return
	}

	cfg := baseCfg
	if req.Preset != "" {
		preset, err := config.Preset(req.Preset)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cfg = preset
	}
	if req.Mechanism != "" {
		cfg.Mechanism = req.Mechanism
	}
	if req.AuctionType != "" {
		cfg.AuctionType = req.AuctionType
	}
	if req.Agents > 0 {
		cfg.NumAgents = req.Agents
	}
	if req.Budget > 0 {
		cfg.InitialBudget = req.Budget
	}
	if req.TokenPrice > 0 {
		cfg.TokenPrice = req.TokenPrice
	}
	if req.Reward > 0 {
		cfg.RewardAmount = req.Reward
	}
	if req.Vignettes > 0 {
		cfg.NumVignettes = req.Vignettes
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	if req.Dataset != "" {
		cfg.DatasetPath = req.Dataset
	}

	vignettes, err := resolveVignettes(req, cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runner, err := sim.NewRunner(cfg, newBackend(), repo, bus)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	registerRun(runID, runner)
	go func() {
		summary, err := runner.RunAs(context.Background(), runID, vignettes)
		if err != nil {
			log.Printf("run %s failed: %v", runID, err)
		}
		finishRun(runID, summary, err)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":    runID,
		"status":    StatusRunning,
		"mechanism": cfg.Mechanism,
		"rounds":    len(vignettes),
	})
}

func resolveVignettes(req StartRunRequest, cfg config.RunConfig) ([]core.Vignette, error) {
	if len(req.Scenarios) > 0 {
		for _, v := range req.Scenarios {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return req.Scenarios, nil
	}
	pool, err := vignette.LoadFile(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	return vignette.Sample(pool, cfg.NumVignettes, cfg.Seed), nil
}

// newBackend selects the LLM backend when an API key is present, the
// scripted one otherwise.
func newBackend() assessor.Assessor {
	if os.Getenv("OPENAI_API_KEY") != "" {
		llmCfg := assessor.DefaultLLMConfig()
		if baseCfg.MaxTokensPerMessage > 0 {
			llmCfg.MaxTokens = baseCfg.MaxTokensPerMessage
		}
		backend, err := assessor.NewOpenAIAssessor(llmCfg)
		if err == nil {
			return backend
		}
		log.Printf("LLM backend unavailable, using scripted agents: %v", err)
	}
	return assessor.NewScripted(baseCfg.Seed, 0.8)
}

// ListRuns returns stored run IDs together with live statuses.
func ListRuns(c *gin.Context) {
	statuses := liveStatuses()
	if repo != nil {
		ids, err := repo.RunIDs()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for _, id := range ids {
			if _, live := statuses[id]; !live {
				statuses[id] = StatusDone
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"runs": statuses})
}

// GetRun returns one run's status and, once finished, its summary.
func GetRun(c *gin.Context) {
	runID := c.Param("runID")

	if run, err := getRun(runID); err == nil {
		resp := gin.H{"run_id": runID, "status": run.status}
		if run.summary != nil {
			resp["summary"] = run.summary
		}
		if run.err != "" {
			resp["error"] = run.err
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	if repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	var summary sim.RunSummary
	if err := repo.GetSummary(runID, &summary); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "status": StatusDone, "summary": summary})
}

// GetRounds returns every settled round record of a run.
func GetRounds(c *gin.Context) {
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No storage configured"})
		return
	}
	records, err := repo.GetRecords(c.Param("runID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": records})
}

// GetRound returns a single round record.
func GetRound(c *gin.Context) {
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No storage configured"})
		return
	}
	rec, err := repo.GetRecord(c.Param("runID"), c.Param("recordID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Round not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetAgents returns per-agent cumulative statistics for a run, computed
// from its settled records.
func GetAgents(c *gin.Context) {
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No storage configured"})
		return
	}
	records, err := repo.GetRecords(c.Param("runID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	agents := make(map[string]*core.AgentState)
	for _, rec := range records {
		for id := range rec.Assessments {
			st, exists := agents[id]
			if !exists {
				st = &core.AgentState{AgentID: id}
				agents[id] = st
			}
			if !rec.Assessments[id].Abstained {
				st.RoundsParticipated++
			}
			st.CumulativeReward += rec.RewardsByAgent[id]
			st.TotalPaid += rec.CostsByAgent[id]
		}
		for _, id := range rec.ProposerIDs {
			if st := agents[id]; st != nil {
				st.TimesProposer++
			}
		}
		for _, iv := range rec.Interventions {
			if st := agents[iv.AgentID]; st != nil {
				st.InterventionsMade++
				st.TotalTokensUsed += iv.Tokens
			}
		}
		for _, p := range rec.Proposals {
			if st := agents[p.AgentID]; st != nil {
				st.TotalTokensUsed += p.Tokens
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// ListPresets returns the names of the built-in run configurations.
func ListPresets(c *gin.Context) {
	names := make([]string, 0, len(config.Presets))
	for name := range config.Presets {
		names = append(names, name)
	}
	c.JSON(http.StatusOK, gin.H{"presets": names})
}
