package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/agora-sim/agora/api"
	"github.com/agora-sim/agora/assessor"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/config"
	"github.com/agora-sim/agora/sim"
	"github.com/agora-sim/agora/storage"
	"github.com/agora-sim/agora/vignette"
)

func main() {
	// Parse command line flags
	preset := flag.String("preset", "", "Named run preset (see /api/presets)")
	mechanismFlag := flag.String("mechanism", "", "Mechanism: auction, free_discussion, turn_taking")
	auctionType := flag.String("auction", "", "Auction pricing: sealed_bid, vickrey, all_pay")
	agents := flag.Int("agents", 0, "Number of agents")
	budget := flag.Float64("budget", -1, "Initial per-agent budget")
	tokenPrice := flag.Float64("token-price", -1, "Cost per message token")
	reward := flag.Float64("reward", -1, "Base reward per correct round")
	nVignettes := flag.Int("vignettes", 0, "Vignettes to sample from the dataset")
	seed := flag.Int64("seed", 0, "Run seed")
	dataset := flag.String("dataset", "", "Vignette CSV dataset path")
	dataDir := flag.String("data-dir", "", "Output directory for results")
	accuracy := flag.Float64("accuracy", 0.8, "Scripted backend accuracy (ignored with an API key)")
	natsURL := flag.String("nats", "", "NATS URL, 'embedded' for an in-process broker, empty to disable")
	apiAddr := flag.String("serve", "", "Serve the REST API on this address instead of running once")
	flag.Parse()

	config.LoadEnv()

	cfg := config.Default()
	if *preset != "" {
		var err error
		if cfg, err = config.Preset(*preset); err != nil {
			log.Fatalf("Invalid preset: %v", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("Invalid environment override: %v", err)
	}
	if *mechanismFlag != "" {
		cfg.Mechanism = *mechanismFlag
	}
	if *auctionType != "" {
		cfg.AuctionType = *auctionType
	}
	if *agents > 0 {
		cfg.NumAgents = *agents
	}
	if *budget >= 0 {
		cfg.InitialBudget = *budget
	}
	if *tokenPrice >= 0 {
		cfg.TokenPrice = *tokenPrice
	}
	if *reward >= 0 {
		cfg.RewardAmount = *reward
	}
	if *nVignettes > 0 {
		cfg.NumVignettes = *nVignettes
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *dataset != "" {
		cfg.DatasetPath = *dataset
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	bus := setupBus(*natsURL)
	defer bus.Close()

	db, err := storage.GetDBStorage(cfg.DataDir, "rounds")
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.CloseAll()
	repo := storage.NewRoundRepository(db)

	if *apiAddr != "" {
		if bus != nil {
			if err := communication.BridgeBus(bus); err != nil {
				log.Printf("Websocket bridge unavailable: %v", err)
			}
		}
		log.Printf("Serving API on %s", *apiAddr)
		if err := api.StartServer(*apiAddr, cfg, repo, bus); err != nil {
			log.Fatalf("API server failed: %v", err)
		}
		return
	}

	if cfg.DatasetPath == "" {
		log.Fatal("No dataset: pass -dataset or set AGORA_DATASET")
	}
	pool, err := vignette.LoadFile(cfg.DatasetPath)
	if err != nil {
		log.Fatalf("Failed to load vignettes: %v", err)
	}
	vignettes := vignette.Sample(pool, cfg.NumVignettes, cfg.Seed)
	log.Printf("Loaded %d vignettes, running %d", len(pool), len(vignettes))

	runner, err := sim.NewRunner(cfg, newBackend(cfg, *accuracy), repo, bus)
	if err != nil {
		log.Fatalf("Failed to set up run: %v", err)
	}

	summary, err := runner.Run(context.Background(), vignettes)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	printSummary(summary)
}

// setupBus connects to NATS, optionally starting an in-process broker.
// Returns nil when messaging is disabled.
func setupBus(url string) *communication.Bus {
	switch url {
	case "":
		return nil
	case "embedded":
		ns, err := natsserver.NewServer(&natsserver.Options{Port: natsserver.RANDOM_PORT})
		if err != nil {
			log.Fatalf("Failed to create embedded NATS server: %v", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			log.Fatal("Embedded NATS server did not become ready")
		}
		url = ns.ClientURL()
		log.Printf("Embedded NATS broker on %s", url)
	}
	bus, err := communication.Connect(url)
	if err != nil {
		log.Fatalf("Failed to connect to NATS at %s: %v", url, err)
	}
	return bus
}

func newBackend(cfg config.RunConfig, accuracy float64) assessor.Assessor {
	if os.Getenv("OPENAI_API_KEY") != "" {
		llmCfg := assessor.DefaultLLMConfig()
		if cfg.MaxTokensPerMessage > 0 {
			llmCfg.MaxTokens = cfg.MaxTokensPerMessage
		}
		backend, err := assessor.NewOpenAIAssessor(llmCfg)
		if err == nil {
			log.Println("Using OpenAI-backed agents")
			return backend
		}
		log.Printf("LLM backend unavailable, falling back to scripted agents: %v", err)
	}
	log.Printf("Using scripted agents (accuracy %.2f)", accuracy)
	return assessor.NewScripted(cfg.Seed, accuracy)
}

func printSummary(s *sim.RunSummary) {
	fmt.Printf("\nRun %s finished\n", s.RunID)
	fmt.Printf("  mechanism:    %s", s.Mechanism)
	if s.Mechanism == "auction" {
		fmt.Printf(" (%s)", s.AuctionType)
	}
	fmt.Println()
	fmt.Printf("  rounds:       %d\n", s.Rounds)
	fmt.Printf("  agents:       %d\n", s.Agents)
	fmt.Printf("  accuracy:     %.2f (%d/%d correct)\n", s.Accuracy, s.Correct, s.Rounds)
	fmt.Printf("  total cost:   %.6f\n", s.TotalCost)
	fmt.Printf("  total reward: %.6f\n", s.TotalReward)
	fmt.Printf("  duration:     %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	if s.ResultsDir != "" {
		fmt.Printf("  results:      %s\n", s.ResultsDir)
	}
}
