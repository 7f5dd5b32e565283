// Package config holds run configuration: mechanism choice, budget and
// pricing parameters, and environment-driven overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file if present and warns about API keys the
// LLM backend needs. Call once at process start.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Println("Warning: OPENAI_API_KEY not set, runs fall back to the scripted backend")
	}
}

// RunConfig fixes every parameter of one simulation run.
type RunConfig struct {
	Mechanism   string
	AuctionType string

	InitialBudget float64
	TokenPrice    float64
	RewardAmount  float64
	BidNoise      float64

	MaxTokensPerMessage int

	NumAgents    int
	NumVignettes int
	Seed         int64

	DatasetPath string
	DataDir     string
}

// Default mirrors the reference experiment parameters.
func Default() RunConfig {
	return RunConfig{
		Mechanism:           "auction",
		AuctionType:         "sealed_bid",
		InitialBudget:       1.0,
		TokenPrice:          0.001,
		RewardAmount:        1.0,
		BidNoise:            0.02,
		MaxTokensPerMessage: 60,
		NumAgents:           20,
		NumVignettes:        5,
		Seed:                1,
		DataDir:             "data",
	}
}

// envOverrides maps environment variable names to setters so a run can
// be tuned without flags.
func (c *RunConfig) ApplyEnv() error {
	for name, set := range map[string]func(string) error{
		"AGORA_MECHANISM":    func(v string) error { c.Mechanism = v; return nil },
		"AGORA_AUCTION_TYPE": func(v string) error { c.AuctionType = v; return nil },
		"AGORA_DATASET":      func(v string) error { c.DatasetPath = v; return nil },
		"AGORA_DATA_DIR":     func(v string) error { c.DataDir = v; return nil },
		"AGORA_BUDGET":       c.setFloat(&c.InitialBudget),
		"AGORA_TOKEN_PRICE":  c.setFloat(&c.TokenPrice),
		"AGORA_REWARD":       c.setFloat(&c.RewardAmount),
		"AGORA_BID_NOISE":    c.setFloat(&c.BidNoise),
		"AGORA_MAX_TOKENS":   c.setInt(&c.MaxTokensPerMessage),
		"AGORA_AGENTS":       c.setInt(&c.NumAgents),
		"AGORA_VIGNETTES":    c.setInt(&c.NumVignettes),
		"AGORA_SEED":         c.setInt64(&c.Seed),
	} {
		if v := os.Getenv(name); v != "" {
			if err := set(v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func (c *RunConfig) setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func (c *RunConfig) setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func (c *RunConfig) setInt64(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

// Validate rejects configurations no run may start under.
func (c RunConfig) Validate() error {
	if c.InitialBudget < 0 {
		return fmt.Errorf("initial budget must be >= 0, got %v", c.InitialBudget)
	}
	if c.TokenPrice < 0 {
		return fmt.Errorf("token price must be >= 0, got %v", c.TokenPrice)
	}
	if c.RewardAmount < 0 {
		return fmt.Errorf("reward must be >= 0, got %v", c.RewardAmount)
	}
	if c.NumAgents <= 0 {
		return fmt.Errorf("agent count must be positive, got %d", c.NumAgents)
	}
	return nil
}

// Preset configurations matching the reference experiment sweeps.
var Presets = map[string]func() RunConfig{
	"free_discussion": func() RunConfig {
		c := Default()
		c.Mechanism = "free_discussion"
		return c
	},
	"turn_taking": func() RunConfig {
		c := Default()
		c.Mechanism = "turn_taking"
		return c
	},
	"auction_sealed_bid": Default,
	"auction_vickrey": func() RunConfig {
		c := Default()
		c.AuctionType = "vickrey"
		return c
	},
	"auction_all_pay": func() RunConfig {
		c := Default()
		c.AuctionType = "all_pay"
		return c
	},
	"auction_low_price": func() RunConfig {
		c := Default()
		c.TokenPrice = 0.0005
		return c
	},
	"auction_high_price": func() RunConfig {
		c := Default()
		c.TokenPrice = 0.005
		return c
	},
	"auction_tight_budget": func() RunConfig {
		c := Default()
		c.InitialBudget = 0.50
		return c
	},
	"auction_loose_budget": func() RunConfig {
		c := Default()
		c.InitialBudget = 2.00
		return c
	},
}

// Preset returns a named preset configuration.
func Preset(name string) (RunConfig, error) {
	f, ok := Presets[name]
	if !ok {
		return RunConfig{}, fmt.Errorf("unknown preset %q", name)
	}
	return f(), nil
}
