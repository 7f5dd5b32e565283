package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.InitialBudget != 1.0 || c.TokenPrice != 0.001 || c.RewardAmount != 1.0 || c.NumAgents != 20 {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"negative budget", func(c *RunConfig) { c.InitialBudget = -0.1 }},
		{"negative token price", func(c *RunConfig) { c.TokenPrice = -0.001 }},
		{"negative reward", func(c *RunConfig) { c.RewardAmount = -1 }},
		{"zero agents", func(c *RunConfig) { c.NumAgents = 0 }},
	} {
		c := Default()
		tc.mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s accepted", tc.name)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("AGORA_MECHANISM", "turn_taking")
	t.Setenv("AGORA_BUDGET", "0.5")
	t.Setenv("AGORA_AGENTS", "8")
	t.Setenv("AGORA_SEED", "42")

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if c.Mechanism != "turn_taking" || c.InitialBudget != 0.5 || c.NumAgents != 8 || c.Seed != 42 {
		t.Errorf("overrides not applied: %+v", c)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("AGORA_TOKEN_PRICE", "cheap")
	c := Default()
	if err := c.ApplyEnv(); err == nil {
		t.Error("non-numeric token price accepted")
	}
}

func TestPresets(t *testing.T) {
	c, err := Preset("auction_vickrey")
	if err != nil {
		t.Fatal(err)
	}
	if c.AuctionType != "vickrey" {
		t.Errorf("vickrey preset auction type = %q", c.AuctionType)
	}
	if _, err := Preset("dutch"); err == nil {
		t.Error("unknown preset accepted")
	}
}
