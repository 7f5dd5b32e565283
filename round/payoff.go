package round

// ComputePayoffs settles one round. Every agent's net reward is the
// base reward if the round's outcome was correct (zero otherwise),
// minus that agent's own costs this round - never anyone else's.
// Budget-free mechanisms have zero costs, so the net reward is exactly
// the base reward on correct rounds. Rewards can go negative under the
// auction mechanism.
func ComputePayoffs(baseReward float64, correct bool, costs map[string]float64, agentIDs []string) map[string]float64 {
	rewards := make(map[string]float64, len(agentIDs))
	for _, id := range agentIDs {
		r := 0.0
		if correct {
			r = baseReward
		}
		rewards[id] = r - costs[id]
	}
	return rewards
}
