package params

import "math/big"

// EraBlockReward returns the miner's base reward for the era containing
// blockNumber (spec §4.3): the reward reduction rate is applied once per
// era relative to FirstEraBlockReward.
func (m *MonetaryPolicyConfig) EraBlockReward(blockNumber uint64) *big.Int {
	era := blockNumber / m.EraDuration
	reward := new(big.Int).Set(m.FirstEraBlockReward)
	for i := uint64(0); i < era; i++ {
		reward.Mul(reward, m.RewardReductionRate.Num())
		reward.Div(reward, m.RewardReductionRate.Denom())
	}
	return reward
}
