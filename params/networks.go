package params

import "math/big"

// ClassicMainnetConfig is the fork schedule for Ethereum Classic mainnet.
var ClassicMainnetConfig = &ChainConfig{
	ChainID:                     big.NewInt(61),
	HomesteadBlock:              big.NewInt(1150000),
	EIP150Block:                 big.NewInt(2500000),
	EIP155Block:                 big.NewInt(3000000),
	EIP160Block:                 big.NewInt(3000000),
	DifficultyBombPauseBlock:    big.NewInt(3000000),
	DifficultyBombContinueBlock: big.NewInt(5000000),
	DAOForkBlock:                nil, // ETC rejected the DAO fork
	AccountStartNonce:           0,
	MonetaryPolicy: MonetaryPolicyConfig{
		EraDuration:         5000000,
		RewardReductionRate: big.NewRat(4, 5), // 20% reduction per era
		FirstEraBlockReward: new(big.Int).Mul(big.NewInt(5e9), big.NewInt(1e9)), // 5e18
	},
}

// TestConfig activates every fork at genesis, for unit tests that don't
// exercise fork-transition behaviour.
var TestConfig = &ChainConfig{
	ChainID:           big.NewInt(1337),
	HomesteadBlock:    big.NewInt(0),
	EIP150Block:       big.NewInt(0),
	EIP155Block:       big.NewInt(0),
	EIP160Block:       big.NewInt(0),
	AccountStartNonce: 0,
	MonetaryPolicy: MonetaryPolicyConfig{
		EraDuration:         5000000,
		RewardReductionRate: big.NewRat(4, 5),
		FirstEraBlockReward: new(big.Int).Mul(big.NewInt(5e9), big.NewInt(1e9)),
	},
}

// DAOForkTestConfig mirrors TestConfig but schedules a DAO fork at block
// 10, for the DAO-drain test vector of spec §8.3.
var DAOForkTestConfig = &ChainConfig{
	ChainID:           big.NewInt(1),
	HomesteadBlock:    big.NewInt(0),
	EIP150Block:       big.NewInt(0),
	EIP155Block:       big.NewInt(0),
	EIP160Block:       big.NewInt(0),
	DAOForkBlock:      big.NewInt(10),
	AccountStartNonce: 0,
	MonetaryPolicy: MonetaryPolicyConfig{
		EraDuration:         5000000,
		RewardReductionRate: big.NewRat(4, 5),
		FirstEraBlockReward: new(big.Int).Mul(big.NewInt(5e9), big.NewInt(1e9)),
	},
}
