// Package params holds the chain-level configuration that gates fork
// behaviour throughout the ledger and EVM: the block numbers at which
// Homestead, EIP-150, EIP-155, EIP-160 and the DAO fork activate, the
// difficulty-bomb schedule, and the monetary policy.
package params

import "math/big"

// ChainConfig describes one network's fork schedule and monetary
// policy (spec §6's "Blockchain" configuration group).
type ChainConfig struct {
	ChainID *big.Int

	HomesteadBlock *big.Int
	EIP150Block    *big.Int
	EIP155Block    *big.Int
	EIP160Block    *big.Int

	// DifficultyBombPauseBlock and DifficultyBombContinueBlock implement
	// ECIP-1010-style bomb delay: at PauseBlock the bomb's effective block
	// number freezes; at ContinueBlock it resumes counting from the frozen
	// offset (see CalcDifficulty).
	DifficultyBombPauseBlock    *big.Int
	DifficultyBombContinueBlock *big.Int

	DAOForkBlock        *big.Int
	DAOForkRefundAddr   string // hex address, e.g. the DAO refund contract
	DAOForkDrainList    []string

	AccountStartNonce uint64

	MonetaryPolicy MonetaryPolicyConfig
}

// MonetaryPolicyConfig controls block-reward era stepping (spec §4.3's
// "Era boundaries and reward reduction rate are configured").
type MonetaryPolicyConfig struct {
	EraDuration         uint64 // blocks per era
	RewardReductionRate *big.Rat
	FirstEraBlockReward *big.Int
}

// IsHomestead reports whether num is at or past the Homestead fork.
func (c *ChainConfig) IsHomestead(num *big.Int) bool { return blockForked(c.HomesteadBlock, num) }

// IsEIP150 reports whether num is at or past the EIP-150 repricing fork.
func (c *ChainConfig) IsEIP150(num *big.Int) bool { return blockForked(c.EIP150Block, num) }

// IsEIP155 reports whether num is at or past the EIP-155 replay
// protection fork.
func (c *ChainConfig) IsEIP155(num *big.Int) bool { return blockForked(c.EIP155Block, num) }

// IsEIP160 reports whether num is at or past the EIP-160 EXP
// repricing fork.
func (c *ChainConfig) IsEIP160(num *big.Int) bool { return blockForked(c.EIP160Block, num) }

// IsDAOFork reports whether num equals the DAO hard-fork block.
func (c *ChainConfig) IsDAOFork(num *big.Int) bool {
	return c.DAOForkBlock != nil && num != nil && c.DAOForkBlock.Cmp(num) == 0
}

func blockForked(fork, num *big.Int) bool {
	if fork == nil {
		return false
	}
	if num == nil {
		return false
	}
	return fork.Cmp(num) <= 0
}

// Rules is a snapshot of which forks are active at a given block,
// handed to the EVM and ledger instead of a block number plus a
// ChainConfig pointer, so gating reads as a flag check.
type Rules struct {
	IsHomestead bool
	IsEIP150    bool
	IsEIP155    bool
	IsEIP160    bool
}

// RulesAt computes the fork Rules active at block num.
func (c *ChainConfig) RulesAt(num *big.Int) Rules {
	return Rules{
		IsHomestead: c.IsHomestead(num),
		IsEIP150:    c.IsEIP150(num),
		IsEIP155:    c.IsEIP155(num),
		IsEIP160:    c.IsEIP160(num),
	}
}
