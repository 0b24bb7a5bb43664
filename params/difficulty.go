package params

import (
	"math/big"

	"github.com/etcnode/core-engine/core/types"
)

// Difficulty adjustment constants (Yellow Paper §4.3.4, as amended by
// EIP-2 / Homestead and the ECIP-1010 bomb delay).
var (
	DifficultyBoundDivisor = big.NewInt(2048)
	MinimumDifficulty      = big.NewInt(131072)
	ExpDiffPeriod          = big.NewInt(100000)

	big1       = big.NewInt(1)
	big2       = big.NewInt(2)
	big10      = big.NewInt(10)
	bigMinus99 = big.NewInt(-99)
)

// CalcDifficulty computes the difficulty of the next block given the
// parent header and the new block's timestamp, per spec §4.7.
func (c *ChainConfig) CalcDifficulty(time uint64, parent *types.Header) *big.Int {
	childNumber := new(big.Int).Add(parent.Number, big1)

	var adjust *big.Int
	if c.IsHomestead(childNumber) {
		adjust = homesteadAdjustment(time, parent.Timestamp)
	} else {
		adjust = frontierAdjustment(time, parent.Timestamp)
	}

	x := new(big.Int).Div(parent.Difficulty, DifficultyBoundDivisor)
	x.Mul(x, adjust)
	x.Add(x, parent.Difficulty)
	if x.Cmp(MinimumDifficulty) < 0 {
		x = new(big.Int).Set(MinimumDifficulty)
	}

	x.Add(x, c.bombAddend(childNumber))
	if x.Cmp(MinimumDifficulty) < 0 {
		x = new(big.Int).Set(MinimumDifficulty)
	}
	return x
}

// frontierAdjustment is Frontier's +-1 rule: +1 if the block arrived
// within 13 seconds of its parent, else -1.
func frontierAdjustment(time, parentTime uint64) *big.Int {
	if time < parentTime+13 {
		return big.NewInt(1)
	}
	return big.NewInt(-1)
}

// homesteadAdjustment implements EIP-2's max(1 - (time-parentTime)/10, -99).
func homesteadAdjustment(time, parentTime uint64) *big.Int {
	diff := new(big.Int).SetUint64(time - parentTime)
	if time < parentTime {
		diff.SetInt64(0)
	}
	diff.Div(diff, big10)
	adjust := new(big.Int).Sub(big1, diff)
	if adjust.Cmp(bigMinus99) < 0 {
		adjust.Set(bigMinus99)
	}
	return adjust
}

// bombAddend computes the exponential difficulty-bomb addend for
// childNumber, honouring ECIP-1010's pause/continue delay: while paused,
// the bomb's effective block number freezes at the pause block; once
// continued, it resumes counting from that frozen offset instead of
// from zero.
func (c *ChainConfig) bombAddend(childNumber *big.Int) *big.Int {
	fakeNumber := new(big.Int).Set(childNumber)

	if c.DifficultyBombPauseBlock != nil && childNumber.Cmp(c.DifficultyBombPauseBlock) >= 0 {
		if c.DifficultyBombContinueBlock == nil || childNumber.Cmp(c.DifficultyBombContinueBlock) < 0 {
			fakeNumber = new(big.Int).Set(c.DifficultyBombPauseBlock)
		} else {
			delay := new(big.Int).Sub(c.DifficultyBombContinueBlock, c.DifficultyBombPauseBlock)
			fakeNumber = new(big.Int).Sub(childNumber, delay)
		}
	}

	periodCount := new(big.Int).Div(fakeNumber, ExpDiffPeriod)
	if periodCount.Cmp(big2) <= 0 {
		return new(big.Int)
	}
	exp := new(big.Int).Sub(periodCount, big2)
	addend := new(big.Int).Exp(big2, exp, nil)
	return addend
}
