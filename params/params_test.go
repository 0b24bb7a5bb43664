package params

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/core/types"
)

func TestCalcDifficultyFrontierPlusOne(t *testing.T) {
	cfg := &ChainConfig{HomesteadBlock: big.NewInt(1000000)}
	parent := &types.Header{
		Number:     big.NewInt(100),
		Difficulty: big.NewInt(1000000),
		Timestamp:  1000,
	}
	// Arrives within 13s of parent: +1/2048 adjustment.
	got := cfg.CalcDifficulty(1005, parent)
	want := new(big.Int).Add(parent.Difficulty, new(big.Int).Div(parent.Difficulty, DifficultyBoundDivisor))
	if got.Cmp(want) != 0 {
		t.Fatalf("CalcDifficulty (fast block) = %s, want %s", got, want)
	}
}

func TestCalcDifficultyNeverBelowMinimum(t *testing.T) {
	cfg := &ChainConfig{HomesteadBlock: big.NewInt(0)}
	parent := &types.Header{
		Number:     big.NewInt(1),
		Difficulty: MinimumDifficulty,
		Timestamp:  1000,
	}
	// A very late block pushes the adjustment hard negative; difficulty
	// must still floor at MinimumDifficulty.
	got := cfg.CalcDifficulty(100000, parent)
	if got.Cmp(MinimumDifficulty) < 0 {
		t.Fatalf("CalcDifficulty fell below minimum: %s < %s", got, MinimumDifficulty)
	}
}

func TestBombAddendZeroBeforeThreshold(t *testing.T) {
	cfg := &ChainConfig{}
	if got := cfg.bombAddend(big.NewInt(199999)); got.Sign() != 0 {
		t.Fatalf("bombAddend(199999) = %s, want 0", got)
	}
}

func TestBombAddendPauseFreezesGrowth(t *testing.T) {
	cfg := &ChainConfig{
		DifficultyBombPauseBlock: big.NewInt(3000000),
	}
	atPause := cfg.bombAddend(big.NewInt(3000000))
	wellPast := cfg.bombAddend(big.NewInt(3000000 + 5000000))
	if atPause.Cmp(wellPast) != 0 {
		t.Fatalf("bomb kept growing while paused: %s (at pause) vs %s (5M blocks later)", atPause, wellPast)
	}
}

func TestBombAddendContinueResumesFromFrozenOffset(t *testing.T) {
	cfg := &ChainConfig{
		DifficultyBombPauseBlock:    big.NewInt(3000000),
		DifficultyBombContinueBlock: big.NewInt(5000000),
	}
	// Delay is 2,000,000 blocks; at block 5,000,000 the bomb's effective
	// number is 5,000,000 - 2,000,000 = 3,000,000, matching the pause point.
	atContinue := cfg.bombAddend(big.NewInt(5000000))
	atPause := cfg.bombAddend(big.NewInt(3000000))
	if atContinue.Cmp(atPause) != 0 {
		t.Fatalf("bombAddend at continue block = %s, want %s (matching pause block)", atContinue, atPause)
	}
}

func TestEraBlockRewardFirstEra(t *testing.T) {
	mp := MonetaryPolicyConfig{
		EraDuration:         5000000,
		RewardReductionRate: big.NewRat(4, 5),
		FirstEraBlockReward: new(big.Int).Mul(big.NewInt(5e9), big.NewInt(1e9)),
	}
	got := mp.EraBlockReward(100)
	if got.Cmp(mp.FirstEraBlockReward) != 0 {
		t.Fatalf("EraBlockReward(first era) = %s, want %s", got, mp.FirstEraBlockReward)
	}
}

func TestEraBlockRewardSecondEraReducedBy20Percent(t *testing.T) {
	mp := MonetaryPolicyConfig{
		EraDuration:         5000000,
		RewardReductionRate: big.NewRat(4, 5),
		FirstEraBlockReward: new(big.Int).Mul(big.NewInt(5e9), big.NewInt(1e9)),
	}
	got := mp.EraBlockReward(5000000)
	want := new(big.Int).Mul(mp.FirstEraBlockReward, big.NewInt(4))
	want.Div(want, big.NewInt(5))
	if got.Cmp(want) != 0 {
		t.Fatalf("EraBlockReward(second era) = %s, want %s", got, want)
	}
}

func TestRulesAtGating(t *testing.T) {
	cfg := ClassicMainnetConfig
	pre := cfg.RulesAt(big.NewInt(1000000))
	if pre.IsHomestead {
		t.Fatalf("block 1,000,000 should be pre-Homestead on ETC mainnet")
	}
	post := cfg.RulesAt(cfg.HomesteadBlock)
	if !post.IsHomestead {
		t.Fatalf("HomesteadBlock itself should be post-Homestead")
	}
}

func TestIsDAOForkOnlyAtExactBlock(t *testing.T) {
	cfg := DAOForkTestConfig
	if cfg.IsDAOFork(big.NewInt(9)) {
		t.Fatalf("IsDAOFork(9) = true, want false")
	}
	if !cfg.IsDAOFork(big.NewInt(10)) {
		t.Fatalf("IsDAOFork(10) = false, want true")
	}
	if cfg.IsDAOFork(big.NewInt(11)) {
		t.Fatalf("IsDAOFork(11) = true, want false")
	}
}
