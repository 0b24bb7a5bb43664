package core

import (
	"math/big"

	"github.com/etcnode/core-engine/core/state"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/params"
)

// AccumulateRewards credits the block's beneficiary and ommer miners
// per spec §4.5 step 5 / §8 scenario 4: the beneficiary gets the era
// base reward plus 1/32 of it per ommer included, and each ommer's own
// miner gets era_base*(8-(block.number-ommer.number))/8.
func AccumulateRewards(cfg *params.ChainConfig, statedb *state.StateDB, header *types.Header, ommers []*types.Header) error {
	eraBase := cfg.MonetaryPolicy.EraBlockReward(header.Number.Uint64())

	reward := new(big.Int).Set(eraBase)
	if len(ommers) > 0 {
		extra := new(big.Int).Mul(eraBase, big.NewInt(int64(len(ommers))))
		extra.Div(extra, big.NewInt(32))
		reward.Add(reward, extra)
	}
	if err := statedb.AddBalance(header.Beneficiary, reward); err != nil {
		return err
	}

	for _, ommer := range ommers {
		distance := header.Number.Uint64() - ommer.Number.Uint64()
		ommerReward := new(big.Int).Mul(eraBase, big.NewInt(int64(8-distance)))
		ommerReward.Div(ommerReward, big.NewInt(8))
		if err := statedb.AddBalance(ommer.Beneficiary, ommerReward); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDAOFork drains every address in cfg.DAOForkDrainList into
// cfg.DAOForkRefundAddr, run once at the block whose number equals
// cfg.DAOForkBlock (spec §4.5 step 2 / §8 scenario 3). ETC's own fork
// schedule leaves DAOForkBlock nil, so this is a no-op on ETC mainnet;
// it exists for chains (and the test vector in spec §8.3) that do
// configure a drain.
func ApplyDAOFork(cfg *params.ChainConfig, statedb *state.StateDB, blockNumber *big.Int) error {
	if !cfg.IsDAOFork(blockNumber) {
		return nil
	}
	refund := types.HexToAddress(cfg.DAOForkRefundAddr)
	for _, hexAddr := range cfg.DAOForkDrainList {
		addr := types.HexToAddress(hexAddr)
		balance, err := statedb.GetBalance(addr)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			continue
		}
		if err := statedb.Transfer(addr, refund, balance); err != nil {
			return err
		}
	}
	return nil
}
