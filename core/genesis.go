package core

import (
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/etcnode/core-engine/core/state"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/trie"
)

// ErrGenesisMismatch is returned at startup when an existing chain's
// stored genesis hash disagrees with the genesis this node was
// configured with (spec §7's "configuration/startup" error kind: fatal
// at startup, never at runtime).
var ErrGenesisMismatch = errors.New("core: genesis hash does not match stored chain")

// GenesisAlloc pre-funds accounts at chain start, keyed by hex address
// (spec §6's genesis JSON "alloc" field).
type GenesisAlloc map[string]GenesisAccount

// GenesisAccount is one pre-funded account's initial balance.
type GenesisAccount struct {
	Balance *big.Int
}

// Genesis is the decoded genesis file (spec §6): the fields needed to
// build block 0's header plus the initial account balances.
type Genesis struct {
	Coinbase   types.Address
	Difficulty *big.Int
	GasLimit   uint64
	Timestamp  uint64
	ExtraData  []byte
	MixHash    types.Hash
	Nonce      types.BlockNonce
	Alloc      GenesisAlloc
}

// genesisJSON mirrors the on-disk genesis file's hex/decimal encoding
// (spec §6) before it is parsed into a Genesis.
type genesisJSON struct {
	Coinbase   string                     `json:"coinbase"`
	Difficulty string                     `json:"difficulty"`
	GasLimit   string                     `json:"gasLimit"`
	Timestamp  string                     `json:"timestamp"`
	ExtraData  string                     `json:"extraData"`
	MixHash    string                     `json:"mixHash"`
	Nonce      string                     `json:"nonce"`
	Alloc      map[string]allocEntryJSON `json:"alloc"`
}

type allocEntryJSON struct {
	Balance string `json:"balance"`
}

// LoadGenesisFile reads and parses a genesis JSON file from path (spec §6).
func LoadGenesisFile(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGenesisJSON(data)
}

// ParseGenesisJSON decodes a genesis file's JSON bytes (spec §6: hex
// 0x-prefixed numeric fields, decimal-string balances).
func ParseGenesisJSON(data []byte) (*Genesis, error) {
	var raw genesisJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	g := &Genesis{
		Coinbase:  types.HexToAddress(raw.Coinbase),
		MixHash:   types.HexToHash(raw.MixHash),
		ExtraData: fromHexString(raw.ExtraData),
		Alloc:     make(GenesisAlloc, len(raw.Alloc)),
	}
	g.Difficulty = hexToBig(raw.Difficulty)
	g.GasLimit = hexToBig(raw.GasLimit).Uint64()
	g.Timestamp = hexToBig(raw.Timestamp).Uint64()
	copy(g.Nonce[:], fromHexString(raw.Nonce))

	for addr, entry := range raw.Alloc {
		balance, ok := new(big.Int).SetString(entry.Balance, 10)
		if !ok {
			balance = hexToBig(entry.Balance)
		}
		g.Alloc[addr] = GenesisAccount{Balance: balance}
	}
	return g, nil
}

func fromHexString(s string) []byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b := make([]byte, len(s)/2)
	for i := range b {
		var v byte
		for j := 0; j < 2; j++ {
			c := s[i*2+j]
			v <<= 4
			switch {
			case c >= '0' && c <= '9':
				v |= c - '0'
			case c >= 'a' && c <= 'f':
				v |= c - 'a' + 10
			case c >= 'A' && c <= 'F':
				v |= c - 'A' + 10
			}
		}
		b[i] = v
	}
	return b
}

func hexToBig(s string) *big.Int {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return new(big.Int)
	}
	return n
}

// ToBlock materialises the genesis block: an empty-bodied block whose
// header commits to the state produced by crediting every alloc entry's
// balance, persisted into db. The returned block's StateRoot,
// TransactionsRoot and ReceiptsRoot are all computed, not left zero.
func (g *Genesis) ToBlock(db *trie.NodeDatabase) (*types.Block, error) {
	statedb, err := state.New(types.Hash{}, db, nil)
	if err != nil {
		return nil, err
	}
	for hexAddr, account := range g.Alloc {
		addr := types.HexToAddress(hexAddr)
		if err := statedb.AddBalance(addr, account.Balance); err != nil {
			return nil, err
		}
	}
	root, err := statedb.PersistState()
	if err != nil {
		return nil, err
	}

	header := &types.Header{
		ParentHash:       types.Hash{},
		OmmersHash:       types.EmptyOmmersHash,
		Beneficiary:      g.Coinbase,
		StateRoot:        root,
		TransactionsRoot: types.EmptyRootHash,
		ReceiptsRoot:     types.EmptyRootHash,
		Difficulty:       new(big.Int).Set(g.Difficulty),
		Number:           new(big.Int),
		GasLimit:         g.GasLimit,
		GasUsed:          0,
		Timestamp:        g.Timestamp,
		ExtraData:        g.ExtraData,
		MixHash:          g.MixHash,
		Nonce:            g.Nonce,
	}
	return types.NewBlock(header, nil, nil), nil
}

// SetupGenesis writes the genesis block to db if no chain exists yet, or
// validates that db's existing genesis matches g (spec §7: genesis
// mismatch against an existing chain is fatal at startup). It returns
// the genesis block either way.
func SetupGenesis(g *Genesis, db *trie.NodeDatabase) (*types.Block, error) {
	block, err := g.ToBlock(db)
	if err != nil {
		return nil, err
	}

	stored, err := rawdb.ReadCanonicalHash(db.Disk(), 0)
	if err != nil {
		// No chain yet: this genesis becomes block 0.
		if writeErr := rawdb.WriteBlock(db.Disk(), block); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := rawdb.WriteCanonicalHash(db.Disk(), 0, block.Hash()); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := rawdb.WriteTotalDifficulty(db.Disk(), 0, block.Hash(), block.Header().Difficulty); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := rawdb.WriteHeadBlockNumber(db.Disk(), 0); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := rawdb.WriteHeadBlockHash(db.Disk(), block.Hash()); writeErr != nil {
			return nil, writeErr
		}
		return block, nil
	}
	if stored != block.Hash() {
		return nil, ErrGenesisMismatch
	}
	return block, nil
}

// ClassicGenesis is a minimal built-in genesis (zero alloc) for tests
// and dry runs; callers bringing up a real Ethereum Classic node should
// use LoadGenesisFile with the network's published genesis.json instead
// (the file content is bootstrap data, not a consensus rule, so it is
// not hard-coded here).
func ClassicGenesis() *Genesis {
	return &Genesis{
		Difficulty: big.NewInt(0x400000),
		GasLimit:   5000,
		Timestamp:  0,
		Alloc:      GenesisAlloc{},
	}
}
