package types

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/crypto"
)

func TestTransactionSignRecoverRoundTripHomestead(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	to := HexToAddress("0x0000000000000000000000000000000000000bb")
	tx := NewTransaction(5, to, big.NewInt(1000), 21000, big.NewInt(1), nil)

	signed, err := SignTx(tx, NewHomesteadSigner(), priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	want := crypto.PubkeyToAddress(priv.PublicKey)
	got, err := Sender(signed, nil, nil, big.NewInt(1))
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if got != want {
		t.Fatalf("recovered sender = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestTransactionSignRecoverRoundTripEIP155(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	chainID := big.NewInt(61)
	to := HexToAddress("0x0000000000000000000000000000000000000cc")
	tx := NewTransaction(9, to, big.NewInt(1), 21000, big.NewInt(1), nil)

	signed, err := SignTx(tx, NewEIP155Signer(chainID), priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	want := crypto.PubkeyToAddress(priv.PublicKey)
	got, err := Sender(signed, big.NewInt(0), chainID, big.NewInt(100))
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if got != want {
		t.Fatalf("recovered sender = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestEIP155SignatureRejectsWrongChainID(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	to := HexToAddress("0x0000000000000000000000000000000000000dd")
	tx := NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := SignTx(tx, NewEIP155Signer(big.NewInt(61)), priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	if _, err := Sender(signed, big.NewInt(0), big.NewInt(1), big.NewInt(100)); err == nil {
		t.Fatalf("Sender accepted a signature for the wrong chain id")
	}
}

func TestAccountIsEmpty(t *testing.T) {
	acc := NewEmptyAccount()
	if !acc.IsEmpty() {
		t.Fatalf("NewEmptyAccount().IsEmpty() = false, want true")
	}
	acc.Balance = big.NewInt(1)
	if acc.IsEmpty() {
		t.Fatalf("funded account reports IsEmpty() = true")
	}
}

func TestBloomOrAndTest(t *testing.T) {
	log1 := NewLog(HexToAddress("0x01"), []Hash{HexToHash("0xaa")}, nil)
	log2 := NewLog(HexToAddress("0x02"), nil, nil)

	b1 := CreateBloom([]*Log{log1})
	b2 := CreateBloom([]*Log{log2})
	merged := MergeBlooms([]Bloom{b1, b2})

	if !merged.Test(b1) || !merged.Test(b2) {
		t.Fatalf("merged bloom does not contain both constituent blooms")
	}
}

func TestAddressBytesRoundTrip(t *testing.T) {
	a := HexToAddress("0x1234000000000000000000000000000000abcd")
	if BytesToAddress(a.Bytes()) != a {
		t.Fatalf("BytesToAddress(a.Bytes()) != a")
	}
}
