package crypto

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/core/types"
)

func TestKeccak256KnownVector(t *testing.T) {
	// Keccak256("") per the Keccak (pre-NIST) reference vectors used
	// throughout Ethereum.
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	got := hex.EncodeToString(Keccak256(nil))
	if got != want {
		t.Fatalf("Keccak256(\"\") = %s, want %s", got, want)
	}
}

func TestKeccak256HashMatchesEmptyCodeHash(t *testing.T) {
	if Keccak256Hash(nil) != types.EmptyCodeHash {
		t.Fatalf("Keccak256Hash(nil) != types.EmptyCodeHash")
	}
}

func TestSignAndRecoverRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hash := Keccak256([]byte("round trip message"))

	sig, err := Sign(hash, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	addr := PubkeyToAddress(priv.PublicKey)

	sr := NewSigRecover()
	gotAddr, err := sr.SignatureToAddressBytes(hash, sig)
	if err != nil {
		t.Fatalf("SignatureToAddressBytes: %v", err)
	}
	if gotAddr != addr {
		t.Fatalf("recovered address = %s, want %s", gotAddr.Hex(), addr.Hex())
	}
}

func TestCreateAddressDeterministic(t *testing.T) {
	creator := types.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	a1 := CreateAddress(creator, 0)
	a2 := CreateAddress(creator, 0)
	if a1 != a2 {
		t.Fatalf("CreateAddress is not deterministic")
	}
	if CreateAddress(creator, 0) == CreateAddress(creator, 1) {
		t.Fatalf("CreateAddress must differ across nonces")
	}
}

func TestNormalizeVRoundTrip(t *testing.T) {
	rawV, chainID := NormalizeV(big.NewInt(27))
	if rawV != 0 || chainID.Sign() != 0 {
		t.Fatalf("NormalizeV(27) = (%d, %s), want (0, 0)", rawV, chainID)
	}
	rawV, chainID = NormalizeV(big.NewInt(28))
	if rawV != 1 || chainID.Sign() != 0 {
		t.Fatalf("NormalizeV(28) = (%d, %s), want (1, 0)", rawV, chainID)
	}

	chain61 := big.NewInt(61) // ETC mainnet chain id
	eip155V := EncodeVEIP155(1, chain61)
	rawV, gotChain := NormalizeV(eip155V)
	if rawV != 1 || gotChain.Cmp(chain61) != 0 {
		t.Fatalf("NormalizeV(EncodeVEIP155(1, 61)) = (%d, %s), want (1, 61)", rawV, gotChain)
	}
}

func TestValidateSignatureValuesRejectsHighS(t *testing.T) {
	r := big.NewInt(1)
	highS := new(big.Int).Sub(secp256k1N, big.NewInt(1))
	if ValidateSignatureValues(0, r, highS, true) {
		t.Fatalf("ValidateSignatureValues accepted a high-S signature post-Homestead")
	}
	if !ValidateSignatureValues(0, r, highS, false) {
		t.Fatalf("ValidateSignatureValues rejected a high-S signature pre-Homestead")
	}
}

func TestEcRecoverPrecompileMatchesSignatureToAddress(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	hash := Keccak256([]byte("precompile test"))
	sig, err := Sign(hash, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	cs, err := ParseCompactSignature(sig)
	if err != nil {
		t.Fatalf("ParseCompactSignature: %v", err)
	}
	cs.V = EncodeVLegacy(cs.V)

	input := make([]byte, 128)
	copy(input[:32], hash)
	big.NewInt(int64(cs.V)).FillBytes(input[32:64])
	copy(input[64:96], cs.R[:])
	copy(input[96:128], cs.S[:])

	sr := NewSigRecover()
	out := sr.EcRecoverPrecompile(input)
	if out == nil {
		t.Fatalf("EcRecoverPrecompile returned nil")
	}
	want := PubkeyToAddress(priv.PublicKey)
	if !bytes.Equal(out[12:], want.Bytes()) {
		t.Fatalf("EcRecoverPrecompile address = %x, want %x", out[12:], want.Bytes())
	}
}
