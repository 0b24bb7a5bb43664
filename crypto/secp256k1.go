package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/etcnode/core-engine/core/types"
)

// secp256k1 curve parameters: y^2 = x^3 + 7 over Fp. The constants below
// are still needed directly (not just through the decred package) for
// the low-S / signature-bound checks in ValidateSignatureValues and
// signature_recovery.go, which compare raw *big.Int components without
// ever constructing a point.
var (
	secp256k1P, _  = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F", 16)
	secp256k1N, _  = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	secp256k1Gx, _ = new(big.Int).SetString("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798", 16)
	secp256k1Gy, _ = new(big.Int).SetString("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8", 16)
	secp256k1B     = big.NewInt(7)
	secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)
)

// secp256k1Curve is an elliptic.Curve adapter around the decred secp256k1
// field/group implementation, needed only because crypto/ecdsa.PrivateKey
// and PublicKey carry a generic elliptic.Curve field: decred's own
// secp256k1.PrivateKey/PublicKey types don't implement that interface
// (they use fixed-field arithmetic rather than the generic CurveParams
// group law), so the small amount of curve-level plumbing below exists
// purely for stdlib interop. All signing, recovery and verification goes
// through github.com/decred/dcrd/dcrec/secp256k1/v4's own optimized
// arithmetic instead of walking this interface.
type secp256k1Curve struct{ params *elliptic.CurveParams }

var s256 = &secp256k1Curve{params: &elliptic.CurveParams{
	P:       secp256k1P,
	N:       secp256k1N,
	B:       secp256k1B,
	Gx:      secp256k1Gx,
	Gy:      secp256k1Gy,
	BitSize: 256,
	Name:    "secp256k1",
}}

func (c *secp256k1Curve) Params() *elliptic.CurveParams { return c.params }

func (c *secp256k1Curve) IsOnCurve(x, y *big.Int) bool {
	_, err := secp256k1.ParsePubKey(marshalUncompressed(x, y))
	return err == nil
}

func (c *secp256k1Curve) Add(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	return pointAdd(x1, y1, x2, y2)
}

func (c *secp256k1Curve) Double(x1, y1 *big.Int) (*big.Int, *big.Int) {
	return pointDouble(x1, y1)
}

func (c *secp256k1Curve) ScalarMult(x1, y1 *big.Int, k []byte) (*big.Int, *big.Int) {
	return scalarMult(x1, y1, new(big.Int).SetBytes(k))
}

func (c *secp256k1Curve) ScalarBaseMult(k []byte) (*big.Int, *big.Int) {
	return scalarMult(secp256k1Gx, secp256k1Gy, new(big.Int).SetBytes(k))
}

// isInfinity reports whether (x, y) is the affine point-at-infinity
// sentinel used throughout this package: (0, 0), which never lies on the
// curve since 0^2 != 0^3 + 7.
func isInfinity(x, y *big.Int) bool { return x.Sign() == 0 && y.Sign() == 0 }

// pointAdd/pointDouble/scalarMult back the generic elliptic.Curve
// methods above only; the hot signing/recovery/verify paths below never
// call them, instead delegating to decred's fixed-field implementation.
func pointAdd(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	if isInfinity(x1, y1) {
		return new(big.Int).Set(x2), new(big.Int).Set(y2)
	}
	if isInfinity(x2, y2) {
		return new(big.Int).Set(x1), new(big.Int).Set(y1)
	}
	p := secp256k1P
	if x1.Cmp(x2) == 0 {
		if y1.Cmp(y2) != 0 || y1.Sign() == 0 {
			return big.NewInt(0), big.NewInt(0)
		}
		return pointDouble(x1, y1)
	}

	lambda := new(big.Int).Sub(y2, y1)
	denom := new(big.Int).Sub(x2, x1)
	denom.Mod(denom, p)
	lambda.Mul(lambda, new(big.Int).ModInverse(denom, p))
	lambda.Mod(lambda, p)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, x1)
	x3.Sub(x3, x2)
	x3.Mod(x3, p)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, y1)
	y3.Mod(y3, p)

	return x3, y3
}

func pointDouble(x1, y1 *big.Int) (*big.Int, *big.Int) {
	if y1.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	p := secp256k1P
	num := new(big.Int).Mul(x1, x1)
	num.Mul(num, big.NewInt(3))
	denom := new(big.Int).Lsh(y1, 1)
	denom.Mod(denom, p)
	lambda := new(big.Int).Mul(num, new(big.Int).ModInverse(denom, p))
	lambda.Mod(lambda, p)

	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, new(big.Int).Lsh(x1, 1))
	x3.Mod(x3, p)

	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, y1)
	y3.Mod(y3, p)

	return x3, y3
}

func scalarMult(x, y, k *big.Int) (*big.Int, *big.Int) {
	rx, ry := big.NewInt(0), big.NewInt(0)
	px, py := new(big.Int).Set(x), new(big.Int).Set(y)
	kk := new(big.Int).Mod(k, secp256k1N)
	for i := 0; i < kk.BitLen(); i++ {
		if kk.Bit(i) == 1 {
			rx, ry = pointAdd(rx, ry, px, py)
		}
		px, py = pointDouble(px, py)
	}
	return rx, ry
}

func marshalUncompressed(x, y *big.Int) []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	x.FillBytes(out[1:33])
	y.FillBytes(out[33:65])
	return out
}

// decredPubToECDSA converts a decred secp256k1 public key to the stdlib
// representation, going through the uncompressed wire form rather than a
// library-version-specific conversion helper.
func decredPubToECDSA(pub *secp256k1.PublicKey) *ecdsa.PublicKey {
	raw := pub.SerializeUncompressed()
	return &ecdsa.PublicKey{
		Curve: s256,
		X:     new(big.Int).SetBytes(raw[1:33]),
		Y:     new(big.Int).SetBytes(raw[33:65]),
	}
}

// GenerateKey generates a new secp256k1 private key using decred's
// secp256k1 package, which seeds from crypto/rand and rejects the
// negligible-probability zero/overflow scalar itself.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	d := new(big.Int).SetBytes(priv.Serialize())
	return &ecdsa.PrivateKey{
		PublicKey: *decredPubToECDSA(priv.PubKey()),
		D:         d,
	}, nil
}

// Sign calculates an ECDSA signature over a 32-byte hash, returning the
// 65-byte compact form R (32) || S (32) || V (1) with V in {0, 1} and S
// normalized to the lower half of the curve order (decred's SignCompact
// does this normalization internally, matching EIP-2/Homestead).
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != 32 {
		return nil, errors.New("crypto: hash must be 32 bytes")
	}
	seckey := make([]byte, 32)
	prv.D.FillBytes(seckey)
	key := secp256k1.PrivKeyFromBytes(seckey)
	defer key.Zero()

	compact, err := dcrecdsa.SignCompact(key, hash, false)
	if err != nil {
		return nil, err
	}
	// decred's compact form is [recovery-header || R || S] with the
	// header biased by 27 (and +4 for a compressed pubkey, unused here);
	// Ethereum's compact form wants recovery id last and unbiased.
	sig := make([]byte, 65)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// SigToPub recovers the public key that produced sig over hash.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != 65 {
		return nil, errors.New("crypto: signature must be 65 bytes [R || S || V]")
	}
	if len(hash) != 32 {
		return nil, errors.New("crypto: hash must be 32 bytes")
	}
	if sig[64] > 1 {
		return nil, errors.New("crypto: invalid recovery id")
	}

	compact := make([]byte, 65)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig[:64])

	pub, _, err := dcrecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return decredPubToECDSA(pub), nil
}

// Ecrecover recovers the uncompressed public key bytes from hash and sig.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return FromECDSAPub(pub), nil
}

// ValidateSignature verifies a 64-byte (R || S) signature against a
// 65-byte uncompressed public key and 32-byte hash.
func ValidateSignature(pubkey, hash, sig []byte) bool {
	if len(sig) != 64 || len(hash) != 32 || len(pubkey) != 65 || pubkey[0] != 0x04 {
		return false
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:64]); overflow {
		return false
	}
	key, err := secp256k1.ParsePubKey(pubkey)
	if err != nil {
		return false
	}
	signature := dcrecdsa.NewSignature(&r, &s)
	return signature.Verify(hash, key)
}

// ValidateSignatureValues checks r, s, v for validity. If homestead is
// true, s must lie in the lower half of the curve order (EIP-2).
func ValidateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	if r == nil || s == nil {
		return false
	}
	if v > 1 {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}
	if homestead && s.Cmp(secp256k1halfN) > 0 {
		return false
	}
	return true
}

// PubkeyToAddress derives the account address from a public key:
// Keccak256(pubkey[1:])[12:].
func PubkeyToAddress(p ecdsa.PublicKey) types.Address {
	pubBytes := FromECDSAPub(&p)
	if pubBytes == nil {
		return types.Address{}
	}
	hash := Keccak256(pubBytes[1:])
	return types.BytesToAddress(hash[12:])
}

// FromECDSAPub marshals a public key to 65-byte uncompressed form
// 0x04 || X || Y.
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return marshalUncompressed(pub.X, pub.Y)
}

// CompressPubkey marshals a public key to 33-byte compressed form.
func CompressPubkey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	key, err := secp256k1.ParsePubKey(marshalUncompressed(pub.X, pub.Y))
	if err != nil {
		return nil
	}
	return key.SerializeCompressed()
}

// DecompressPubkey unmarshals a 33-byte compressed public key.
func DecompressPubkey(data []byte) (*ecdsa.PublicKey, error) {
	if len(data) != 33 || (data[0] != 0x02 && data[0] != 0x03) {
		return nil, errors.New("crypto: invalid compressed public key")
	}
	key, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, err
	}
	return decredPubToECDSA(key), nil
}
