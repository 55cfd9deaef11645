// Package target implements the tagged PubKey/Hash160 search target of
// §9's "mixed-reference use of target Hash160 vs PublicKey" redesign
// note: the engine accepts either a public key (against which BSGS can
// run directly) or a Hash160 (which only supports the exhaustive scan of
// §9's Open Questions, since BSGS needs the public key itself).
package target

import (
	"fmt"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// Kind distinguishes the two forms of target the engine understands.
type Kind uint8

const (
	// KindPubKey is a target whose full public key is known; the BSGS
	// giant-step probe compares points directly.
	KindPubKey Kind = iota
	// KindHash160 is a target known only by its address hash; the engine
	// falls back to an exhaustive scan (internal/bsgs/scan.go).
	KindHash160
)

func (k Kind) String() string {
	switch k {
	case KindPubKey:
		return "pubkey"
	case KindHash160:
		return "hash160"
	default:
		return "unknown"
	}
}

// Target is one search target: a public key point or a Hash160, tagged
// by Kind, with an optional human-readable Label (the original address
// or hex string it was parsed from) carried through for reporting.
type Target struct {
	Kind    Kind
	Point   curve.Affine
	Hash160 [20]byte
	Label   string
}

// NewFromPubKeyBytes parses a 33-byte compressed or 65-byte uncompressed
// SEC1 public key encoding into a KindPubKey target.
func NewFromPubKeyBytes(b []byte, label string) (Target, error) {
	pk, err := btcec.ParsePubKey(b)
	if err != nil {
		return Target{}, fmt.Errorf("target: parsing public key: %w", err)
	}

	x, err := field.FromBytesFp(leftPad32(pk.X().Bytes()))
	if err != nil {
		return Target{}, fmt.Errorf("target: public key X out of range: %w", err)
	}
	y, err := field.FromBytesFp(leftPad32(pk.Y().Bytes()))
	if err != nil {
		return Target{}, fmt.Errorf("target: public key Y out of range: %w", err)
	}

	p := curve.Affine{X: x, Y: y}
	if !curve.OnCurve(p) {
		return Target{}, fmt.Errorf("target: public key is not on secp256k1")
	}

	return Target{Kind: KindPubKey, Point: p, Label: label}, nil
}

// NewFromHash160 builds a KindHash160 target from a 20-byte address hash.
func NewFromHash160(b []byte, label string) (Target, error) {
	if len(b) != 20 {
		return Target{}, fmt.Errorf("target: hash160 must be 20 bytes, got %d", len(b))
	}
	var h [20]byte
	copy(h[:], b)
	return Target{Kind: KindHash160, Hash160: h, Label: label}, nil
}

// CompressedPubKey returns the 33-byte SEC1 compressed encoding of a
// KindPubKey target's point, for checkpoint persistence (§6).
func (t Target) CompressedPubKey() [33]byte {
	var out [33]byte
	copy(out[:], EncodeCompressed(t.Point))
	return out
}

// Matches reports whether an affine point recovered mid-search satisfies
// this target: direct point equality for KindPubKey, or a Hash160 match
// against either the compressed or uncompressed encoding for KindHash160,
// since the target's original compression form is not recoverable from
// the hash alone.
func (t Target) Matches(p curve.Affine) bool {
	switch t.Kind {
	case KindPubKey:
		return t.Point.Equal(p)
	case KindHash160:
		compressed := btcutil.Hash160(EncodeCompressed(p))
		if hashEqual(compressed, t.Hash160) {
			return true
		}
		uncompressed := btcutil.Hash160(EncodeUncompressed(p))
		return hashEqual(uncompressed, t.Hash160)
	default:
		return false
	}
}

func hashEqual(a []byte, b [20]byte) bool {
	if len(a) != 20 {
		return false
	}
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EncodeCompressed returns the 33-byte SEC1 compressed encoding of an
// affine point: a one-byte parity prefix (0x02 even, 0x03 odd) followed
// by the 32-byte big-endian X coordinate.
func EncodeCompressed(a curve.Affine) []byte {
	out := make([]byte, 33)
	xBytes := a.X.ToBytes()
	yBytes := a.Y.ToBytes()
	if yBytes[31]&1 == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	copy(out[1:], xBytes[:])
	return out
}

// EncodeUncompressed returns the 65-byte SEC1 uncompressed encoding of an
// affine point: 0x04 followed by the 32-byte X and 32-byte Y coordinates.
func EncodeUncompressed(a curve.Affine) []byte {
	out := make([]byte, 65)
	out[0] = 0x04
	xBytes := a.X.ToBytes()
	yBytes := a.Y.ToBytes()
	copy(out[1:33], xBytes[:])
	copy(out[33:65], yBytes[:])
	return out
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
