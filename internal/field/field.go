// Package field wraps the BN254 scalar field element used throughout the
// note engine. Every semantic quantity in the data model (addresses,
// nullifier keys, nullifiers, state hashes, note hashes, ...) inhabits this
// one prime field; the tag names below are type aliases of Element that
// document the role a value plays. The compiler does not tell them apart.
package field

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a BN254 scalar field element (gnark-crypto's fr.Element, kept
// in Montgomery form internally), used for every quantity that is hashed
// with Poseidon or carried as a circuit public/private input.
type Element struct {
	inner fr.Element
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{}
}

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.inner.SetOne()
	return e
}

// FromUint64 builds an Element from a small unsigned integer.
func FromUint64(v uint64) Element {
	var e Element
	e.inner.SetUint64(v)
	return e
}

// FromBigInt reduces an arbitrary big.Int modulo the field order.
func FromBigInt(v *big.Int) Element {
	var e Element
	e.inner.SetBigInt(v)
	return e
}

// FromBytesReduce interprets b as a big-endian integer and reduces it modulo
// the field order. This is the "reduce_to_field" operation spec.md's
// identity-derivation and asset-hash rules rely on.
func FromBytesReduce(b []byte) Element {
	var e Element
	e.inner.SetBytes(b)
	return e
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.inner.IsZero()
}

// Equal reports whether two elements represent the same field value.
func (e Element) Equal(o Element) bool {
	return e.inner.Equal(&o.inner)
}

// Add returns e + o.
func (e Element) Add(o Element) Element {
	var r Element
	r.inner.Add(&e.inner, &o.inner)
	return r
}

// Sub returns e - o.
func (e Element) Sub(o Element) Element {
	var r Element
	r.inner.Sub(&e.inner, &o.inner)
	return r
}

// Mul returns e * o.
func (e Element) Mul(o Element) Element {
	var r Element
	r.inner.Mul(&e.inner, &o.inner)
	return r
}

// BigInt returns e as a big.Int in [0, modulus).
func (e Element) BigInt() *big.Int {
	var out big.Int
	e.inner.BigInt(&out)
	return &out
}

// Bytes returns the canonical 32-byte big-endian encoding of e.
func (e Element) Bytes() [32]byte {
	return e.inner.Bytes()
}

// String returns the decimal representation of e, for logging.
func (e Element) String() string {
	return e.inner.String()
}

// Modulus returns the BN254 scalar field modulus.
func Modulus() *big.Int {
	return fr.Modulus()
}

// MarshalJSON renders e as a 0x-prefixed hex string, the canonical
// encoding every persisted or transmitted record built on Element uses.
func (e Element) MarshalJSON() ([]byte, error) {
	b := e.Bytes()
	return []byte(fmt.Sprintf("%q", "0x"+hex.EncodeToString(b[:]))), nil
}

// UnmarshalJSON parses the 0x-prefixed hex encoding MarshalJSON produces.
func (e *Element) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("field: invalid element JSON %q", data)
	}
	s = string(data[1 : len(data)-1])
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("field: decode element: %w", err)
	}
	*e = FromBytesReduce(b)
	return nil
}

// Inverse returns the multiplicative inverse of e, or ok=false if e is zero.
func Inverse(e Element) (Element, bool) {
	if e.IsZero() {
		return Element{}, false
	}
	var r Element
	r.inner.Inverse(&e.inner)
	return r, true
}

// Address, NullifierKey, Nullifier, StateHash, AssetHash, Blind, NoteHash,
// BlindNoteHash and SigHash are the semantic tags spec.md §3 describes: all
// share Element's representation and differ only in the role a value plays.
type (
	Address       = Element
	NullifierKey  = Element
	Nullifier     = Element
	StateHash     = Element
	AssetHash     = Element
	Blind         = Element
	NoteHash      = Element
	BlindNoteHash = Element
	SigHash       = Element
)
