// Package eddsa wraps the BabyJubjub-over-BN254 EdDSA scheme spec.md §4.1
// builds identities and signatures on top of: native key generation and
// signing via gnark-crypto, verified both natively and inside the note
// circuit against the same Poseidon transcript hash (internal/poseidon),
// so a signature produced here is accepted by internal/circuit's
// in-circuit eddsa.Verify without any re-derivation.
package eddsa

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	native "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/internal/poseidon"
)

// PrivateKey is a wallet's EdDSA signing key.
type PrivateKey struct {
	inner native.PrivateKey
}

// PublicKey is the verification half of a PrivateKey.
type PublicKey struct {
	inner native.PublicKey
}

// Signature is a detached EdDSA signature over a single field element.
type Signature struct {
	inner native.Signature
}

// GenerateKey derives a fresh signing key from rng. Callers that need
// deterministic wallets (tests, fixtures) pass a seeded io.Reader; rng
// defaults to crypto/rand.Reader when nil.
func GenerateKey(rng io.Reader) (*PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	sk, err := native.GenerateKey(rng)
	if err != nil {
		return nil, fmt.Errorf("eddsa: generate key: %w", err)
	}
	return &PrivateKey{inner: sk}, nil
}

// Public returns the public half of sk.
func (sk *PrivateKey) Public() PublicKey {
	return PublicKey{inner: sk.inner.PublicKey}
}

// Sign signs a single field element (spec.md's sig_hash) with the
// Poseidon-sponge transcript hash, matching the hash the note circuit
// uses to verify the same signature in-circuit.
func (sk *PrivateKey) Sign(msg field.SigHash) (Signature, error) {
	msgBytes := msg.Bytes()
	sigBytes, err := sk.inner.Sign(msgBytes[:], poseidon.NewDigest(poseidon.Sponge))
	if err != nil {
		return Signature{}, fmt.Errorf("eddsa: sign: %w", err)
	}
	var sig native.Signature
	if _, err := sig.SetBytes(sigBytes); err != nil {
		return Signature{}, fmt.Errorf("eddsa: decode signature: %w", err)
	}
	return Signature{inner: sig}, nil
}

// Verify checks a signature over msg against pub using the same Poseidon
// transcript hash internal/circuit's in-circuit verifier uses.
func Verify(pub PublicKey, msg field.SigHash, sig Signature) (bool, error) {
	msgBytes := msg.Bytes()
	sigBytes := sig.inner.Bytes()
	ok, err := pub.inner.Verify(sigBytes, msgBytes[:], poseidon.NewDigest(poseidon.Sponge))
	if err != nil {
		return false, fmt.Errorf("eddsa: verify: %w", err)
	}
	return ok, nil
}

// Point returns the public key's affine coordinates as field elements,
// the form every downstream Poseidon/circuit call site consumes.
func (pub PublicKey) Point() (x, y field.Element) {
	return field.FromBigInt(pub.inner.A.X.BigInt(new(big.Int))), field.FromBigInt(pub.inner.A.Y.BigInt(new(big.Int)))
}

// RPoint returns a signature's nonce-commitment coordinates, the R half
// of the (R, S) pair the circuit re-derives the challenge from.
func (sig Signature) RPoint() (x, y field.Element) {
	return field.FromBigInt(sig.inner.R.X.BigInt(new(big.Int))), field.FromBigInt(sig.inner.R.Y.BigInt(new(big.Int)))
}

// S returns the signature's scalar half as a field element.
func (sig Signature) S() field.Element {
	var s big.Int
	s.SetBytes(sig.inner.S[:])
	return field.FromBigInt(&s)
}

// Bytes returns the canonical R||S encoding used for storage and the
// service-protocol wire format.
func (sig Signature) Bytes() []byte {
	return sig.inner.Bytes()
}

// SignatureFromBytes decodes the canonical R||S encoding.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig native.Signature
	if _, err := sig.SetBytes(b); err != nil {
		return Signature{}, fmt.Errorf("eddsa: decode signature: %w", err)
	}
	return Signature{inner: sig}, nil
}

// ScalarKey returns the private signing scalar reduced into the note
// engine's field. gnark-crypto encodes a private key as
// pubkey || scalar || randSrc, 32 bytes each. The reduction changes the
// scalar's value, so SharedSecret uses the unreduced scalar instead.
func (sk *PrivateKey) ScalarKey() field.Element {
	scalarBytes := sk.inner.Bytes()
	return field.FromBytesReduce(scalarBytes[32:64])
}

// SharedSecret computes the EdDSA-ECDH shared secret spec.md §4.8 requires:
// signing_key · receiver_pub_key on the embedded curve, SHA-512'd and
// truncated to 32 bytes. The same call on the receiver's side (scalar ·
// sender_pub_key) yields the identical secret by the Diffie-Hellman
// property, so internal/envelope never needs to distinguish sender/receiver.
func SharedSecret(sk *PrivateKey, peer PublicKey) []byte {
	skBytes := sk.inner.Bytes()
	scalar := new(big.Int).SetBytes(skBytes[32:64])
	var shared twistededwards.PointAffine
	shared.ScalarMultiplication(&peer.inner.A, scalar)
	xBytes := shared.X.Bytes()
	yBytes := shared.Y.Bytes()
	digest := sha512.Sum512(append(xBytes[:], yBytes[:]...))
	return digest[:32]
}
