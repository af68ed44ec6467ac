package wallet

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/ivcnotes/core/internal/eddsa"
	"github.com/ivcnotes/core/internal/field"
)

// Auth holds a wallet's exclusively-owned secrets: the seed, the derived
// nullifier key, and the EdDSA signing key, plus the shareable address and
// public key. spec.md §5: "each Auth exclusively owns its seed, nullifier
// key, and signing key; shareable material ... is copyable", and secrets
// must never cross wallet boundaries in plaintext.
type Auth struct {
	NullifierKey field.NullifierKey
	SigningKey   *eddsa.PrivateKey
	PublicKey    eddsa.PublicKey
	Address      field.Address
}

// NewAuth derives a wallet's identity from a 32-byte seed:
//
//	nullifier_key = reduce_to_field(SHA-512("nullifier" || seed))
//	signing key   = eddsa.GenerateKey over a seededReader stream keyed by
//	                SHA-512("eddsa" || seed)[:32]
//	address       = Poseidon(nullifier_key, pub_key.x, pub_key.y)
//
// The 32 truncated bytes are not used directly as the key: they seed the
// stream that gnark-crypto's key generation reads from.
func NewAuth(seed [32]byte) (*Auth, error) {
	nullifierDigest := sha512.Sum512(append([]byte("nullifier"), seed[:]...))
	nullifierKey := field.FromBytesReduce(nullifierDigest[:])

	signingDigest := sha512.Sum512(append([]byte("eddsa"), seed[:]...))
	signingSeed := signingDigest[:32]

	sk, err := eddsa.GenerateKey(newSeededReader(signingSeed))
	if err != nil {
		return nil, fmt.Errorf("wallet: derive signing key: %w", err)
	}
	pub := sk.Public()
	x, y := pub.Point()

	addressHasher := addressHash
	address := addressHasher(nullifierKey, x, y)

	return &Auth{
		NullifierKey: nullifierKey,
		SigningKey:   sk,
		PublicKey:    pub,
		Address:      address,
	}, nil
}

// seededReader is a deterministic counter-mode SHA-512 expanding stream,
// the same style of deterministic derivation internal/poseidon uses for
// its round constants, reused here so a fixed seed always yields the same
// wallet identity (spec.md §5's determinism requirement).
type seededReader struct {
	seed    []byte
	counter uint64
	buf     []byte
}

func newSeededReader(seed []byte) *seededReader {
	return &seededReader{seed: append([]byte{}, seed...)}
}

func (r *seededReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.buf) == 0 {
			var counterBytes [8]byte
			binary.BigEndian.PutUint64(counterBytes[:], r.counter)
			r.counter++
			block := sha512.Sum512(append(append([]byte{}, r.seed...), counterBytes[:]...))
			r.buf = append([]byte{}, block[:]...)
		}
		c := copy(p[n:], r.buf)
		r.buf = r.buf[c:]
		n += c
	}
	return n, nil
}
