// Package poseidon implements the Poseidon sponge used for every commitment
// in the note engine, both as a native (out-of-circuit) hash over
// internal/field.Element and as an in-circuit gnark gadget operating on
// frontend.Variable. The two share one constant-generation routine so a
// witness built natively and the same computation re-derived inside the
// circuit are guaranteed to agree.
//
// Parameters fixed by the note-engine specification: rate 2, capacity 1,
// 8 full rounds, 55 partial rounds, S-box x^5. Round constants and the MDS
// matrix are derived deterministically from a domain tag and the field
// modulus size, rather than taken from a fixed published constant table —
// the spec only requires internal self-consistency between the native and
// in-circuit permutations, not interop with another Poseidon instantiation.
package poseidon

import (
	"golang.org/x/crypto/sha3"

	"github.com/consensys/gnark/frontend"
	"github.com/ivcnotes/core/internal/field"
)

const (
	// Rate is the number of field elements absorbed/squeezed per block.
	Rate = 2
	// Capacity is the number of field elements reserved for sponge security.
	Capacity = 1
	// Width is the full internal state size, rate+capacity.
	Width = Rate + Capacity
	// FullRounds is the total number of full S-box rounds (split half
	// before, half after the partial rounds).
	FullRounds = 8
	// PartialRounds is the number of rounds where only the first lane
	// passes through the S-box.
	PartialRounds = 55

	totalRounds = FullRounds + PartialRounds
)

// Config holds the derived round constants and MDS matrix for one domain.
// A Config is immutable once built and safe to share across goroutines,
// matching spec.md §5's "Poseidon configurations are immutable and freely
// shareable" resource policy.
type Config struct {
	tag string
	rc  [totalRounds][Width]field.Element
	mds [Width][Width]field.Element
}

// Compression is the domain used for every fixed-arity commitment in §3:
// note_hash, blind_note_hash, state, nullifier, address, sig_hash.
var Compression = NewConfig("ivcnotes/poseidon/compression")

// Sponge is the domain used for the EdDSA challenge hash over R||A||M,
// which spec.md §4.1 calls out as a distinct, variable-rate configuration.
var Sponge = NewConfig("ivcnotes/poseidon/sponge")

// NewConfig derives a fresh Poseidon configuration for the given domain tag.
func NewConfig(tag string) *Config {
	cfg := &Config{tag: tag}

	stream := sha3.NewShake256()
	stream.Write([]byte("poseidon-round-constants:" + tag))
	buf := make([]byte, 32)
	next := func() field.Element {
		if _, err := stream.Read(buf); err != nil {
			panic("poseidon: constant stream exhausted: " + err.Error())
		}
		return field.FromBytesReduce(buf)
	}

	for r := 0; r < totalRounds; r++ {
		for i := 0; i < Width; i++ {
			cfg.rc[r][i] = next()
		}
	}

	// MDS via a Cauchy construction: M[i][j] = 1/(x_i + y_j), with x, y
	// drawn from an independent sub-stream so the matrix stays invertible
	// for any tag with overwhelming probability.
	mdsStream := sha3.NewShake256()
	mdsStream.Write([]byte("poseidon-mds:" + tag))
	mdsNext := func() field.Element {
		if _, err := mdsStream.Read(buf); err != nil {
			panic("poseidon: mds stream exhausted: " + err.Error())
		}
		return field.FromBytesReduce(buf)
	}

	var xs, ys [Width]field.Element
	for i := 0; i < Width; i++ {
		xs[i] = mdsNext()
		ys[i] = mdsNext()
	}
	for i := 0; i < Width; i++ {
		for j := 0; j < Width; j++ {
			denom := xs[i].Add(ys[j])
			if denom.IsZero() {
				panic("poseidon: degenerate Cauchy MDS entry for tag " + tag)
			}
			cfg.mds[i][j] = inverse(denom)
		}
	}

	return cfg
}

func inverse(e field.Element) field.Element {
	inv, ok := field.Inverse(e)
	if !ok {
		panic("poseidon: attempted to invert zero")
	}
	return inv
}

func sbox(e field.Element) field.Element {
	sq := e.Mul(e)
	quad := sq.Mul(sq)
	return quad.Mul(e)
}

// permute runs the full Poseidon permutation over a Width-wide state.
func (c *Config) permute(state [Width]field.Element) [Width]field.Element {
	half := FullRounds / 2
	for r := 0; r < totalRounds; r++ {
		for i := 0; i < Width; i++ {
			state[i] = state[i].Add(c.rc[r][i])
		}
		if r < half || r >= half+PartialRounds {
			for i := 0; i < Width; i++ {
				state[i] = sbox(state[i])
			}
		} else {
			state[0] = sbox(state[0])
		}

		var next [Width]field.Element
		for i := 0; i < Width; i++ {
			acc := field.Zero()
			for j := 0; j < Width; j++ {
				acc = acc.Add(c.mds[i][j].Mul(state[j]))
			}
			next[i] = acc
		}
		state = next
	}
	return state
}

// Hash absorbs inputs (any length, including the fixed 2/3/6-element
// sequences used by the data model) and squeezes a single field element.
// This is a sponge over a Rate=2 state, so §3's Poseidon(a, b) and §4.1's
// "variable-rate sponge consumes R||A||M" are the same primitive at two
// call sites.
func Hash(cfg *Config, inputs ...field.Element) field.Element {
	var state [Width]field.Element
	lane := 0
	for _, in := range inputs {
		state[lane] = state[lane].Add(in)
		lane++
		if lane == Rate {
			state = cfg.permute(state)
			lane = 0
		}
	}
	if lane != 0 || len(inputs) == 0 {
		state = cfg.permute(state)
	}
	return state[0]
}

// Gadget exposes the same permutation as a circuit constraint builder.
type Gadget struct {
	api frontend.API
	cfg *Config
}

// NewGadget binds a Config to a circuit's frontend.API.
func NewGadget(api frontend.API, cfg *Config) *Gadget {
	return &Gadget{api: api, cfg: cfg}
}

// Hash is the in-circuit counterpart of the package-level Hash function.
func (g *Gadget) Hash(inputs ...frontend.Variable) frontend.Variable {
	api := g.api
	var state [Width]frontend.Variable
	for i := range state {
		state[i] = frontend.Variable(0)
	}

	lane := 0
	for _, in := range inputs {
		state[lane] = api.Add(state[lane], in)
		lane++
		if lane == Rate {
			state = g.permute(state)
			lane = 0
		}
	}
	if lane != 0 || len(inputs) == 0 {
		state = g.permute(state)
	}
	return state[0]
}

// FieldHasher adapts Gadget to gnark std's hash.FieldHasher interface
// (Write/Sum/Reset), so it can be passed directly to
// gnark/std/signature/eddsa.Verify as the transcript hash for the
// challenge H(R, A, M) computed by internal/circuit.
type FieldHasher struct {
	gadget *Gadget
	buf    []frontend.Variable
}

// NewFieldHasher binds a stateful hasher to a circuit's API and config.
func NewFieldHasher(api frontend.API, cfg *Config) *FieldHasher {
	return &FieldHasher{gadget: NewGadget(api, cfg)}
}

// Write appends variables to the pending transcript.
func (h *FieldHasher) Write(data ...frontend.Variable) {
	h.buf = append(h.buf, data...)
}

// Sum hashes the accumulated transcript and returns the digest.
func (h *FieldHasher) Sum() frontend.Variable {
	return h.gadget.Hash(h.buf...)
}

// Reset clears the pending transcript so the hasher can be reused.
func (h *FieldHasher) Reset() {
	h.buf = nil
}

func (g *Gadget) permute(state [Width]frontend.Variable) [Width]frontend.Variable {
	api := g.api
	half := FullRounds / 2

	sboxVar := func(x frontend.Variable) frontend.Variable {
		sq := api.Mul(x, x)
		quad := api.Mul(sq, sq)
		return api.Mul(quad, x)
	}

	for r := 0; r < totalRounds; r++ {
		for i := 0; i < Width; i++ {
			state[i] = api.Add(state[i], g.cfg.rc[r][i].BigInt())
		}
		if r < half || r >= half+PartialRounds {
			for i := 0; i < Width; i++ {
				state[i] = sboxVar(state[i])
			}
		} else {
			state[0] = sboxVar(state[0])
		}

		var next [Width]frontend.Variable
		for i := 0; i < Width; i++ {
			acc := frontend.Variable(0)
			for j := 0; j < Width; j++ {
				acc = api.Add(acc, api.Mul(g.cfg.mds[i][j].BigInt(), state[j]))
			}
			next[i] = acc
		}
		state = next
	}
	return state
}
