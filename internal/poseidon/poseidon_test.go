package poseidon

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"

	"github.com/ivcnotes/core/internal/field"
)

func TestHashDeterministic(t *testing.T) {
	a, b := field.FromUint64(1), field.FromUint64(2)
	h1 := Hash(Compression, a, b)
	h2 := Hash(Compression, a, b)
	if !h1.Equal(h2) {
		t.Error("hashing the same inputs twice should give the same digest")
	}
}

func TestHashDiffersOnOrder(t *testing.T) {
	a, b := field.FromUint64(1), field.FromUint64(2)
	if Hash(Compression, a, b).Equal(Hash(Compression, b, a)) {
		t.Error("Poseidon(a, b) should differ from Poseidon(b, a) in general")
	}
}

func TestHashDiffersByDomain(t *testing.T) {
	a, b := field.FromUint64(1), field.FromUint64(2)
	if Hash(Compression, a, b).Equal(Hash(Sponge, a, b)) {
		t.Error("distinct domain tags should yield distinct configs/digests with overwhelming probability")
	}
}

func TestHashVariableArity(t *testing.T) {
	one := field.FromUint64(1)
	h2 := Hash(Compression, one, one)
	h6 := Hash(Compression, one, one, one, one, one, one)
	if h2.Equal(h6) {
		t.Error("hashing 2 vs 6 elements should not collide trivially")
	}
}

// hashCircuit exercises the Gadget against the package-level native Hash,
// the same prover-succeeds pattern other_examples/.../circuits-poseidon_test.go.go
// uses for its own Poseidon gadget.
type hashCircuit struct {
	A, B frontend.Variable
	Hash frontend.Variable `gnark:",public"`
}

func (c *hashCircuit) Define(api frontend.API) error {
	g := NewGadget(api, Compression)
	h := g.Hash(c.A, c.B)
	api.AssertIsEqual(h, c.Hash)
	return nil
}

func TestGadgetMatchesNative(t *testing.T) {
	a, b := field.FromUint64(11), field.FromUint64(22)
	want := Hash(Compression, a, b)

	assert := test.NewAssert(t)
	var circuit hashCircuit
	assert.ProverSucceeded(&circuit, &hashCircuit{
		A:    a.BigInt(),
		B:    b.BigInt(),
		Hash: want.BigInt(),
	}, test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	if _, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit); err != nil {
		t.Fatalf("compile: %v", err)
	}
}

func TestGadgetRejectsWrongHash(t *testing.T) {
	a, b := field.FromUint64(11), field.FromUint64(22)
	wrong := Hash(Compression, a, field.FromUint64(23))

	assert := test.NewAssert(t)
	var circuit hashCircuit
	assert.ProverFailed(&circuit, &hashCircuit{
		A:    a.BigInt(),
		B:    b.BigInt(),
		Hash: wrong.BigInt(),
	}, test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}
