// Package prover is a thin wrapper over gnark's Groth16 backend on BN254,
// generalized from the teacher's per-proof-type CircuitManager
// (internal/zkp/circuits.go in m1zr-ccoin) to the note engine's single
// NoteCircuit: there is exactly one proof type, so CircuitManager's
// per-type compiled-circuit map collapses to one (pk, vk) pair.
package prover

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/ivcnotes/core/internal/circuit"
	"github.com/ivcnotes/core/internal/field"
)

// PublicInputs mirrors NoteCircuit's public-input field order exactly:
// asset_hash, sender, state_in, state_out, step, nullifier.
type PublicInputs struct {
	AssetHash field.AssetHash
	Sender    field.Address
	StateIn   field.StateHash
	StateOut  field.StateHash
	Step      uint32
	Nullifier field.Nullifier
}

// Values returns the public inputs in canonical order, for callers that
// need to log or re-derive them independently of the circuit assignment
// machinery.
func (p PublicInputs) Values() [6]field.Element {
	return [6]field.Element{p.AssetHash, p.Sender, p.StateIn, p.StateOut, field.FromUint64(uint64(p.Step)), p.Nullifier}
}

func (p PublicInputs) assign(c *circuit.NoteCircuit) {
	c.AssetHash = p.AssetHash.BigInt()
	c.Sender = p.Sender.BigInt()
	c.StateIn = p.StateIn.BigInt()
	c.StateOut = p.StateOut.BigInt()
	c.Step = new(big.Int).SetUint64(uint64(p.Step))
	c.Nullifier = p.Nullifier.BigInt()
}

// Witness bundles the public inputs with every auxiliary (private) input
// NoteCircuit.Define needs, spec.md §4.4's aux-input list.
type Witness struct {
	Public PublicInputs

	Receiver     field.Address
	PubKeyX      field.Element
	PubKeyY      field.Element
	SigRX        field.Element
	SigRY        field.Element
	SigS         field.Element
	NullifierKey field.NullifierKey
	ParentNote   field.BlindNoteHash
	// InputIndex is 0 (Out0) or 1 (Out1); ignored by the issue branch.
	InputIndex uint8
	ValueIn    uint64
	// ValueOut is value_out_1, the portion sent to the receiver (also the
	// issued value on the issue branch).
	ValueOut  uint64
	Sibling   field.BlindNoteHash
	BlindIn   field.Blind
	BlindOut0 field.Blind
	BlindOut1 field.Blind
}

func (w Witness) assignment() *circuit.NoteCircuit {
	c := &circuit.NoteCircuit{}
	w.Public.assign(c)
	c.Receiver = w.Receiver.BigInt()
	c.PubKeyX = w.PubKeyX.BigInt()
	c.PubKeyY = w.PubKeyY.BigInt()
	c.SigRX = w.SigRX.BigInt()
	c.SigRY = w.SigRY.BigInt()
	c.SigS = w.SigS.BigInt()
	c.NullifierKey = w.NullifierKey.BigInt()
	c.ParentNote = w.ParentNote.BigInt()
	c.InputIndex = big.NewInt(int64(w.InputIndex))
	c.ValueIn = new(big.Int).SetUint64(w.ValueIn)
	c.ValueOut = new(big.Int).SetUint64(w.ValueOut)
	c.Sibling = w.Sibling.BigInt()
	c.BlindIn = w.BlindIn.BigInt()
	c.BlindOut0 = w.BlindOut0.BigInt()
	c.BlindOut1 = w.BlindOut1.BigInt()
	return c
}

// Prover holds the single compiled NoteCircuit's constraint system and
// Groth16 key pair. Immutable once built and safe to share across
// goroutines (spec.md §5's shared-resource policy).
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Setup compiles NoteCircuit and runs the Groth16 trusted setup.
func Setup() (*Prover, error) {
	var circ circuit.NoteCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circ)
	if err != nil {
		return nil, fmt.Errorf("prover: compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("prover: setup: %w", err)
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// VerifyingKey returns the verifying key half of the setup, for
// distribution to other holders.
func (p *Prover) VerifyingKey() groth16.VerifyingKey {
	return p.vk
}

// Prove builds the full witness and produces a Groth16 proof. ctx is
// checked between witness construction and the CPU-bound groth16.Prove
// call (spec.md §5: proof generation may be cancelled by the host without
// leaving partial wallet state — callers must not mutate wallet state
// until Prove returns successfully).
func (p *Prover) Prove(ctx context.Context, w Witness) (groth16.Proof, error) {
	assignment := w.assignment()
	full, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("prover: build witness: %w", err)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	proof, err := groth16.Prove(p.ccs, p.pk, full)
	if err != nil {
		return nil, fmt.Errorf("prover: prove: %w", err)
	}
	return proof, nil
}

// Verify checks a proof against vk and the given public inputs.
func Verify(vk groth16.VerifyingKey, proof groth16.Proof, pub PublicInputs) (bool, error) {
	assignment := &circuit.NoteCircuit{}
	pub.assign(assignment)
	full, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("prover: build public witness: %w", err)
	}
	if err := groth16.Verify(proof, vk, full); err != nil {
		return false, nil
	}
	return true, nil
}

// WriteProvingKey and WriteVerifyingKey serialize keys in gnark's own
// canonical compact form (spec.md §4.5).
func (p *Prover) WriteProvingKey(w io.Writer) (int64, error) {
	return p.pk.WriteTo(w)
}

func (p *Prover) WriteVerifyingKey(w io.Writer) (int64, error) {
	return p.vk.WriteTo(w)
}

// LoadVerifyingKey deserializes a verifying key with full subgroup checks.
func LoadVerifyingKey(r io.Reader) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("prover: read verifying key: %w", err)
	}
	return vk, nil
}

// LoadVerifyingKeyUnsafe deserializes a verifying key without the usual
// subgroup/validity checks. Permitted for performance per spec.md §4.5, but
// unsafe: only call this on keys from a source you already trust (e.g. a
// key you generated and stored yourself), never on keys received from an
// untrusted peer.
func LoadVerifyingKeyUnsafe(r io.Reader) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.UnsafeReadFrom(r); err != nil {
		return nil, fmt.Errorf("prover: unsafe read verifying key: %w", err)
	}
	return vk, nil
}
