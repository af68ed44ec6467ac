// Package circuit implements the single universal arithmetic relation
// spec.md §4.4 calls "the heart of the system": one circuit topology that
// serves both the root issue step and every subsequent split step, branch
// selected in-circuit by whether the public Step input is zero.
package circuit

import (
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	stdeddsa "github.com/consensys/gnark/std/signature/eddsa"

	"github.com/ivcnotes/core/internal/poseidon"
)

// maxUint64 is the range-check bound for every value that must fit in 64
// bits (spec.md §8 invariant 1).
var maxUint64, _ = new(big.Int).SetString("18446744073709551615", 10)

// NoteCircuit's public inputs, in the exact field-declaration order
// original_source/ivcnotes/src/circuit/cs.rs fixes: asset_hash, sender,
// state_in, state_out, step, nullifier. spec.md says canonical order
// matters for verifier compatibility; a future holder re-deriving public
// inputs (pkg/history) must agree on however gnark linearizes them, so the
// struct field order below is load-bearing, not cosmetic.
type NoteCircuit struct {
	AssetHash frontend.Variable `gnark:",public"`
	Sender    frontend.Variable `gnark:",public"`
	StateIn   frontend.Variable `gnark:",public"`
	StateOut  frontend.Variable `gnark:",public"`
	Step      frontend.Variable `gnark:",public"`
	Nullifier frontend.Variable `gnark:",public"`

	// Auxiliary (private) inputs, spec.md §4.4.
	Receiver     frontend.Variable
	PubKeyX      frontend.Variable
	PubKeyY      frontend.Variable
	SigRX        frontend.Variable
	SigRY        frontend.Variable
	SigS         frontend.Variable
	NullifierKey frontend.Variable
	ParentNote   frontend.Variable
	InputIndex   frontend.Variable
	ValueIn      frontend.Variable
	// ValueOut is value_out_1: the portion sent to the receiver.
	ValueOut  frontend.Variable
	Sibling   frontend.Variable
	BlindIn   frontend.Variable
	BlindOut0 frontend.Variable
	BlindOut1 frontend.Variable
}

// Define enforces the branch-selected relation of spec.md §4.4. A single
// circuit serves both branches so recipients verify a uniform sequence of
// steps (spec.md's own rationale for keying branch selection off step==0).
func (c *NoteCircuit) Define(api frontend.API) error {
	hasher := poseidon.NewGadget(api, poseidon.Compression)
	hashNote := func(assetHash, owner, value, step, parent, outIndex frontend.Variable) frontend.Variable {
		return hasher.Hash(assetHash, owner, value, step, parent, outIndex)
	}

	isIssue := api.IsZero(c.Step)

	// --- Issue branch (step == 0) ---
	issueNoteHash := hashNote(c.AssetHash, c.Receiver, c.ValueOut, 0, 0, 1)
	issueBlindHash := hasher.Hash(issueNoteHash, c.BlindOut1)
	issueStateOut := hasher.Hash(0, issueBlindHash)
	issueSigHash := hasher.Hash(0, 0, issueNoteHash)

	// --- Split branch (step > 0) ---
	api.AssertIsBoolean(c.InputIndex)

	splitStep := api.Sub(c.Step, 1)
	noteInHash := hashNote(c.AssetHash, c.Sender, c.ValueIn, splitStep, c.ParentNote, c.InputIndex)
	blindInHash := hasher.Hash(noteInHash, c.BlindIn)

	stateInAsOut0 := hasher.Hash(blindInHash, c.Sibling)
	stateInAsOut1 := hasher.Hash(c.Sibling, blindInHash)
	splitStateIn := api.Select(c.InputIndex, stateInAsOut1, stateInAsOut0)

	splitNullifier := hasher.Hash(noteInHash, c.NullifierKey)

	out1Hash := hashNote(c.AssetHash, c.Receiver, c.ValueOut, c.Step, blindInHash, 1)
	out1BlindHash := hasher.Hash(out1Hash, c.BlindOut1)

	valueOut0 := api.Sub(c.ValueIn, c.ValueOut)
	out0Hash := hashNote(c.AssetHash, c.Sender, valueOut0, c.Step, blindInHash, 0)
	out0BlindHash := hasher.Hash(out0Hash, c.BlindOut0)

	splitStateOut := hasher.Hash(out0BlindHash, out1BlindHash)
	splitSigHash := hasher.Hash(noteInHash, out0Hash, out1Hash)

	// value_out_0 + value_out_1 == value_in holds by construction
	// (valueOut0 is defined as the subtraction); range-check both outputs
	// fit in 64 bits, and that value_out_1 <= value_in (zero allowed for
	// value_out_0: a split may send the entire input value, keeping
	// nothing). On the issue branch ValueIn is zero and ValueOut carries the
	// issued value, so the subtraction wraps there: the checks that involve
	// it are gated to zero when step == 0.
	api.AssertIsLessOrEqual(c.ValueIn, maxUint64)
	api.AssertIsLessOrEqual(c.ValueOut, maxUint64)
	api.AssertIsLessOrEqual(api.Select(isIssue, 0, valueOut0), maxUint64)

	gatedValueOut := api.Select(isIssue, 0, c.ValueOut)
	gatedValueIn := api.Select(isIssue, 0, c.ValueIn)
	api.AssertIsLessOrEqual(gatedValueOut, gatedValueIn)

	// --- Selected outputs, asserted against the public inputs ---
	api.AssertIsEqual(c.StateIn, api.Select(isIssue, c.AssetHash, splitStateIn))
	api.AssertIsEqual(c.StateOut, api.Select(isIssue, issueStateOut, splitStateOut))
	api.AssertIsEqual(c.Nullifier, api.Select(isIssue, 0, splitNullifier))
	sigHash := api.Select(isIssue, issueSigHash, splitSigHash)

	// Identity-commitment binding holds in both branches (spec.md §4.4,
	// §8 invariant 4): Poseidon(nullifier_key, pub_key.x, pub_key.y) == sender.
	addressCommitment := hasher.Hash(c.NullifierKey, c.PubKeyX, c.PubKeyY)
	api.AssertIsEqual(addressCommitment, c.Sender)

	// EdDSA verification over the selected sig_hash, in both branches.
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return err
	}
	pub := stdeddsa.PublicKey{A: twistededwards.Point{X: c.PubKeyX, Y: c.PubKeyY}}
	sig := stdeddsa.Signature{R: twistededwards.Point{X: c.SigRX, Y: c.SigRY}, S: c.SigS}
	transcript := poseidon.NewFieldHasher(api, poseidon.Sponge)
	return stdeddsa.Verify(curve, sig, sigHash, pub, transcript)
}
