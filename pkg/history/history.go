// Package history implements the note engine's append-only IVC chain and
// its end-to-end verification, spec.md §4.6/§C7. Grounded on the teacher's
// ShieldedPool.ProcessTransaction sequencing in the now-superseded
// internal/zkp/transaction.go: "check public preconditions, then verify the
// proof, then the state delta", generalized here from a single-transaction
// anchor check into a step-indexed fold over the whole chain.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/internal/poseidon"
	"github.com/ivcnotes/core/internal/prover"
	"github.com/ivcnotes/core/pkg/note"
)

var (
	// ErrStateMismatch covers every chain-consistency failure: a bad
	// issue-step precondition, a state_in/state_out disagreement, or a
	// final recomputed state that disagrees with the last step.
	ErrStateMismatch = errors.New("history: state mismatch")
	// ErrProofInvalid means a step's Groth16 proof failed verification
	// against its derived public inputs.
	ErrProofInvalid = errors.New("history: proof verification failed")
)

// IVCStep is one link of the chain: a proof plus the public state,
// nullifier, and sender it attests to (spec.md §3).
type IVCStep struct {
	ProofBytes []byte          `json:"proof"`
	StateOut   field.StateHash `json:"state_out"`
	Nullifier  field.Nullifier `json:"nullifier"`
	Sender     field.Address   `json:"sender"`
}

// NewIVCStep serializes a freshly produced proof into a step record.
func NewIVCStep(proof groth16.Proof, stateOut field.StateHash, nullifier field.Nullifier, sender field.Address) (IVCStep, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return IVCStep{}, fmt.Errorf("history: encode proof: %w", err)
	}
	return IVCStep{ProofBytes: buf.Bytes(), StateOut: stateOut, Nullifier: nullifier, Sender: sender}, nil
}

func (s IVCStep) proof() (groth16.Proof, error) {
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(s.ProofBytes)); err != nil {
		return nil, fmt.Errorf("history: decode proof: %w", err)
	}
	return p, nil
}

// NoteHistory is the append-only chain of IVC steps plus the current
// unspent note and its sibling (spec.md §3).
type NoteHistory struct {
	Asset       note.Asset          `json:"asset"`
	Steps       []IVCStep           `json:"steps"`
	CurrentNote note.Note           `json:"current_note"`
	Sibling     field.BlindNoteHash `json:"sibling"`
}

// Marshal encodes h as JSON (encoding/json), the encoding used for
// persistence and as the envelope payload (spec.md §4.8). It is not a
// binary encoding.
func (h NoteHistory) Marshal() ([]byte, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("history: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal parses the encoding Marshal produces.
func Unmarshal(data []byte) (*NoteHistory, error) {
	var h NoteHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("history: unmarshal: %w", err)
	}
	return &h, nil
}

// Verify implements spec.md §4.6 steps 1-5: recompute asset_hash, walk the
// chain re-deriving state_in from the previous state_out, verify each
// step's proof against its derived public inputs, then check the final
// recomputed state from (current_note, sibling) against the last step's
// state_out.
func (h *NoteHistory) Verify(ctx context.Context, vk groth16.VerifyingKey) error {
	if len(h.Steps) == 0 {
		return fmt.Errorf("%w: empty chain", ErrStateMismatch)
	}

	assetHash := h.Asset.Hash()
	stateIn := assetHash

	for i, step := range h.Steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if i == 0 {
			if !step.Nullifier.IsZero() {
				return fmt.Errorf("%w: issue step must carry a zero nullifier", ErrStateMismatch)
			}
			if !step.Sender.Equal(h.Asset.Issuer) {
				return fmt.Errorf("%w: issue step sender must equal the asset issuer", ErrStateMismatch)
			}
		}

		p, err := step.proof()
		if err != nil {
			return err
		}
		pub := prover.PublicInputs{
			AssetHash: assetHash,
			Sender:    step.Sender,
			StateIn:   stateIn,
			StateOut:  step.StateOut,
			Step:      uint32(i),
			Nullifier: step.Nullifier,
		}
		ok, err := prover.Verify(vk, p, pub)
		if err != nil {
			return fmt.Errorf("history: verify step %d: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("%w at step %d", ErrProofInvalid, i)
		}
		stateIn = step.StateOut
	}

	finalState, err := h.recomputeFinalState()
	if err != nil {
		return err
	}
	last := h.Steps[len(h.Steps)-1]
	if !finalState.Equal(last.StateOut) {
		return fmt.Errorf("%w: recomputed final state disagrees with the last step", ErrStateMismatch)
	}
	return nil
}

// recomputeFinalState re-derives the chain's terminal state from
// (current_note, sibling) per spec.md §3's issue/split rules, independent
// of anything the sender claimed inside the steps themselves.
func (h *NoteHistory) recomputeFinalState() (field.StateHash, error) {
	bh := h.CurrentNote.BlindHash()
	if h.CurrentNote.Step == 0 {
		return poseidon.Hash(poseidon.Compression, field.Zero(), bh), nil
	}
	switch h.CurrentNote.OutIndex {
	case note.Out0:
		return poseidon.Hash(poseidon.Compression, bh, h.Sibling), nil
	case note.Out1:
		return poseidon.Hash(poseidon.Compression, h.Sibling, bh), nil
	default:
		return field.Element{}, fmt.Errorf("%w: invalid out_index on current note", ErrStateMismatch)
	}
}
