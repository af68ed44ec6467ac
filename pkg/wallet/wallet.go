// Package wallet orchestrates issue, split, and verify_incoming over the
// note engine's lower layers (spec.md §4.7, component C8). Grounded on the
// teacher's manager/orchestrator pairing — a long-lived struct holding
// shared services (prover, keys) whose methods compose them into one
// operation — seen in internal/zkp/disclosure.go's DisclosureManager and
// internal/zkp/transaction.go's ShieldedPool, both now superseded but kept
// as the grounding for this package's shape.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/rs/zerolog"

	"github.com/ivcnotes/core/internal/eddsa"
	"github.com/ivcnotes/core/internal/envelope"
	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/internal/poseidon"
	"github.com/ivcnotes/core/internal/prover"
	"github.com/ivcnotes/core/internal/walletlog"
	"github.com/ivcnotes/core/pkg/contact"
	"github.com/ivcnotes/core/pkg/history"
	"github.com/ivcnotes/core/pkg/note"
	"github.com/ivcnotes/core/pkg/tx"
)

// ErrInsufficientFunds is returned by Split when the requested value
// exceeds the current note's value (spec.md §4.7 step 1, §7).
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

func addressHash(nullifierKey field.NullifierKey, pubX, pubY field.Element) field.Address {
	return poseidon.Hash(poseidon.Compression, nullifierKey, pubX, pubY)
}

// Wallet ties one Auth's secrets to a prover and a contact book.
type Wallet struct {
	Auth     *Auth
	Prover   *prover.Prover
	Contacts *contact.AddressBook
	Spend    *Spendables

	log zerolog.Logger
}

// New builds a wallet around an already-derived Auth and a shared Prover
// (spec.md §5: pk/vk are immutable and freely shareable across wallets).
func New(auth *Auth, p *prover.Prover) *Wallet {
	return &Wallet{
		Auth:     auth,
		Prover:   p,
		Contacts: contact.NewAddressBook(),
		Spend:    NewSpendables(),
		log:      walletlog.Named("wallet"),
	}
}

func randomBlind(rng io.Reader) (field.Blind, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return field.Element{}, fmt.Errorf("wallet: draw blind: %w", err)
	}
	return field.FromBytesReduce(buf), nil
}

// Issue mints a new note of value for receiver under asset, as issuer (the
// caller's own address). spec.md §4.7 steps 1-5.
func (w *Wallet) Issue(ctx context.Context, rng io.Reader, asset note.Asset, value uint64, receiver contact.Contact) (*history.NoteHistory, error) {
	blind, err := randomBlind(rng)
	if err != nil {
		return nil, err
	}

	assetHash := asset.Hash()
	outputNote := note.Note{
		AssetHash:  assetHash,
		Owner:      receiver.Address,
		Value:      value,
		Step:       0,
		ParentNote: field.Zero(),
		OutIndex:   note.Out1,
		Blind:      blind,
	}

	issueTx := tx.IssueTx{Note: outputNote, Issuer: asset.Issuer}
	sealed, err := tx.Seal(issueTx, w.Auth.SigningKey)
	if err != nil {
		return nil, err
	}

	h := outputNote.Hash()
	bh := poseidon.Hash(poseidon.Compression, h, blind)
	stateOut := poseidon.Hash(poseidon.Compression, field.Zero(), bh)

	pubX, pubY := w.Auth.PublicKey.Point()
	sigRX, sigRY := sealed.Signature.RPoint()

	witness := prover.Witness{
		Public: prover.PublicInputs{
			AssetHash: assetHash,
			Sender:    asset.Issuer,
			StateIn:   assetHash,
			StateOut:  stateOut,
			Step:      0,
			Nullifier: field.Zero(),
		},
		Receiver:     receiver.Address,
		PubKeyX:      pubX,
		PubKeyY:      pubY,
		SigRX:        sigRX,
		SigRY:        sigRY,
		SigS:         sealed.Signature.S(),
		NullifierKey: w.Auth.NullifierKey,
		ParentNote:   field.Zero(),
		InputIndex:   0,
		ValueIn:      0,
		ValueOut:     value,
		Sibling:      field.Zero(),
		BlindIn:      field.Zero(),
		BlindOut0:    field.Zero(),
		BlindOut1:    blind,
	}

	proof, err := w.Prover.Prove(ctx, witness)
	if err != nil {
		return nil, fmt.Errorf("wallet: issue proof: %w", err)
	}

	step, err := history.NewIVCStep(proof, stateOut, field.Zero(), asset.Issuer)
	if err != nil {
		return nil, err
	}

	w.log.Info().Str("receiver", receiver.Username).Uint64("value", value).Msg("issued note")

	return &history.NoteHistory{
		Asset:       asset,
		Steps:       []history.IVCStep{step},
		CurrentNote: outputNote,
		Sibling:     field.Zero(),
	}, nil
}

// Split spends the spendable at index, sending value to receiver and
// keeping the remainder. On success the spendable at index is removed (the
// "logical deletion" of spec.md §9) and the kept history is appended at the
// end of the spendables list; on any
// failure the wallet's spendable set is left untouched (spec.md §5
// cancellation/failure guarantee). spec.md §4.7 steps 1-8.
func (w *Wallet) Split(ctx context.Context, rng io.Reader, index int, value uint64, receiver contact.Contact) (kept, sent *history.NoteHistory, err error) {
	current, err := w.Spend.At(index)
	if err != nil {
		return nil, nil, err
	}

	in := current.CurrentNote
	if value > in.Value {
		return nil, nil, fmt.Errorf("%w: have %d, requested %d", ErrInsufficientFunds, in.Value, value)
	}

	value0 := in.Value - value
	value1 := value
	parentBlind := in.BlindHash()
	nextStep := uint32(len(current.Steps))

	blind0, err := randomBlind(rng)
	if err != nil {
		return nil, nil, err
	}
	blind1, err := randomBlind(rng)
	if err != nil {
		return nil, nil, err
	}

	noteOut0 := note.Note{
		AssetHash:  in.AssetHash,
		Owner:      w.Auth.Address,
		Value:      value0,
		Step:       nextStep,
		ParentNote: parentBlind,
		OutIndex:   note.Out0,
		Blind:      blind0,
	}
	noteOut1 := note.Note{
		AssetHash:  in.AssetHash,
		Owner:      receiver.Address,
		Value:      value1,
		Step:       nextStep,
		ParentNote: parentBlind,
		OutIndex:   note.Out1,
		Blind:      blind1,
	}

	splitTx := tx.SplitTx{NoteIn: in, NoteOut0: noteOut0, NoteOut1: noteOut1}
	sealed, err := tx.SealSplit(splitTx, w.Auth.Address, receiver.Address, w.Auth.SigningKey, w.Auth.NullifierKey)
	if err != nil {
		return nil, nil, err
	}

	hIn := in.Hash()
	bhIn := poseidon.Hash(poseidon.Compression, hIn, in.Blind)
	var stateIn field.StateHash
	if in.OutIndex == note.Out0 {
		stateIn = poseidon.Hash(poseidon.Compression, bhIn, current.Sibling)
	} else {
		stateIn = poseidon.Hash(poseidon.Compression, current.Sibling, bhIn)
	}

	h0 := noteOut0.Hash()
	bh0 := poseidon.Hash(poseidon.Compression, h0, blind0)
	h1 := noteOut1.Hash()
	bh1 := poseidon.Hash(poseidon.Compression, h1, blind1)
	stateOut := poseidon.Hash(poseidon.Compression, bh0, bh1)

	pubX, pubY := w.Auth.PublicKey.Point()
	sigRX, sigRY := sealed.Signature.RPoint()

	witness := prover.Witness{
		Public: prover.PublicInputs{
			AssetHash: in.AssetHash,
			Sender:    w.Auth.Address,
			StateIn:   stateIn,
			StateOut:  stateOut,
			Step:      nextStep,
			Nullifier: sealed.Nullifier,
		},
		Receiver:     receiver.Address,
		PubKeyX:      pubX,
		PubKeyY:      pubY,
		SigRX:        sigRX,
		SigRY:        sigRY,
		SigS:         sealed.Signature.S(),
		NullifierKey: w.Auth.NullifierKey,
		ParentNote:   in.ParentNote,
		InputIndex:   uint8(in.OutIndex),
		ValueIn:      in.Value,
		ValueOut:     value,
		Sibling:      current.Sibling,
		BlindIn:      in.Blind,
		BlindOut0:    blind0,
		BlindOut1:    blind1,
	}

	proof, err := w.Prover.Prove(ctx, witness)
	if err != nil {
		return nil, nil, fmt.Errorf("wallet: split proof: %w", err)
	}

	step, err := history.NewIVCStep(proof, stateOut, sealed.Nullifier, w.Auth.Address)
	if err != nil {
		return nil, nil, err
	}

	newSteps := make([]history.IVCStep, len(current.Steps)+1)
	copy(newSteps, current.Steps)
	newSteps[len(current.Steps)] = step

	kept = &history.NoteHistory{Asset: current.Asset, Steps: newSteps, CurrentNote: noteOut0, Sibling: bh1}
	sent = &history.NoteHistory{Asset: current.Asset, Steps: newSteps, CurrentNote: noteOut1, Sibling: bh0}

	if err := w.Spend.RemoveAt(index); err != nil {
		return nil, nil, err
	}
	w.Spend.Add(kept)

	w.log.Info().Str("receiver", receiver.Username).Uint64("sent", value).Uint64("kept", value0).Msg("split note")

	return kept, sent, nil
}

// VerifyIncoming runs spec.md §4.6's chain verification and, on success,
// adds the history to spendables unless an equal current note is already
// held (silent-success dedup per spec.md §7).
func (w *Wallet) VerifyIncoming(ctx context.Context, nh *history.NoteHistory, vk groth16.VerifyingKey) (bool, error) {
	if err := nh.Verify(ctx, vk); err != nil {
		return false, err
	}
	if w.Spend.Contains(nh) {
		return false, nil
	}
	w.Spend.Add(nh)
	w.log.Info().Uint64("value", nh.CurrentNote.Value).Msg("accepted incoming note")
	return true, nil
}

// EncryptOutgoing seals a history for delivery to receiverPub, the
// envelope a caller hands to pkg/service's relay (spec.md §4.8).
func (w *Wallet) EncryptOutgoing(nh *history.NoteHistory, receiverPub eddsa.PublicKey) ([]byte, error) {
	return envelope.Encrypt(nh, w.Auth.SigningKey, receiverPub)
}

// DecryptIncoming opens an envelope from senderPub, producing the
// NoteHistory ready for VerifyIncoming.
func (w *Wallet) DecryptIncoming(ciphertext []byte, senderPub eddsa.PublicKey) (*history.NoteHistory, error) {
	return envelope.Decrypt(ciphertext, w.Auth.SigningKey, senderPub)
}
