package wallet

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/internal/prover"
	"github.com/ivcnotes/core/pkg/contact"
	"github.com/ivcnotes/core/pkg/history"
	"github.com/ivcnotes/core/pkg/note"
)

func newWallet(t *testing.T, p *prover.Prover, seedByte byte) *Wallet {
	t.Helper()
	var seed [32]byte
	seed[0] = seedByte
	auth, err := NewAuth(seed)
	if err != nil {
		t.Fatalf("derive auth: %v", err)
	}
	return New(auth, p)
}

func TestNewAuthIsDeterministic(t *testing.T) {
	var seed [32]byte
	seed[0] = 9
	a, err := NewAuth(seed)
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, err := NewAuth(seed)
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if !a.Address.Equal(b.Address) {
		t.Error("the same seed should always derive the same address")
	}
}

func TestNewAuthDiffersAcrossSeeds(t *testing.T) {
	var seedA, seedB [32]byte
	seedA[0], seedB[0] = 1, 2
	a, err := NewAuth(seedA)
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, err := NewAuth(seedB)
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if a.Address.Equal(b.Address) {
		t.Error("distinct seeds should derive distinct addresses")
	}
}

func TestIssueThenSplitThenVerify(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()

	alice := newWallet(t, p, 1)
	bob := newWallet(t, p, 2)

	aliceContact := contact.Contact{Address: alice.Auth.Address, Username: "alice", PublicKey: alice.Auth.PublicKey}
	bobContact := contact.Contact{Address: bob.Auth.Address, Username: "bob", PublicKey: bob.Auth.PublicKey}
	alice.Contacts.Add(bobContact)
	bob.Contacts.Add(aliceContact)

	asset := note.Asset{Issuer: alice.Auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}

	issued, err := alice.Issue(ctx, rand.Reader, asset, 100, aliceContact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	alice.Spend.Add(issued)

	if alice.Spend.Balance() != 100 {
		t.Fatalf("expected balance 100 after issue, got %d", alice.Spend.Balance())
	}

	kept, sent, err := alice.Split(ctx, rand.Reader, 0, 40, bobContact)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if kept.CurrentNote.Value != 60 {
		t.Errorf("expected alice to keep 60, got %d", kept.CurrentNote.Value)
	}
	if sent.CurrentNote.Value != 40 {
		t.Errorf("expected 40 sent to bob, got %d", sent.CurrentNote.Value)
	}
	if alice.Spend.Balance() != 60 {
		t.Errorf("alice's spendable balance should be 60 after the split, got %d", alice.Spend.Balance())
	}

	envelope, err := alice.EncryptOutgoing(sent, bob.Auth.PublicKey)
	if err != nil {
		t.Fatalf("encrypt outgoing: %v", err)
	}
	received, err := bob.DecryptIncoming(envelope, alice.Auth.PublicKey)
	if err != nil {
		t.Fatalf("decrypt incoming: %v", err)
	}

	accepted, err := bob.VerifyIncoming(ctx, received, p.VerifyingKey())
	if err != nil {
		t.Fatalf("verify incoming: %v", err)
	}
	if !accepted {
		t.Error("a freshly received, previously unseen note should be accepted")
	}
	if bob.Spend.Balance() != 40 {
		t.Errorf("bob's balance should be 40 after accepting, got %d", bob.Spend.Balance())
	}

	// Re-delivering the same history should be a silent no-op (spec's
	// dedup/idempotency requirement), not a double-credit.
	acceptedAgain, err := bob.VerifyIncoming(ctx, received, p.VerifyingKey())
	if err != nil {
		t.Fatalf("verify incoming (replay): %v", err)
	}
	if acceptedAgain {
		t.Error("re-delivering an already-held note history should not be accepted twice")
	}
	if bob.Spend.Balance() != 40 {
		t.Errorf("bob's balance should still be 40 after the replay, got %d", bob.Spend.Balance())
	}
}

func TestSplitRejectsInsufficientFunds(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()
	alice := newWallet(t, p, 3)
	bob := newWallet(t, p, 4)
	bobContact := contact.Contact{Address: bob.Auth.Address, Username: "bob", PublicKey: bob.Auth.PublicKey}
	aliceContact := contact.Contact{Address: alice.Auth.Address, Username: "alice", PublicKey: alice.Auth.PublicKey}

	asset := note.Asset{Issuer: alice.Auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}
	issued, err := alice.Issue(ctx, rand.Reader, asset, 10, aliceContact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	alice.Spend.Add(issued)

	if _, _, err := alice.Split(ctx, rand.Reader, 0, 50, bobContact); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if alice.Spend.Balance() != 10 {
		t.Error("a rejected split must not mutate the wallet's spendables")
	}
}

func TestSplitOutOfRangeIndex(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	alice := newWallet(t, p, 5)
	bob := newWallet(t, p, 6)
	bobContact := contact.Contact{Address: bob.Auth.Address, Username: "bob"}

	if _, _, err := alice.Split(context.Background(), rand.Reader, 0, 1, bobContact); err == nil {
		t.Error("splitting with no spendables should return an error, not panic")
	}
}

// TestChainOfSplits exercises a multi-hop chain: w0 issues 1000 to w1; w1
// splits 800 to w2 (keeps 200); w2 splits 700 to w3 (keeps 100). Each
// intermediate step's sender must equal the wallet that performed that
// split, and nullifiers across the chain must differ pairwise.
func TestChainOfSplits(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()

	w0 := newWallet(t, p, 21)
	w1 := newWallet(t, p, 22)
	w2 := newWallet(t, p, 23)
	w3 := newWallet(t, p, 24)

	w1Contact := contact.Contact{Address: w1.Auth.Address, Username: "w1", PublicKey: w1.Auth.PublicKey}
	w2Contact := contact.Contact{Address: w2.Auth.Address, Username: "w2", PublicKey: w2.Auth.PublicKey}
	w3Contact := contact.Contact{Address: w3.Auth.Address, Username: "w3", PublicKey: w3.Auth.PublicKey}

	asset := note.Asset{Issuer: w0.Auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}
	issued, err := w0.Issue(ctx, rand.Reader, asset, 1000, w1Contact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w1.Spend.Add(issued)

	kept1, sent1, err := w1.Split(ctx, rand.Reader, 0, 800, w2Contact)
	if err != nil {
		t.Fatalf("w1 split: %v", err)
	}
	w2.Spend.Add(sent1)

	kept2, sent2, err := w2.Split(ctx, rand.Reader, 0, 700, w3Contact)
	if err != nil {
		t.Fatalf("w2 split: %v", err)
	}
	w3.Spend.Add(sent2)

	if kept1.CurrentNote.Value != 200 {
		t.Errorf("w1 should keep 200, got %d", kept1.CurrentNote.Value)
	}
	if kept2.CurrentNote.Value != 100 {
		t.Errorf("w2 should keep 100, got %d", kept2.CurrentNote.Value)
	}
	if sent2.CurrentNote.Value != 700 {
		t.Errorf("w3 should hold 700, got %d", sent2.CurrentNote.Value)
	}
	if len(sent2.Steps) != 3 {
		t.Fatalf("w3's history should have 3 steps, got %d", len(sent2.Steps))
	}
	if !sent2.Steps[1].Sender.Equal(w1.Auth.Address) {
		t.Error("the first split's step sender should be w1")
	}
	if !sent2.Steps[2].Sender.Equal(w2.Auth.Address) {
		t.Error("the second split's step sender should be w2")
	}
	if sent2.Steps[1].Nullifier.Equal(sent2.Steps[2].Nullifier) {
		t.Error("nullifiers from different splits in the chain must differ")
	}

	if err := sent2.Verify(ctx, p.VerifyingKey()); err != nil {
		t.Errorf("the full 3-step chain should verify, got: %v", err)
	}
}

// TestDoubleSpendSameParentProducesSameNullifier models W1 splitting the
// same parent note twice, to two different recipients: both resulting
// histories must verify individually, and both must carry the identical
// nullifier so a registry consulting both sees the collision.
func TestDoubleSpendSameParentProducesSameNullifier(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()

	var seed [32]byte
	seed[0] = 31
	auth, err := NewAuth(seed)
	if err != nil {
		t.Fatalf("derive auth: %v", err)
	}
	w1a := New(auth, p)
	w1b := New(auth, p) // the same identity, two independent spendable sets

	w2 := newWallet(t, p, 32)
	w3 := newWallet(t, p, 33)
	w1Contact := contact.Contact{Address: auth.Address, Username: "w1", PublicKey: auth.PublicKey}
	w2Contact := contact.Contact{Address: w2.Auth.Address, Username: "w2", PublicKey: w2.Auth.PublicKey}
	w3Contact := contact.Contact{Address: w3.Auth.Address, Username: "w3", PublicKey: w3.Auth.PublicKey}

	asset := note.Asset{Issuer: auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}
	issued, err := w1a.Issue(ctx, rand.Reader, asset, 1000, w1Contact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w1a.Spend.Add(issued)
	w1b.Spend.Add(issued)

	_, sentTo2, err := w1a.Split(ctx, rand.Reader, 0, 500, w2Contact)
	if err != nil {
		t.Fatalf("split to w2: %v", err)
	}
	_, sentTo3, err := w1b.Split(ctx, rand.Reader, 0, 500, w3Contact)
	if err != nil {
		t.Fatalf("split to w3: %v", err)
	}

	if err := sentTo2.Verify(ctx, p.VerifyingKey()); err != nil {
		t.Errorf("the split sent to w2 should verify individually, got: %v", err)
	}
	if err := sentTo3.Verify(ctx, p.VerifyingKey()); err != nil {
		t.Errorf("the split sent to w3 should verify individually, got: %v", err)
	}

	n2 := sentTo2.Steps[len(sentTo2.Steps)-1].Nullifier
	n3 := sentTo3.Steps[len(sentTo3.Steps)-1].Nullifier
	if !n2.Equal(n3) {
		t.Error("both splits from the same parent note must produce the same nullifier")
	}
}

// TestForgedStepInMultiStepChainFailsVerification corrupts the last step's
// state_out in a valid 2-step history; verification must fail exactly at
// that step rather than anywhere else in the chain.
func TestForgedStepInMultiStepChainFailsVerification(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()

	w1 := newWallet(t, p, 41)
	w2 := newWallet(t, p, 42)
	w1Contact := contact.Contact{Address: w1.Auth.Address, Username: "w1", PublicKey: w1.Auth.PublicKey}
	w2Contact := contact.Contact{Address: w2.Auth.Address, Username: "w2", PublicKey: w2.Auth.PublicKey}

	asset := note.Asset{Issuer: w1.Auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}
	issued, err := w1.Issue(ctx, rand.Reader, asset, 1000, w1Contact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w1.Spend.Add(issued)

	_, sent, err := w1.Split(ctx, rand.Reader, 0, 400, w2Contact)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(sent.Steps) != 2 {
		t.Fatalf("expected a 2-step history, got %d", len(sent.Steps))
	}

	sent.Steps[len(sent.Steps)-1].StateOut = field.FromUint64(13)

	if err := sent.Verify(ctx, p.VerifyingKey()); !errors.Is(err, history.ErrProofInvalid) {
		t.Errorf("a corrupted state_out in the last step should fail proof verification, got: %v", err)
	}
}

// TestWrongOwnerCannotFurtherSplit models spec's mis-delivery scenario: an
// issue intended for w1 is re-encrypted for w2. w2 can decrypt and verify
// it (ownership is not a circuit invariant for issue), but cannot further
// split it, since the identity-commitment binding requires
// Poseidon(nullifier_key, pub.x, pub.y) == current_note.owner, which only
// w1's keys satisfy.
func TestWrongOwnerCannotFurtherSplit(t *testing.T) {
	p, err := prover.Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx := context.Background()

	w1 := newWallet(t, p, 51)
	w2 := newWallet(t, p, 52)
	w1Contact := contact.Contact{Address: w1.Auth.Address, Username: "w1", PublicKey: w1.Auth.PublicKey}

	asset := note.Asset{Issuer: w1.Auth.Address, Terms: note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}}}
	issued, err := w1.Issue(ctx, rand.Reader, asset, 1000, w1Contact)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	envelope, err := w1.EncryptOutgoing(issued, w2.Auth.PublicKey)
	if err != nil {
		t.Fatalf("encrypt outgoing: %v", err)
	}
	received, err := w2.DecryptIncoming(envelope, w1.Auth.PublicKey)
	if err != nil {
		t.Fatalf("decrypt incoming: %v", err)
	}

	accepted, err := w2.VerifyIncoming(ctx, received, p.VerifyingKey())
	if err != nil {
		t.Fatalf("verify incoming: %v", err)
	}
	if !accepted {
		t.Fatal("ownership is not a circuit invariant for issue: w2 should accept the misdelivered note")
	}

	if _, _, err := w2.Split(ctx, rand.Reader, 0, 100, w1Contact); err == nil {
		t.Error("w2 should not be able to further split a note whose owner is still w1")
	}
}
