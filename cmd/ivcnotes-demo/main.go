// ivcnotes-demo is a runnable demonstration of the note engine: it issues a
// note, transfers part of it, and verifies the result, entirely in-process
// (no network, no persistence). It is not the external CLI collaborator of
// spec.md §6 — that CLI is assumed to exist elsewhere, persisting
// credentials and talking to a real relay. Grounded on the teacher's
// switch/case command dispatch in cmd/ccoin-cli/main.go.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/ivcnotes/core/internal/prover"
	"github.com/ivcnotes/core/internal/walletlog"
	"github.com/ivcnotes/core/pkg/contact"
	"github.com/ivcnotes/core/pkg/note"
	"github.com/ivcnotes/core/pkg/wallet"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("ivcnotes-demo v%s\n", version)
	case "help":
		printUsage()
	case "run":
		if err := runDemo(); err != nil {
			fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ivcnotes-demo - runnable demonstration of the note engine")
	fmt.Println()
	fmt.Println("Usage: ivcnotes-demo <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      Issue, transfer, and verify a note between two in-process wallets")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
}

// runDemo walks issue -> split -> verify_incoming across two wallets
// sharing one trusted setup, exercising Issue, Split, EncryptOutgoing,
// DecryptIncoming, and VerifyIncoming end to end.
func runDemo() error {
	log := walletlog.Named("demo")
	ctx := context.Background()

	log.Info().Msg("running Groth16 trusted setup for NoteCircuit")
	p, err := prover.Setup()
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	var aliceSeed, bobSeed [32]byte
	if _, err := rand.Read(aliceSeed[:]); err != nil {
		return fmt.Errorf("seed alice: %w", err)
	}
	if _, err := rand.Read(bobSeed[:]); err != nil {
		return fmt.Errorf("seed bob: %w", err)
	}

	aliceAuth, err := wallet.NewAuth(aliceSeed)
	if err != nil {
		return fmt.Errorf("derive alice: %w", err)
	}
	bobAuth, err := wallet.NewAuth(bobSeed)
	if err != nil {
		return fmt.Errorf("derive bob: %w", err)
	}

	alice := wallet.New(aliceAuth, p)
	bob := wallet.New(bobAuth, p)

	bobContact := contact.Contact{Address: bobAuth.Address, Username: "bob", PublicKey: bobAuth.PublicKey}
	aliceContact := contact.Contact{Address: aliceAuth.Address, Username: "alice", PublicKey: aliceAuth.PublicKey}
	alice.Contacts.Add(bobContact)
	bob.Contacts.Add(aliceContact)

	asset := note.Asset{
		Issuer: aliceAuth.Address,
		Terms:  note.Terms{Maturity: 0, Unit: note.Unit{Tag: note.UnitUSD}},
	}

	log.Info().Msg("alice issues a 100-unit note to herself")
	issued, err := alice.Issue(ctx, rand.Reader, asset, 100, aliceContact)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	alice.Spend.Add(issued)

	log.Info().Msg("alice sends 40 units to bob, keeping 60")
	kept, sent, err := alice.Split(ctx, rand.Reader, 0, 40, bobContact)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	envelope, err := alice.EncryptOutgoing(sent, bobAuth.PublicKey)
	if err != nil {
		return fmt.Errorf("encrypt envelope: %w", err)
	}

	received, err := bob.DecryptIncoming(envelope, aliceAuth.PublicKey)
	if err != nil {
		return fmt.Errorf("decrypt envelope: %w", err)
	}

	accepted, err := bob.VerifyIncoming(ctx, received, p.VerifyingKey())
	if err != nil {
		return fmt.Errorf("verify incoming: %w", err)
	}

	fmt.Printf("alice kept:   %s\n", kept.CurrentNote.String())
	fmt.Printf("bob received: %s (newly accepted: %v)\n", received.CurrentNote.String(), accepted)
	fmt.Printf("alice balance: %d, bob balance: %d\n", alice.Spend.Balance(), bob.Spend.Balance())
	return nil
}
