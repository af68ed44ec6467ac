// Package contact implements the wallet's address book: known peers
// identified by username, with their address and public key for building
// transfers and encrypting envelopes. Supplemented from
// original_source/ivcnotes/src/address_book.rs (present in the original,
// trimmed by the distillation, not excluded by any Non-goal).
package contact

import (
	"fmt"
	"sync"

	"github.com/ivcnotes/core/internal/eddsa"
	"github.com/ivcnotes/core/internal/field"
)

// Contact is a known peer. Equality is on username (spec.md §3).
type Contact struct {
	Address   field.Address
	Username  string
	PublicKey eddsa.PublicKey
}

// Equal reports whether two contacts share a username.
func (c Contact) Equal(o Contact) bool {
	return c.Username == o.Username
}

// AddressBook is a wallet's username-keyed contact list.
type AddressBook struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

// NewAddressBook returns an empty address book.
func NewAddressBook() *AddressBook {
	return &AddressBook{contacts: make(map[string]Contact)}
}

// Add inserts or replaces the contact for c.Username.
func (b *AddressBook) Add(c Contact) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts[c.Username] = c
}

// Lookup returns the contact registered under username, if any.
func (b *AddressBook) Lookup(username string) (Contact, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contacts[username]
	return c, ok
}

// MustLookup is a convenience for callers that treat a missing contact as
// an error rather than a recoverable condition.
func (b *AddressBook) MustLookup(username string) (Contact, error) {
	c, ok := b.Lookup(username)
	if !ok {
		return Contact{}, fmt.Errorf("contact: unknown username %q", username)
	}
	return c, nil
}

// All returns every known contact, in no particular order.
func (b *AddressBook) All() []Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Contact, 0, len(b.contacts))
	for _, c := range b.contacts {
		out = append(out, c)
	}
	return out
}
