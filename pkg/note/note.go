// Package note implements the note-engine data model: assets, terms, notes,
// and their canonical commitments. Every hash here follows spec.md §3's
// exact field-element ordering, since a deviation in ordering silently
// breaks compatibility with any other implementation of the same circuit.
package note

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/internal/poseidon"
	"github.com/ivcnotes/core/pkg/common"
)

// NoteOutIndex selects which child of a split a note occupies. Earlier
// source revisions carried a third "Issue" variant for out_index 0; the
// normative form fixed by spec.md §9 forces issue notes to carry Out1 and
// drops the third variant entirely.
type NoteOutIndex uint8

const (
	Out0 NoteOutIndex = 0
	Out1 NoteOutIndex = 1
)

func (idx NoteOutIndex) String() string {
	if idx == Out0 {
		return "out0"
	}
	return "out1"
}

// Field returns the out_index as the field element the circuit and native
// hashing code both consume in position 6 of a note's sequence.
func (idx NoteOutIndex) Field() field.Element {
	return field.FromUint64(uint64(idx))
}

// Unit is the IOU terms' denomination: a small tag plus an optional numeric
// sub-code, matching original_source/ivcnotes/src/asset.rs's
// `Unit_USD`/`Unit_EUR`/`Unit_Custom(u32)` tagged-enum shape. Supplemented
// from the original; dropped by the spec.md distillation, not excluded by
// any Non-goal.
type Unit struct {
	Tag    uint8
	SubCode uint32
}

const (
	UnitUSD uint8 = iota
	UnitEUR
	UnitCustom
)

func (u Unit) String() string {
	switch u.Tag {
	case UnitUSD:
		return "USD"
	case UnitEUR:
		return "EUR"
	default:
		return fmt.Sprintf("CUSTOM(%d)", u.SubCode)
	}
}

// Terms is the single current Asset variant, IOU { maturity, unit }.
// spec.md §3: "the single current variant is IOU{maturity: u64, unit: Unit}".
type Terms struct {
	Maturity uint64
	Unit     Unit
}

// IsMature reports whether now has passed the terms' maturity timestamp.
// Purely informational: it does not gate any circuit or transfer rule, the
// circuit has no concept of time (SPEC_FULL.md §3).
func (t Terms) IsMature(now uint64) bool {
	return now >= t.Maturity
}

// bytes is the little-endian concatenation of Terms' numeric fields, the
// terms_bytes spec.md §3's asset_hash rule is built from. A multi-variant
// scheme would prepend a tag byte; there is exactly one variant today.
func (t Terms) bytes() []byte {
	buf := make([]byte, 0, 8+1+4)
	var maturityLE [8]byte
	binary.LittleEndian.PutUint64(maturityLE[:], t.Maturity)
	buf = append(buf, maturityLE[:]...)
	buf = append(buf, t.Unit.Tag)
	var subCodeLE [4]byte
	binary.LittleEndian.PutUint32(subCodeLE[:], t.Unit.SubCode)
	buf = append(buf, subCodeLE[:]...)
	return buf
}

// Asset is the issuer plus the terms governing every note minted from it.
type Asset struct {
	Issuer field.Address
	Terms  Terms
}

// Hash computes asset_hash = reduce_to_field(SHA-512(terms_bytes||issuer_bytes)).
// Outside the circuit deliberately: asset terms are never proven in-circuit
// (spec.md §4.2), so a cheap hash suffices here.
func (a Asset) Hash() field.AssetHash {
	issuerBytes := a.Issuer.Bytes()
	payload := append(a.Terms.bytes(), issuerBytes[:]...)
	digest := sha512.Sum512(payload)
	return field.FromBytesReduce(digest[:])
}

// Note is the unit of transfer: value, owner, and lineage.
type Note struct {
	AssetHash  field.AssetHash
	Owner      field.Address
	Value      uint64
	Step       uint32
	ParentNote field.BlindNoteHash
	OutIndex   NoteOutIndex
	Blind      field.Blind
}

// Sequence returns the canonical field-element ordering spec.md §3 fixes:
// [asset_hash, owner, value, step, parent_note, out_index_as_field].
func (n Note) Sequence() [6]field.Element {
	return [6]field.Element{
		n.AssetHash,
		n.Owner,
		field.FromUint64(n.Value),
		field.FromUint64(uint64(n.Step)),
		n.ParentNote,
		n.OutIndex.Field(),
	}
}

// Hash computes note_hash = Poseidon(Sequence()...).
func (n Note) Hash() field.NoteHash {
	seq := n.Sequence()
	return poseidon.Hash(poseidon.Compression, seq[0], seq[1], seq[2], seq[3], seq[4], seq[5])
}

// BlindHash computes blind_note_hash = Poseidon(note_hash, blind).
func (n Note) BlindHash() field.BlindNoteHash {
	return poseidon.Hash(poseidon.Compression, n.Hash(), n.Blind)
}

// String renders a short hex fingerprint for wallet CLIs/log lines, the
// pretty-printing original_source/ivcnotes/src/pretty.rs supplies.
func (n Note) String() string {
	h := n.Hash().Bytes()
	return fmt.Sprintf("note(owner=%s value=%d step=%d hash=%s…)", shortHex(n.Owner), n.Value, n.Step, common.BytesToHex(h[:4])[2:])
}

func shortHex(e field.Element) string {
	b := e.Bytes()
	return common.BytesToHex(b[:4]) + "…"
}
