package poseidon

import (
	"hash"

	"github.com/ivcnotes/core/internal/field"
)

// elementSize is the canonical encoding width of a field.Element, matching
// the chunking gnark-crypto's own SNARK-friendly hash.Hash adapters (e.g.
// fr/mimc) use: arbitrary Write calls are buffered and consumed in
// field-element-sized blocks.
const elementSize = 32

// digest implements the standard library hash.Hash interface over a
// Poseidon sponge, so internal/eddsa can plug it into gnark-crypto's
// generic eddsa.PrivateKey.Sign / PublicKey.Verify the same way the
// in-circuit gadget plugs into gnark/std/signature/eddsa.Verify.
type digest struct {
	cfg      *Config
	pending  []byte
	elements []field.Element
}

// NewDigest returns a hash.Hash backed by the given Poseidon configuration.
func NewDigest(cfg *Config) hash.Hash {
	return &digest{cfg: cfg}
}

func (d *digest) Write(p []byte) (int, error) {
	n := len(p)
	d.pending = append(d.pending, p...)
	for len(d.pending) >= elementSize {
		chunk := d.pending[:elementSize]
		d.elements = append(d.elements, field.FromBytesReduce(chunk))
		d.pending = d.pending[elementSize:]
	}
	return n, nil
}

func (d *digest) Sum(b []byte) []byte {
	elements := d.elements
	if len(d.pending) > 0 {
		padded := make([]byte, elementSize)
		copy(padded, d.pending)
		elements = append(elements, field.FromBytesReduce(padded))
	}
	out := Hash(d.cfg, elements...)
	digestBytes := out.Bytes()
	return append(b, digestBytes[:]...)
}

func (d *digest) Reset() {
	d.pending = nil
	d.elements = nil
}

func (d *digest) Size() int {
	return elementSize
}

func (d *digest) BlockSize() int {
	return elementSize
}
