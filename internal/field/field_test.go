package field

import (
	"math/big"
	"testing"
)

func TestFromUint64RoundTrip(t *testing.T) {
	e := FromUint64(42)
	if e.BigInt().Cmp(big.NewInt(42)) != 0 {
		t.Errorf("expected 42, got %s", e.BigInt().String())
	}
}

func TestZeroIsZero(t *testing.T) {
	if !Zero().IsZero() {
		t.Error("Zero() should report IsZero")
	}
	if One().IsZero() {
		t.Error("One() should not report IsZero")
	}
}

func TestEqual(t *testing.T) {
	a := FromUint64(7)
	b := FromUint64(7)
	c := FromUint64(8)
	if !a.Equal(b) {
		t.Error("equal values should compare equal")
	}
	if a.Equal(c) {
		t.Error("different values should not compare equal")
	}
}

func TestAddSubMul(t *testing.T) {
	a := FromUint64(5)
	b := FromUint64(3)
	if !a.Add(b).Equal(FromUint64(8)) {
		t.Error("5 + 3 should be 8")
	}
	if !a.Sub(b).Equal(FromUint64(2)) {
		t.Error("5 - 3 should be 2")
	}
	if !a.Mul(b).Equal(FromUint64(15)) {
		t.Error("5 * 3 should be 15")
	}
}

func TestInverse(t *testing.T) {
	a := FromUint64(1234567)
	inv, ok := Inverse(a)
	if !ok {
		t.Fatal("nonzero element should be invertible")
	}
	if !a.Mul(inv).Equal(One()) {
		t.Error("a * a^-1 should equal 1")
	}

	if _, ok := Inverse(Zero()); ok {
		t.Error("zero should not be invertible")
	}
}

func TestFromBytesReduce(t *testing.T) {
	modulus := Modulus()
	over := new(big.Int).Add(modulus, big.NewInt(5))
	e := FromBytesReduce(over.Bytes())
	if !e.Equal(FromUint64(5)) {
		t.Errorf("expected reduction to 5, got %s", e.String())
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := FromUint64(987654321)
	b := a.Bytes()
	recovered := FromBytesReduce(b[:])
	if !a.Equal(recovered) {
		t.Error("Bytes/FromBytesReduce should round-trip")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := FromUint64(0xdeadbeef)
	data, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var b Element
	if err := b.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.Equal(b) {
		t.Error("JSON round trip should preserve the value")
	}
}

func TestUnmarshalJSONRejectsGarbage(t *testing.T) {
	var e Element
	if err := e.UnmarshalJSON([]byte("not-quoted")); err == nil {
		t.Error("expected an error for a non-string JSON value")
	}
}
