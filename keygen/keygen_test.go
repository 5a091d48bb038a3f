package keygen

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateDecomposeRoundTrip(t *testing.T) {
	kg, err := NewKeyGenerator([]int64{1000, 3, 2, 70000})
	if err != nil {
		t.Fatal(err)
	}

	// widths: 10 + 2 + 1 + 17 = 30 bits -> 4 bytes
	if kg.KeySizeInBytes() != 4 {
		t.Fatalf("expected 4 byte key, got %d", kg.KeySizeInBytes())
	}

	surrogates := []int64{999, 2, 1, 65537}
	key, err := kg.Generate(surrogates)
	if err != nil {
		t.Fatal(err)
	}

	got, err := kg.Decompose(key)
	if err != nil {
		t.Fatal(err)
	}
	for i := range surrogates {
		if got[i] != surrogates[i] {
			t.Fatalf("dimension %d: expected %d got %d", i, surrogates[i], got[i])
		}
	}

	// re-encoding the decomposed surrogates must reproduce the key bit-for-bit
	key2, err := kg.Generate(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, key2) {
		t.Fatalf("re-encoded key %v does not match original %v", key2, key)
	}
}

func TestCardinalityOneDimension(t *testing.T) {
	kg, err := NewKeyGenerator([]int64{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	key, err := kg.Generate([]int64{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	got, err := kg.Decompose(key)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 surrogates, got %d", len(got))
	}
}

func TestKeyLengthMismatch(t *testing.T) {
	kg, err := NewKeyGenerator([]int64{100, 100})
	if err != nil {
		t.Fatal(err)
	}
	_, err = kg.Decompose([]byte{0x01})
	if !errors.Is(err, ErrKeyLength) {
		t.Fatalf("expected ErrKeyLength, got %v", err)
	}
}

func TestSurrogateOutOfRange(t *testing.T) {
	kg, err := NewKeyGenerator([]int64{4})
	if err != nil {
		t.Fatal(err)
	}
	_, err = kg.Generate([]int64{4})
	if !errors.Is(err, ErrSurrogateRange) {
		t.Fatalf("expected ErrSurrogateRange, got %v", err)
	}
}

func TestBadCardinality(t *testing.T) {
	_, err := NewKeyGenerator([]int64{10, 0})
	if !errors.Is(err, ErrBadCardinality) {
		t.Fatalf("expected ErrBadCardinality, got %v", err)
	}

	_, err = NewKeyGenerator(nil)
	if !errors.Is(err, ErrNoDimensions) {
		t.Fatalf("expected ErrNoDimensions, got %v", err)
	}
}
