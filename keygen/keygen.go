package keygen

import (
	"errors"
	"fmt"
	"math/bits"
)

type (
	// KeyGenerator packs and unpacks the composite dimension key. Each
	// dictionary-style dimension occupies a fixed bit width derived from its
	// cardinality at encoding time, in declared dimension order, MSB first.
	//
	// The width table must come from the same segment properties the encoder
	// used: a drifted table produces garbage surrogates with no error signal.
	KeyGenerator struct {
		bitWidths []int
		totalBits int
		keyBytes  int
	}
)

var (
	ErrNoDimensions   = errors.New("key generator requires at least one dictionary dimension")
	ErrBadCardinality = errors.New("dimension cardinality must be positive")
	ErrKeyLength      = errors.New("packed key length does not match width table")
	ErrSurrogateRange = errors.New("surrogate does not fit in dimension bit width")
	ErrSurrogateCount = errors.New("surrogate count does not match dimension count")
)

// NewKeyGenerator builds a generator from per-dimension cardinalities in
// declared dictionary-dimension order.
func NewKeyGenerator(cardinalities []int64) (*KeyGenerator, error) {
	if len(cardinalities) == 0 {
		return nil, ErrNoDimensions
	}
	kg := &KeyGenerator{
		bitWidths: make([]int, len(cardinalities)),
	}
	for i, card := range cardinalities {
		if card <= 0 {
			return nil, fmt.Errorf("dimension %d cardinality %d: %w", i, card, ErrBadCardinality)
		}
		width := bits.Len64(uint64(card - 1))
		if width == 0 {
			// cardinality 1 still occupies one bit
			width = 1
		}
		kg.bitWidths[i] = width
		kg.totalBits += width
	}
	kg.keyBytes = (kg.totalBits + 7) / 8
	return kg, nil
}

func (kg *KeyGenerator) KeySizeInBytes() int {
	return kg.keyBytes
}

func (kg *KeyGenerator) DimensionCount() int {
	return len(kg.bitWidths)
}

// Generate packs one surrogate per dictionary dimension into the composite
// key. This is the encoder's packing, kept here so Decompose can be verified
// against it bit-for-bit.
func (kg *KeyGenerator) Generate(surrogates []int64) ([]byte, error) {
	if len(surrogates) != len(kg.bitWidths) {
		return nil, fmt.Errorf("got %d surrogates for %d dimensions: %w", len(surrogates), len(kg.bitWidths), ErrSurrogateCount)
	}
	key := make([]byte, kg.keyBytes)
	bitPos := 0
	for i, surrogate := range surrogates {
		width := kg.bitWidths[i]
		if surrogate < 0 || (width < 64 && surrogate >= int64(1)<<width) {
			return nil, fmt.Errorf("surrogate %d in dimension %d (width %d): %w", surrogate, i, width, ErrSurrogateRange)
		}
		for b := width - 1; b >= 0; b-- {
			if surrogate&(int64(1)<<b) != 0 {
				key[bitPos/8] |= 1 << (7 - bitPos%8)
			}
			bitPos++
		}
	}
	return key, nil
}

// Decompose expands a packed composite key into one integer surrogate per
// dictionary dimension, in declared order. It exactly inverts Generate.
func (kg *KeyGenerator) Decompose(key []byte) ([]int64, error) {
	if len(key) != kg.keyBytes {
		return nil, fmt.Errorf("key is %d bytes, width table needs %d: %w", len(key), kg.keyBytes, ErrKeyLength)
	}
	surrogates := make([]int64, len(kg.bitWidths))
	bitPos := 0
	for i, width := range kg.bitWidths {
		var v int64
		for b := 0; b < width; b++ {
			v <<= 1
			if key[bitPos/8]&(1<<(7-bitPos%8)) != 0 {
				v |= 1
			}
			bitPos++
		}
		surrogates[i] = v
	}
	return surrogates, nil
}
