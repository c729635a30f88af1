package murmur

import (
	"encoding/binary"
	"testing"
)

// TestSum64ReferenceVectors pins the implementation to values produced by
// Appleby's reference MurmurHash64A. These must never change: report
// consumers correlate hashes across runs and across processes.
func TestSum64ReferenceVectors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		seed uint64
		want uint64
	}{
		{"empty input folds the seed", nil, Seed, 0xf9e152d80ce353a4},
		{"short tail only", []byte("hello"), Seed, 0xd2d63f9cbe4ce0cd},
		{"short tail seed zero", []byte("hello"), 0, 0x1e68d17c457bf117},
		{"multi word with tail", []byte("The quick brown fox jumps over the lazy dog"), Seed, 0x249a868399d9bb6a},
		{"seven byte tail", []byte("abcdefg"), Seed, 0x6f839db8aabc8009},
		{"exactly one word", []byte("abcdefgh"), Seed, 0x1ee479cdfab367c0},
		{"one word plus one byte", []byte("abcdefghi"), Seed, 0x6190aef4d7abbec6},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Sum64(c.data, c.seed); got != c.want {
				t.Errorf("Sum64(%q, %d) = %#x, want %#x", c.data, c.seed, got, c.want)
			}
		})
	}
}

// TestSum64WordsMatchesByteForm verifies that the word-at-a-time hot path
// is indistinguishable from hashing the little-endian encoding.
func TestSum64WordsMatchesByteForm(t *testing.T) {
	inputs := [][]uint64{
		nil,
		{0},
		{0, 0},
		{1, 2, 3},
		{0xdeadbeefcafef00d, 0x0123456789abcdef},
	}

	for _, words := range inputs {
		buf := make([]byte, 8*len(words))
		for i, w := range words {
			binary.LittleEndian.PutUint64(buf[8*i:], w)
		}
		if got, want := Sum64Words(words, Seed), Sum64(buf, Seed); got != want {
			t.Errorf("Sum64Words(%v) = %#x, byte form = %#x", words, got, want)
		}
	}
}

func TestSum64WordsReferenceVectors(t *testing.T) {
	if got, want := Sum64Words([]uint64{1, 2, 3}, Seed), uint64(0x95b0ede706d017bf); got != want {
		t.Errorf("Sum64Words([1 2 3]) = %#x, want %#x", got, want)
	}

	// A zero-padded context window must not hash like an empty one.
	if got, want := Sum64Words([]uint64{0, 0}, Seed), uint64(0xb1ed0edc58dbb49e); got != want {
		t.Errorf("Sum64Words([0 0]) = %#x, want %#x", got, want)
	}
	if Sum64Words([]uint64{0, 0}, Seed) == Sum64Words(nil, Seed) {
		t.Error("padded window hashed identically to the empty window")
	}
}
