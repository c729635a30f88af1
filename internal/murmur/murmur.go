// Package murmur implements the 64-bit MurmurHash2-A function (Austin
// Appleby's MurmurHash64A) used as the single hash primitive throughout
// GrIOt.
//
// Every hash site in the engine — call-stack hashing, context
// fingerprinting, graph keying — funnels through this package with the same
// fixed seed, and downstream consumers compare hashes produced by separate
// runs of separate processes. The function must therefore be bit-identical
// to the reference implementation for every input length, including the
// empty input and the 1–7 byte tails.
//
// The usual MurmurHash2 caveats apply: the function reads the input as
// little-endian 64-bit words, so it is not portable to big-endian platforms
// without swapping. GrIOt only targets little-endian hosts.
package murmur

import "encoding/binary"

// Seed is the fixed seed shared by every GrIOt hash site.
//
// Two runs hashing the same byte sequence must produce the same value, so
// the seed is a compile-time constant rather than a per-process random.
const Seed uint64 = 12345678

const (
	m = 0xc6a4a7935bd1e995
	r = 47
)

// Sum64 returns the MurmurHash64A of data under the given seed.
//
// A zero-length input is legal and yields the seed folded through the
// finaliser.
func Sum64(data []byte, seed uint64) uint64 {
	h := seed ^ (uint64(len(data)) * m)

	// Body: full 64-bit words.
	n := len(data) &^ 7
	for i := 0; i < n; i += 8 {
		k := binary.LittleEndian.Uint64(data[i:])
		k *= m
		k ^= k >> r
		k *= m
		h ^= k
		h *= m
	}

	// Tail: the reference XOR-shift sequence, high byte first.
	tail := data[n:]
	switch len(tail) & 7 {
	case 7:
		h ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		h ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		h ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		h ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		h ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint64(tail[0])
		h *= m
	}

	h ^= h >> r
	h *= m
	h ^= h >> r
	return h
}

// Sum64Words returns the MurmurHash64A of the words interpreted as their
// little-endian byte encoding, without materialising that encoding.
//
// This is the hot-path form: call-stack and context hashing both hash
// sequences of 64-bit values, and spelling the loop over words directly
// avoids an encode pass and a scratch buffer. Sum64Words(w, s) equals
// Sum64(le(w), s) for all inputs.
func Sum64Words(words []uint64, seed uint64) uint64 {
	h := seed ^ (uint64(len(words))*8)*m

	for _, k := range words {
		k *= m
		k ^= k >> r
		k *= m
		h ^= k
		h *= m
	}

	// Word input has no tail.
	h ^= h >> r
	h *= m
	h ^= h >> r
	return h
}
