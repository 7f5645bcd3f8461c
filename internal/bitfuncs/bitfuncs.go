// Package bitfuncs implements the MSB-first bit-field primitives the
// space allocator and admin-space allocator are built on, transcribed
// from bitfuncs.c/bitfuncs.h. Bit 0 of the abstract sequence is the high
// bit of the first word; the underlying storage is always big-endian,
// regardless of host endianness, so every word is read/written through
// encoding/binary.BigEndian rather than reinterpreted in place.
package bitfuncs

import "encoding/binary"

// Bfffo finds the first set bit in a single 32-bit word starting at
// bitoffset (0 = MSB), or -1 if none is set at or after bitoffset.
func Bfffo(data uint32, bitoffset int) int {
	mask := uint32(0xffffffff) >> uint(bitoffset)
	data &= mask
	if data == 0 {
		return -1
	}
	return 32 - fls(data)
}

// Bfffz finds the first zero bit in a single 32-bit word starting at
// bitoffset (0 = MSB), or -1 if none is clear at or after bitoffset.
func Bfffz(data uint32, bitoffset int) int {
	return Bfffo(^data, bitoffset)
}

// Bfset sets bits consecutive bits starting at bitoffset (MSB-first) in
// data and returns the new word. bits must be between 1 and 32.
func Bfset(data uint32, bitoffset, bits int) uint32 {
	mask := ^uint32((1 << uint(32-bits)) - 1)
	mask >>= uint(bitoffset)
	return data | mask
}

// Bfclr clears bits consecutive bits starting at bitoffset (MSB-first)
// in data and returns the new word. bits must be between 1 and 32.
func Bfclr(data uint32, bitoffset, bits int) uint32 {
	mask := ^uint32((1 << uint(32-bits)) - 1)
	mask >>= uint(bitoffset)
	return data &^ mask
}

// fls returns the 1-based index (from the LSB) of the highest set bit,
// i.e. 32 - clz for a non-zero value. Mirrors the kernel's fls().
func fls(x uint32) int {
	n := 0
	for x != 0 {
		x >>= 1
		n++
	}
	return n
}

// Bmffo scans a big-endian bitmap (length a multiple of 4 bytes)
// starting at bitoffset and returns the bit position of the first set
// bit, or -1 if the region (from bitoffset to the end of bitmap) has
// none set.
func Bmffo(bitmap []byte, bitoffset int) int {
	words := len(bitmap) / 4
	longoffset := bitoffset >> 5
	words -= longoffset
	idx := longoffset
	bitoffset &= 0x1f

	if bitoffset != 0 {
		word := binary.BigEndian.Uint32(bitmap[idx*4:])
		if bit := Bfffo(word, bitoffset); bit >= 0 {
			return bit + idx<<5
		}
		idx++
		words--
	}

	for ; words > 0; words, idx = words-1, idx+1 {
		word := binary.BigEndian.Uint32(bitmap[idx*4:])
		if word != 0 {
			return Bfffo(word, 0) + idx<<5
		}
	}
	return -1
}

// Bmffz scans a big-endian bitmap starting at bitoffset and returns the
// bit position of the first zero bit, or -1 if the region has none
// clear.
func Bmffz(bitmap []byte, bitoffset int) int {
	words := len(bitmap) / 4
	longoffset := bitoffset >> 5
	words -= longoffset
	idx := longoffset
	bitoffset &= 0x1f

	if bitoffset != 0 {
		word := binary.BigEndian.Uint32(bitmap[idx*4:])
		if bit := Bfffz(word, bitoffset); bit >= 0 {
			return bit + idx<<5
		}
		idx++
		words--
	}

	for ; words > 0; words, idx = words-1, idx+1 {
		word := binary.BigEndian.Uint32(bitmap[idx*4:])
		if word != 0xffffffff {
			return Bfffz(word, 0) + idx<<5
		}
	}
	return -1
}

// Bmclr clears up to `bits` consecutive bits in a big-endian bitmap
// starting at bitoffset, stopping early if the region ends first, and
// returns the number of bits actually cleared.
func Bmclr(bitmap []byte, bitoffset, bits int) int {
	return bitmapRangeOp(bitmap, bitoffset, bits, false)
}

// Bmset sets up to `bits` consecutive bits in a big-endian bitmap
// starting at bitoffset, stopping early if the region ends first, and
// returns the number of bits actually set.
func Bmset(bitmap []byte, bitoffset, bits int) int {
	return bitmapRangeOp(bitmap, bitoffset, bits, true)
}

func bitmapRangeOp(bitmap []byte, bitoffset, bits int, set bool) int {
	words := len(bitmap) / 4
	orgbits := bits

	longoffset := bitoffset >> 5
	words -= longoffset
	idx := longoffset
	bitoffset &= 0x1f

	if bitoffset != 0 {
		n := bits
		if n > 32 {
			n = 32
		}
		word := binary.BigEndian.Uint32(bitmap[idx*4:])
		if set {
			word = Bfset(word, bitoffset, n)
		} else {
			word = Bfclr(word, bitoffset, n)
		}
		binary.BigEndian.PutUint32(bitmap[idx*4:], word)
		idx++
		words--
		bits -= 32 - bitoffset
	}

	for bits > 0 && words > 0 {
		if bits > 31 {
			var word uint32
			if set {
				word = 0xffffffff
			}
			binary.BigEndian.PutUint32(bitmap[idx*4:], word)
		} else {
			word := binary.BigEndian.Uint32(bitmap[idx*4:])
			if set {
				word = Bfset(word, 0, bits)
			} else {
				word = Bfclr(word, 0, bits)
			}
			binary.BigEndian.PutUint32(bitmap[idx*4:], word)
		}
		bits -= 32
		idx++
		words--
	}

	if bits <= 0 {
		return orgbits
	}
	return orgbits - bits
}
