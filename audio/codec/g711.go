// Package codec G.711 companding.
//
// This file implements bit-exact ITU-T G.711 µ-law and A-law conversion.
// Both directions are table-driven: a 256-entry decode table and a
// 65536-entry encode table per law, built once at package init from the
// segment algorithm, so per-sample conversion is a single lookup.
package codec

const (
	muLawBias = 0x84
	muLawClip = 32635
	aLawClip  = 32767

	segShift  = 4
	quantMask = 0x0F
)

var (
	muLawDecodeTable [256]int16
	muLawEncodeTable [65536]byte
	aLawDecodeTable  [256]int16
	aLawEncodeTable  [65536]byte
)

func init() {
	for i := 0; i < 256; i++ {
		muLawDecodeTable[i] = muLawExpand(byte(i))
		aLawDecodeTable[i] = aLawExpand(byte(i))
	}
	for i := 0; i < 65536; i++ {
		sample := int16(uint16(i))
		muLawEncodeTable[i] = muLawCompress(sample)
		aLawEncodeTable[i] = aLawCompress(sample)
	}
}

// muLawCompress converts one linear sample to µ-law using the G.711
// segment search. Only used to build the encode table.
func muLawCompress(pcm int16) byte {
	s := int32(pcm)
	sign := int32(0)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	segment := int32(7)
	for i, end := range [8]int32{0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF} {
		if s <= end {
			segment = int32(i)
			break
		}
	}

	return byte(^(sign | (segment << segShift) | ((s >> (segment + 3)) & quantMask)))
}

// muLawExpand converts one µ-law byte back to linear PCM.
func muLawExpand(u byte) int16 {
	u = ^u
	t := (int32(u&quantMask)<<3 + muLawBias) << ((int32(u) & 0x70) >> segShift)
	if u&0x80 != 0 {
		return int16(muLawBias - t)
	}
	return int16(t - muLawBias)
}

// aLawCompress converts one linear sample to A-law using the G.711
// segment search. Only used to build the encode table.
func aLawCompress(pcm int16) byte {
	s := int32(pcm)
	mask := int32(0xD5) // sign bit set, even bits inverted
	if s < 0 {
		s = -s - 1
		mask = 0x55
	}
	if s > aLawClip {
		s = aLawClip
	}

	segment := int32(8)
	for i, end := range [8]int32{0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF} {
		if s <= end {
			segment = int32(i)
			break
		}
	}
	if segment >= 8 {
		return byte(0x7F ^ mask)
	}

	aval := segment << segShift
	if segment < 2 {
		aval |= (s >> 4) & quantMask
	} else {
		aval |= (s >> (segment + 3)) & quantMask
	}
	return byte(aval ^ mask)
}

// aLawExpand converts one A-law byte back to linear PCM.
func aLawExpand(a byte) int16 {
	a ^= 0x55
	t := int32(a&quantMask) << 4
	segment := (int32(a) & 0x70) >> segShift
	switch segment {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= uint(segment - 1)
	}
	if a&0x80 != 0 {
		return int16(t)
	}
	return int16(-t)
}

// MuLawEncode converts a single linear PCM sample to µ-law.
func MuLawEncode(pcm int16) byte {
	return muLawEncodeTable[uint16(pcm)]
}

// MuLawDecode converts a single µ-law byte to linear PCM.
func MuLawDecode(u byte) int16 {
	return muLawDecodeTable[u]
}

// ALawEncode converts a single linear PCM sample to A-law.
func ALawEncode(pcm int16) byte {
	return aLawEncodeTable[uint16(pcm)]
}

// ALawDecode converts a single A-law byte to linear PCM.
func ALawDecode(a byte) int16 {
	return aLawDecodeTable[a]
}

// MuLawEncodeBuf converts linear PCM samples to µ-law bytes.
func MuLawEncodeBuf(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = muLawEncodeTable[uint16(s)]
	}
	return out
}

// MuLawDecodeBuf converts µ-law bytes to linear PCM samples.
func MuLawDecodeBuf(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = muLawDecodeTable[b]
	}
	return out
}

// ALawEncodeBuf converts linear PCM samples to A-law bytes.
func ALawEncodeBuf(pcm []int16) []byte {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = aLawEncodeTable[uint16(s)]
	}
	return out
}

// ALawDecodeBuf converts A-law bytes to linear PCM samples.
func ALawDecodeBuf(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = aLawDecodeTable[b]
	}
	return out
}
