// Package codec provides wire codec identifiers and frame types for the
// audio bridge.
//
// This file defines the Codec enumeration, per-codec framing constants, and
// the WireFrame type exchanged with the transport layer.
package codec

import (
	"fmt"
	"time"
)

// FrameDuration is the wire framing period shared by every codec.
// One WireFrame always represents exactly 20ms of audio.
const FrameDuration = 20 * time.Millisecond

// Codec identifies a wire audio codec.
type Codec int

const (
	// CodecPCMU is ITU-T G.711 µ-law companding at 8kHz.
	CodecPCMU Codec = iota
	// CodecPCMA is ITU-T G.711 A-law companding at 8kHz.
	CodecPCMA
	// CodecG722 is sub-band ADPCM at 16kHz (64kbit/s wire rate).
	CodecG722
	// CodecOpus is the Opus codec at 48kHz.
	CodecOpus
)

// Silence byte values per codec. G.711 companded silence is not zero on the
// wire; a zero byte decodes to a large negative sample.
const (
	// SilencePCMU is the µ-law encoding of linear zero.
	SilencePCMU byte = 0xFF
	// SilencePCMA is the A-law encoding of linear zero.
	SilencePCMA byte = 0xD5
	// SilencePCM is the fill byte for raw PCM and G.722/Opus payloads.
	SilencePCM byte = 0x00
)

// ParseCodec maps a configuration name to a Codec.
//
// Recognized names: "pcmu", "ulaw", "mulaw", "pcma", "alaw", "g722", "opus".
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "pcmu", "ulaw", "mulaw":
		return CodecPCMU, nil
	case "pcma", "alaw":
		return CodecPCMA, nil
	case "g722":
		return CodecG722, nil
	case "opus":
		return CodecOpus, nil
	}
	return 0, fmt.Errorf("unknown codec name: %q", name)
}

// String returns the canonical lower-case codec name.
func (c Codec) String() string {
	switch c {
	case CodecPCMU:
		return "pcmu"
	case CodecPCMA:
		return "pcma"
	case CodecG722:
		return "g722"
	case CodecOpus:
		return "opus"
	}
	return fmt.Sprintf("codec(%d)", int(c))
}

// SampleRate returns the codec's native sample rate in Hz.
func (c Codec) SampleRate() int {
	switch c {
	case CodecPCMU, CodecPCMA:
		return 8000
	case CodecG722:
		return 16000
	case CodecOpus:
		return 48000
	}
	return 0
}

// FrameSamples returns the number of PCM samples in one 20ms frame at the
// codec's native rate.
func (c Codec) FrameSamples() int {
	return c.SampleRate() / 50
}

// WireFrameBytes returns the encoded payload size of one 20ms frame, or 0
// for variable-rate codecs (Opus).
func (c Codec) WireFrameBytes() int {
	switch c {
	case CodecPCMU, CodecPCMA:
		return 160
	case CodecG722:
		// Two 16kHz samples per output byte.
		return 160
	case CodecOpus:
		return 0
	}
	return 0
}

// SilenceByte returns the wire byte that represents silence for this codec.
func (c Codec) SilenceByte() byte {
	switch c {
	case CodecPCMU:
		return SilencePCMU
	case CodecPCMA:
		return SilencePCMA
	}
	return SilencePCM
}

// SilencePayload returns one 20ms frame of encoded silence for this codec.
//
// For Opus there is no fixed silence payload; callers emit a zero-PCM encode
// instead, so SilencePayload returns nil.
func (c Codec) SilencePayload() []byte {
	n := c.WireFrameBytes()
	if n == 0 {
		return nil
	}
	payload := make([]byte, n)
	fill := c.SilenceByte()
	for i := range payload {
		payload[i] = fill
	}
	return payload
}

// WireFrame is one encoded 20ms audio frame as handed to the transport.
//
// SourceSamples is the frame duration expressed in samples at the codec's
// native rate, which is what RTP-style transports timestamp with.
type WireFrame struct {
	Codec         Codec
	Payload       []byte
	SourceSamples int
}

// SilencePCM16 returns n samples of linear PCM silence.
func SilencePCM16(n int) []int16 {
	return make([]int16, n)
}
