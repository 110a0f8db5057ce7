// Package codec Bank.
//
// This file implements the per-call codec bank: one value owning every
// stateful codec instance for a single call. Making the adaptive state an
// explicit per-call value removes both the locking and the cross-call state
// bleed that shared codec singletons would require.
package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Bank encodes and decodes between linear PCM and each wire codec for one
// call. G.711 is stateless; the G.722 and Opus instances inside the bank are
// exclusive to this call and are reset between logical turns.
type Bank struct {
	g722Enc *G722Encoder
	g722Dec *G722Decoder

	opus        *OpusCodec
	opusBitRate int
	opusFailed  bool
}

// NewBank creates a codec bank with fresh per-call state. opusBitRate is
// the target Opus encoder bit rate in bits per second; zero keeps the
// library default.
func NewBank(opusBitRate int) *Bank {
	logrus.WithFields(logrus.Fields{
		"function":      "NewBank",
		"opus_bit_rate": opusBitRate,
	}).Debug("Creating per-call codec bank")

	return &Bank{
		g722Enc:     NewG722Encoder(),
		g722Dec:     NewG722Decoder(),
		opusBitRate: opusBitRate,
	}
}

// ensureOpus lazily constructs the Opus pair. A construction failure is
// remembered so the fallback decision is made once, not once per frame.
func (b *Bank) ensureOpus() (*OpusCodec, error) {
	if b.opus != nil {
		return b.opus, nil
	}
	if b.opusFailed {
		return nil, fmt.Errorf("opus codec unavailable")
	}
	oc, err := NewOpusCodec(b.opusBitRate)
	if err != nil {
		b.opusFailed = true
		return nil, err
	}
	b.opus = oc
	return oc, nil
}

// conformFrame pads a short frame with PCM silence and truncates a long one
// so every codec sees its exact 20ms sample count.
func conformFrame(pcm []int16, want int) []int16 {
	if len(pcm) == want {
		return pcm
	}
	out := make([]int16, want)
	copy(out, pcm)
	return out
}

// Encode converts one 20ms PCM frame at the target codec's native rate into
// a wire frame. Short input is zero-padded and long input truncated to the
// codec's frame contract.
func (b *Bank) Encode(pcm []int16, target Codec) (WireFrame, error) {
	want := target.FrameSamples()
	if want == 0 {
		return WireFrame{}, fmt.Errorf("cannot encode with unknown codec %v", target)
	}
	if len(pcm) != want {
		logrus.WithFields(logrus.Fields{
			"function": "Bank.Encode",
			"codec":    target.String(),
			"got":      len(pcm),
			"want":     want,
		}).Debug("Conforming PCM frame to codec contract")
		pcm = conformFrame(pcm, want)
	}

	var payload []byte
	var err error
	switch target {
	case CodecPCMU:
		payload = MuLawEncodeBuf(pcm)
	case CodecPCMA:
		payload = ALawEncodeBuf(pcm)
	case CodecG722:
		payload, err = b.g722Enc.Encode(pcm)
	case CodecOpus:
		var oc *OpusCodec
		oc, err = b.ensureOpus()
		if err == nil {
			payload, err = oc.EncodeFrame(pcm)
		}
	default:
		err = fmt.Errorf("cannot encode with unknown codec %v", target)
	}
	if err != nil {
		return WireFrame{}, err
	}

	return WireFrame{Codec: target, Payload: payload, SourceSamples: want}, nil
}

// Decode converts a wire frame back to linear PCM at the codec's native
// rate.
//
// Decode never lets a malformed packet escape the pipeline boundary: on any
// decode failure it returns one full frame of PCM silence together with the
// error. Callers use the silence frame regardless and may count or log the
// error; a single bad packet must not stop a call's playout.
func (b *Bank) Decode(frame WireFrame) ([]int16, error) {
	want := frame.Codec.FrameSamples()
	if want == 0 {
		return nil, fmt.Errorf("cannot decode unknown codec %v", frame.Codec)
	}

	pcm, err := b.decode(frame)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":     "Bank.Decode",
			"codec":        frame.Codec.String(),
			"payload_size": len(frame.Payload),
			"error":        err.Error(),
		}).Warn("Decode failed, substituting silence frame")
		return SilencePCM16(want), err
	}
	if len(pcm) != want {
		pcm = conformFrame(pcm, want)
	}
	return pcm, nil
}

func (b *Bank) decode(frame WireFrame) ([]int16, error) {
	switch frame.Codec {
	case CodecPCMU:
		if len(frame.Payload) != CodecPCMU.WireFrameBytes() {
			return nil, fmt.Errorf("short pcmu frame: %d bytes", len(frame.Payload))
		}
		return MuLawDecodeBuf(frame.Payload), nil
	case CodecPCMA:
		if len(frame.Payload) != CodecPCMA.WireFrameBytes() {
			return nil, fmt.Errorf("short pcma frame: %d bytes", len(frame.Payload))
		}
		return ALawDecodeBuf(frame.Payload), nil
	case CodecG722:
		if len(frame.Payload) != CodecG722.WireFrameBytes() {
			return nil, fmt.Errorf("short g722 frame: %d bytes", len(frame.Payload))
		}
		return b.g722Dec.Decode(frame.Payload), nil
	case CodecOpus:
		oc, err := b.ensureOpus()
		if err != nil {
			return nil, err
		}
		return oc.DecodeFrame(frame.Payload)
	}
	return nil, fmt.Errorf("cannot decode unknown codec %v", frame.Codec)
}

// Reset clears all adaptive codec state for a new logical turn within the
// call. Stale G.722 predictor or Opus look-ahead state from the previous
// turn would otherwise color the first frames of the next response.
func (b *Bank) Reset() error {
	b.g722Enc.Reset()
	b.g722Dec.Reset()
	if b.opus != nil {
		if err := b.opus.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases codec resources at call teardown.
func (b *Bank) Close() error {
	if b.opus != nil {
		if err := b.opus.Close(); err != nil {
			return err
		}
		b.opus = nil
	}
	return nil
}
