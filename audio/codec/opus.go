// Package codec Opus integration.
//
// This file wraps layeh.com/gopus behind the fixed 20ms frame contract of
// the bridge, for both directions: libopus handles every Opus configuration
// (SILK, hybrid and CELT modes), so frames the bridge encodes always decode
// on the reverse path. The codec-level responsibility here is exclusively
// buffering to the 960-sample frame contract and owning one encoder and one
// decoder per call; gopus state is not safe to share across concurrent
// calls.
package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"layeh.com/gopus"
)

const (
	opusFrameSamples = 960 // 20ms at 48kHz, mono
	opusMaxPayload   = 4000
)

// OpusCodec owns one Opus encoder and one Opus decoder for a single call
// direction pair.
type OpusCodec struct {
	enc     *gopus.Encoder
	dec     *gopus.Decoder
	bitRate int
}

// NewOpusCodec creates the per-call Opus encoder/decoder pair.
//
// Construction failure is fatal for this codec only; the caller is expected
// to fall back to a narrowband codec from its priority list.
func NewOpusCodec(bitRate int) (*OpusCodec, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewOpusCodec",
		"bit_rate": bitRate,
	}).Info("Creating Opus codec instance")

	enc, err := gopus.NewEncoder(48000, 1, gopus.Voip)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewOpusCodec",
			"error":    err.Error(),
		}).Error("Opus encoder initialization failed")
		return nil, fmt.Errorf("opus encoder init: %w", err)
	}
	if bitRate > 0 {
		enc.SetBitrate(bitRate)
	}

	dec, err := gopus.NewDecoder(48000, 1)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewOpusCodec",
			"error":    err.Error(),
		}).Error("Opus decoder initialization failed")
		return nil, fmt.Errorf("opus decoder init: %w", err)
	}

	return &OpusCodec{
		enc:     enc,
		dec:     dec,
		bitRate: bitRate,
	}, nil
}

// EncodeFrame encodes exactly one 20ms 48kHz mono frame (960 samples).
func (o *OpusCodec) EncodeFrame(pcm []int16) ([]byte, error) {
	if o.enc == nil {
		return nil, fmt.Errorf("opus encoder not initialized")
	}
	if len(pcm) != opusFrameSamples {
		return nil, fmt.Errorf("opus encode requires %d samples, got %d", opusFrameSamples, len(pcm))
	}
	data, err := o.enc.Encode(pcm, opusFrameSamples, opusMaxPayload)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return data, nil
}

// DecodeFrame decodes one Opus packet to 48kHz mono PCM. libopus resamples
// narrower-band packets to the decoder's configured 48kHz internally.
func (o *OpusCodec) DecodeFrame(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty opus packet")
	}
	if o.dec == nil {
		return nil, fmt.Errorf("opus decoder not initialized")
	}
	pcm, err := o.dec.Decode(data, opusFrameSamples, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return pcm, nil
}

// Reset discards all Opus state for a new logical turn. gopus carries
// look-ahead and prediction history on both sides, so the cheapest clean
// reset is a rebuild.
func (o *OpusCodec) Reset() error {
	enc, err := gopus.NewEncoder(48000, 1, gopus.Voip)
	if err != nil {
		return fmt.Errorf("opus encoder reset: %w", err)
	}
	if o.bitRate > 0 {
		enc.SetBitrate(o.bitRate)
	}
	dec, err := gopus.NewDecoder(48000, 1)
	if err != nil {
		return fmt.Errorf("opus decoder reset: %w", err)
	}
	o.enc = enc
	o.dec = dec
	return nil
}

// Close releases codec resources.
func (o *OpusCodec) Close() error {
	o.enc = nil
	o.dec = nil
	return nil
}
