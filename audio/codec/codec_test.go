package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sineFrame generates n samples of a sine tone for codec tests.
func sineFrame(n int, freq float64, rate int, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

// snr computes the signal-to-noise ratio in dB between a reference and a
// reconstruction of equal length.
func snr(ref, got []int16) float64 {
	var sig, noise float64
	for i := range ref {
		s := float64(ref[i])
		d := s - float64(got[i])
		sig += s * s
		noise += d * d
	}
	if noise == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(sig/noise)
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Codec
		wantErr bool
	}{
		{name: "pcmu", input: "pcmu", want: CodecPCMU},
		{name: "ulaw alias", input: "ulaw", want: CodecPCMU},
		{name: "mulaw alias", input: "mulaw", want: CodecPCMU},
		{name: "pcma", input: "pcma", want: CodecPCMA},
		{name: "alaw alias", input: "alaw", want: CodecPCMA},
		{name: "g722", input: "g722", want: CodecG722},
		{name: "opus", input: "opus", want: CodecOpus},
		{name: "unknown", input: "gsm", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCodec(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodecFraming(t *testing.T) {
	tests := []struct {
		codec     Codec
		rate      int
		samples   int
		wireBytes int
	}{
		{CodecPCMU, 8000, 160, 160},
		{CodecPCMA, 8000, 160, 160},
		{CodecG722, 16000, 320, 160},
		{CodecOpus, 48000, 960, 0},
	}

	for _, tt := range tests {
		t.Run(tt.codec.String(), func(t *testing.T) {
			assert.Equal(t, tt.rate, tt.codec.SampleRate())
			assert.Equal(t, tt.samples, tt.codec.FrameSamples())
			assert.Equal(t, tt.wireBytes, tt.codec.WireFrameBytes())
		})
	}
}

func TestSilenceBytes(t *testing.T) {
	assert.Equal(t, byte(0xFF), CodecPCMU.SilenceByte())
	assert.Equal(t, byte(0xD5), CodecPCMA.SilenceByte())
	assert.Equal(t, byte(0x00), CodecG722.SilenceByte())
}

func TestSilencePayloadDecodesToZero(t *testing.T) {
	for _, c := range []Codec{CodecPCMU, CodecPCMA} {
		t.Run(c.String(), func(t *testing.T) {
			payload := c.SilencePayload()
			require.Len(t, payload, c.WireFrameBytes())

			var pcm []int16
			if c == CodecPCMU {
				pcm = MuLawDecodeBuf(payload)
			} else {
				pcm = ALawDecodeBuf(payload)
			}
			for _, s := range pcm {
				assert.InDelta(t, 0, s, 8, "companded silence must decode to near-zero PCM")
			}
		})
	}
}

func TestSilencePayloadOpusIsNil(t *testing.T) {
	assert.Nil(t, CodecOpus.SilencePayload())
}
