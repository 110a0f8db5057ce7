package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpusEncodeFrameContract(t *testing.T) {
	oc, err := NewOpusCodec(32000)
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	defer oc.Close()

	_, err = oc.EncodeFrame(make([]int16, 480))
	assert.Error(t, err, "only exact 960-sample frames are accepted")

	payload, err := oc.EncodeFrame(sineFrame(960, 440, 48000, 8000))
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.LessOrEqual(t, len(payload), opusMaxPayload)
}

// Every packet the encoder produces must decode on the same call's reverse
// path, across the codec's mode choices: libopus picks SILK, hybrid or CELT
// per frame, and the decoder has to accept all of them.
func TestOpusEncodeDecodeRoundTrip(t *testing.T) {
	oc, err := NewOpusCodec(32000)
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	defer oc.Close()

	// Feed enough frames for the encoder to settle past its look-ahead and
	// potentially switch modes.
	var last []int16
	for i := 0; i < 10; i++ {
		payload, err := oc.EncodeFrame(sineFrame(960, 440, 48000, 8000))
		require.NoError(t, err)
		last, err = oc.DecodeFrame(payload)
		require.NoError(t, err, "frame %d must decode", i)
		require.Len(t, last, 960)
	}

	var sum float64
	for _, s := range last {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(last)))
	assert.Greater(t, rms, 1000.0, "decoded audio must carry the tone, not silence")
}

func TestBankOpusRoundTrip(t *testing.T) {
	bank := NewBank(0)
	defer bank.Close()

	wire, err := bank.Encode(sineFrame(960, 440, 48000, 8000), CodecOpus)
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	assert.Equal(t, 960, wire.SourceSamples)

	out, err := bank.Decode(wire)
	require.NoError(t, err)
	assert.Len(t, out, 960, "bank conforms decoded audio to the 20ms contract")
}

func TestOpusDecodeEmptyPacket(t *testing.T) {
	oc, err := NewOpusCodec(0)
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	defer oc.Close()

	_, err = oc.DecodeFrame(nil)
	assert.Error(t, err)
}

func TestOpusResetRebuildsBothDirections(t *testing.T) {
	oc, err := NewOpusCodec(32000)
	if err != nil {
		t.Skipf("opus unavailable: %v", err)
	}
	defer oc.Close()

	payload, err := oc.EncodeFrame(sineFrame(960, 440, 48000, 8000))
	require.NoError(t, err)
	_, err = oc.DecodeFrame(payload)
	require.NoError(t, err)

	require.NoError(t, oc.Reset())

	payload, err = oc.EncodeFrame(sineFrame(960, 440, 48000, 8000))
	require.NoError(t, err)
	pcm, err := oc.DecodeFrame(payload)
	require.NoError(t, err)
	assert.Len(t, pcm, 960)
}
