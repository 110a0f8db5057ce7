package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxLagCorrelation returns the highest normalized cross-correlation between
// ref and got over alignment lags 0..maxLag. The QMF analysis/synthesis pair
// delays the signal by roughly 22 samples, so a direct sample-by-sample
// comparison would understate fidelity.
func maxLagCorrelation(ref, got []int16, maxLag int) float64 {
	best := -1.0
	for lag := 0; lag <= maxLag; lag++ {
		var dot, refE, gotE float64
		n := len(ref) - lag
		if n > len(got) {
			n = len(got)
		}
		for i := 0; i < n; i++ {
			r := float64(ref[i])
			g := float64(got[i+lag])
			dot += r * g
			refE += r * r
			gotE += g * g
		}
		if refE == 0 || gotE == 0 {
			continue
		}
		if c := dot / math.Sqrt(refE*gotE); c > best {
			best = c
		}
	}
	return best
}

func TestG722RoundTripToneCorrelation(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		amp  float64
	}{
		{name: "low voice band", freq: 300, amp: 8000},
		{name: "mid voice band", freq: 800, amp: 8000},
		{name: "upper voice band", freq: 2000, amp: 6000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewG722Encoder()
			dec := NewG722Decoder()

			in := sineFrame(3200, tt.freq, 16000, tt.amp)
			encoded, err := enc.Encode(in)
			require.NoError(t, err)
			require.Len(t, encoded, len(in)/2)

			out := dec.Decode(encoded)
			require.Len(t, out, len(in))

			// Skip the adaptation transient at the start.
			corr := maxLagCorrelation(in[320:], out[320:], 40)
			assert.Greater(t, corr, 0.9,
				"reconstructed tone must track the input after QMF delay alignment")
		})
	}
}

func TestG722EncodeOddLength(t *testing.T) {
	enc := NewG722Encoder()
	_, err := enc.Encode(make([]int16, 321))
	assert.Error(t, err, "QMF operates on sample pairs")
}

func TestG722EncodeEmpty(t *testing.T) {
	enc := NewG722Encoder()
	out, err := enc.Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestG722ResetDeterminism(t *testing.T) {
	enc := NewG722Encoder()
	in := sineFrame(640, 1000, 16000, 9000)

	first, err := enc.Encode(in)
	require.NoError(t, err)

	// Without a reset the adaptive state differs, so a second pass over the
	// same input generally produces different bytes.
	enc.Reset()
	second, err := enc.Encode(in)
	require.NoError(t, err)

	assert.Equal(t, first, second, "reset must restore the initial adaptive state")
}

func TestG722DecoderResetDeterminism(t *testing.T) {
	enc := NewG722Encoder()
	dec := NewG722Decoder()
	in := sineFrame(640, 1000, 16000, 9000)

	encoded, err := enc.Encode(in)
	require.NoError(t, err)

	first := dec.Decode(encoded)
	dec.Reset()
	second := dec.Decode(encoded)

	assert.Equal(t, first, second)
}

func TestG722SilenceStaysQuiet(t *testing.T) {
	enc := NewG722Encoder()
	dec := NewG722Decoder()

	encoded, err := enc.Encode(make([]int16, 640))
	require.NoError(t, err)
	out := dec.Decode(encoded)

	for i, s := range out {
		assert.InDelta(t, 0, s, 64, "silence must decode to near-silence at sample %d", i)
	}
}

func BenchmarkG722Encode(b *testing.B) {
	enc := NewG722Encoder()
	frame := sineFrame(320, 800, 16000, 8000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(frame); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkG722Decode(b *testing.B) {
	enc := NewG722Encoder()
	dec := NewG722Decoder()
	encoded, err := enc.Encode(sineFrame(320, 800, 16000, 8000))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dec.Decode(encoded)
	}
}
