package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, freq float64, rate int, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

var supportedRates = []int{8000, 16000, 24000, 48000}

func TestResampleLengthInvariant(t *testing.T) {
	for _, from := range supportedRates {
		for _, to := range supportedRates {
			n := from / 50 * 5 // 100ms
			in := sine(n, 440, from, 8000)
			out, err := Resample(in, from, to)
			require.NoError(t, err, "%d→%d", from, to)

			want := int(float64(n)*float64(to)/float64(from) + 0.5)
			assert.InDelta(t, want, len(out), 1, "%d→%d length", from, to)
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	in := sine(480, 440, 24000, 8000)
	out, err := Resample(in, 24000, 24000)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// The identity path must copy, not alias.
	out[0] = 12345
	assert.NotEqual(t, in[0], out[0])
}

func TestResampleInvalidRates(t *testing.T) {
	tests := []struct {
		name string
		from int
		to   int
	}{
		{name: "zero from", from: 0, to: 8000},
		{name: "zero to", from: 8000, to: 0},
		{name: "negative from", from: -8000, to: 8000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resample(sine(160, 440, 8000, 8000), tt.from, tt.to)
			assert.Error(t, err)
		})
	}
}

func TestResampleEmptyInput(t *testing.T) {
	out, err := Resample(nil, 24000, 8000)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResamplePreservesTone(t *testing.T) {
	// A 440Hz tone downsampled 24k→8k must keep most of its energy: the
	// tone sits far below the anti-alias cutoff.
	in := sine(2400, 440, 24000, 8000)
	out, err := Resample(in, 24000, 8000)
	require.NoError(t, err)

	inRMS := rms(in)
	outRMS := rms(out)
	assert.InDelta(t, inRMS, outRMS, inRMS*0.15)
}

func TestResampleFractionalRatio(t *testing.T) {
	// 24000→16000 is 3:2; must interpolate, not integer-decimate.
	in := sine(480, 440, 24000, 8000)
	out, err := Resample(in, 24000, 16000)
	require.NoError(t, err)
	assert.InDelta(t, 320, len(out), 1)
}

func TestOutputLen(t *testing.T) {
	assert.Equal(t, 160, OutputLen(480, 24000, 8000))
	assert.Equal(t, 320, OutputLen(480, 24000, 16000))
	assert.Equal(t, 960, OutputLen(480, 24000, 48000))
	assert.Equal(t, 480, OutputLen(480, 24000, 24000))
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestContinuousLengthInvariantPerFrame(t *testing.T) {
	for _, from := range supportedRates {
		for _, to := range supportedRates {
			r, err := NewContinuousResampler(from, to)
			require.NoError(t, err)

			frameN := from / 50
			total := 0
			for i := 0; i < 25; i++ {
				out := r.Process(sine(frameN, 440, from, 8000))
				total += len(out)
			}
			want := 25 * (to / 50)
			assert.InDelta(t, want, total, 1, "%d→%d total output", from, to)
		}
	}
}

func TestContinuousSeamContinuity(t *testing.T) {
	// Feed a pure sine as consecutive 20ms frames; the output across every
	// frame boundary must not jump more than the largest step the tone
	// itself produces, with margin for the quantized filter output.
	const (
		from = 24000
		to   = 8000
		freq = 440.0
		amp  = 8000.0
	)
	r, err := NewContinuousResampler(from, to)
	require.NoError(t, err)

	// Max per-sample delta of the tone at the output rate.
	maxToneStep := amp * 2 * math.Pi * freq / float64(to)
	threshold := maxToneStep*1.5 + 64

	frameN := from / 50
	var prevLast int16
	havePrev := false
	phase := 0
	for f := 0; f < 30; f++ {
		in := make([]int16, frameN)
		for i := range in {
			in[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(phase+i)/float64(from)))
		}
		phase += frameN

		out := r.Process(in)
		require.NotEmpty(t, out)
		if havePrev {
			delta := math.Abs(float64(out[0]) - float64(prevLast))
			assert.LessOrEqual(t, delta, threshold,
				"discontinuity at frame %d boundary", f)
		}
		prevLast = out[len(out)-1]
		havePrev = true
	}
}

func TestContinuousIdentityRate(t *testing.T) {
	r, err := NewContinuousResampler(24000, 24000)
	require.NoError(t, err)

	in := sine(480, 440, 24000, 8000)
	out := r.Process(in)
	assert.Equal(t, in, out)
}

func TestContinuousReset(t *testing.T) {
	r, err := NewContinuousResampler(24000, 8000)
	require.NoError(t, err)

	in := sine(480, 440, 24000, 8000)
	first := r.Process(in)

	r.Reset()
	second := r.Process(in)
	assert.Equal(t, first, second, "reset must clear history and crossfade state")
}

func TestContinuousInvalidRates(t *testing.T) {
	_, err := NewContinuousResampler(0, 8000)
	assert.Error(t, err)
	_, err = NewContinuousResampler(24000, -1)
	assert.Error(t, err)
}

func TestContinuousEmptyFrame(t *testing.T) {
	r, err := NewContinuousResampler(24000, 8000)
	require.NoError(t, err)
	assert.Empty(t, r.Process(nil))
}

func BenchmarkContinuousProcess24kTo8k(b *testing.B) {
	r, err := NewContinuousResampler(24000, 8000)
	if err != nil {
		b.Fatal(err)
	}
	frame := sine(480, 440, 24000, 8000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Process(frame)
	}
}

func BenchmarkResampleOneShot24kTo8k(b *testing.B) {
	frame := sine(480, 440, 24000, 8000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Resample(frame, 24000, 8000); err != nil {
			b.Fatal(err)
		}
	}
}
