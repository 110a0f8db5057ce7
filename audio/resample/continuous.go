// Package resample continuous conversion.
//
// This file implements the stateful resampler used on the frame-paced
// playout path. Successive 20ms frames must convert as if they were one
// unbroken stream: the FIR window history carries across frame boundaries,
// and a short linear crossfade against the previous frame's final output
// sample removes the residual seam.
package resample

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

const (
	// firTaps is the FIR history carried across frames. Each output sample
	// is computed from a window of this width centered on the decimation
	// point.
	firTaps = 7

	// crossfadeSamples is the mandatory linear blend at each frame seam.
	crossfadeSamples = 8
)

// ContinuousResampler converts a stream of PCM frames from one fixed rate
// to another while preserving filter continuity across frame boundaries.
//
// A ContinuousResampler is owned exclusively by one call's audio source; it
// is reset at call start and at explicit buffer clears, never shared.
type ContinuousResampler struct {
	fromRate int
	toRate   int
	ratio    float64 // input samples per output sample
	cutoff   float64 // normalized FIR cutoff in cycles per input sample

	history  [firTaps]float64 // trailing input samples of the previous frame
	havePrev bool
	lastOut  float64 // final output sample of the previous frame
	frac     float64 // fractional source position carried between frames
}

// NewContinuousResampler creates a continuous resampler for the fixed rate
// pair.
func NewContinuousResampler(fromRate, toRate int) (*ContinuousResampler, error) {
	if fromRate <= 0 || toRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "NewContinuousResampler",
			"from_rate": fromRate,
			"to_rate":   toRate,
			"error":     "invalid sample rates",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("invalid sample rates: from=%d, to=%d", fromRate, toRate)
	}

	cutoff := 0.45
	if toRate < fromRate {
		cutoff = 0.45 * float64(toRate) / float64(fromRate)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewContinuousResampler",
		"from_rate": fromRate,
		"to_rate":   toRate,
		"ratio":     float64(fromRate) / float64(toRate),
	}).Debug("Creating continuous resampler")

	return &ContinuousResampler{
		fromRate: fromRate,
		toRate:   toRate,
		ratio:    float64(fromRate) / float64(toRate),
		cutoff:   cutoff,
	}, nil
}

// FromRate returns the configured input sample rate.
func (r *ContinuousResampler) FromRate() int { return r.fromRate }

// ToRate returns the configured output sample rate.
func (r *ContinuousResampler) ToRate() int { return r.toRate }

// Process converts one frame, carrying FIR history and the seam crossfade
// across calls. An equal-rate pair is an identity no-op (the frame is
// returned as a copy with no filtering).
func (r *ContinuousResampler) Process(frame []int16) []int16 {
	if len(frame) == 0 {
		return []int16{}
	}
	if r.fromRate == r.toRate {
		out := make([]int16, len(frame))
		copy(out, frame)
		r.lastOut = float64(out[len(out)-1])
		r.havePrev = true
		return out
	}

	src := make([]float64, len(frame))
	for i, s := range frame {
		src[i] = float64(s)
	}

	outN := int(math.Floor((float64(len(src))-r.frac)/r.ratio + 0.5))
	out := make([]int16, outN)

	half := firTaps / 2
	for j := 0; j < outN; j++ {
		pos := r.frac + float64(j)*r.ratio
		idx := int(math.Floor(pos))

		var acc, wsum float64
		for k := -half; k <= half; k++ {
			i := idx + k
			d := pos - float64(i)
			w := sinc(2*r.cutoff*d) * hann(d, float64(half+1))
			acc += r.sourceSample(src, i) * w
			wsum += w
		}
		v := acc
		if wsum != 0 {
			v /= wsum
		}

		if r.havePrev && j < crossfadeSamples {
			// Linear blend against the previous frame's last output sample.
			t := float64(j+1) / float64(crossfadeSamples+1)
			v = t*v + (1-t)*r.lastOut
		}
		out[j] = clampPCM(v)
	}

	// Carry the fractional source position and the trailing tap history
	// into the next frame.
	r.frac = r.frac + float64(outN)*r.ratio - float64(len(src))
	r.storeHistory(src)
	if outN > 0 {
		r.lastOut = float64(out[outN-1])
		r.havePrev = true
	}
	return out
}

// sourceSample reads input index i, reaching into the carried history for
// indices before the current frame.
func (r *ContinuousResampler) sourceSample(src []float64, i int) float64 {
	if i < 0 {
		h := firTaps + i
		if h < 0 || !r.havePrev {
			return 0
		}
		return r.history[h]
	}
	if i >= len(src) {
		return src[len(src)-1]
	}
	return src[i]
}

// storeHistory replaces the history with the trailing tap-count input
// samples of this frame.
func (r *ContinuousResampler) storeHistory(src []float64) {
	if len(src) >= firTaps {
		copy(r.history[:], src[len(src)-firTaps:])
		return
	}
	// Short frame: shift the old history and append what we have.
	keep := firTaps - len(src)
	copy(r.history[:keep], r.history[firTaps-keep:])
	copy(r.history[keep:], src)
}

// Reset clears filter history, the seam crossfade anchor, and the
// fractional position. Called at call start and at explicit buffer clears.
func (r *ContinuousResampler) Reset() {
	r.history = [firTaps]float64{}
	r.havePrev = false
	r.lastOut = 0
	r.frac = 0
}

func hann(d, halfWidth float64) float64 {
	x := d / halfWidth
	if x < -1 || x > 1 {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*x))
}
