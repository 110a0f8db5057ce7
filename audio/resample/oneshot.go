// Package resample one-shot conversion.
//
// This file implements the stateless resampling path used for bulk buffers
// (whole utterances, decoded inbound audio) where click-free continuity
// across successive calls is not required.
package resample

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Quality selects the one-shot interpolation kernel.
type Quality int

const (
	// QualityLinear interpolates linearly between adjacent samples.
	QualityLinear Quality = iota
	// QualityCubic interpolates with a Catmull-Rom spline.
	QualityCubic
)

// Resample converts input from fromRate to toRate using the default cubic
// kernel. See ResampleQuality.
func Resample(input []int16, fromRate, toRate int) ([]int16, error) {
	return ResampleQuality(input, fromRate, toRate, QualityCubic)
}

// ResampleQuality converts input from fromRate to toRate.
//
// Identical rates return a copy. For downsampling, a windowed-sinc low-pass
// whose kernel length scales with the rate ratio runs before interpolation
// to prevent aliasing. The output holds round(len(input)*toRate/fromRate)
// samples.
func ResampleQuality(input []int16, fromRate, toRate int, quality Quality) ([]int16, error) {
	if fromRate <= 0 || toRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "ResampleQuality",
			"from_rate": fromRate,
			"to_rate":   toRate,
			"error":     "invalid sample rates",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("invalid sample rates: from=%d, to=%d", fromRate, toRate)
	}
	if len(input) == 0 {
		return []int16{}, nil
	}
	if fromRate == toRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out, nil
	}

	src := make([]float64, len(input))
	for i, s := range input {
		src[i] = float64(s)
	}

	if toRate < fromRate {
		src = lowPass(src, fromRate, toRate)
	}

	ratio := float64(fromRate) / float64(toRate)
	outN := int(float64(len(input))*float64(toRate)/float64(fromRate) + 0.5)
	out := make([]int16, outN)

	for j := 0; j < outN; j++ {
		pos := float64(j) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		var v float64
		switch quality {
		case QualityCubic:
			v = catmullRom(
				sampleAt(src, idx-1),
				sampleAt(src, idx),
				sampleAt(src, idx+1),
				sampleAt(src, idx+2),
				frac,
			)
		default:
			v = sampleAt(src, idx)*(1-frac) + sampleAt(src, idx+1)*frac
		}
		out[j] = clampPCM(v)
	}
	return out, nil
}

// sampleAt reads src with edge clamping so the interpolation window never
// runs off the buffer.
func sampleAt(src []float64, i int) float64 {
	if i < 0 {
		return src[0]
	}
	if i >= len(src) {
		return src[len(src)-1]
	}
	return src[i]
}

// catmullRom evaluates a Catmull-Rom spline through p0..p3 at t in [0,1).
func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * (2*p1 +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// lowPass applies a zero-phase windowed-sinc FIR at 90% of the target
// Nyquist. The kernel half-length scales with the decimation ratio so the
// transition band stays proportionally narrow.
func lowPass(src []float64, fromRate, toRate int) []float64 {
	ratio := float64(fromRate) / float64(toRate)
	half := int(4*ratio + 0.5)
	if half < 4 {
		half = 4
	}
	fc := 0.45 / ratio // normalized cutoff in cycles per input sample

	kernel := make([]float64, 2*half+1)
	var sum float64
	for k := -half; k <= half; k++ {
		v := 2 * fc * sinc(2*fc*float64(k))
		// Hann window
		v *= 0.5 * (1 + math.Cos(math.Pi*float64(k)/float64(half+1)))
		kernel[k+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out := make([]float64, len(src))
	for i := range src {
		var acc float64
		for k := -half; k <= half; k++ {
			acc += sampleAt(src, i+k) * kernel[k+half]
		}
		out[i] = acc
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func clampPCM(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// OutputLen reports how many samples a conversion of n samples from
// fromRate to toRate produces.
func OutputLen(n, fromRate, toRate int) int {
	if fromRate == toRate {
		return n
	}
	return int(float64(n)*float64(toRate)/float64(fromRate) + 0.5)
}
