// Package dsp noise-conditioning chain.
//
// This file implements the chain stages and their fixed-order composition.
// Stage gains use float64 internally with clipping protection on the way
// back to int16.
package dsp

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Stage is one resettable processing step of the chain. Stages process a
// frame in place and may be reset independently of the others.
type Stage interface {
	Process(samples []int16) []int16
	Reset()
	Name() string
}

// EmphasisDirection selects the transmit or receive form of the emphasis
// stage.
type EmphasisDirection int

const (
	// PreEmphasis boosts consonant energy before narrowband encoding:
	// y[n] = x[n] - α·x[n-1].
	PreEmphasis EmphasisDirection = iota
	// DeEmphasis is the inverse form applied on the receive path:
	// y[n] = x[n] + α·y[n-1].
	DeEmphasis
)

// ChainConfig carries the tunable parameters of a chain. Zero values are
// replaced by deployment defaults.
type ChainConfig struct {
	SampleRate     int     // rate the chain processes at (8000 in this deployment)
	HighPassCutoff float64 // Hz, default 70
	GateLowLevel   float64 // sample magnitude at or below which minimum gain applies
	GateHighLevel  float64 // sample magnitude at or above which unity gain applies
	GateFloorGain  float64 // minimum gain inside the gate, default 0.12
	TargetRMS      float64 // AGC target, default 3000
	NoiseFloorRMS  float64 // below this the AGC holds its gain, default 150
	MinGain        float64 // AGC clamp, default 0.25
	MaxGain        float64 // AGC clamp, default 4.0
	GainAlpha      float64 // AGC smoothing factor, default 0.2
	EmphasisAlpha  float64 // emphasis coefficient, default 0.95
	Direction      EmphasisDirection
}

func (c *ChainConfig) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 8000
	}
	if c.HighPassCutoff == 0 {
		c.HighPassCutoff = 70
	}
	if c.GateLowLevel == 0 {
		c.GateLowLevel = 400
	}
	if c.GateHighLevel == 0 {
		c.GateHighLevel = 1200
	}
	if c.GateFloorGain == 0 {
		c.GateFloorGain = 0.12
	}
	if c.TargetRMS == 0 {
		c.TargetRMS = 3000
	}
	if c.NoiseFloorRMS == 0 {
		c.NoiseFloorRMS = 150
	}
	if c.MinGain == 0 {
		c.MinGain = 0.25
	}
	if c.MaxGain == 0 {
		c.MaxGain = 4.0
	}
	if c.GainAlpha == 0 {
		c.GainAlpha = 0.2
	}
	if c.EmphasisAlpha == 0 {
		c.EmphasisAlpha = 0.95
	}
}

// HighPassFilter is a 2nd-order Butterworth high-pass in Direct-Form II.
// Coefficients are derived from the configured sample rate at construction;
// the filter must be rebuilt if the processing rate changes.
type HighPassFilter struct {
	b0, b1, b2 float64
	a1, a2     float64
	w1, w2     float64 // delay line
}

// NewHighPassFilter derives biquad coefficients for the given cutoff and
// sample rate.
func NewHighPassFilter(cutoffHz float64, sampleRate int) (*HighPassFilter, error) {
	if sampleRate <= 0 || cutoffHz <= 0 || cutoffHz >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("invalid high-pass design: cutoff=%.1fHz rate=%d", cutoffHz, sampleRate)
	}

	omega := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosw := math.Cos(omega)
	alpha := math.Sin(omega) / (2 * math.Sqrt2 / 2)

	a0 := 1 + alpha
	f := &HighPassFilter{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
	return f, nil
}

// Process runs the biquad over the frame in place.
func (f *HighPassFilter) Process(samples []int16) []int16 {
	for i, s := range samples {
		w := float64(s) - f.a1*f.w1 - f.a2*f.w2
		y := f.b0*w + f.b1*f.w1 + f.b2*f.w2
		f.w2 = f.w1
		f.w1 = w
		samples[i] = clip(y)
	}
	return samples
}

// Reset clears the filter delay line.
func (f *HighPassFilter) Reset() { f.w1, f.w2 = 0, 0 }

// Name returns the stage name for logging.
func (f *HighPassFilter) Name() string { return "highpass" }

// NoiseGate is a soft-knee gate. Samples at or below the low threshold get
// the floor gain, samples at or above the high threshold pass at unity, and
// the region between is smoothstep-interpolated, which avoids the gating
// pump of a hard threshold.
type NoiseGate struct {
	low   float64
	high  float64
	floor float64
}

// NewNoiseGate creates a gate with the given knee thresholds and floor
// gain.
func NewNoiseGate(low, high, floor float64) (*NoiseGate, error) {
	if low < 0 || high <= low {
		return nil, fmt.Errorf("invalid gate knee: low=%.0f high=%.0f", low, high)
	}
	if floor < 0 || floor > 1 {
		return nil, fmt.Errorf("invalid gate floor gain: %.2f", floor)
	}
	return &NoiseGate{low: low, high: high, floor: floor}, nil
}

// Process applies the per-sample soft-knee gain in place.
func (g *NoiseGate) Process(samples []int16) []int16 {
	for i, s := range samples {
		mag := math.Abs(float64(s))
		var gain float64
		switch {
		case mag <= g.low:
			gain = g.floor
		case mag >= g.high:
			gain = 1
		default:
			t := (mag - g.low) / (g.high - g.low)
			t = t * t * (3 - 2*t) // smoothstep
			gain = g.floor + (1-g.floor)*t
		}
		samples[i] = clip(float64(s) * gain)
	}
	return samples
}

// Reset is a no-op; the gate is memoryless.
func (g *NoiseGate) Reset() {}

// Name returns the stage name for logging.
func (g *NoiseGate) Name() string { return "gate" }

// AutoGain is a frame-level AGC with exponential gain smoothing. The gain
// moves toward targetRMS/rms each frame instead of jumping, so consecutive
// frames do not pump.
type AutoGain struct {
	targetRMS  float64
	noiseFloor float64
	minGain    float64
	maxGain    float64
	alpha      float64
	gain       float64 // smoothed gain, carried across frames
}

// NewAutoGain creates an AGC starting at unity gain.
func NewAutoGain(targetRMS, noiseFloor, minGain, maxGain, alpha float64) (*AutoGain, error) {
	if targetRMS <= 0 || minGain <= 0 || maxGain < minGain {
		return nil, fmt.Errorf("invalid agc parameters: target=%.0f min=%.2f max=%.2f", targetRMS, minGain, maxGain)
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("invalid agc smoothing factor: %.3f", alpha)
	}
	return &AutoGain{
		targetRMS:  targetRMS,
		noiseFloor: noiseFloor,
		minGain:    minGain,
		maxGain:    maxGain,
		alpha:      alpha,
		gain:       1,
	}, nil
}

// Process measures the frame RMS, smooths the gain toward the target, and
// applies it in place.
func (a *AutoGain) Process(samples []int16) []int16 {
	rms := frameRMS(samples)
	if rms > a.noiseFloor {
		target := a.targetRMS / rms
		if target < a.minGain {
			target = a.minGain
		} else if target > a.maxGain {
			target = a.maxGain
		}
		a.gain += a.alpha * (target - a.gain)
	}
	for i, s := range samples {
		samples[i] = clip(float64(s) * a.gain)
	}
	return samples
}

// Gain returns the current smoothed gain.
func (a *AutoGain) Gain() float64 { return a.gain }

// Reset returns the smoothed gain to unity.
func (a *AutoGain) Reset() { a.gain = 1 }

// Name returns the stage name for logging.
func (a *AutoGain) Name() string { return "agc" }

// Emphasis is the single-pole pre/de-emphasis filter.
type Emphasis struct {
	alpha     float64
	direction EmphasisDirection
	prev      float64 // x[n-1] for pre-emphasis, y[n-1] for de-emphasis
}

// NewEmphasis creates the emphasis stage in the given direction.
func NewEmphasis(alpha float64, direction EmphasisDirection) (*Emphasis, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("invalid emphasis coefficient: %.3f", alpha)
	}
	return &Emphasis{alpha: alpha, direction: direction}, nil
}

// Process applies the filter in place.
func (e *Emphasis) Process(samples []int16) []int16 {
	if e.direction == PreEmphasis {
		for i, s := range samples {
			x := float64(s)
			y := x - e.alpha*e.prev
			e.prev = x
			samples[i] = clip(y)
		}
		return samples
	}
	for i, s := range samples {
		y := float64(s) + e.alpha*e.prev
		e.prev = y
		samples[i] = clip(y)
	}
	return samples
}

// Reset clears the one-sample filter memory.
func (e *Emphasis) Reset() { e.prev = 0 }

// Name returns the stage name for logging.
func (e *Emphasis) Name() string { return "emphasis" }

// Chain runs the four stages in fixed order. One chain per call direction.
type Chain struct {
	highpass *HighPassFilter
	gate     *NoiseGate
	agc      *AutoGain
	emphasis *Emphasis
}

// NewChain builds the stage chain from cfg, applying deployment defaults to
// zero fields.
func NewChain(cfg ChainConfig) (*Chain, error) {
	cfg.applyDefaults()

	logrus.WithFields(logrus.Fields{
		"function":    "NewChain",
		"sample_rate": cfg.SampleRate,
		"hp_cutoff":   cfg.HighPassCutoff,
		"target_rms":  cfg.TargetRMS,
		"direction":   cfg.Direction,
	}).Info("Creating DSP chain")

	hp, err := NewHighPassFilter(cfg.HighPassCutoff, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("high-pass stage: %w", err)
	}
	gate, err := NewNoiseGate(cfg.GateLowLevel, cfg.GateHighLevel, cfg.GateFloorGain)
	if err != nil {
		return nil, fmt.Errorf("gate stage: %w", err)
	}
	agc, err := NewAutoGain(cfg.TargetRMS, cfg.NoiseFloorRMS, cfg.MinGain, cfg.MaxGain, cfg.GainAlpha)
	if err != nil {
		return nil, fmt.Errorf("agc stage: %w", err)
	}
	emph, err := NewEmphasis(cfg.EmphasisAlpha, cfg.Direction)
	if err != nil {
		return nil, fmt.Errorf("emphasis stage: %w", err)
	}

	return &Chain{highpass: hp, gate: gate, agc: agc, emphasis: emph}, nil
}

// Process runs one frame through every stage in order and returns the frame
// together with the AGC gain that was applied to it.
func (c *Chain) Process(frame []int16) ([]int16, float64) {
	if len(frame) == 0 {
		return frame, c.agc.Gain()
	}
	frame = c.highpass.Process(frame)
	frame = c.gate.Process(frame)
	frame = c.agc.Process(frame)
	frame = c.emphasis.Process(frame)
	return frame, c.agc.Gain()
}

// Stages returns the chain's stages in processing order.
func (c *Chain) Stages() []Stage {
	return []Stage{c.highpass, c.gate, c.agc, c.emphasis}
}

// Reset resets every stage. Called at call start and between logical turns.
func (c *Chain) Reset() {
	for _, s := range c.Stages() {
		s.Reset()
	}
}

func frameRMS(samples []int16) float64 {
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

func clip(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
