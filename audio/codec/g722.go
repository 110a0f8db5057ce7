// Package codec G.722 sub-band ADPCM.
//
// This file implements a simplified G.722 coder: a 24-sample QMF filter bank
// splits the 16kHz input into low and high sub-bands, the low band is ADPCM
// quantized to 6 bits and the high band to 2 bits, and each band adapts its
// quantizer step from a fast/slow pair of log-scale integrators driven by the
// quantized index. The encoder and decoder run the identical adaptation from
// the transmitted index only, so their predictor and scale state stay in
// lockstep over arbitrarily long calls.
//
// This is deliberately a simplified SB-ADPCM rather than the full ITU-T
// reference algorithm: the predictor update order and pole clamp ranges match
// the deployed peers, not the standard. Interop with those peers takes
// precedence over reference conformance.
package codec

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// qmfCoeffs is the fixed 12-tap half kernel of the 24-tap windowed-sinc QMF.
var qmfCoeffs = [12]int32{3, -11, 12, 32, -210, 951, 3876, -805, 362, -156, 53, -11}

// qmfState is the circular 24-sample history shared by the analysis and
// synthesis filter banks.
type qmfState struct {
	history [24]int32
	pos     int // index of the oldest sample
}

func (q *qmfState) push(v int32) {
	q.history[q.pos] = v
	q.pos++
	if q.pos == 24 {
		q.pos = 0
	}
}

// at returns the k-th sample of the window, k=0 oldest through k=23 newest.
func (q *qmfState) at(k int) int32 {
	i := q.pos + k
	if i >= 24 {
		i -= 24
	}
	return q.history[i]
}

func (q *qmfState) reset() {
	*q = qmfState{}
}

// analyze pushes one input pair and splits it into low/high sub-band samples.
func (q *qmfState) analyze(x0, x1 int32) (xlow, xhigh int32) {
	q.push(x0)
	q.push(x1)
	var sumOdd, sumEven int32
	for i := 0; i < 12; i++ {
		sumOdd += q.at(2*i) * qmfCoeffs[i]
		sumEven += q.at(2*i+1) * qmfCoeffs[11-i]
	}
	return (sumEven + sumOdd) >> 14, (sumEven - sumOdd) >> 14
}

// synthesize pushes one reconstructed sub-band pair and produces two output
// samples.
func (q *qmfState) synthesize(rlow, rhigh int32) (out0, out1 int32) {
	q.push(rlow + rhigh)
	q.push(rlow - rhigh)
	var xout1, xout2 int32
	for i := 0; i < 12; i++ {
		xout2 += q.at(2*i) * qmfCoeffs[i]
		xout1 += q.at(2*i+1) * qmfCoeffs[11-i]
	}
	return saturate16(xout1 >> 11), saturate16(xout2 >> 11)
}

func saturate16(v int32) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

// bandState is the adaptive state of one ADPCM sub-band: a pole/zero
// predictor with a 6-tap quantized-difference history and a step size driven
// by fast/slow log-scale integrators. One instance per band per direction.
type bandState struct {
	bits   int // quantizer width: 6 for the low band, 2 for the high band
	det    float64
	detMin float64
	detMax float64
	nbFast float64
	nbSlow float64

	a  [2]float64 // pole coefficients
	b  [6]float64 // zero coefficients
	d  [6]float64 // quantized difference history, d[0] newest
	r  [2]float64 // reconstructed signal history
	p  [2]float64 // partial reconstruction history for pole adaptation
	sz float64    // zero-section accumulator from the last predict
}

// wLow maps a 5-bit low-band magnitude to a log-scale step adjustment.
// Small magnitudes shrink the step, large magnitudes grow it, with the
// neutral zone tuned so typical speech sits mid-quantizer.
var wLow = [32]float64{
	-0.12, -0.12, -0.06, -0.06, -0.06, -0.01, -0.01, 0.03,
	0.03, 0.03, 0.12, 0.12, 0.12, 0.12, 0.12, 0.12,
	0.30, 0.30, 0.30, 0.30, 0.30, 0.30, 0.30, 0.30,
	0.60, 0.60, 0.60, 0.60, 0.60, 0.60, 0.60, 0.60,
}

// wHigh maps the 1-bit high-band magnitude to a log-scale step adjustment.
var wHigh = [2]float64{-0.08, 0.40}

func newLowBand() bandState {
	return bandState{bits: 6, det: 8, detMin: 0.0625, detMax: 1500}
}

func newHighBand() bandState {
	return bandState{bits: 2, det: 8, detMin: 0.0625, detMax: 4096}
}

func (bd *bandState) reset() {
	*bd = bandState{bits: bd.bits, det: 8, detMin: bd.detMin, detMax: bd.detMax}
}

func (bd *bandState) signBit() int { return 1 << (bd.bits - 1) }
func (bd *bandState) magMask() int { return bd.signBit() - 1 }

// predict computes the predictor output for the next sample and latches the
// zero-section accumulator used later by the adaptation step.
func (bd *bandState) predict() float64 {
	sz := 0.0
	for i := 0; i < 6; i++ {
		sz += bd.b[i] * bd.d[i]
	}
	bd.sz = sz
	return sz + bd.a[0]*bd.r[0] + bd.a[1]*bd.r[1]
}

// quantize maps a prediction error to a sign-magnitude index.
func (bd *bandState) quantize(e float64) int {
	mag := int(math.Abs(e) / bd.det)
	if mag > bd.magMask() {
		mag = bd.magMask()
	}
	code := mag
	if e < 0 {
		code |= bd.signBit()
	}
	return code
}

// inverse reconstructs the quantized difference from an index. This is the
// only place wire bits become signal, so it must be identical on both sides.
func (bd *bandState) inverse(code int) float64 {
	mag := code & bd.magMask()
	dq := (float64(mag) + 0.5) * bd.det
	if code&bd.signBit() != 0 {
		return -dq
	}
	return dq
}

// adaptScale advances the fast/slow log-scale integrator pair from the
// quantized magnitude and rederives the step size. Driving this from the
// index rather than the raw error is what keeps encoder and decoder from
// diverging over a long call.
func (bd *bandState) adaptScale(code int) {
	mag := code & bd.magMask()
	var w float64
	if bd.bits == 6 {
		w = wLow[mag]
	} else {
		w = wHigh[mag&1]
	}
	bd.nbFast = clampF(0.9*bd.nbFast+w, 0, 6)
	bd.nbSlow = clampF((127.0/128.0)*bd.nbSlow+0.25*w, 0, 11)
	bd.det = clampF(bd.detMin*math.Exp2(0.3*bd.nbFast+bd.nbSlow), bd.detMin, bd.detMax)
}

// update runs the shared post-quantization adaptation: scale integrators,
// sign-sign pole/zero predictor update with stability clamps, and history
// shifts. s must be the predictor output from the immediately preceding
// predict call. Returns the reconstructed sub-band sample.
func (bd *bandState) update(code int, s float64) float64 {
	dq := bd.inverse(code)
	bd.adaptScale(code)

	p0 := bd.sz + dq
	sg0 := sgn(p0)
	a1 := (255.0/256.0)*bd.a[0] + (3.0/256.0)*sg0*sgn(bd.p[0])
	a2 := (127.0/128.0)*bd.a[1] + (1.0/128.0)*(sg0*sgn(bd.p[1])-0.5*clampF(4*bd.a[0], -2, 2)*sg0*sgn(bd.p[0]))
	a2 = clampF(a2, -0.75, 0.75)
	lim := 0.9375 - a2
	bd.a[0] = clampF(a1, -lim, lim)
	bd.a[1] = a2

	sgdq := sgn(dq)
	for i := 0; i < 6; i++ {
		bd.b[i] = (255.0/256.0)*bd.b[i] + (1.0/128.0)*sgdq*sgn(bd.d[i])
	}

	copy(bd.d[1:], bd.d[:5])
	bd.d[0] = dq
	bd.p[1] = bd.p[0]
	bd.p[0] = p0

	r0 := s + dq
	bd.r[1] = bd.r[0]
	bd.r[0] = r0
	return r0
}

func sgn(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// G722Encoder encodes 16kHz linear PCM to G.722 sub-band ADPCM. One
// instance per call direction; the adaptive state must never be shared.
type G722Encoder struct {
	qmf  qmfState
	low  bandState
	high bandState
}

// NewG722Encoder creates a fresh G.722 encoder with zeroed adaptive state.
func NewG722Encoder() *G722Encoder {
	logrus.WithFields(logrus.Fields{
		"function": "NewG722Encoder",
	}).Debug("Creating G.722 encoder")
	return &G722Encoder{low: newLowBand(), high: newHighBand()}
}

// Encode converts 16kHz PCM to G.722 bytes, two input samples per output
// byte. The input length must be even.
func (e *G722Encoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("g722 encode requires an even sample count, got %d", len(pcm))
	}
	out := make([]byte, len(pcm)/2)
	for i := 0; i < len(pcm); i += 2 {
		xlow, xhigh := e.qmf.analyze(int32(pcm[i]), int32(pcm[i+1]))

		sl := e.low.predict()
		il := e.low.quantize(float64(xlow) - sl)
		e.low.update(il, sl)

		sh := e.high.predict()
		ih := e.high.quantize(float64(xhigh) - sh)
		e.high.update(ih, sh)

		out[i/2] = byte(ih<<6 | il)
	}
	return out, nil
}

// Reset clears all adaptive state for a new logical turn.
func (e *G722Encoder) Reset() {
	e.qmf.reset()
	e.low.reset()
	e.high.reset()
}

// G722Decoder decodes G.722 sub-band ADPCM to 16kHz linear PCM. One
// instance per call direction.
type G722Decoder struct {
	qmf  qmfState
	low  bandState
	high bandState
}

// NewG722Decoder creates a fresh G.722 decoder with zeroed adaptive state.
func NewG722Decoder() *G722Decoder {
	logrus.WithFields(logrus.Fields{
		"function": "NewG722Decoder",
	}).Debug("Creating G.722 decoder")
	return &G722Decoder{low: newLowBand(), high: newHighBand()}
}

// Decode converts G.722 bytes to 16kHz PCM, two output samples per input
// byte.
func (d *G722Decoder) Decode(data []byte) []int16 {
	out := make([]int16, len(data)*2)
	for i, by := range data {
		il := int(by) & 0x3F
		ih := int(by>>6) & 0x03

		sl := d.low.predict()
		rlow := d.low.update(il, sl)

		sh := d.high.predict()
		rhigh := d.high.update(ih, sh)

		o0, o1 := d.qmf.synthesize(
			saturate16(int32(math.Round(rlow))),
			saturate16(int32(math.Round(rhigh))),
		)
		out[i*2] = int16(o0)
		out[i*2+1] = int16(o1)
	}
	return out
}

// Reset clears all adaptive state for a new logical turn.
func (d *G722Decoder) Reset() {
	d.qmf.reset()
	d.low.reset()
	d.high.reset()
}
