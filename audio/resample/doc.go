// Package resample converts linear PCM between the sample rates used by the
// bridge (8, 16, 24 and 48kHz).
//
// Two flavors are provided. Resample is a stateless one-shot conversion for
// bulk buffers: cubic Catmull-Rom interpolation, with a windowed-sinc
// low-pass applied first when downsampling so the decimation does not alias.
// ContinuousResampler is the stateful per-call variant used on the 20ms
// playout path: it preserves FIR filter history and output continuity across
// successive frames, and applies a short linear crossfade at every frame
// seam. Without the crossfade, 3:1-style decimation from 24kHz to 8kHz
// produces an audible click every 20ms.
//
// Both honor the length invariant: converting n samples from rate r1 to r2
// yields round(n*r2/r1) samples, within one sample. Identical rates are an
// identity no-op; non-integer ratios such as 24000→16000 interpolate at
// fractional source positions rather than integer-decimating.
package resample
