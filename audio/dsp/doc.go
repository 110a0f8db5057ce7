// Package dsp implements the per-call noise-conditioning chain that runs
// between the AI backend's PCM and the narrowband wire encode.
//
// The chain applies four stages in fixed order, each stage feeding the next:
//
//	high-pass filter → noise gate → automatic gain control → pre/de-emphasis
//
// The high-pass removes DC offset and mains hum below ~70Hz, the soft-knee
// gate attenuates background noise without the pumping artifact of a hard
// gate, the AGC normalizes frame energy with exponential gain smoothing, and
// the emphasis filter tilts the spectrum before (transmit) or after
// (receive) the lossy 8kHz encode to preserve consonant energy.
//
// All stages are stateful IIR or smoothing filters; each is independently
// resettable and the whole chain is reset at call start and between logical
// turns. One chain instance per call, never shared.
package dsp
