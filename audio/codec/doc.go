// Package codec implements the wire codecs used on the telephony leg of the
// audio bridge: ITU-T G.711 µ-law and A-law companding, a G.722 sub-band
// ADPCM coder, and Opus.
//
// All codecs operate on fixed-size frames matching 20ms of audio at their
// native sample rate:
//
//	µ-law / A-law: 160 samples @ 8kHz in, 160 bytes out
//	G.722:         320 samples @ 16kHz in, 160 bytes out
//	Opus:          960 samples @ 48kHz in, variable bytes out
//
// G.711 is pure and table-driven. G.722 and Opus carry adaptive state, so
// encoder and decoder instances are owned by a per-call Bank and are never
// shared between calls; reusing stale adaptive state across calls produces
// audible artifacts on the next call.
//
// Decode failures are absorbed at the package boundary: a malformed or short
// frame decodes to one frame of silence and is logged, so a single bad packet
// cannot stop a call's playout.
//
// Opus encoding and decoding both use layeh.com/gopus; libopus covers every
// Opus configuration mode, so frames encoded here always decode on the
// reverse path.
package codec
