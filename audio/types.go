// Package audio mode and state enumerations.
package audio

import "fmt"

// Mode selects the AudioSource processing pipeline.
type Mode int

const (
	// ModeStandard is the production pipeline: priming, continuous
	// resampling, DSP conditioning, underrun interpolation.
	ModeStandard Mode = iota
	// ModePassthrough bypasses the resampler (test-only; input must already
	// be at the wire codec's rate).
	ModePassthrough
	// ModeJitterBuffer is ModeStandard plus re-priming after an exhausted
	// underrun, trading latency for fewer audible gaps on lossy backends.
	ModeJitterBuffer
	// ModeSimpleResample uses the stateless one-shot resampler per frame and
	// skips the DSP chain.
	ModeSimpleResample
	// ModeTestTone replaces the backend with an internal 440Hz generator.
	ModeTestTone
)

// ParseMode maps a configuration name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "standard":
		return ModeStandard, nil
	case "passthrough":
		return ModePassthrough, nil
	case "jitter-buffer":
		return ModeJitterBuffer, nil
	case "simple-resample":
		return ModeSimpleResample, nil
	case "test-tone":
		return ModeTestTone, nil
	}
	return 0, fmt.Errorf("unknown audio mode: %q", name)
}

// String returns the canonical configuration name.
func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModePassthrough:
		return "passthrough"
	case ModeJitterBuffer:
		return "jitter-buffer"
	case ModeSimpleResample:
		return "simple-resample"
	case ModeTestTone:
		return "test-tone"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ResamplerMode selects the playout-path resampling strategy.
type ResamplerMode int

const (
	// ResamplerCustomFIR is the stateful ContinuousResampler with carried
	// FIR history and seam crossfades.
	ResamplerCustomFIR ResamplerMode = iota
	// ResamplerQuality runs the one-shot high-quality path per frame,
	// falling back to ResamplerCustomFIR when the rate pair is unsupported.
	ResamplerQuality
)

// ParseResamplerMode maps a configuration name to a ResamplerMode.
func ParseResamplerMode(name string) (ResamplerMode, error) {
	switch name {
	case "", "custom-fir":
		return ResamplerCustomFIR, nil
	case "naudio-quality":
		return ResamplerQuality, nil
	}
	return 0, fmt.Errorf("unknown resampler mode: %q", name)
}

// String returns the canonical configuration name.
func (m ResamplerMode) String() string {
	switch m {
	case ResamplerCustomFIR:
		return "custom-fir"
	case ResamplerQuality:
		return "naudio-quality"
	}
	return fmt.Sprintf("resampler(%d)", int(m))
}

// State is the FramePump lifecycle state.
type State int

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota
	// StatePriming emits silence while the queue fills to the priming depth.
	StatePriming
	// StatePlaying dequeues and emits one real frame per tick.
	StatePlaying
	// StateUnderrun masks an empty queue with interpolated frames.
	StateUnderrun
	// StateClosed is terminal; the pump goroutine has exited.
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePriming:
		return "priming"
	case StatePlaying:
		return "playing"
	case StateUnderrun:
		return "underrun"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FrameWriter receives encoded wire frames from the pump, one per 20ms tick.
// sourceSamples is the frame duration in samples at the codec's native rate,
// which is what RTP-style transports advance their timestamp by. Transport
// packet framing is the caller's concern.
type FrameWriter interface {
	WriteFrame(sourceSamples int, payload []byte) error
}

// FrameWriterFunc adapts a function to the FrameWriter interface.
type FrameWriterFunc func(sourceSamples int, payload []byte) error

// WriteFrame calls f.
func (f FrameWriterFunc) WriteFrame(sourceSamples int, payload []byte) error {
	return f(sourceSamples, payload)
}
