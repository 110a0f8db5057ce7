// Package audio per-call composition.
//
// This file implements the AudioSource: the public unit instantiated once
// per call, owning the DSP chain, resampler, codec bank, jitter buffer and
// frame pump for that call. Nothing here is shared between calls.
package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maxparsons123/happy-ride-helper-sub007/audio/codec"
	"github.com/maxparsons123/happy-ride-helper-sub007/audio/dsp"
	"github.com/maxparsons123/happy-ride-helper-sub007/audio/resample"
	"github.com/maxparsons123/happy-ride-helper-sub007/metrics"
)

const (
	// DefaultInputRate is the AI backend's PCM rate in this deployment.
	DefaultInputRate = 24000

	// DefaultJitterMs is the priming depth in milliseconds.
	DefaultJitterMs = 120

	testToneHz        = 440
	testToneAmplitude = 8000
)

// DefaultCodecPriority is the negotiation order when the configuration
// omits one.
var DefaultCodecPriority = []codec.Codec{codec.CodecG722, codec.CodecPCMU, codec.CodecPCMA, codec.CodecOpus}

// Config configures one AudioSource. Writer is required; zero values
// elsewhere select deployment defaults.
type Config struct {
	CallID string

	Mode          Mode
	ResamplerMode ResamplerMode

	// InputSampleRate is the rate of PCM pushed by the backend.
	InputSampleRate int

	// JitterBufferMs is the priming depth; QueueCap bounds the frame queue.
	JitterBufferMs int
	QueueCap       int

	// CodecPriority is tried in order; the first usable codec becomes the
	// call's wire codec.
	CodecPriority []codec.Codec
	OpusBitRate   int

	// DspEnabled runs the noise-conditioning chain on the outbound path and
	// pre-emphasis on the inbound path. Dsp tunes the chain; its sample
	// rate and direction are set by the source.
	DspEnabled bool
	Dsp        dsp.ChainConfig

	Writer  FrameWriter
	Metrics *metrics.Recorder
}

func (c *Config) applyDefaults() {
	if c.InputSampleRate == 0 {
		c.InputSampleRate = DefaultInputRate
	}
	if c.JitterBufferMs == 0 {
		c.JitterBufferMs = DefaultJitterMs
	}
	if len(c.CodecPriority) == 0 {
		c.CodecPriority = DefaultCodecPriority
	}
}

// AudioSource is the per-call audio pipeline. Construct with New, feed with
// EnqueuePCM, start the playout goroutine with Start, and release all state
// with Close.
type AudioSource struct {
	cfg    Config
	log    *logrus.Entry
	target codec.Codec

	bank   *codec.Bank
	chain  *dsp.Chain    // nil when DSP is disabled or the mode skips it
	inEmph *dsp.Emphasis // inbound pre-emphasis, nil when DSP is disabled
	cont   *resample.ContinuousResampler
	queue  *JitterBuffer
	pump   *FramePump

	// resMode may downgrade from ResamplerQuality to ResamplerCustomFIR at
	// runtime; touched only by the pump goroutine.
	resMode     ResamplerMode
	resFellBack bool

	pendingMu sync.Mutex
	pending   []int16 // trailing partial frame carried between pushes

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	closed  bool
}

// New builds the per-call pipeline: codec selection down the priority list,
// resampler for the input→wire rate pair, optional DSP chain at the wire
// rate, bounded queue and frame pump.
func New(cfg Config) (*AudioSource, error) {
	if cfg.Writer == nil {
		return nil, fmt.Errorf("audio source requires a frame writer")
	}
	cfg.applyDefaults()
	if cfg.InputSampleRate%50 != 0 {
		return nil, fmt.Errorf("input rate %d does not divide into 20ms frames", cfg.InputSampleRate)
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "audio_source",
		"call_id":   cfg.CallID,
	})

	s := &AudioSource{
		cfg:     cfg,
		log:     log,
		bank:    codec.NewBank(cfg.OpusBitRate),
		queue:   NewJitterBuffer(cfg.QueueCap),
		resMode: cfg.ResamplerMode,
	}

	target, err := s.selectCodec(cfg.CodecPriority)
	if err != nil {
		return nil, err
	}
	s.target = target

	s.cont, err = resample.NewContinuousResampler(cfg.InputSampleRate, target.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("playout resampler: %w", err)
	}

	if cfg.DspEnabled {
		if cfg.Mode != ModePassthrough && cfg.Mode != ModeSimpleResample {
			dspCfg := cfg.Dsp
			dspCfg.SampleRate = target.SampleRate()
			dspCfg.Direction = dsp.PreEmphasis
			s.chain, err = dsp.NewChain(dspCfg)
			if err != nil {
				return nil, fmt.Errorf("dsp chain: %w", err)
			}
		}
		alpha := cfg.Dsp.EmphasisAlpha
		if alpha == 0 {
			alpha = 0.95
		}
		s.inEmph, err = dsp.NewEmphasis(alpha, dsp.PreEmphasis)
		if err != nil {
			return nil, fmt.Errorf("inbound emphasis: %w", err)
		}
	}

	s.pump, err = NewFramePump(PumpConfig{
		CallID:            cfg.CallID,
		Target:            target,
		InputFrameSamples: cfg.InputSampleRate / 50,
		PrimingDepth:      cfg.JitterBufferMs / 20,
		Reprime:           cfg.Mode == ModeJitterBuffer,
		Queue:             s.queue,
		Encode:            s.encodeFrame,
		Writer:            cfg.Writer,
		Metrics:           cfg.Metrics,
		OnReprime:         s.resetPipeline,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"mode":           cfg.Mode.String(),
		"resampler_mode": cfg.ResamplerMode.String(),
		"codec":          target.String(),
		"input_rate":     cfg.InputSampleRate,
		"jitter_ms":      cfg.JitterBufferMs,
		"dsp":            cfg.DspEnabled,
	}).Info("Created audio source")
	return s, nil
}

// selectCodec walks the priority list and returns the first codec whose
// per-call state can be constructed. Only Opus can fail to initialize; a
// failure there falls back to the next negotiated codec.
func (s *AudioSource) selectCodec(priority []codec.Codec) (codec.Codec, error) {
	for _, c := range priority {
		if c == codec.CodecOpus {
			// Probe encode constructs the Opus pair eagerly; silence input
			// leaves no audible state behind.
			if _, err := s.bank.Encode(codec.SilencePCM16(codec.CodecOpus.FrameSamples()), codec.CodecOpus); err != nil {
				s.log.WithFields(logrus.Fields{
					"error": err.Error(),
				}).Warn("Opus unavailable, trying next codec in priority order")
				continue
			}
		}
		return c, nil
	}
	return 0, fmt.Errorf("no usable codec in priority list %v", priority)
}

// Target returns the negotiated wire codec.
func (s *AudioSource) Target() codec.Codec { return s.target }

// QueueDepth returns the current playout queue depth in frames.
func (s *AudioSource) QueueDepth() int { return s.queue.Len() }

// EnqueuePCM accepts an arbitrarily-sized PCM16 buffer at the configured
// input rate and re-chunks it into exact 20ms frames. A trailing partial
// frame is carried until the next push; callers must not assume 1:1 framing
// with their push calls. Safe for concurrent producers.
func (s *AudioSource) EnqueuePCM(pcm []int16) {
	if len(pcm) == 0 {
		return
	}
	frameN := s.cfg.InputSampleRate / 50

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	s.pending = append(s.pending, pcm...)
	consumed := 0
	for len(s.pending)-consumed >= frameN {
		frame := make([]int16, frameN)
		copy(frame, s.pending[consumed:consumed+frameN])
		consumed += frameN
		if s.queue.Push(frame) {
			s.cfg.Metrics.QueueDropped(1)
		}
	}
	if consumed > 0 {
		n := copy(s.pending, s.pending[consumed:])
		s.pending = s.pending[:n]
	}
}

// Flush zero-pads any carried partial frame to a full 20ms frame and queues
// it. Called at end of an utterance so its tail is not held back.
func (s *AudioSource) Flush() {
	frameN := s.cfg.InputSampleRate / 50

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if len(s.pending) == 0 {
		return
	}
	frame := make([]int16, frameN)
	copy(frame, s.pending)
	s.pending = s.pending[:0]
	if s.queue.Push(frame) {
		s.cfg.Metrics.QueueDropped(1)
	}
}

// Start launches the playout goroutine (and the tone generator in test-tone
// mode). The pump begins in Priming and emits silence until the queue
// reaches the priming depth.
func (s *AudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audio source is closed")
	}
	if s.started {
		return fmt.Errorf("audio source already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group
	s.started = true

	group.Go(func() error {
		return s.pump.Run(groupCtx)
	})
	if s.cfg.Mode == ModeTestTone {
		group.Go(func() error {
			return s.toneLoop(groupCtx)
		})
	}

	s.log.Info("Audio source started")
	return nil
}

// Close stops the playout goroutine, drains the queue, and releases codec,
// resampler and DSP state. Idempotent.
func (s *AudioSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	group := s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var runErr error
	if group != nil {
		runErr = group.Wait()
	}

	drained := s.queue.Clear()
	s.pendingMu.Lock()
	s.pending = nil
	s.pendingMu.Unlock()

	if s.chain != nil {
		s.chain.Reset()
	}
	s.cont.Reset()
	closeErr := s.bank.Close()

	s.log.WithFields(logrus.Fields{
		"drained_frames": drained,
	}).Info("Audio source closed")

	if runErr != nil {
		return runErr
	}
	return closeErr
}

// ResetTurn clears buffered audio and all adaptive pipeline state between
// logical turns, returning the pump to Priming. Audio from the previous
// turn must not color the first frames of the next response.
func (s *AudioSource) ResetTurn() {
	cleared := s.queue.Clear()
	s.pendingMu.Lock()
	s.pending = s.pending[:0]
	s.pendingMu.Unlock()

	// Pipeline state resets run inside Reprime under the tick lock.
	s.pump.Reprime()

	s.log.WithFields(logrus.Fields{
		"cleared_frames": cleared,
	}).Info("Turn reset")
}

// resetPipeline clears resampler, DSP and codec state. Runs under the pump
// tick lock via OnReprime.
func (s *AudioSource) resetPipeline() {
	s.cont.Reset()
	if s.chain != nil {
		s.chain.Reset()
	}
	if err := s.bank.Reset(); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Codec bank reset failed")
	}
}

// encodeFrame is the pump's per-tick pipeline: resample the input-rate
// frame to the wire rate, condition it, and encode it. Runs only on the
// pump goroutine; the resampler and DSP chain depend on strict sequential
// processing.
func (s *AudioSource) encodeFrame(pcm []int16) (codec.WireFrame, error) {
	work := pcm
	if s.cfg.Mode != ModePassthrough {
		work = s.resampleFrame(work)
	}
	if s.chain != nil {
		work, _ = s.chain.Process(work)
	}
	return s.bank.Encode(work, s.target)
}

func (s *AudioSource) resampleFrame(pcm []int16) []int16 {
	useOneShot := s.resMode == ResamplerQuality || s.cfg.Mode == ModeSimpleResample
	if useOneShot {
		out, err := resample.Resample(pcm, s.cfg.InputSampleRate, s.target.SampleRate())
		if err == nil {
			return out
		}
		if !s.resFellBack {
			s.log.WithFields(logrus.Fields{
				"error":     err.Error(),
				"from_rate": s.cfg.InputSampleRate,
				"to_rate":   s.target.SampleRate(),
			}).Warn("Quality resampler unavailable, falling back to continuous FIR")
			s.resFellBack = true
			s.resMode = ResamplerCustomFIR
		}
	}
	return s.cont.Process(pcm)
}

// DecodeInbound converts one wire frame from the transport to PCM at the
// backend's input rate, with pre-emphasis when DSP is enabled. On decode
// failure the returned PCM is one frame of silence and the error is
// advisory; playout toward the backend continues. The backend tolerates
// bursty input so this path has no jitter buffer.
func (s *AudioSource) DecodeInbound(frame codec.WireFrame) ([]int16, error) {
	pcm, decErr := s.bank.Decode(frame)
	if decErr != nil {
		s.cfg.Metrics.DecodeFailure()
		if pcm == nil {
			// Unknown codec: nothing sensible to forward.
			return nil, decErr
		}
	}

	up, err := resample.Resample(pcm, frame.Codec.SampleRate(), s.cfg.InputSampleRate)
	if err != nil {
		return nil, fmt.Errorf("inbound resample: %w", err)
	}
	if s.inEmph != nil {
		up = s.inEmph.Process(up)
	}
	return up, decErr
}

// toneLoop feeds a phase-continuous 440Hz sine into the queue, one 20ms
// frame per period. Test-tone mode only.
func (s *AudioSource) toneLoop(ctx context.Context) error {
	frameN := s.cfg.InputSampleRate / 50
	step := 2 * math.Pi * testToneHz / float64(s.cfg.InputSampleRate)
	var phase float64

	next := time.Now()
	for {
		next = next.Add(codec.FrameDuration)
		if wait := time.Until(next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}

		frame := make([]int16, frameN)
		for i := range frame {
			frame[i] = int16(testToneAmplitude * math.Sin(phase))
			phase += step
			if phase >= 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
		s.EnqueuePCM(frame)
	}
}
