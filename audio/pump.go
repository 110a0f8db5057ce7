// Package audio playout scheduler.
//
// This file implements the FramePump: the per-call goroutine that emits
// exactly one wire frame every 20ms. The loop sleeps to an absolute
// deadline rather than using a ticker, so a slow tick delays the next tick
// instead of overlapping it; concurrent ticks would double-advance the
// resampler and codec state and corrupt the encode trajectory.
package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maxparsons123/happy-ride-helper-sub007/audio/codec"
	"github.com/maxparsons123/happy-ride-helper-sub007/metrics"
)

const (
	// maxInterpolatedFrames bounds how many consecutive underrun ticks are
	// masked by fading the last real frame before true silence begins.
	maxInterpolatedFrames = 6

	// underrunFade is the per-tick decay applied to the interpolated frame.
	underrunFade = 0.85

	// resumeCrossfadeSamples blends the first real frame after a silence
	// period against the last emitted sample, symmetric to the resampler's
	// own seam crossfade, so the resume produces one click's worth of
	// smoothing instead of two clicks. The count is in wire-rate samples;
	// the blend itself runs before resampling, so the window is widened by
	// the input/wire rate ratio to cover the same emitted span.
	resumeCrossfadeSamples = 40
)

// PumpConfig configures a FramePump.
type PumpConfig struct {
	CallID string

	// Target is the wire codec emitted each tick.
	Target codec.Codec

	// InputFrameSamples is the 20ms sample count at the queue's PCM rate.
	InputFrameSamples int

	// PrimingDepth is the queue depth in frames required before real audio
	// is emitted. Zero selects the 120ms default.
	PrimingDepth int

	// Reprime returns the pump to Priming after an exhausted underrun
	// (jitter-buffer mode).
	Reprime bool

	// Queue is the inbound frame queue. Encode runs one input-rate PCM
	// frame through the call's resample/DSP/encode pipeline.
	Queue  *JitterBuffer
	Encode func(pcm []int16) (codec.WireFrame, error)

	Writer  FrameWriter
	Metrics *metrics.Recorder

	// OnReprime, when set, runs under the tick lock during Reprime so
	// pipeline state resets cannot interleave with an in-flight tick.
	OnReprime func()
}

// FramePump is the per-call playout scheduler. All fields behind mu are
// owned by the tick path; Reprime and State take the same lock so turn
// resets serialize against an in-flight tick.
type FramePump struct {
	cfg        PumpConfig
	log        *logrus.Entry
	resumeFade int // crossfade window in input-rate samples

	mu            sync.Mutex
	st            State
	underrunTicks int
	lastReal      []int16 // last real input-rate frame, faded in place during underrun
	lastSample    float64 // last emitted input-domain sample, resume crossfade anchor
	needResume    bool    // true after any silence or interpolated emission
	ticks         uint64
}

// NewFramePump validates cfg and creates an Idle pump.
func NewFramePump(cfg PumpConfig) (*FramePump, error) {
	if cfg.Queue == nil || cfg.Writer == nil || cfg.Encode == nil {
		return nil, fmt.Errorf("pump requires queue, writer and encode pipeline")
	}
	if cfg.InputFrameSamples <= 0 {
		return nil, fmt.Errorf("invalid input frame size: %d", cfg.InputFrameSamples)
	}
	if cfg.PrimingDepth <= 0 {
		cfg.PrimingDepth = 6
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "frame_pump",
		"call_id":   cfg.CallID,
		"codec":     cfg.Target.String(),
	})
	log.WithFields(logrus.Fields{
		"priming_depth": cfg.PrimingDepth,
		"reprime":       cfg.Reprime,
	}).Info("Creating frame pump")

	fade := resumeCrossfadeSamples * cfg.InputFrameSamples / cfg.Target.FrameSamples()
	if fade < 1 {
		fade = 1
	}

	return &FramePump{cfg: cfg, log: log, resumeFade: fade, st: StateIdle}, nil
}

// Run drives ticks every 20ms until ctx is cancelled. It always returns nil
// on cancellation; the pump transitions to Closed on exit.
func (p *FramePump) Run(ctx context.Context) error {
	p.setState(StatePriming)
	defer p.setState(StateClosed)

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
		} else {
			// Behind schedule: tick immediately, but still honor cancellation.
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}

		start := time.Now()
		p.tick()
		p.cfg.Metrics.ObserveTick(time.Since(start).Seconds())
	}
}

// State returns the current pump state.
func (p *FramePump) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// Ticks returns the number of completed ticks.
func (p *FramePump) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Reprime returns the pump to Priming with cleared underrun and
// interpolation state. Called between logical turns.
func (p *FramePump) Reprime() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == StateClosed {
		return
	}
	p.underrunTicks = 0
	p.lastReal = nil
	p.lastSample = 0
	p.needResume = true
	if p.cfg.OnReprime != nil {
		p.cfg.OnReprime()
	}
	p.transition(StatePriming)
}

func (p *FramePump) setState(to State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transition(to)
}

// transition requires mu to be held.
func (p *FramePump) transition(to State) {
	if p.st == to {
		return
	}
	p.log.WithFields(logrus.Fields{
		"from":  p.st.String(),
		"to":    to.String(),
		"ticks": p.ticks,
	}).Info("Pump state transition")
	p.st = to
}

// tick emits exactly one frame, whatever the state.
func (p *FramePump) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ticks++
	p.cfg.Metrics.SetQueueDepth(p.cfg.Queue.Len())

	switch p.st {
	case StateIdle, StateClosed:
		return
	case StatePriming:
		if p.cfg.Queue.Len() < p.cfg.PrimingDepth {
			p.emitSilence()
			return
		}
		p.transition(StatePlaying)
	}

	frame, ok := p.cfg.Queue.Pop()
	if !ok {
		p.miss()
		return
	}

	p.underrunTicks = 0
	if p.st == StateUnderrun {
		p.transition(StatePlaying)
	}
	p.emitReal(frame)
}

// miss handles an empty queue while playing: interpolate, then silence,
// then (in jitter-buffer mode) re-prime.
func (p *FramePump) miss() {
	p.cfg.Metrics.Underrun()
	p.underrunTicks++

	if p.underrunTicks <= maxInterpolatedFrames && p.lastReal != nil {
		if p.st != StateUnderrun {
			p.transition(StateUnderrun)
		}
		for i, s := range p.lastReal {
			p.lastReal[i] = int16(float64(s) * underrunFade)
		}
		p.emitInterpolated(p.lastReal)
		return
	}

	p.emitSilence()
	if p.cfg.Reprime && p.st != StatePriming {
		p.log.WithFields(logrus.Fields{
			"underrun_ticks": p.underrunTicks,
		}).Info("Underrun exhausted, re-priming")
		p.underrunTicks = 0
		p.lastReal = nil
		p.transition(StatePriming)
	}
}

// emitReal runs one dequeued frame through the pipeline and emits it.
func (p *FramePump) emitReal(frame []int16) {
	if p.needResume {
		p.applyResumeCrossfade(frame)
		p.needResume = false
	}

	wire, err := p.cfg.Encode(frame)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Frame encode failed, emitting silence")
		p.emitSilence()
		return
	}
	p.write(wire)

	if p.lastReal == nil || len(p.lastReal) != len(frame) {
		p.lastReal = make([]int16, len(frame))
	}
	copy(p.lastReal, frame)
	p.lastSample = float64(frame[len(frame)-1])
}

// emitInterpolated emits one faded copy of the last real frame.
func (p *FramePump) emitInterpolated(frame []int16) {
	pcm := make([]int16, len(frame))
	copy(pcm, frame)

	wire, err := p.cfg.Encode(pcm)
	if err != nil {
		p.emitSilence()
		return
	}
	p.write(wire)
	p.cfg.Metrics.InterpolatedFrame()
	p.lastSample = float64(frame[len(frame)-1])
	p.needResume = true
}

// emitSilence emits one 20ms silence frame. Fixed-rate codecs use their
// precomputed companded silence payload; Opus encodes a zero frame since it
// has no fixed silence byte.
func (p *FramePump) emitSilence() {
	payload := p.cfg.Target.SilencePayload()
	if payload != nil {
		p.write(codec.WireFrame{
			Codec:         p.cfg.Target,
			Payload:       payload,
			SourceSamples: p.cfg.Target.FrameSamples(),
		})
	} else {
		wire, err := p.cfg.Encode(codec.SilencePCM16(p.cfg.InputFrameSamples))
		if err != nil {
			// Still one emission this tick: an empty payload keeps the
			// transport cadence intact.
			p.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("Silence encode failed, emitting empty frame")
			wire = codec.WireFrame{
				Codec:         p.cfg.Target,
				SourceSamples: p.cfg.Target.FrameSamples(),
			}
		}
		p.write(wire)
	}
	p.cfg.Metrics.SilenceFrame()
	p.lastSample = 0
	p.needResume = true
}

// applyResumeCrossfade fades the head of the first real frame after a
// silence period in from the last emitted sample.
func (p *FramePump) applyResumeCrossfade(frame []int16) {
	n := p.resumeFade
	if n > len(frame) {
		n = len(frame)
	}
	for i := 0; i < n; i++ {
		t := float64(i+1) / float64(p.resumeFade+1)
		v := t*float64(frame[i]) + (1-t)*p.lastSample
		frame[i] = int16(math.Round(v))
	}
}

func (p *FramePump) write(wire codec.WireFrame) {
	if err := p.cfg.Writer.WriteFrame(wire.SourceSamples, wire.Payload); err != nil {
		p.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Transport write failed")
	}
	p.cfg.Metrics.FrameEmitted()
}
