// Package metrics exposes Prometheus instrumentation for the audio bridge.
//
// A nil *Recorder is valid and records nothing, so the pipeline can run
// unmetered in tests without conditional call sites.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Recorder holds the bridge's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	framesEmitted      prometheus.Counter
	silenceFrames      prometheus.Counter
	interpolatedFrames prometheus.Counter
	underruns          prometheus.Counter
	queueDropped       prometheus.Counter
	decodeFailures     prometheus.Counter
	queueDepth         prometheus.Gauge
	tickDuration       prometheus.Histogram
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	logrus.WithFields(logrus.Fields{
		"function": "NewRecorder",
	}).Debug("Creating metrics recorder")

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		framesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_frames_emitted_total",
			Help: "Wire frames emitted to the transport, all states.",
		}),
		silenceFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_silence_frames_total",
			Help: "Frames emitted as silence (priming or post-interpolation underrun).",
		}),
		interpolatedFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_interpolated_frames_total",
			Help: "Underrun frames synthesized by fading the last real frame.",
		}),
		underruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_underruns_total",
			Help: "Ticks on which the playout queue was empty while playing.",
		}),
		queueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_queue_dropped_total",
			Help: "Frames dropped from the full playout queue (oldest first).",
		}),
		decodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_decode_failures_total",
			Help: "Inbound wire frames that failed to decode and were replaced with silence.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_queue_depth",
			Help: "Current playout queue depth in frames.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_tick_duration_seconds",
			Help:    "Wall time of one playout tick (resample, DSP, encode, emit).",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
	}
}

// Handler returns the HTTP handler serving this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// FrameEmitted counts one emitted wire frame.
func (r *Recorder) FrameEmitted() {
	if r == nil {
		return
	}
	r.framesEmitted.Inc()
}

// SilenceFrame counts one silence emission.
func (r *Recorder) SilenceFrame() {
	if r == nil {
		return
	}
	r.silenceFrames.Inc()
}

// InterpolatedFrame counts one synthesized underrun frame.
func (r *Recorder) InterpolatedFrame() {
	if r == nil {
		return
	}
	r.interpolatedFrames.Inc()
}

// Underrun counts one empty-queue tick.
func (r *Recorder) Underrun() {
	if r == nil {
		return
	}
	r.underruns.Inc()
}

// QueueDropped counts n frames dropped from the full queue.
func (r *Recorder) QueueDropped(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.queueDropped.Add(float64(n))
}

// DecodeFailure counts one inbound decode failure.
func (r *Recorder) DecodeFailure() {
	if r == nil {
		return
	}
	r.decodeFailures.Inc()
}

// SetQueueDepth records the current queue depth.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// ObserveTick records one tick duration in seconds.
func (r *Recorder) ObserveTick(seconds float64) {
	if r == nil {
		return
	}
	r.tickDuration.Observe(seconds)
}
