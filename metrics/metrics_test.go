package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.FrameEmitted()
		r.SilenceFrame()
		r.InterpolatedFrame()
		r.Underrun()
		r.QueueDropped(3)
		r.DecodeFailure()
		r.SetQueueDepth(7)
		r.ObserveTick(0.001)
	})
}

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.FrameEmitted()
	r.FrameEmitted()
	r.SilenceFrame()
	r.QueueDropped(5)
	r.SetQueueDepth(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.framesEmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.silenceFrames))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.queueDropped))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.queueDepth))
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	assert.NotNil(t, r.Handler())
}

func TestQueueDroppedIgnoresNonPositive(t *testing.T) {
	r := NewRecorder()
	r.QueueDropped(0)
	r.QueueDropped(-4)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.queueDropped))
}
