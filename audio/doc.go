// Package audio implements the per-call playout pipeline of the telephony
// bridge: a bounded jitter buffer, a 20ms frame-paced playout scheduler
// (FramePump), and the AudioSource composition that wires the DSP chain,
// resampler and codec bank together for one call.
//
// Data flow, outbound: the AI backend pushes arbitrarily-sized 24kHz PCM16
// buffers into an AudioSource, which re-chunks them into exact 20ms frames
// and queues them. A dedicated goroutine per call drives the FramePump at a
// fixed 20ms period; each tick dequeues one frame, resamples it to the wire
// codec's rate, conditions it through the DSP chain, encodes it, and hands
// the payload to the transport callback. The pump owns jitter-buffer
// priming, underrun interpolation and silence generation, and emits exactly
// one frame per tick in every state.
//
// Data flow, inbound: wire frames from the transport are decoded and
// upsampled to the backend rate synchronously; the backend tolerates bursty
// input so no jitter buffer exists on that path.
//
// All codec, resampler and DSP state is owned by the call's AudioSource
// value. Nothing is shared across calls, so no locking is needed around
// codec state and no state bleeds between calls.
package audio
