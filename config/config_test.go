package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxparsons123/happy-ride-helper-sub007/audio"
	"github.com/maxparsons123/happy-ride-helper-sub007/audio/codec"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "standard", cfg.Audio.Mode)
	assert.Equal(t, "custom-fir", cfg.Audio.ResamplerMode)
	assert.Equal(t, 120, cfg.Audio.JitterBufferMs)
	assert.Equal(t, 24000, cfg.Audio.InputSampleRate)
	assert.True(t, cfg.Audio.Dsp.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
audio:
  mode: jitter-buffer
  resampler_mode: naudio-quality
  jitter_buffer_ms: 200
  input_sample_rate: 24000
  codec_priority: [pcmu, g722]
  dsp:
    enabled: false
logging:
  level: debug
  format: json
metrics:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, audio.ModeJitterBuffer, cfg.Audio.ParsedMode())
	assert.Equal(t, audio.ResamplerQuality, cfg.Audio.ParsedResamplerMode())
	assert.Equal(t, 200, cfg.Audio.JitterBufferMs)
	assert.Equal(t, []codec.Codec{codec.CodecPCMU, codec.CodecG722}, cfg.Audio.ParsedCodecPriority())
	assert.False(t, cfg.Audio.Dsp.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/bridge.yaml")
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "audio: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_AUDIO_MODE", "test-tone")
	t.Setenv("BRIDGE_JITTER_BUFFER_MS", "240")
	t.Setenv("BRIDGE_DSP_ENABLED", "false")
	t.Setenv("BRIDGE_CODEC_PRIORITY", "opus, pcmu")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-tone", cfg.Audio.Mode)
	assert.Equal(t, 240, cfg.Audio.JitterBufferMs)
	assert.False(t, cfg.Audio.Dsp.Enabled)
	assert.Equal(t, []string{"opus", "pcmu"}, cfg.Audio.CodecPriority)
}

func TestEnvOverrideInvalidValueFailsValidation(t *testing.T) {
	t.Setenv("BRIDGE_AUDIO_MODE", "turbo")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad mode", mutate: func(c *Config) { c.Audio.Mode = "warp" }},
		{name: "bad resampler", mutate: func(c *Config) { c.Audio.ResamplerMode = "hq" }},
		{name: "jitter too small", mutate: func(c *Config) { c.Audio.JitterBufferMs = 10 }},
		{name: "jitter too large", mutate: func(c *Config) { c.Audio.JitterBufferMs = 5000 }},
		{name: "bad input rate", mutate: func(c *Config) { c.Audio.InputSampleRate = 12345 }},
		{name: "empty codec priority", mutate: func(c *Config) { c.Audio.CodecPriority = nil }},
		{name: "unknown codec", mutate: func(c *Config) { c.Audio.CodecPriority = []string{"gsm"} }},
		{name: "opus bit rate too low", mutate: func(c *Config) { c.Audio.OpusBitRate = 100 }},
		{name: "bad pre-emphasis", mutate: func(c *Config) { c.Audio.Dsp.PreEmphasis = 1.5 }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace2" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "metrics without listen", mutate: func(c *Config) { c.Metrics.Listen = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestParsedCodecPriorityOrder(t *testing.T) {
	cfg := Default()
	assert.Equal(t,
		[]codec.Codec{codec.CodecG722, codec.CodecPCMU, codec.CodecPCMA, codec.CodecOpus},
		cfg.Audio.ParsedCodecPriority())
}
