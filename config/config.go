package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/maxparsons123/happy-ride-helper-sub007/audio"
	"github.com/maxparsons123/happy-ride-helper-sub007/audio/codec"
)

// Config represents the complete bridge configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AudioConfig contains the per-call pipeline parameters.
type AudioConfig struct {
	Mode            string    `yaml:"mode"`
	ResamplerMode   string    `yaml:"resampler_mode"`
	JitterBufferMs  int       `yaml:"jitter_buffer_ms"`
	InputSampleRate int       `yaml:"input_sample_rate"`
	CodecPriority   []string  `yaml:"codec_priority"`
	OpusBitRate     int       `yaml:"opus_bit_rate"`
	Dsp             DspConfig `yaml:"dsp"`
}

// DspConfig tunes the noise-conditioning chain.
type DspConfig struct {
	Enabled     bool    `yaml:"enabled"`
	TargetRMS   float64 `yaml:"target_rms"`
	PreEmphasis float64 `yaml:"pre_emphasis"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns the deployment default configuration.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Mode:            "standard",
			ResamplerMode:   "custom-fir",
			JitterBufferMs:  120,
			InputSampleRate: 24000,
			CodecPriority:   []string{"g722", "pcmu", "pcma", "opus"},
			Dsp: DspConfig{
				Enabled:     true,
				TargetRMS:   3000,
				PreEmphasis: 0.95,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Listen: ":9091"},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates the result. An empty path returns the validated defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides configuration fields from BRIDGE_* environment
// variables. Unset variables leave the field untouched.
func (c *Config) ApplyEnv() {
	envString("BRIDGE_AUDIO_MODE", &c.Audio.Mode)
	envString("BRIDGE_RESAMPLER_MODE", &c.Audio.ResamplerMode)
	envInt("BRIDGE_JITTER_BUFFER_MS", &c.Audio.JitterBufferMs)
	envInt("BRIDGE_INPUT_SAMPLE_RATE", &c.Audio.InputSampleRate)
	envInt("BRIDGE_OPUS_BIT_RATE", &c.Audio.OpusBitRate)
	envBool("BRIDGE_DSP_ENABLED", &c.Audio.Dsp.Enabled)
	envString("BRIDGE_LOG_LEVEL", &c.Logging.Level)
	envString("BRIDGE_LOG_FORMAT", &c.Logging.Format)
	envBool("BRIDGE_METRICS_ENABLED", &c.Metrics.Enabled)
	envString("BRIDGE_METRICS_LISTEN", &c.Metrics.Listen)

	if v := os.Getenv("BRIDGE_CODEC_PRIORITY"); v != "" {
		parts := strings.Split(v, ",")
		priority := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				priority = append(priority, p)
			}
		}
		if len(priority) > 0 {
			c.Audio.CodecPriority = priority
		}
	}
}

// Validate performs full validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

// Validate validates the audio pipeline configuration.
func (a *AudioConfig) Validate() error {
	if _, err := audio.ParseMode(a.Mode); err != nil {
		return err
	}
	if _, err := audio.ParseResamplerMode(a.ResamplerMode); err != nil {
		return err
	}
	if a.JitterBufferMs < 20 || a.JitterBufferMs > 1000 {
		return fmt.Errorf("jitter_buffer_ms must be between 20 and 1000, got %d", a.JitterBufferMs)
	}
	if a.InputSampleRate <= 0 || a.InputSampleRate%50 != 0 {
		return fmt.Errorf("input_sample_rate must divide into 20ms frames, got %d", a.InputSampleRate)
	}
	if len(a.CodecPriority) == 0 {
		return fmt.Errorf("codec_priority cannot be empty")
	}
	for _, name := range a.CodecPriority {
		if _, err := codec.ParseCodec(name); err != nil {
			return err
		}
	}
	if a.OpusBitRate != 0 && (a.OpusBitRate < 6000 || a.OpusBitRate > 510000) {
		return fmt.Errorf("opus_bit_rate must be between 6000 and 510000, got %d", a.OpusBitRate)
	}
	if a.Dsp.Enabled {
		if a.Dsp.TargetRMS < 0 {
			return fmt.Errorf("dsp target_rms cannot be negative, got %f", a.Dsp.TargetRMS)
		}
		if a.Dsp.PreEmphasis < 0 || a.Dsp.PreEmphasis >= 1 {
			return fmt.Errorf("dsp pre_emphasis must be in [0, 1), got %f", a.Dsp.PreEmphasis)
		}
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}
	return nil
}

// Validate validates the metrics configuration.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Listen == "" {
		return fmt.Errorf("listen address cannot be empty when metrics are enabled")
	}
	return nil
}

// ParsedMode returns the parsed audio mode. Validate must have succeeded.
func (a *AudioConfig) ParsedMode() audio.Mode {
	m, _ := audio.ParseMode(a.Mode)
	return m
}

// ParsedResamplerMode returns the parsed resampler mode.
func (a *AudioConfig) ParsedResamplerMode() audio.ResamplerMode {
	m, _ := audio.ParseResamplerMode(a.ResamplerMode)
	return m
}

// ParsedCodecPriority returns the parsed codec priority list.
func (a *AudioConfig) ParsedCodecPriority() []codec.Codec {
	out := make([]codec.Codec, 0, len(a.CodecPriority))
	for _, name := range a.CodecPriority {
		c, err := codec.ParseCodec(name)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SetupLogging applies the logging configuration to the global logrus
// logger.
func (l *LoggingConfig) SetupLogging() {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if l.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
