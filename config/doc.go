// Package config loads and validates the bridge configuration from a YAML
// file with environment-variable overrides.
//
// The configuration surface covers the audio pipeline (mode, resampler
// mode, jitter buffer depth, codec priority, DSP tuning), logging, and the
// metrics endpoint. Load performs full validation; a configuration that
// loads is safe to run.
package config
