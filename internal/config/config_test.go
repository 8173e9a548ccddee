// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, YAML overrides, and the latency/frame coupling
package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.ChunkDurationMs() != 20 {
		t.Errorf("expected 20ms chunks, got %d", cfg.ChunkDurationMs())
	}
	if cfg.FrameSamples() != 960 {
		t.Errorf("expected 960 frame samples, got %d", cfg.FrameSamples())
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	yaml := `
channels: 1
transport: websocket
port: 9000
max_latency_ms: 320
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Channels != 1 {
		t.Errorf("expected 1 channel, got %d", cfg.Channels)
	}
	if cfg.Transport != TransportWebSocket {
		t.Errorf("expected websocket transport, got %q", cfg.Transport)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}

	// Untouched fields keep defaults.
	if cfg.CodecRate != 48000 {
		t.Errorf("expected default codec rate, got %d", cfg.CodecRate)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	if cfg != Default() {
		t.Error("expected defaults for empty config")
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("bogus_field: 1\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero codec rate", func(c *Config) { c.CodecRate = 0 }},
		{"cadence not dividing 1000", func(c *Config) { c.ChunksPerSecond = 33 }},
		{"rate not multiple of cadence", func(c *Config) { c.CodecRate = 12345 }},
		{"three channels", func(c *Config) { c.Channels = 3 }},
		{"zero window", func(c *Config) { c.MaxUnordered = 0 }},
		{"bad transport", func(c *Config) { c.Transport = "smoke-signals" }},
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"latency not frame multiple", func(c *Config) { c.MaxLatencyMs = 970 }},
		{"zero latency", func(c *Config) { c.MaxLatencyMs = 0 }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateMonoLatency(t *testing.T) {
	// 80ms at 48kHz mono is exactly one frame of buffer.
	cfg := Default()
	cfg.Channels = 1
	cfg.MaxLatencyMs = 80
	if err := cfg.Validate(); err != nil {
		t.Errorf("80ms mono should validate: %v", err)
	}

	// The same 80ms fails for stereo (half a frame).
	cfg.Channels = 2
	if err := cfg.Validate(); err == nil {
		t.Error("80ms stereo should fail validation")
	}
}
