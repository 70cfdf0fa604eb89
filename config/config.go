// File: config/config.go
// Package config carries the link engine's macro-interface as a
// runtime value: buffer sizes, slice cap, event queue capacity, and
// codec enablement, loadable from YAML for cmd/linkd.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the reference implementation's compile-time macros
// (WEN_RX_BUFFER, WEN_TX_BUFFER, WEN_MAX_SLICE, WEN_EVENT_QUEUE_CAP,
// WEN_ENABLE_WS) as fields a caller can set at runtime.
type Config struct {
	RXCapacity      int  `yaml:"rx_capacity"`
	TXCapacity      int  `yaml:"tx_capacity"`
	MaxSlice        int  `yaml:"max_slice"`
	EventQueueCap   int  `yaml:"event_queue_cap"`
	EnableWebSocket bool `yaml:"enable_websocket"`
}

// Minimum floors enforced by Validate, matching the reference header's
// static assertions (WEN_RX_BUFFER >= 1024, WEN_TX_BUFFER >= 1024) plus
// the event queue capacity floor documented in the data model.
const (
	MinRXCapacity    = 1024
	MinTXCapacity    = 1024
	MinEventQueueCap = 8
)

// DefaultConfig returns the reference implementation's defaults:
// 8KiB RX/TX rings, a 4KiB max slice, and a 16-slot event queue.
func DefaultConfig() Config {
	return Config{
		RXCapacity:      8192,
		TXCapacity:      8192,
		MaxSlice:        4096,
		EventQueueCap:   16,
		EnableWebSocket: true,
	}
}

// Validate reports an error if any field violates the engine's
// documented minimums.
func (c Config) Validate() error {
	if c.RXCapacity < MinRXCapacity {
		return fmt.Errorf("config: rx_capacity %d below minimum %d", c.RXCapacity, MinRXCapacity)
	}
	if c.TXCapacity < MinTXCapacity {
		return fmt.Errorf("config: tx_capacity %d below minimum %d", c.TXCapacity, MinTXCapacity)
	}
	if c.EventQueueCap < MinEventQueueCap {
		return fmt.Errorf("config: event_queue_cap %d below minimum %d", c.EventQueueCap, MinEventQueueCap)
	}
	if c.MaxSlice <= 0 {
		return fmt.Errorf("config: max_slice must be positive, got %d", c.MaxSlice)
	}
	return nil
}

// LoadYAML reads a Config from a YAML document at path, falling back
// to DefaultConfig for any field the document omits, then validates
// the result.
func LoadYAML(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
