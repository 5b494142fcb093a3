// Package config provides environment-based configuration for the
// simulator daemon.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the daemon.
const (
	DefaultPort   = "8090"
	DefaultTickMS = 16 // ~60Hz
)

// Port returns the HTTP listen port from SIMD_PORT.
func Port() string {
	if p := os.Getenv("SIMD_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// TickInterval returns the placement loop period from SIMD_TICK_MS.
func TickInterval() time.Duration {
	if v := os.Getenv("SIMD_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return DefaultTickMS * time.Millisecond
}

// LogLevel returns the logging level from LOG_LEVEL.
func LogLevel() string {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// DomeRadius returns the demo proxy dome radius in meters from
// SIMD_DOME_RADIUS.
func DomeRadius() float64 {
	if v := os.Getenv("SIMD_DOME_RADIUS"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			return r
		}
	}
	return 0.095
}
