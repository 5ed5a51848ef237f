package collector

import (
	"fmt"
	"time"
)

const (
	DefaultMessagesLimit     = 1000
	DefaultPageSize          = 100
	DefaultMaxBatchBytes     = 190 * 1024
	DefaultDisplayOffset     = 3 * time.Hour
	DefaultRemoteCallTimeout = 30 * time.Second
)

// Config holds the tunables of a collection run.
type Config struct {
	// DefaultLimit applies in limit mode when the request carries none.
	DefaultLimit int
	PageSize     int32
	// MaxBatchBytes is the serialized size budget of one batch.
	MaxBatchBytes int
	// DisplayOffset is the fixed UTC offset normalized timestamps are shown in.
	DisplayOffset     time.Duration
	RemoteCallTimeout time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:      DefaultMessagesLimit,
		PageSize:          DefaultPageSize,
		MaxBatchBytes:     DefaultMaxBatchBytes,
		DisplayOffset:     DefaultDisplayOffset,
		RemoteCallTimeout: DefaultRemoteCallTimeout,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.MaxBatchBytes <= 0 {
		c.MaxBatchBytes = d.MaxBatchBytes
	}
	if c.RemoteCallTimeout <= 0 {
		c.RemoteCallTimeout = d.RemoteCallTimeout
	}
	return c
}

// DisplayZone returns the fixed zone for DisplayOffset. A zero offset is UTC.
func (c Config) DisplayZone() *time.Location {
	if c.DisplayOffset == 0 {
		return time.UTC
	}
	return time.FixedZone(formatOffset(c.DisplayOffset), int(c.DisplayOffset/time.Second))
}

func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if m == 0 {
		return fmt.Sprintf("UTC%s%02d", sign, h)
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, h, m)
}
