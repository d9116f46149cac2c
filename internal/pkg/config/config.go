// Package config reads typed configuration values. The service uses a YAML
// file loaded through viper, overridable with APEX_* environment variables.
package config

import (
	"io"
	"time"
)

// Config retrieves configuration values by dotted key. Missing keys yield
// the zero value of the requested type.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint(key string) uint
	GetFloat64(key string) float64

	// GetSecond, GetMinute and GetDay read an integer and scale it.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetDay(key string) time.Duration

	// GetBinary decodes a base64 value; invalid input yields nil.
	GetBinary(key string) []byte
	// GetArray splits a comma separated value, dropping blank elements.
	GetArray(key string) []string
}
