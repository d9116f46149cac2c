package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: app.server.http.address is
// read from APEX_APP_SERVER_HTTP_ADDRESS.
const EnvPrefix = "APEX"

// Viper is a Config backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// NewViper loads the file at path and reloads it when it changes on disk.
func NewViper(path string) (*Viper, error) {
	v := newViper()

	base := filepath.Base(path)
	v.AddConfigPath(filepath.Dir(path))
	v.SetConfigName(strings.TrimSuffix(base, filepath.Ext(base)))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes parses data of configType ("yaml", "json", ...).
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config: type is required")
	}

	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (c *Viper) GetBool(key string) bool       { return c.v.GetBool(key) }
func (c *Viper) GetString(key string) string   { return c.v.GetString(key) }
func (c *Viper) GetInt(key string) int         { return c.v.GetInt(key) }
func (c *Viper) GetInt32(key string) int32     { return c.v.GetInt32(key) }
func (c *Viper) GetInt64(key string) int64     { return c.v.GetInt64(key) }
func (c *Viper) GetUint(key string) uint       { return c.v.GetUint(key) }
func (c *Viper) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

func (c *Viper) GetSecond(key string) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * time.Second
}

func (c *Viper) GetMinute(key string) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * time.Minute
}

func (c *Viper) GetDay(key string) time.Duration {
	return time.Duration(c.v.GetInt64(key)) * 24 * time.Hour
}

func (c *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(c.v.GetString(key))
	if err != nil {
		return nil
	}

	return data
}

// GetArray accepts either a YAML list or a comma-separated string, which is
// the only form an environment override can take.
func (c *Viper) GetArray(key string) []string {
	items := c.v.GetStringSlice(key)
	if s, ok := c.v.Get(key).(string); ok {
		items = strings.Split(s, ",")
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// Close satisfies io.Closer; viper holds nothing to release.
func (c *Viper) Close() error {
	return nil
}
