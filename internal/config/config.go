package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Config is the serve command's configuration file (tableau.yaml).
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Source   SourceConfig   `yaml:"source"`
	Redis    RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	LogLevel string         `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
	// ViewerBuffer is how many events may queue per SSE viewer before it is evicted.
	ViewerBuffer int `yaml:"viewer_buffer"`
}

type PlaybackConfig struct {
	MaxFrames    int     `yaml:"max_frames"`
	Downsample   int     `yaml:"downsample"`
	PointSize    float32 `yaml:"point_size"`
	FrustumScale float64 `yaml:"frustum_scale"`
	Autoplay     bool    `yaml:"autoplay"`
}

// SourceConfig shapes the synthetic demo capture.
type SourceConfig struct {
	Frames      int     `yaml:"frames"`
	Points      int     `yaml:"points"`
	FPS         float64 `yaml:"fps"`
	ImageWidth  int     `yaml:"image_width"`
	ImageHeight int     `yaml:"image_height"`
}

// RedisConfig enables the Redis sink when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	Codec    string `yaml:"codec"`
	// Lock holds "<prefix>lock:<LockKey>" for the server's lifetime.
	Lock    bool          `yaml:"lock"`
	LockKey string        `yaml:"lock_key"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// MQTTConfig enables the MQTT sink when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Codec    string `yaml:"codec"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			Metrics:      true,
			ViewerBuffer: 64,
		},
		Playback: PlaybackConfig{
			MaxFrames:    50,
			Downsample:   2,
			PointSize:    0.01,
			FrustumScale: 0.15,
		},
		Source: SourceConfig{
			Frames:      60,
			Points:      2000,
			FPS:         30,
			ImageWidth:  64,
			ImageHeight: 48,
		},
		Redis: RedisConfig{
			Prefix:  "tableau:",
			Codec:   "msgpack",
			LockKey: "scene",
			LockTTL: 10 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID: "tableau",
			Topic:    "tableau",
			Codec:    "msgpack",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults. JSON files parse too, as JSON is valid YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...))
		}
	}

	check(c.Server.Addr != "", "server.addr is required")
	check(c.Server.ViewerBuffer > 0, "server.viewer_buffer must be positive, got %d", c.Server.ViewerBuffer)
	check(c.Playback.MaxFrames >= 0, "playback.max_frames must not be negative, got %d", c.Playback.MaxFrames)
	check(c.Playback.Downsample >= 1, "playback.downsample must be at least 1, got %d", c.Playback.Downsample)
	check(c.Playback.PointSize > 0, "playback.point_size must be positive, got %g", c.Playback.PointSize)
	check(c.Playback.FrustumScale > 0, "playback.frustum_scale must be positive, got %g", c.Playback.FrustumScale)
	check(c.Source.Frames > 0, "source.frames must be positive, got %d", c.Source.Frames)
	check(c.Source.Points >= 0, "source.points must not be negative, got %d", c.Source.Points)
	check(c.Source.FPS > 0, "source.fps must be positive, got %g", c.Source.FPS)
	check(c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	check(knownCodec(c.Redis.Codec), "redis.codec must be json or msgpack, got %q", c.Redis.Codec)
	check(knownCodec(c.MQTT.Codec), "mqtt.codec must be json or msgpack, got %q", c.MQTT.Codec)
	if c.Redis.Lock {
		check(c.Redis.Addr != "", "redis.lock requires redis.addr")
		check(c.Redis.LockTTL >= time.Second, "redis.lock_ttl must be at least 1s, got %s", c.Redis.LockTTL)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_format: %v", domain.ErrValidation, err))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level: %v", domain.ErrValidation, err)
	}
	return level, nil
}

func knownCodec(name string) bool {
	return name == "json" || name == "msgpack"
}
