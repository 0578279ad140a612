package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Stats     StatsConfig     `mapstructure:"stats"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	PublicURL    string        `mapstructure:"public_url"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string        `mapstructure:"path"`
	MaxConnections int           `mapstructure:"max_connections"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout"`
}

type TelegramConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifierConfig struct {
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
	BotID     int64  `mapstructure:"bot_id"`
	ChatID    string `mapstructure:"chat_id"`
}

type CaptureConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type StatsConfig struct {
	WindowDays int `mapstructure:"window_days"`
}

type RateLimitConfig struct {
	WebhookPerMinute int `mapstructure:"webhook_per_minute"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	Output         string `mapstructure:"output"`
	FilePath       string `mapstructure:"file_path"`
	RequestLogging bool   `mapstructure:"request_logging"`
}

// Settings derives the runtime snapshot from the static configuration.
func (c *Config) Settings() Settings {
	return Settings{
		LoggingEnabled:  c.Logging.RequestLogging,
		StatsWindowDays: c.Stats.WindowDays,
		NotifyBotID:     c.Notifier.BotID,
		NotifyChatID:    c.Notifier.ChatID,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("database.path", "data/hookbot.db")
	v.SetDefault("database.max_connections", 8)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", 10*time.Second)

	v.SetDefault("notifier.workers", 2)
	v.SetDefault("notifier.queue_size", 256)
	v.SetDefault("notifier.bot_id", 0)
	v.SetDefault("notifier.chat_id", "")

	v.SetDefault("capture.ttl", 5*time.Minute)
	v.SetDefault("capture.sweep_interval", 30*time.Second)

	v.SetDefault("stats.window_days", 30)
	v.SetDefault("rate_limit.webhook_per_minute", 600)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.request_logging", true)
}

// Loader wraps the viper instance so the file can be watched after the first load.
type Loader struct {
	v *viper.Viper
}

func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix("HOOKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load reads the config file if it exists. A missing file leaves defaults and env in place.
func (l *Loader) Load() (*Config, error) {
	if l.v.ConfigFileUsed() != "" {
		if err := l.v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Watch calls fn with the reloaded config every time the file changes on disk.
func (l *Loader) Watch(fn func(*Config, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		fn(l.unmarshal())
	})
	l.v.WatchConfig()
}

func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}
