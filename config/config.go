// Package config loads the server configuration from an optional YAML
// file overlaid with TIERBOOK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TIERBOOK"

type Config struct {
	Instruments []string          `mapstructure:"instruments"`
	Log         LogConfig         `mapstructure:"log"`
	Pool        PoolConfig        `mapstructure:"pool"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Prioritizer PrioritizerConfig `mapstructure:"prioritizer"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type PoolConfig struct {
	Size int `mapstructure:"size"`
}

// LedgerConfig bounds the trades each book keeps in memory.
type LedgerConfig struct {
	RecentTrades int `mapstructure:"recent_trades"`
}

type PrioritizerConfig struct {
	Interval                   time.Duration `mapstructure:"interval"`
	DedicatedThreadsPercentage float64       `mapstructure:"dedicated_threads_percentage"`
	ThreadPooledPercentage     float64       `mapstructure:"thread_pooled_percentage"`
}

type JournalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Dir            string `mapstructure:"dir"`
	SegmentSize    int64  `mapstructure:"segment_size"`
	SyncEveryWrite bool   `mapstructure:"sync_every_write"`
}

type OutboxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Kafka modes.
const (
	ModeOutbox = "outbox"
	ModeDirect = "direct"
)

type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	Mode          string        `mapstructure:"mode"`
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	MaxRetries    uint32        `mapstructure:"max_retries"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("instruments", []string{"MSFT", "GOOG"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("pool.size", 64)

	v.SetDefault("ledger.recent_trades", 1024)

	v.SetDefault("prioritizer.interval", time.Second)
	v.SetDefault("prioritizer.dedicated_threads_percentage", 10.0)
	v.SetDefault("prioritizer.thread_pooled_percentage", 20.0)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.dir", "./data/journal")
	v.SetDefault("journal.segment_size", int64(64<<20))
	v.SetDefault("journal.sync_every_write", false)

	v.SetDefault("outbox.enabled", false)
	v.SetDefault("outbox.dir", "./data/outbox")

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.dir", "./data/snapshot")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "trades")
	v.SetDefault("kafka.mode", ModeOutbox)
	v.SetDefault("kafka.relay_interval", 250*time.Millisecond)
	v.SetDefault("kafka.max_retries", 5)

	v.SetDefault("metrics.addr", ":9102")
}

// Load reads path, if given, over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if len(c.Instruments) == 0 {
		bad("instruments must not be empty")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, s := range c.Instruments {
		if strings.TrimSpace(s) == "" {
			bad("blank instrument symbol")
		}
		if seen[s] {
			bad("duplicate instrument %q", s)
		}
		seen[s] = true
	}

	if c.Pool.Size <= 0 {
		bad("pool.size must be positive, got %d", c.Pool.Size)
	}
	if c.Ledger.RecentTrades <= 0 {
		bad("ledger.recent_trades must be positive, got %d", c.Ledger.RecentTrades)
	}

	p := c.Prioritizer
	if p.Interval <= 0 {
		bad("prioritizer.interval must be positive, got %s", p.Interval)
	}
	if p.DedicatedThreadsPercentage < 0 || p.DedicatedThreadsPercentage > 100 {
		bad("prioritizer.dedicated_threads_percentage out of [0,100]: %v", p.DedicatedThreadsPercentage)
	}
	if p.ThreadPooledPercentage < 0 || p.ThreadPooledPercentage > 100 {
		bad("prioritizer.thread_pooled_percentage out of [0,100]: %v", p.ThreadPooledPercentage)
	}
	if p.DedicatedThreadsPercentage+p.ThreadPooledPercentage > 100 {
		bad("prioritizer percentages sum above 100")
	}

	if c.Journal.Enabled && c.Journal.SegmentSize <= 0 {
		bad("journal.segment_size must be positive")
	}

	if c.Kafka.Enabled {
		switch c.Kafka.Mode {
		case ModeOutbox:
			if !c.Outbox.Enabled {
				bad("kafka.mode %q requires outbox.enabled", ModeOutbox)
			}
			if c.Kafka.RelayInterval <= 0 {
				bad("kafka.relay_interval must be positive")
			}
		case ModeDirect:
		default:
			bad("kafka.mode must be %q or %q, got %q", ModeOutbox, ModeDirect, c.Kafka.Mode)
		}
		if len(c.Kafka.Brokers) == 0 {
			bad("kafka.brokers must not be empty")
		}
		if c.Kafka.Topic == "" {
			bad("kafka.topic must not be empty")
		}
	}

	return errors.Join(errs...)
}
