// Package config loads the kennel's YAML configuration.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Eviction Eviction `yaml:"eviction"`
	Reclaim  Reclaim  `yaml:"reclaim"`
	GRPC     Listen   `yaml:"grpc"`
	Metrics  Listen   `yaml:"metrics"`
	Log      Log      `yaml:"log"`
	Journal  Journal  `yaml:"journal"`
	Kafka    Kafka    `yaml:"kafka"`
}

type Eviction struct {
	// Interval between head evictions.
	Interval time.Duration `yaml:"interval"`
}

type Reclaim struct {
	// Interval is the backstop poll period of the reclaimer; retirements
	// also wake it directly.
	Interval time.Duration `yaml:"interval"`
}

type Listen struct {
	// Addr is a host:port; empty disables the listener.
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Journal struct {
	// Dir of the pebble eviction journal; empty disables journaling
	// and publishing.
	Dir       string        `yaml:"dir"`
	Interval  time.Duration `yaml:"interval"`
	QueueSize int           `yaml:"queue_size"`
}

const (
	ClientSarama  = "sarama"
	ClientKafkaGo = "kafka-go"
)

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// Client is "sarama" (default) or "kafka-go".
	Client string `yaml:"client"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Eviction: Eviction{Interval: 5 * time.Second},
		Reclaim:  Reclaim{Interval: 100 * time.Millisecond},
		GRPC:     Listen{Addr: "127.0.0.1:50051"},
		Log:      Log{Level: "info", Format: "json"},
		Journal:  Journal{Interval: 250 * time.Millisecond, QueueSize: 1024},
		Kafka:    Kafka{Topic: "kennel.evictions", Client: ClientSarama},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config file %q", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Eviction.Interval <= 0 {
		return errors.New("eviction.interval must be positive")
	}
	if c.Reclaim.Interval <= 0 {
		return errors.New("reclaim.interval must be positive")
	}
	if len(c.Kafka.Brokers) > 0 {
		if c.Journal.Dir == "" {
			return errors.New("kafka.brokers requires journal.dir")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required")
		}
		switch c.Kafka.Client {
		case ClientSarama, ClientKafkaGo:
		default:
			return errors.Newf("unknown kafka.client %q", c.Kafka.Client)
		}
	}
	return nil
}
