package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "POS_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Catalog struct {
		Path        string `koanf:"path"`
		MaxQuantity int    `koanf:"max_quantity"`
	} `koanf:"catalog"`

	Ledger struct {
		Driver        string `koanf:"driver"`
		Path          string `koanf:"path"`
		MigrationsDir string `koanf:"migrations_dir"`
		Postgres      struct {
			Host     string `koanf:"host"`
			Port     int    `koanf:"port"`
			User     string `koanf:"user"`
			Password string `koanf:"password"`
			DBName   string `koanf:"dbname"`
		} `koanf:"postgres"`
	} `koanf:"ledger"`

	Session struct {
		Store string        `koanf:"store"`
		TTL   time.Duration `koanf:"ttl"`
	} `koanf:"session"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/prod). Missing file is fine for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override (prefix POS_, nested with __)
	// e.g. POS_LEDGER__PATH, POS_REDIS__PASSWORD
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.Catalog.MaxQuantity <= 0 {
		errs = append(errs, errors.New("catalog.max_quantity must be positive"))
	}

	switch c.Ledger.Driver {
	case "sqlite":
		if c.Ledger.Path == "" {
			errs = append(errs, errors.New("ledger.path required for sqlite"))
		}
	case "postgres":
		if c.Ledger.Postgres.Host == "" || c.Ledger.Postgres.DBName == "" {
			errs = append(errs, errors.New("ledger.postgres.host and ledger.postgres.dbname required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q not supported", c.Ledger.Driver))
	}
	if c.Ledger.MigrationsDir == "" {
		errs = append(errs, errors.New("ledger.migrations_dir required"))
	}

	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr required for redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.store %q not supported", c.Session.Store))
	}

	return errors.Join(errs...)
}

// OutboxEnabled reports whether checkouts should be published to kafka.
func (c Config) OutboxEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
