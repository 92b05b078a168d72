package config

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/yaml.v3"
)

// Store drivers.
const (
    DriverMemory   = "memory"
    DriverPostgres = "postgres"
)

// Config is the server configuration.
type Config struct {
    HTTP  HTTP  `yaml:"http"`
    Store Store `yaml:"store"`
    Log   Log   `yaml:"log"`
    Games Games `yaml:"games"`
}

type HTTP struct {
    Addr            string        `yaml:"addr"`
    ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
    // Heartbeat is the keep-alive interval of event streams.
    Heartbeat time.Duration `yaml:"heartbeat"`
}

type Store struct {
    Driver          string        `yaml:"driver"`
    DSN             string        `yaml:"dsn"`
    MaxOpenConns    int           `yaml:"maxOpenConns"`
    ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type Log struct {
    Level       string `yaml:"level"`
    Development bool   `yaml:"development"`
}

type Games struct {
    // HistoryLimit is the default number of games listed by the history endpoint.
    HistoryLimit int `yaml:"historyLimit"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
    return Config{
        HTTP: HTTP{
            Addr:            ":8080",
            ShutdownTimeout: 10 * time.Second,
            Heartbeat:       15 * time.Second,
        },
        Store: Store{
            Driver:          DriverMemory,
            MaxOpenConns:    10,
            ConnMaxLifetime: 30 * time.Minute,
        },
        Log:   Log{Level: "info"},
        Games: Games{HistoryLimit: 10},
    }
}

// Load reads path (optional), applies REVERSI_* environment overrides and validates.
func Load(path string) (Config, error) {
    cfg := Default()
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil {
            return Config{}, fmt.Errorf("read config: %w", err)
        }
        if err := yaml.Unmarshal(b, &cfg); err != nil {
            return Config{}, fmt.Errorf("parse config %s: %w", path, err)
        }
    }
    applyEnv(&cfg, os.LookupEnv)
    cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
    if err := cfg.Validate(); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
    if v, ok := lookup("REVERSI_HTTP_ADDR"); ok {
        cfg.HTTP.Addr = v
    }
    if v, ok := lookup("REVERSI_STORE_DRIVER"); ok {
        cfg.Store.Driver = v
    }
    if v, ok := lookup("REVERSI_STORE_DSN"); ok {
        cfg.Store.DSN = v
    }
    if v, ok := lookup("REVERSI_LOG_LEVEL"); ok {
        cfg.Log.Level = v
    }
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
    if c.HTTP.Addr == "" {
        return errors.New("http.addr is required")
    }
    if c.HTTP.ShutdownTimeout <= 0 {
        return errors.New("http.shutdownTimeout must be positive")
    }
    if c.HTTP.Heartbeat <= 0 {
        return errors.New("http.heartbeat must be positive")
    }
    switch c.Store.Driver {
    case DriverMemory:
    case DriverPostgres:
        if c.Store.DSN == "" {
            return errors.New("store.dsn is required for the postgres driver")
        }
    default:
        return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
    }
    if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
        return fmt.Errorf("log.level: %w", err)
    }
    if c.Games.HistoryLimit < 1 {
        return errors.New("games.historyLimit must be at least 1")
    }
    return nil
}

// NewLogger builds the zap logger described by c.
func (c Log) NewLogger() (*zap.Logger, error) {
    level, err := zapcore.ParseLevel(c.Level)
    if err != nil {
        return nil, err
    }
    zc := zap.NewProductionConfig()
    if c.Development {
        zc = zap.NewDevelopmentConfig()
    }
    zc.Level = zap.NewAtomicLevelAt(level)
    return zc.Build()
}
