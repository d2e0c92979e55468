// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/atinyakov/GophIntake/internal/recovery"
)

// Duration is a time.Duration that reads "1h"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a Go duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string. Empty selects the
	// in-memory store.
	DatabaseDSN string `json:"database_dsn"`

	// RedisURL enables the shared replay cache when set.
	RedisURL string `json:"redis_url"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`

	// LogFile, when set, receives rotated JSON logs as well as stdout.
	LogFile string `json:"log_file"`

	// TLSCert and TLSKey switch the server to HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// ReviewerCA is a CA bundle; when set, the review endpoint is served and
	// requires a client certificate signed by it. Without it there is no
	// review endpoint.
	ReviewerCA string `json:"reviewer_ca"`

	MinVerificationScore int      `json:"min_verification_score"`
	RecoveryMaxAttempts  int      `json:"recovery_max_attempts"`
	RecoveryMaxFailures  int      `json:"recovery_max_failures"`
	RecoveryWindow       Duration `json:"recovery_window"`

	// MetricsAddress, when set, serves /metrics on its own listener. The MCP
	// binary has no HTTP API, so this is the only way to scrape it.
	MetricsAddress string `json:"metrics_address"`

	// TurnTTL is how long a processed turn can be replayed.
	TurnTTL Duration `json:"turn_ttl"`

	// CleanupInterval and SessionRetention drive the abandoned-session cleaner.
	CleanupInterval  Duration `json:"cleanup_interval"`
	SessionRetention Duration `json:"session_retention"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = defaults()

func defaults() *Options {
	pol := recovery.DefaultPolicy()
	return &Options{
		Port:                 "localhost:8080",
		LogLevel:             "Info",
		MinVerificationScore: pol.MinScore,
		RecoveryMaxAttempts:  pol.MaxInitiations,
		RecoveryMaxFailures:  pol.MaxFailures,
		RecoveryWindow:       Duration(pol.Window),
		TurnTTL:              Duration(24 * time.Hour),
		CleanupInterval:      Duration(time.Hour),
		SessionRetention:     Duration(7 * 24 * time.Hour),
	}
}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.RedisURL, "r", "", "redis URL for the turn replay cache")
	flag.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	flag.StringVar(&options.LogFile, "log-file", "", "rotated JSON log file")
	flag.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate path")
	flag.StringVar(&options.TLSKey, "tls-key", "", "TLS key path")
	flag.StringVar(&options.MetricsAddress, "metrics-addr", "", "separate ip:port for /metrics")
	flag.StringVar(&options.ReviewerCA, "reviewer-ca", "", "CA that signs reviewer client certificates")
	flag.IntVar(&options.MinVerificationScore, "min-score", options.MinVerificationScore, "weighted score that proves identity during recovery")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if err := load(options, os.Getenv); err != nil {
		log.Fatalf("%v", err)
	}
	return options
}

func load(o *Options, getenv func(string) string) error {
	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	strs := map[string]*string{
		"SERVER_ADDRESS": &o.Port,
		"DATABASE_DSN":   &o.DatabaseDSN,
		"REDIS_URL":      &o.RedisURL,
		"LOG_LEVEL":      &o.LogLevel,
		"LOG_FILE":       &o.LogFile,
		"METRICS_ADDR":   &o.MetricsAddress,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MIN_VERIFICATION_SCORE": &o.MinVerificationScore,
		"RECOVERY_MAX_ATTEMPTS":  &o.RecoveryMaxAttempts,
		"RECOVERY_MAX_FAILURES":  &o.RecoveryMaxFailures,
	}
	for key, dst := range ints {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*Duration{
		"RECOVERY_WINDOW": &o.RecoveryWindow,
		"TURN_TTL":        &o.TurnTTL,
	}
	for key, dst := range durations {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
	}

	if err := o.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid recovery policy: %w", err)
	}
	return nil
}

// Policy returns the recovery policy described by o.
func (o *Options) Policy() recovery.Policy {
	return recovery.Policy{
		MinScore:       o.MinVerificationScore,
		MaxInitiations: o.RecoveryMaxAttempts,
		Window:         time.Duration(o.RecoveryWindow),
		MaxFailures:    o.RecoveryMaxFailures,
	}
}
