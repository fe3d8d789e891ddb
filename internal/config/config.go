package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TABTRACE"

// Keys understood by Load
const (
	KeyStoreAddr        = "store.addr"
	KeyStoreDBPath      = "store.db_path"
	KeyServerURL        = "server.url"
	KeyDashboardURL     = "dashboard.url"
	KeyAgentAddr        = "agent.addr"
	KeyAgentURL         = "agent.url"
	KeyAgentStatePath   = "agent.state_path"
	KeySignalInterval   = "agent.signal_interval"
	KeyMaxInFlight      = "agent.max_inflight"
	KeySubmitTimeout    = "submit.timeout"
	KeyRateLimitPerHour = "ratelimit.per_hour"
	KeyRateLimitBurst   = "ratelimit.burst"
)

// Config is resolved once at startup and treated as fixed afterwards
type Config struct {
	StoreAddr        string
	DBPath           string
	ServerURL        string
	DashboardURL     string
	AgentAddr        string
	AgentURL         string
	StatePath        string
	SignalInterval   time.Duration
	MaxInFlight      int64
	SubmitTimeout    time.Duration
	RateLimitPerHour int
	RateLimitBurst   int
}

// LoadDotEnv loads .env files into the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// New returns a viper instance with defaults and TABTRACE_* environment binding
func New() (*viper.Viper, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyStoreAddr, ":5001")
	v.SetDefault(KeyStoreDBPath, filepath.Join(dataDir, "activities.db"))
	v.SetDefault(KeyServerURL, "http://localhost:5001")
	v.SetDefault(KeyDashboardURL, "http://localhost:3000")
	v.SetDefault(KeyAgentAddr, "127.0.0.1:5002")
	v.SetDefault(KeyAgentURL, "http://127.0.0.1:5002")
	v.SetDefault(KeyAgentStatePath, filepath.Join(dataDir, "state.toml"))
	v.SetDefault(KeySignalInterval, 2*time.Second)
	v.SetDefault(KeyMaxInFlight, 8)
	v.SetDefault(KeySubmitTimeout, 10*time.Second)
	v.SetDefault(KeyRateLimitPerHour, 3600)
	v.SetDefault(KeyRateLimitBurst, 60)

	return v, nil
}

// Load resolves a Config from v
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		StoreAddr:        v.GetString(KeyStoreAddr),
		DBPath:           v.GetString(KeyStoreDBPath),
		ServerURL:        strings.TrimRight(v.GetString(KeyServerURL), "/"),
		DashboardURL:     v.GetString(KeyDashboardURL),
		AgentAddr:        v.GetString(KeyAgentAddr),
		AgentURL:         strings.TrimRight(v.GetString(KeyAgentURL), "/"),
		StatePath:        v.GetString(KeyAgentStatePath),
		SignalInterval:   v.GetDuration(KeySignalInterval),
		MaxInFlight:      v.GetInt64(KeyMaxInFlight),
		SubmitTimeout:    v.GetDuration(KeySubmitTimeout),
		RateLimitPerHour: v.GetInt(KeyRateLimitPerHour),
		RateLimitBurst:   v.GetInt(KeyRateLimitBurst),
	}

	if cfg.ServerURL == "" {
		return Config{}, errors.New("server url is empty")
	}
	if cfg.MaxInFlight <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", KeyMaxInFlight, cfg.MaxInFlight)
	}
	if cfg.SignalInterval < 0 {
		return Config{}, fmt.Errorf("%s must not be negative", KeySignalInterval)
	}
	if cfg.RateLimitPerHour <= 0 || cfg.RateLimitBurst <= 0 {
		return Config{}, errors.New("rate limit values must be positive")
	}

	return cfg, nil
}

// DataDir returns the platform-specific application data directory
func DataDir() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "tabtrace"), nil
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "tabtrace"), nil
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "tabtrace"), nil
	}
}
