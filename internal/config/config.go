package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type APIConfig struct {
	Addr            string  `mapstructure:"addr"`
	LogLevel        string  `mapstructure:"log_level"`
	DatabaseURL     string  `mapstructure:"database_url"`
	DBMaxConns      int32   `mapstructure:"db_max_conns"`
	DBMinConns      int32   `mapstructure:"db_min_conns"`
	DBAttempts      int     `mapstructure:"db_connect_attempts"`
	SupabaseURL     string  `mapstructure:"supabase_url"`
	SupabaseAnonKey string  `mapstructure:"supabase_anon_key"`
	ScoreRateLimit  float64 `mapstructure:"score_rate_limit"`
	ScoreRateBurst  int     `mapstructure:"score_rate_burst"`
	LeaderboardSize int     `mapstructure:"leaderboard_size"`
}

type WorkerConfig struct {
	LogLevel           string        `mapstructure:"log_level"`
	DatabaseURL        string        `mapstructure:"database_url"`
	DBMaxConns         int32         `mapstructure:"db_max_conns"`
	DBMinConns         int32         `mapstructure:"db_min_conns"`
	DBAttempts         int           `mapstructure:"db_connect_attempts"`
	ChallengeEvery     time.Duration `mapstructure:"challenge_every"`
	ChallengeMaxRounds int           `mapstructure:"challenge_max_rounds"`
	RunOnce            bool          `mapstructure:"run_once"`
}

type CLIConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	MaxRounds  int    `mapstructure:"max_rounds"`
}

// newViper reads an optional holdco.yaml (or the file at path) and HOLDCO_* env vars.
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("holdco")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("HOLDCO")
	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("addr", "HOLDCO_API_ADDR")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("log_level", "HOLDCO_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("database_url", "HOLDCO_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("supabase_url", "HOLDCO_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("supabase_anon_key", "HOLDCO_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY")
	_ = v.BindEnv("run_once", "HOLDCO_RUN_ONCE", "RUN_ONCE")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_max_conns", 20)
	v.SetDefault("db_min_conns", 2)
	v.SetDefault("db_connect_attempts", 5)
	v.SetDefault("score_rate_limit", 0.5)
	v.SetDefault("score_rate_burst", 3)
	v.SetDefault("leaderboard_size", 50)

	v.SetDefault("challenge_every", "1h")
	v.SetDefault("challenge_max_rounds", 20)
	v.SetDefault("run_once", false)

	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("max_rounds", 20)
}

func LoadAPI(path string) (APIConfig, error) {
	var cfg APIConfig
	v, err := newViper(path)
	if err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if port := strings.TrimSpace(v.GetString("port")); port != "" {
		cfg.Addr = port
	}
	if cfg.Addr != "" && !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.SupabaseAnonKey = strings.TrimSpace(cfg.SupabaseAnonKey)
	return cfg, cfg.Validate()
}

func (c APIConfig) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return fmt.Errorf("DATABASE_URL is required")
	case c.SupabaseURL == "":
		return fmt.Errorf("SUPABASE_URL is required")
	case c.SupabaseAnonKey == "":
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	case c.ScoreRateLimit <= 0 || c.ScoreRateBurst <= 0:
		return fmt.Errorf("score rate limit and burst must be > 0")
	}
	return nil
}

func LoadWorker(path string) (WorkerConfig, error) {
	var cfg WorkerConfig
	v, err := newViper(path)
	if err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ChallengeEvery <= 0 {
		return cfg, fmt.Errorf("challenge_every must be > 0")
	}
	if cfg.ChallengeMaxRounds != 10 && cfg.ChallengeMaxRounds != 20 {
		return cfg, fmt.Errorf("challenge_max_rounds must be 10 or 20, got %d", cfg.ChallengeMaxRounds)
	}
	return cfg, nil
}

// LoadCLI never fails; a broken config file falls back to defaults.
func LoadCLI() CLIConfig {
	cfg := CLIConfig{APIBaseURL: "http://localhost:8080", MaxRounds: 20}
	v, err := newViper("")
	if err != nil {
		return cfg
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return CLIConfig{APIBaseURL: "http://localhost:8080", MaxRounds: 20}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg
}

// SlogLevel maps a config log level onto slog. Unknown values log at info.
func SlogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
