package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Solver backends
const (
	BackendGLPK   = "glpk"
	BackendGreedy = "greedy"
)

// Config is the service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig selects postgres when URL is set, sqlite at DataPath otherwise
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	DataPath string `mapstructure:"data_path"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	APIMasterSecret string `mapstructure:"api_master_secret"`
	AdminUsername   string `mapstructure:"admin_username"`
	AdminPassword   string `mapstructure:"admin_password"`
	// BcryptCost defaults to 14; tests lower it.
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// SolverConfig tunes the assignment engine
type SolverConfig struct {
	Backend      string        `mapstructure:"backend"`
	TimeLimit    time.Duration `mapstructure:"time_limit"`
	QuotaPerZone int           `mapstructure:"quota_per_zone"`
	UnrankedCost int           `mapstructure:"unranked_cost"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envPaths are tried in order; the first .env found is loaded
var envPaths = []string{".env", "../.env", "../../.env"}

// legacyEnv keeps the plain variable names deployments already use
var legacyEnv = map[string]string{
	"server.port":            "PORT",
	"db.url":                 "DATABASE_URL",
	"db.data_path":           "DATA_PATH",
	"auth.jwt_secret":        "JWT_SECRET",
	"auth.api_master_secret": "API_MASTER_SECRET",
	"auth.admin_username":    "ADMIN_USERNAME",
	"auth.admin_password":    "ADMIN_PASSWORD",
}

// Load reads configuration from defaults, an optional YAML file and the
// environment. Environment wins over file, file wins over defaults.
func Load(path string) (*Config, error) {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	v := viper.New()

	v.SetDefault("server.port", 8000)
	v.SetDefault("db.url", "")
	v.SetDefault("db.data_path", "scheduler.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_master_secret", "")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("auth.bcrypt_cost", 14)
	v.SetDefault("solver.backend", BackendGLPK)
	v.SetDefault("solver.time_limit", "60s")
	v.SetDefault("solver.quota_per_zone", 2)
	v.SetDefault("solver.unranked_cost", 99)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "SCHED_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the service cannot run without
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535")
	}
	if c.Solver.Backend != BackendGLPK && c.Solver.Backend != BackendGreedy {
		return fmt.Errorf("config: solver.backend must be %q or %q", BackendGLPK, BackendGreedy)
	}
	if c.Solver.TimeLimit <= 0 {
		return fmt.Errorf("config: solver.time_limit must be positive")
	}
	if c.Solver.QuotaPerZone <= 0 {
		return fmt.Errorf("config: solver.quota_per_zone must be positive")
	}
	if c.Solver.UnrankedCost < 0 {
		return fmt.Errorf("config: solver.unranked_cost cannot be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config: log.format must be json or console")
	}
	return nil
}
