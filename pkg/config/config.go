package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Run modes of the gradebook binary.
const (
	ModeMenu   = "menu"
	ModeReport = "report"
	ModeServe  = "serve"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Gradebook GradebookConfig
	Exports   ExportsConfig
	Cache     CacheConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
}

// GradebookConfig locates the course document and controls how a missing one is seeded.
type GradebookConfig struct {
	Mode          string
	DataFile      string
	RosterFile    string
	CourseName    string
	PassThreshold float64
	SeedDemo      bool
}

// ExportsConfig configures rendered course reports.
type ExportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// CacheConfig governs the summary cache used in serve mode.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from .env, the environment and the given command-line arguments.
// Flags take precedence over the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Gradebook = GradebookConfig{
		Mode:          strings.ToLower(v.GetString("GRADEBOOK_MODE")),
		DataFile:      v.GetString("GRADEBOOK_DATA_FILE"),
		RosterFile:    v.GetString("GRADEBOOK_ROSTER_FILE"),
		CourseName:    v.GetString("GRADEBOOK_COURSE_NAME"),
		PassThreshold: v.GetFloat64("GRADEBOOK_PASS_THRESHOLD"),
		SeedDemo:      v.GetBool("GRADEBOOK_SEED_DEMO"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
		if cfg.Gradebook.Mode != ModeServe {
			cfg.Log.Format = "console"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Gradebook.Mode {
	case ModeMenu, ModeReport, ModeServe:
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s or %s)", c.Gradebook.Mode, ModeMenu, ModeReport, ModeServe)
	}
	if strings.TrimSpace(c.Gradebook.DataFile) == "" {
		return errors.New("data file path required")
	}
	return nil
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("gradebook", pflag.ContinueOnError)
	flags.String("mode", "", "run mode: menu, report or serve")
	flags.String("file", "", "path to the course JSON document")
	flags.String("roster", "", "XLSX roster to import on start")
	flags.Int("port", 0, "HTTP port for serve mode")
	flags.String("log-level", "", "log level")
	return flags
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"GRADEBOOK_MODE":        "mode",
		"GRADEBOOK_DATA_FILE":   "file",
		"GRADEBOOK_ROSTER_FILE": "roster",
		"PORT":                  "port",
		"LOG_LEVEL":             "log-level",
	}
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("GRADEBOOK_MODE", ModeMenu)
	v.SetDefault("GRADEBOOK_DATA_FILE", "datosDelCurso.json")
	v.SetDefault("GRADEBOOK_ROSTER_FILE", "")
	v.SetDefault("GRADEBOOK_COURSE_NAME", "Introducción a la Ingeniería de Software")
	v.SetDefault("GRADEBOOK_PASS_THRESHOLD", 70)
	v.SetDefault("GRADEBOOK_SEED_DEMO", true)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
