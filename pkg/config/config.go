package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Log      LogConfig
	Story    StoryConfig
	Cache    CacheConfig
	Reset    ResetConfig
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AdminConfig holds the moderation console credentials. PasswordHash, when set,
// takes precedence over the plaintext Password.
type AdminConfig struct {
	Password     string
	PasswordHash string
	JWTSecret    string
	TokenExpiry  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoryConfig carries the contribution and rename limits.
type StoryConfig struct {
	LineCooldown   time.Duration
	RenameCooldown time.Duration
	MaxLineLength  int
	MinNameLength  int
	MinFlagReason  int
}

// CacheConfig toggles the read cache for the public story payload.
type CacheConfig struct {
	Enabled  bool
	StoryTTL time.Duration
}

// ResetConfig governs the quarterly story reset job.
type ResetConfig struct {
	Enabled    bool
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		BusyTimeout:  parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Admin = AdminConfig{
		Password:     v.GetString("ADMIN_PASSWORD"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		JWTSecret:    v.GetString("ADMIN_JWT_SECRET"),
		TokenExpiry:  parseDuration(v.GetString("ADMIN_TOKEN_EXPIRY"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Story = StoryConfig{
		LineCooldown:   parseDuration(v.GetString("LINE_COOLDOWN"), 24*time.Hour),
		RenameCooldown: parseDuration(v.GetString("RENAME_COOLDOWN"), 7*24*time.Hour),
		MaxLineLength:  v.GetInt("MAX_LINE_LENGTH"),
		MinNameLength:  v.GetInt("MIN_NAME_LENGTH"),
		MinFlagReason:  v.GetInt("MIN_FLAG_REASON"),
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		StoryTTL: parseDuration(v.GetString("STORY_CACHE_TTL"), 30*time.Second),
	}

	cfg.Reset = ResetConfig{
		Enabled:    v.GetBool("ENABLE_RESET_JOB"),
		MaxRetries: v.GetInt("RESET_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RESET_RETRY_DELAY"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_PATH", "./data/storyline.sqlite")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_JWT_SECRET", "dev_secret")
	v.SetDefault("ADMIN_TOKEN_EXPIRY", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LINE_COOLDOWN", "24h")
	v.SetDefault("RENAME_COOLDOWN", "168h")
	v.SetDefault("MAX_LINE_LENGTH", 512)
	v.SetDefault("MIN_NAME_LENGTH", 2)
	v.SetDefault("MIN_FLAG_REASON", 2)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("STORY_CACHE_TTL", "30s")

	v.SetDefault("ENABLE_RESET_JOB", true)
	v.SetDefault("RESET_MAX_RETRIES", 3)
	v.SetDefault("RESET_RETRY_DELAY", "1m")
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
