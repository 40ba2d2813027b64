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

// Upload storage providers.
const (
	StorageProviderLocal = "local"
	StorageProviderGCS   = "gcs"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Verification  VerificationConfig
	Uploads       UploadsConfig
	Metrics       MetricsConfig
	Rectification RectificationConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// VerificationConfig tunes the stock verification workflow.
type VerificationConfig struct {
	SessionTTL          time.Duration
	Timezone            string
	RequireLocation     bool
	SimilarityThreshold float64
	PhoneRegion         string
	SubmitLockTTL       time.Duration
}

// UploadsConfig controls proof/signature storage.
type UploadsConfig struct {
	Provider           string
	StorageDir         string
	PublicBaseURL      string
	SignedURLSecret    string
	SignedURLTTL       time.Duration
	MaxFileSizeBytes   int64
	AllowedMIMEs       []string
	GCSBucket          string
	GCSCredentialsJSON string
	ThumbnailWidth     int
	WorkerConcurrency  int
	WorkerRetries      int
}

// MetricsConfig governs the liquidation metrics endpoints.
type MetricsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// RectificationConfig gates stock rectification requests.
type RectificationConfig struct {
	Enabled          bool
	DefaultUnitValue float64
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	threshold := v.GetFloat64("VERIFICATION_SIMILARITY_THRESHOLD")
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.8
	}
	cfg.Verification = VerificationConfig{
		SessionTTL:          parseDuration(v.GetString("VERIFICATION_SESSION_TTL"), 12*time.Hour),
		Timezone:            v.GetString("VERIFICATION_TIMEZONE"),
		RequireLocation:     v.GetBool("VERIFICATION_REQUIRE_LOCATION"),
		SimilarityThreshold: threshold,
		PhoneRegion:         strings.ToUpper(v.GetString("VERIFICATION_PHONE_REGION")),
		SubmitLockTTL:       parseDuration(v.GetString("VERIFICATION_SUBMIT_LOCK_TTL"), 30*time.Second),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Provider:           strings.ToLower(v.GetString("UPLOADS_PROVIDER")),
		StorageDir:         v.GetString("UPLOADS_STORAGE_DIR"),
		PublicBaseURL:      v.GetString("UPLOADS_PUBLIC_BASE_URL"),
		SignedURLSecret:    v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:       parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 7*24*time.Hour),
		MaxFileSizeBytes:   maxUpload,
		AllowedMIMEs:       splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
		GCSBucket:          v.GetString("GCS_BUCKET"),
		GCSCredentialsJSON: v.GetString("GCS_CREDENTIALS_JSON"),
		ThumbnailWidth:     v.GetInt("UPLOADS_THUMBNAIL_WIDTH"),
		WorkerConcurrency:  v.GetInt("UPLOADS_WORKER_CONCURRENCY"),
		WorkerRetries:      v.GetInt("UPLOADS_WORKER_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled:  v.GetBool("ENABLE_LIQUIDATION_METRICS"),
		CacheTTL: parseDuration(v.GetString("METRICS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Rectification = RectificationConfig{
		Enabled:          v.GetBool("ENABLE_RECTIFICATIONS"),
		DefaultUnitValue: v.GetFloat64("RECTIFICATION_DEFAULT_UNIT_VALUE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "liquidation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "liquidation-verify-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("VERIFICATION_SESSION_TTL", "12h")
	v.SetDefault("VERIFICATION_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("VERIFICATION_REQUIRE_LOCATION", false)
	v.SetDefault("VERIFICATION_SIMILARITY_THRESHOLD", 0.8)
	v.SetDefault("VERIFICATION_PHONE_REGION", "IN")
	v.SetDefault("VERIFICATION_SUBMIT_LOCK_TTL", "30s")

	v.SetDefault("UPLOADS_PROVIDER", StorageProviderLocal)
	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_PUBLIC_BASE_URL", "http://localhost:8080/api/v1/files")
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "168h")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp,application/pdf")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_JSON", "")
	v.SetDefault("UPLOADS_THUMBNAIL_WIDTH", 320)
	v.SetDefault("UPLOADS_WORKER_CONCURRENCY", 2)
	v.SetDefault("UPLOADS_WORKER_RETRIES", 2)

	v.SetDefault("ENABLE_LIQUIDATION_METRICS", true)
	v.SetDefault("METRICS_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_RECTIFICATIONS", true)
	v.SetDefault("RECTIFICATION_DEFAULT_UNIT_VALUE", 5000)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
