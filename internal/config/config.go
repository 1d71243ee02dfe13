package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=distribuidora port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	CORSOrigins string

	DatabaseDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret     string
	JWTExpiration time.Duration

	LogLevel  string
	LogFormat string // json | text

	LowStockThreshold int64

	StorageDriver string // local | s3
	UploadDir     string // local driver: carpeta en disco
	PublicBaseURL string // local driver: prefijo de las URLs públicas
	MaxUploadMB   int

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool
	S3PublicURL       string

	SeedAdminName     string
	SeedAdminUsername string
	SeedAdminEmail    string
	SeedAdminPassword string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080/uploads")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("SEED_ADMIN_NAME", "Administrador")
	v.SetDefault("SEED_ADMIN_USERNAME", "admin")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(".env could not be read", slog.String("error", err.Error()))
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		HTTPPort:          v.GetString("HTTP_PORT"),
		CORSOrigins:       v.GetString("CORS_ALLOWED_ORIGINS"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTExpiration:     v.GetDuration("JWT_EXPIRATION"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		LowStockThreshold: v.GetInt64("LOW_STOCK_THRESHOLD"),
		StorageDriver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		UploadDir:         v.GetString("UPLOAD_DIR"),
		PublicBaseURL:     strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxUploadMB:       v.GetInt("MAX_UPLOAD_MB"),
		S3Bucket:          v.GetString("S3_BUCKET"),
		S3Region:          v.GetString("S3_REGION"),
		S3Endpoint:        v.GetString("S3_ENDPOINT"),
		S3AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		S3PublicURL:       strings.TrimRight(v.GetString("S3_PUBLIC_URL"), "/"),
		SeedAdminName:     v.GetString("SEED_ADMIN_NAME"),
		SeedAdminUsername: v.GetString("SEED_ADMIN_USERNAME"),
		SeedAdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseDSN == defaultDSN {
		slog.Warn("DATABASE_DSN is using the default value, set your own Postgres DSN in production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		slog.Warn("CORS_ALLOWED_ORIGINS is using the default value")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive, got %s", c.JWTExpiration)
	}
	if c.LowStockThreshold < 0 {
		return errors.New("LOW_STOCK_THRESHOLD cannot be negative")
	}
	switch c.StorageDriver {
	case "local":
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the local storage driver")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (local|s3)", c.StorageDriver)
	}
	return nil
}

// CORSOriginList splits the comma separated CORS_ALLOWED_ORIGINS value.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
