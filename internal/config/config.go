// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Catalog  CatalogConfig
	Webhook  WebhookConfig
	Storage  StorageConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	CatalogTTLSeconds int
	PreviewTTLSeconds int
}

// CatalogConfig describes where the SKU sheet lives. Source is "url" for a
// published/exportable sheet link, or "drive" for a private sheet read with a
// service account.
type CatalogConfig struct {
	Source              string
	SheetURL            string
	DriveFileID         string
	DriveCredentials    string
	FetchTimeoutSeconds int
	BundleFlag          string
}

type WebhookConfig struct {
	URL            string
	TimeoutSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type AppConfig struct {
	DefaultActor   string
	UploadMaxBytes int64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "estoque")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_CATALOG_TTL_SECONDS", 30)
	v.SetDefault("CACHE_PREVIEW_TTL_SECONDS", 900)
	v.SetDefault("CATALOG_SOURCE", "url")
	v.SetDefault("CATALOG_SHEET_URL", "")
	v.SetDefault("CATALOG_DRIVE_FILE_ID", "")
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("CATALOG_FETCH_TIMEOUT_SECONDS", 10)
	v.SetDefault("CATALOG_BUNDLE_FLAG", "SIM")
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 15)
	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "drawdown")
	v.SetDefault("APP_DEFAULT_ACTOR", "sistema")
	v.SetDefault("APP_UPLOAD_MAX_BYTES", 10*1024*1024)
}

func fromViper(v *viper.Viper) *Config {
	logLevel := v.GetString("LOG_LEVEL")
	if logLevel == "" {
		logLevel = v.GetString("SERVER_MODE")
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  logLevel,
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:           v.GetBool("CACHE_ENABLED"),
			RedisURL:          v.GetString("REDIS_URL"),
			RedisHost:         v.GetString("REDIS_HOST"),
			RedisPort:         v.GetString("REDIS_PORT"),
			RedisPassword:     v.GetString("REDIS_PASSWORD"),
			RedisDB:           v.GetInt("REDIS_DB"),
			CatalogTTLSeconds: v.GetInt("CACHE_CATALOG_TTL_SECONDS"),
			PreviewTTLSeconds: v.GetInt("CACHE_PREVIEW_TTL_SECONDS"),
		},
		Catalog: CatalogConfig{
			Source:              v.GetString("CATALOG_SOURCE"),
			SheetURL:            v.GetString("CATALOG_SHEET_URL"),
			DriveFileID:         v.GetString("CATALOG_DRIVE_FILE_ID"),
			DriveCredentials:    v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FetchTimeoutSeconds: v.GetInt("CATALOG_FETCH_TIMEOUT_SECONDS"),
			BundleFlag:          v.GetString("CATALOG_BUNDLE_FLAG"),
		},
		Webhook: WebhookConfig{
			URL:            v.GetString("WEBHOOK_URL"),
			TimeoutSeconds: v.GetInt("WEBHOOK_TIMEOUT_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		App: AppConfig{
			DefaultActor:   v.GetString("APP_DEFAULT_ACTOR"),
			UploadMaxBytes: v.GetInt64("APP_UPLOAD_MAX_BYTES"),
		},
	}
}

// DSN returns URL when set, otherwise a key/value connection string built
// from the individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
