package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all service settings.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL renders the postgres connection URL used by the migration tool.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// StorageConfig selects and configures the byte store backend.
type StorageConfig struct {
	// Backend is "filesystem" or "minio".
	Backend         string
	UploadDir       string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	MaxUploadSizeMB int
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "skucast",
			SSLMode:  "disable",
		},
		Storage: StorageConfig{
			Backend:         "filesystem",
			UploadDir:       "./uploads",
			MinioBucket:     "uploads",
			MaxUploadSizeMB: 50,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// Load reads config.yaml from configPath, with environment overrides
// (SKUCAST_DATABASE_HOST and friends). Missing files fall back to
// defaults plus env.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("SKUCAST")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("storage.backend")
	v.BindEnv("storage.upload_dir")
	v.BindEnv("storage.minio_endpoint")
	v.BindEnv("storage.minio_access_key")
	v.BindEnv("storage.minio_secret_key")
	v.BindEnv("storage.minio_bucket")
	v.BindEnv("storage.minio_use_ssl")
	v.BindEnv("storage.max_upload_size_mb")
	v.BindEnv("server.addr")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("storage.backend") {
		cfg.Storage.Backend = v.GetString("storage.backend")
	}
	if v.IsSet("storage.upload_dir") {
		cfg.Storage.UploadDir = v.GetString("storage.upload_dir")
	}
	if v.IsSet("storage.minio_endpoint") {
		cfg.Storage.MinioEndpoint = v.GetString("storage.minio_endpoint")
	}
	if v.IsSet("storage.minio_access_key") {
		cfg.Storage.MinioAccessKey = v.GetString("storage.minio_access_key")
	}
	if v.IsSet("storage.minio_secret_key") {
		cfg.Storage.MinioSecretKey = v.GetString("storage.minio_secret_key")
	}
	if v.IsSet("storage.minio_bucket") {
		cfg.Storage.MinioBucket = v.GetString("storage.minio_bucket")
	}
	if v.IsSet("storage.minio_use_ssl") {
		cfg.Storage.MinioUseSSL = v.GetBool("storage.minio_use_ssl")
	}
	if v.IsSet("storage.max_upload_size_mb") {
		cfg.Storage.MaxUploadSizeMB = v.GetInt("storage.max_upload_size_mb")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	return cfg, nil
}
