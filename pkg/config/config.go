package config

import (
	"errors"
	"os"
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
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Google   GoogleConfig
	Cache    CacheConfig
	Spaces   SpacesConfig
	Metrics  MetricsConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GoogleConfig configures the Drive/Sheets integration and account linking.
type GoogleConfig struct {
	ClientID            string
	ClientSecret        string
	RedirectURL         string
	Scopes              []string
	RootFolderName      string
	DataFolderName      string
	ResponsesFolderName string
	StateSecret         string
	StateTTL            time.Duration
}

// CacheEntryConfig describes one kind of cached value.
type CacheEntryConfig struct {
	Prefix string
	TTL    time.Duration
}

// CacheConfig holds the per-kind cache entries kept in Redis.
type CacheConfig struct {
	FolderStructure CacheEntryConfig
	Credentials     CacheEntryConfig
}

// SpacesConfig tunes the document space workflow.
type SpacesConfig struct {
	ScanWindow       int
	MaxUploadBytes   int64
	AllowedMIMEs     []string
	MaxLoginAttempts int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Google = GoogleConfig{
		ClientID:            v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret:        v.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:         v.GetString("GOOGLE_REDIRECT_URL"),
		Scopes:              splitAndTrim(v.GetString("GOOGLE_SCOPES")),
		RootFolderName:      v.GetString("GOOGLE_ROOT_FOLDER"),
		DataFolderName:      v.GetString("GOOGLE_DATA_FOLDER"),
		ResponsesFolderName: v.GetString("GOOGLE_RESPONSES_FOLDER"),
		StateSecret:         v.GetString("GOOGLE_STATE_SECRET"),
		StateTTL:            parseDuration(v.GetString("GOOGLE_STATE_TTL"), 10*time.Minute),
	}

	cfg.Cache = CacheConfig{
		FolderStructure: CacheEntryConfig{
			Prefix: v.GetString("CACHE_FOLDER_STRUCTURE_PREFIX"),
			TTL:    parseDuration(v.GetString("CACHE_FOLDER_STRUCTURE_TTL"), time.Hour),
		},
		Credentials: CacheEntryConfig{
			Prefix: v.GetString("CACHE_CREDENTIALS_PREFIX"),
			TTL:    parseDuration(v.GetString("CACHE_CREDENTIALS_TTL"), 15*time.Minute),
		},
	}

	maxUpload := v.GetInt64("SPACES_MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 24 * 1024 * 1024
	}
	scanWindow := v.GetInt("SPACES_SCAN_WINDOW")
	if scanWindow <= 0 {
		scanWindow = 100
	}
	cfg.Spaces = SpacesConfig{
		ScanWindow:       scanWindow,
		MaxUploadBytes:   maxUpload,
		AllowedMIMEs:     splitAndTrim(v.GetString("SPACES_ALLOWED_MIME_TYPES")),
		MaxLoginAttempts: v.GetInt("MAX_LOGIN_ATTEMPTS"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
		Path:    v.GetString("METRICS_PATH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "leads_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "leads-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("GOOGLE_SCOPES", "openid,email,profile,https://www.googleapis.com/auth/drive.file,https://www.googleapis.com/auth/spreadsheets")
	v.SetDefault("GOOGLE_ROOT_FOLDER", "leads_management")
	v.SetDefault("GOOGLE_DATA_FOLDER", "data")
	v.SetDefault("GOOGLE_RESPONSES_FOLDER", "responses")
	v.SetDefault("GOOGLE_STATE_SECRET", "dev_state_secret")
	v.SetDefault("GOOGLE_STATE_TTL", "10m")

	v.SetDefault("CACHE_FOLDER_STRUCTURE_PREFIX", "drive_structure_for_")
	v.SetDefault("CACHE_FOLDER_STRUCTURE_TTL", "1h")
	v.SetDefault("CACHE_CREDENTIALS_PREFIX", "google_credentials_for_")
	v.SetDefault("CACHE_CREDENTIALS_TTL", "15m")

	v.SetDefault("SPACES_SCAN_WINDOW", 100)
	v.SetDefault("SPACES_MAX_UPLOAD_SIZE", 24*1024*1024)
	v.SetDefault("SPACES_ALLOWED_MIME_TYPES", strings.Join(DefaultSpreadsheetMIMEs, ","))
	v.SetDefault("MAX_LOGIN_ATTEMPTS", 5)

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("METRICS_PATH", "/metrics")
}

// DefaultSpreadsheetMIMEs lists the upload content types Drive converts into spreadsheets.
var DefaultSpreadsheetMIMEs = []string{
	"text/tab-separated-values",
	"application/vnd.ms-excel.sheet.macroenabled.12",
	"application/vnd.ms-excel",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/x-vnd.oasis.opendocument.spreadsheet",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template",
	"application/vnd.ms-excel.template.macroenabled.12",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/csv",
}

func isMissingFile(err error) bool {
	return errors.Is(err, os.ErrNotExist)
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
