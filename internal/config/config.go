package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Log       LogConfig
	Analysis  AnalysisConfig
	Secondary ProviderConfig
	Batch     BatchConfig
	Telemetry TelemetryConfig
	CORS      CORSConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single analysis provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// Enabled reports whether a provider name was configured.
func (p *ProviderConfig) Enabled() bool {
	return p.Provider != ""
}

// GenerationConfig holds model sampling bounds.
type GenerationConfig struct {
	Temperature     float32 `mapstructure:"temperature"`
	TopP            float32 `mapstructure:"top_p"`
	TopK            int32   `mapstructure:"top_k"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

// Generation limits. Values outside these ranges are clamped.
const (
	MinTopK            = 1
	MaxTopK            = 100
	MinMaxOutputTokens = 256
	MaxMaxOutputTokens = 65536
)

// Bounded returns a copy with every setting clamped into its allowed range.
func (g GenerationConfig) Bounded() GenerationConfig {
	g.Temperature = clampFloat(g.Temperature, 0, 1)
	g.TopP = clampFloat(g.TopP, 0, 1)
	g.TopK = clampInt(g.TopK, MinTopK, MaxTopK)
	g.MaxOutputTokens = clampInt(g.MaxOutputTokens, MinMaxOutputTokens, MaxMaxOutputTokens)
	return g
}

// RetryConfig holds the backoff policy applied around each model call.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// PDFConfig holds page conversion settings.
type PDFConfig struct {
	DPI              float64 `mapstructure:"dpi"`
	MaxPages         int     `mapstructure:"max_pages"`
	IncludeTextLayer bool    `mapstructure:"include_text_layer"`
}

// AnalysisConfig holds document analysis settings.
type AnalysisConfig struct {
	Primary    ProviderConfig   `mapstructure:"primary"`
	Fallback   ProviderConfig   `mapstructure:"fallback"`
	Generation GenerationConfig `mapstructure:"generation"`
	Retry      RetryConfig      `mapstructure:"retry"`
	PDF        PDFConfig        `mapstructure:"pdf"`
}

// FallbackConfig returns the fallback provider config, or nil if not configured.
func (a *AnalysisConfig) FallbackConfig() *ProviderConfig {
	if a.Fallback.Enabled() {
		return &a.Fallback
	}
	return nil
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	PoolSize int `mapstructure:"pool_size"`
	MaxItems int `mapstructure:"max_items"`
}

// TelemetryConfig holds telemetry sink settings.
type TelemetryConfig struct {
	BufferSize int  `mapstructure:"buffer_size"`
	Persist    bool `mapstructure:"persist"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s *ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// DBConfig holds telemetry database settings.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return d.Path
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for the result archive.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ArchivePrefix  string `mapstructure:"archive_prefix"`
	ArchiveEnabled bool   `mapstructure:"archive_enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads an optional .env file, then configuration from environment
// variables with the TAXRECON_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TAXRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Bind environment variables explicitly for nested keys
	for _, key := range v.AllKeys() {
		env := "TAXRECON_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if TAXRECON_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("TAXRECON_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadMB:   v.GetInt64("server.max_upload_mb"),
		ShutdownGrace: v.GetDuration("server.shutdown_grace"),
	}
	cfg.DB = DBConfig{
		Driver:   v.GetString("db.driver"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		Path:     v.GetString("db.path"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:         v.GetString("s3.region"),
		Bucket:         v.GetString("s3.bucket"),
		Endpoint:       v.GetString("s3.endpoint"),
		AccessKey:      v.GetString("s3.access_key"),
		SecretKey:      v.GetString("s3.secret_key"),
		ArchivePrefix:  v.GetString("s3.archive_prefix"),
		ArchiveEnabled: v.GetBool("s3.archive_enabled"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Analysis = AnalysisConfig{
		Primary:  providerConfig(v, "analysis.primary"),
		Fallback: providerConfig(v, "analysis.fallback"),
		Generation: GenerationConfig{
			Temperature:     float32(v.GetFloat64("analysis.generation.temperature")),
			TopP:            float32(v.GetFloat64("analysis.generation.top_p")),
			TopK:            v.GetInt32("analysis.generation.top_k"),
			MaxOutputTokens: v.GetInt32("analysis.generation.max_output_tokens"),
		}.Bounded(),
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("analysis.retry.max_attempts"),
			BaseDelay:   v.GetDuration("analysis.retry.base_delay"),
			Multiplier:  v.GetFloat64("analysis.retry.multiplier"),
			MaxDelay:    v.GetDuration("analysis.retry.max_delay"),
		},
		PDF: PDFConfig{
			DPI:              v.GetFloat64("analysis.pdf.dpi"),
			MaxPages:         v.GetInt("analysis.pdf.max_pages"),
			IncludeTextLayer: v.GetBool("analysis.pdf.include_text_layer"),
		},
	}
	cfg.Secondary = providerConfig(v, "secondary")

	cfg.Batch = BatchConfig{
		PoolSize: v.GetInt("batch.pool_size"),
		MaxItems: v.GetInt("batch.max_items"),
	}
	cfg.Telemetry = TelemetryConfig{
		BufferSize: v.GetInt("telemetry.buffer_size"),
		Persist:    v.GetBool("telemetry.persist"),
	}

	if cfg.Batch.PoolSize < 1 {
		return nil, fmt.Errorf("batch.pool_size must be at least 1, got %d", cfg.Batch.PoolSize)
	}
	if cfg.Analysis.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("analysis.retry.max_attempts must be at least 1, got %d", cfg.Analysis.Retry.MaxAttempts)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.shutdown_grace", "30s")

	// DB defaults
	v.SetDefault("db.driver", "pgx")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "taxrecon")
	v.SetDefault("db.password", "taxrecon_secret")
	v.SetDefault("db.name", "taxrecon_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "taxrecon.db")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "taxrecon-results")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.archive_prefix", "results")
	v.SetDefault("s3.archive_enabled", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Analysis defaults
	v.SetDefault("analysis.primary.provider", "gemini")
	v.SetDefault("analysis.primary.api_key", "")
	v.SetDefault("analysis.primary.default_model", "gemini-2.0-flash")
	v.SetDefault("analysis.primary.timeout_secs", 120)
	v.SetDefault("analysis.fallback.provider", "")
	v.SetDefault("analysis.fallback.api_key", "")
	v.SetDefault("analysis.fallback.default_model", "")
	v.SetDefault("analysis.fallback.timeout_secs", 120)
	v.SetDefault("analysis.generation.temperature", 0.1)
	v.SetDefault("analysis.generation.top_p", 0.95)
	v.SetDefault("analysis.generation.top_k", 40)
	v.SetDefault("analysis.generation.max_output_tokens", 8192)
	v.SetDefault("analysis.retry.max_attempts", 3)
	v.SetDefault("analysis.retry.base_delay", "4s")
	v.SetDefault("analysis.retry.multiplier", 2.0)
	v.SetDefault("analysis.retry.max_delay", "30s")
	v.SetDefault("analysis.pdf.dpi", 150.0)
	v.SetDefault("analysis.pdf.max_pages", 20)
	v.SetDefault("analysis.pdf.include_text_layer", true)

	// Secondary extraction source defaults
	v.SetDefault("secondary.provider", "")
	v.SetDefault("secondary.api_key", "")
	v.SetDefault("secondary.default_model", "")
	v.SetDefault("secondary.timeout_secs", 120)

	// Batch defaults
	v.SetDefault("batch.pool_size", 4)
	v.SetDefault("batch.max_items", 50)

	// Telemetry defaults
	v.SetDefault("telemetry.buffer_size", 256)
	v.SetDefault("telemetry.persist", false)
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

func clampFloat(val, lo, hi float32) float32 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func clampInt(val, lo, hi int32) int32 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
