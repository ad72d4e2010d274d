package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	DBMaxConns  int    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int    `mapstructure:"DB_MIN_CONNS"`

	SecretKey   string        `mapstructure:"SECRET_KEY"`
	TokenTTL    time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins []string      `mapstructure:"CORS_ORIGINS"`

	GroqAPIKey      string        `mapstructure:"GROQ_API_KEY"`
	GroqBaseURL     string        `mapstructure:"GROQ_BASE_URL"`
	GroqModelText   string        `mapstructure:"GROQ_MODEL_TEXT"`
	GroqModelVision string        `mapstructure:"GROQ_MODEL_VISION"`
	LLMTimeout      time.Duration `mapstructure:"LLM_TIMEOUT"`

	EvolutionAPIURL string `mapstructure:"EVOLUTION_API_URL"`
	EvolutionAPIKey string `mapstructure:"EVOLUTION_API_KEY"`
	GoogleClientID  string `mapstructure:"GOOGLE_CLIENT_ID"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	S3Bucket           string `mapstructure:"S3_BUCKET"`
	CloudFrontURL      string `mapstructure:"CLOUDFRONT_URL"`
	SESEmail           string `mapstructure:"SES_EMAIL"`
	SNSFCMArn          string `mapstructure:"SNS_FCM_ARN"`
	RekognitionEnabled bool   `mapstructure:"REKOGNITION_ENABLED"`

	ReminderCron  string `mapstructure:"REMINDER_CRON"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT", "DB_SSLMODE",
	"DB_MAX_CONNS", "DB_MIN_CONNS",
	"SECRET_KEY", "TOKEN_TTL", "CORS_ORIGINS",
	"GROQ_API_KEY", "GROQ_BASE_URL", "GROQ_MODEL_TEXT", "GROQ_MODEL_VISION", "LLM_TIMEOUT",
	"EVOLUTION_API_URL", "EVOLUTION_API_KEY", "GOOGLE_CLIENT_ID",
	"AWS_REGION", "S3_BUCKET", "CLOUDFRONT_URL", "SES_EMAIL", "SNS_FCM_ARN", "REKOGNITION_ENABLED",
	"REMINDER_CRON", "ADMIN_EMAIL", "ADMIN_PASSWORD",
}

func Load() (*Config, error) {
	// a missing .env is fine, the environment wins anyway
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("GROQ_MODEL_TEXT", "llama-3.1-8b-instant")
	v.SetDefault("GROQ_MODEL_VISION", "llama-3.2-11b-vision-preview")
	v.SetDefault("LLM_TIMEOUT", "60s")
	v.SetDefault("AWS_REGION", "sa-east-1")
	v.SetDefault("REKOGNITION_ENABLED", false)
	v.SetDefault("REMINDER_CRON", "*/15 * * * *")
	v.SetDefault("ADMIN_EMAIL", "admin@nuttro.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if cfg.SecretKey == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("SECRET_KEY is required")
		}
		cfg.SecretKey = "nuttro-dev-secret"
	}
	if cfg.DatabaseURL == "" && cfg.DBHost != "" {
		cfg.DatabaseURL = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL (or DB_HOST) is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) LLMEnabled() bool {
	return c.GroqAPIKey != ""
}

func (c *Config) EvolutionEnabled() bool {
	return c.EvolutionAPIURL != "" && c.EvolutionAPIKey != ""
}

func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

func (c *Config) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
