package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Google     GoogleConfig
	Recall     RecallConfig
	LinkedIn   LinkedInConfig
	Facebook   FacebookConfig
	OpenAI     OpenAIConfig
	AWS        AWSConfig
	Reconciler ReconcilerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	AppOrigin          string // external origin for OAuth redirect URIs
	StateSecret        string // signs OAuth state tokens
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GoogleConfig holds Google OAuth client settings for calendar access.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// RecallConfig holds notetaker-bot provider settings. Each region has its own
// API key; RegionKeys maps region name (e.g. us-west-2) to key, with APIKey
// as the fallback for regions without a dedicated entry.
type RecallConfig struct {
	DefaultRegion string
	APIKey        string
	RegionKeys    map[string]string
	APIBase       string // optional override for the region-derived base URL
}

// LinkedInConfig holds LinkedIn OAuth app credentials.
type LinkedInConfig struct {
	ClientID     string
	ClientSecret string
}

// FacebookConfig holds Facebook OAuth app credentials.
type FacebookConfig struct {
	AppID     string
	AppSecret string
}

// OpenAIConfig holds optional AI generation settings. Empty APIKey disables
// the AI path entirely; generation falls back to the rule-based templates.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Org     string
	Project string
}

// AWSConfig holds optional S3 settings for archiving raw transcript payloads.
// Empty Region disables archiving.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ArchiveBucket   string
}

// ReconcilerConfig holds the meeting lifecycle loop settings.
type ReconcilerConfig struct {
	PollSeconds     int // cycle cadence
	InitialDelaySec int // delay before the first cycle
	LeadMinutes     int // how long before start the bot joins
	WindowDays      int // calendar future window
	PastDays        int // calendar past window
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// KeyForRegion returns the bot provider API key for a region, falling back to
// the default key. An empty result means the region is not configured.
func (c RecallConfig) KeyForRegion(region string) string {
	if region == "" {
		region = c.DefaultRegion
	}
	if k, ok := c.RegionKeys[region]; ok && k != "" {
		return k
	}
	return c.APIKey
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			AppOrigin:          getEnv("APP_ORIGIN", "http://localhost:8080"),
			StateSecret:        getEnv("OAUTH_STATE_SECRET", "change-me-in-production"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "postmeeting"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Recall: RecallConfig{
			DefaultRegion: getEnv("RECALL_REGION", "us-east-1"),
			APIKey:        getEnv("RECALL_API_KEY", ""),
			RegionKeys:    recallRegionKeys(),
			APIBase:       getEnv("RECALL_API_BASE", ""),
		},
		LinkedIn: LinkedInConfig{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		Facebook: FacebookConfig{
			AppID:     getEnv("FACEBOOK_APP_ID", ""),
			AppSecret: getEnv("FACEBOOK_APP_SECRET", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Org:     getEnv("OPENAI_ORG", ""),
			Project: getEnv("OPENAI_PROJECT", ""),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArchiveBucket:   getEnv("AWS_S3_TRANSCRIPTS_BUCKET", "postmeeting-transcripts"),
		},
		Reconciler: ReconcilerConfig{
			PollSeconds:     getEnvInt("RECONCILE_POLL_SEC", 30),
			InitialDelaySec: getEnvInt("RECONCILE_INITIAL_DELAY_SEC", 3),
			LeadMinutes:     getEnvInt("BOT_LEAD_MINUTES", 5),
			WindowDays:      getEnvInt("CALENDAR_WINDOW_DAYS", 45),
			PastDays:        getEnvInt("CALENDAR_PAST_DAYS", 14),
		},
	}
	return cfg, nil
}

// recallRegionKeys collects RECALL_API_KEY_<REGION> env entries, e.g.
// RECALL_API_KEY_US_WEST_2 -> us-west-2.
func recallRegionKeys() map[string]string {
	keys := make(map[string]string)
	const prefix = "RECALL_API_KEY_"
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		name, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(name, prefix) || val == "" {
			continue
		}
		region := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "-"))
		keys[region] = val
	}
	return keys
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
