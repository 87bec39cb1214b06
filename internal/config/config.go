package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL    string
	Port           string
	ClerkSecretKey string
	LogMode        string

	Oracle    OracleConfig
	Generator GeneratorConfig

	SweepInterval time.Duration
	SweepBatch    int

	Evidence EvidenceConfig

	RedisAddr    string
	RedisChannel string

	FCMCredentialsFile    string
	// FCMServiceAccountJSON is a base64 encoded service account key. It
	// takes precedence over FCMCredentialsFile.
	FCMServiceAccountJSON string

	MetricsUser string
	MetricsPass string
}

type OracleConfig struct {
	Provider   string
	Timeout    time.Duration
	MaxRetries int

	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIEndpoint string

	GeminiAPIKey string
	GeminiModel  string
}

type GeneratorConfig struct {
	Enabled bool
}

type EvidenceConfig struct {
	Backend string
	Dir     string
	Bucket  string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"

	EvidenceLocal = "local"
	EvidenceGCS   = "gcs"
)

func init() {
	SetDefaults(viper.GetViper())
}

// SetDefaults registers every key with its default so AutomaticEnv can see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3333")
	v.SetDefault("LOG_MODE", "dev")
	v.SetDefault("ORACLE_PROVIDER", ProviderOpenAI)
	v.SetDefault("ORACLE_TIMEOUT", 30*time.Second)
	v.SetDefault("ORACLE_MAX_RETRIES", 2)
	v.SetDefault("OPENAI_MODEL", "gpt-4.1-mini")
	v.SetDefault("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GENERATOR_ENABLED", true)
	v.SetDefault("SWEEP_INTERVAL", time.Minute)
	v.SetDefault("SWEEP_BATCH", 500)
	v.SetDefault("EVIDENCE_BACKEND", EvidenceLocal)
	v.SetDefault("EVIDENCE_DIR", "./evidence")
	v.SetDefault("REDIS_CHANNEL", "ledger")
	for _, key := range []string{
		"DATABASE_URL", "CLERK_SECRET_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"EVIDENCE_BUCKET", "REDIS_ADDR", "FCM_CREDENTIALS_FILE", "FCM_SERVICE_ACCOUNT_JSON", "METRICS_USER", "METRICS_PASS",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads .env (when present) and the process environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.GetViper()
	v.AutomaticEnv()
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:    v.GetString("DATABASE_URL"),
		Port:           v.GetString("PORT"),
		ClerkSecretKey: v.GetString("CLERK_SECRET_KEY"),
		LogMode:        v.GetString("LOG_MODE"),
		Oracle: OracleConfig{
			Provider:       strings.ToLower(strings.TrimSpace(v.GetString("ORACLE_PROVIDER"))),
			Timeout:        v.GetDuration("ORACLE_TIMEOUT"),
			MaxRetries:     v.GetInt("ORACLE_MAX_RETRIES"),
			OpenAIAPIKey:   v.GetString("OPENAI_API_KEY"),
			OpenAIModel:    v.GetString("OPENAI_MODEL"),
			OpenAIEndpoint: v.GetString("OPENAI_ENDPOINT"),
			GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
			GeminiModel:    v.GetString("GEMINI_MODEL"),
		},
		Generator:     GeneratorConfig{Enabled: v.GetBool("GENERATOR_ENABLED")},
		SweepInterval: v.GetDuration("SWEEP_INTERVAL"),
		SweepBatch:    v.GetInt("SWEEP_BATCH"),
		Evidence: EvidenceConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("EVIDENCE_BACKEND"))),
			Dir:     v.GetString("EVIDENCE_DIR"),
			Bucket:  v.GetString("EVIDENCE_BUCKET"),
		},
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisChannel:          v.GetString("REDIS_CHANNEL"),
		FCMCredentialsFile:    v.GetString("FCM_CREDENTIALS_FILE"),
		FCMServiceAccountJSON: v.GetString("FCM_SERVICE_ACCOUNT_JSON"),
		MetricsUser:           v.GetString("METRICS_USER"),
		MetricsPass:           v.GetString("METRICS_PASS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs. Server-only keys are
// checked by RequireServer.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	switch c.Oracle.Provider {
	case ProviderOpenAI:
		if c.Oracle.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case ProviderGemini:
		if c.Oracle.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("unsupported ORACLE_PROVIDER %q", c.Oracle.Provider)
	}
	switch c.Evidence.Backend {
	case EvidenceLocal:
	case EvidenceGCS:
		if c.Evidence.Bucket == "" {
			missing = append(missing, "EVIDENCE_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported EVIDENCE_BACKEND %q", c.Evidence.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) RequireServer() error {
	if c.ClerkSecretKey == "" {
		return fmt.Errorf("missing required configuration: CLERK_SECRET_KEY")
	}
	return nil
}

// PushConfigured reports whether FCM credentials were provided.
func (c *Config) PushConfigured() bool {
	return c.FCMCredentialsFile != "" || c.FCMServiceAccountJSON != ""
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
