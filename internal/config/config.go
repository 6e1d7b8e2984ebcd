package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	Env        string
	LogLevel   string
	ClinicName string

	// Local data files
	ScheduleFile   string
	LedgerFile     string
	ClinicInfoFile string

	// Language model selection
	LLMProvider    string // "openai" or "bedrock"
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMCallTimeout time.Duration

	OpenAIAPIKey string

	AWSRegion               string
	AWSAccessKeyID          string
	AWSSecretAccessKey      string
	BedrockModelID          string
	BedrockEmbeddingModelID string

	GeminiAPIKey string
	GeminiModel  string

	// Calendly scheduling provider (optional; mock mode when unset)
	CalendlyAPIKey          string
	CalendlyBaseURL         string
	CalendlyOrganizationURI string
	CalendlyUserURI         string
	CalendlyTimeout         time.Duration

	// Session storage
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration
	MaxSessions   int

	// Booking confirmation email
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// HTTP surface
	CORSAllowedOrigins []string
	ChatRatePerSecond  float64
	ChatBurst          int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ClinicName: getEnv("CLINIC_NAME", "CareWell Clinic"),

		ScheduleFile:   getEnv("SCHEDULE_FILE", "data/doctor_schedule.json"),
		LedgerFile:     getEnv("LEDGER_FILE", "data/appointments.json"),
		ClinicInfoFile: getEnv("CLINIC_INFO_FILE", "data/clinic_info.json"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "openai"))),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMCallTimeout: getEnvAsDuration("LLM_CALL_TIMEOUT", 30*time.Second),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		AWSRegion:               getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		CalendlyAPIKey:          getEnv("CALENDLY_API_KEY", ""),
		CalendlyBaseURL:         getEnv("CALENDLY_BASE_URL", "https://api.calendly.com"),
		CalendlyOrganizationURI: getEnv("CALENDLY_ORGANIZATION_URI", ""),
		CalendlyUserURI:         getEnv("CALENDLY_USER_URI", ""),
		CalendlyTimeout:         getEnvAsDuration("CALENDLY_TIMEOUT", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		MaxSessions:   getEnvAsInt("MAX_SESSIONS", 10000),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CareWell Clinic"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ChatRatePerSecond:  getEnvAsFloat("CHAT_RATE_PER_SECOND", 1),
		ChatBurst:          getEnvAsInt("CHAT_BURST", 5),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
