package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Data         DataConfig
	Database     DatabaseConfig
	KurrentDB    KurrentDBConfig
	Auth         AuthConfig
	LLM          LLMConfig
	Matching     MatchingConfig
	Notification NotificationConfig
	Survey       SurveyConfig
}

type ServerConfig struct {
	Port        int
	Env         string
	CORSOrigins []string
}

// DataConfig locates the flat-file system of record.
type DataConfig struct {
	// Dir holds clients.json and structured_resources.json
	Dir string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Enabled switches the client store from the JSON file to Postgres
	Enabled bool
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
	Enabled  bool
}

type AuthConfig struct {
	JWTSecret string
}

// LLMConfig holds configuration for the Gemini collaborator.
type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// MatchingConfig tunes the resource matcher retrieval pipeline.
type MatchingConfig struct {
	// RetrievalWidth is the over-fetched candidate count before filtering
	RetrievalWidth int
	// ShortlistWidth is the final number of resources returned
	ShortlistWidth int
}

type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	Workers    int
	BufferSize int
}

// SurveyConfig controls the needs-assessment form pipeline.
type SurveyConfig struct {
	FormURL       string
	SpreadsheetID string
	GoogleAPIKey  string
	PollInterval  time.Duration
	PollEnabled   bool
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("SERVER_PORT", 8080),
			Env:         getEnv("ENV", "development"),
			CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),
		},
		Data: DataConfig{
			Dir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "nextstep"),
			Password: getEnv("DB_PASSWORD", "nextstep"),
			Database: getEnv("DB_NAME", "nextstep"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getEnvBool("DB_ENABLED", false),
		},
		KurrentDB: KurrentDBConfig{
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
			Enabled:  getEnvBool("KURRENTDB_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			EmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			Timeout:        getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		},
		Matching: MatchingConfig{
			RetrievalWidth: getEnvInt("MATCH_RETRIEVAL_WIDTH", 25),
			ShortlistWidth: getEnvInt("MATCH_SHORTLIST_WIDTH", 5),
		},
		Notification: NotificationConfig{
			SMTPHost:          getEnv("SMTP_SERVER", "smtp.gmail.com"),
			SMTPPort:          getEnvInt("SMTP_PORT", 587),
			SMTPUsername:      getEnv("SMTP_USERNAME", ""),
			SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
			FromEmail:         getEnv("FROM_EMAIL", ""),
			FromName:          getEnv("FROM_NAME", "NextStep Social Worker"),
			TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
			Workers:           getEnvInt("NOTIFY_WORKERS", 4),
			BufferSize:        getEnvInt("NOTIFY_BUFFER", 1000),
		},
		Survey: SurveyConfig{
			FormURL:       getEnv("SURVEY_FORM_URL", ""),
			SpreadsheetID: getEnv("SURVEY_SPREADSHEET_ID", ""),
			GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
			PollInterval:  getEnvDuration("SURVEY_POLL_INTERVAL", 30*time.Second),
			PollEnabled:   getEnvBool("SURVEY_POLL_ENABLED", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
