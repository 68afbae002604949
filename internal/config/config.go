package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// Legal retention knobs. Preservation and GDPR retention both default
	// to the statutory ten years.
	PreservationYears int
	RetentionYears    int
	ExpiryWarningDays int
	NearExpiryMonths  int
	CriticalRatio     float64
	AnonymizeDryRun   bool

	ArtifactDir string

	SchedulerRunInterval time.Duration
	SchedulerBatchSize   int
	SchedulerEnabledJobs []string
	VerifyExpiring       bool

	SDIBaseURL string
	SDIAPIKey  string

	VIESEnabled bool
	VIESBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	ReportTo     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "fattura"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fattura"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		PreservationYears: getenvInt("PRESERVATION_YEARS", 10),
		RetentionYears:    getenvInt("RETENTION_YEARS", 10),
		ExpiryWarningDays: getenvInt("EXPIRY_WARNING_DAYS", 90),
		NearExpiryMonths:  getenvInt("NEAR_EXPIRY_MONTHS", 3),
		CriticalRatio:     getenvFloat("RETENTION_CRITICAL_RATIO", 0.5),
		AnonymizeDryRun:   getenvBool("ANONYMIZE_DRY_RUN", false),

		ArtifactDir: getenv("ARTIFACT_DIR", "data/artifacts"),

		SchedulerRunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
		SchedulerBatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 50),
		SchedulerEnabledJobs: getenvList("SCHEDULER_ENABLED_JOBS"),
		VerifyExpiring:       getenvBool("VERIFY_EXPIRING_INTEGRITY", true),

		SDIBaseURL: strings.TrimSpace(getenv("SDI_BASE_URL", "")),
		SDIAPIKey:  strings.TrimSpace(getenv("SDI_API_KEY", "")),

		VIESEnabled: getenvBool("VIES_ENABLED", false),
		VIESBaseURL: getenv("VIES_BASE_URL", "https://ec.europa.eu/taxation_customs/vies/rest-api"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		ReportTo:     getenv("COMPLIANCE_REPORT_TO", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
