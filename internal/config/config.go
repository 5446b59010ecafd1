package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	SOPDFDir   string

	LLMEnabled      bool
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	LLMTimeoutMs    int
	LLMRateLimitRPS float64
	LLMMaxRetries   int

	SOCacheTTL         time.Duration
	ShipperName        string
	ProductRulesPath   string
	DangerousGoodsPath string
	AddressWindowLines int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailQuery        string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		SOPDFDir:   getEnv("SO_PDF_DIR", filepath.Join(cwd, "data", "sales_orders")),

		LLMEnabled:      getEnvBool("LLM_ENABLED", true),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutMs:    getEnvInt("LLM_TIMEOUT_MS", 60000),
		LLMRateLimitRPS: getEnvFloat("LLM_RATE_LIMIT_RPS", 2),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 2),

		SOCacheTTL:         getEnvDuration("SO_CACHE_TTL_SEC", 600*time.Second),
		ShipperName:        getEnv("SHIPPER_NAME", "Canoil Canada Ltd"),
		ProductRulesPath:   getEnv("PRODUCT_RULES_PATH", ""),
		DangerousGoodsPath: getEnv("DANGEROUS_GOODS_PATH", ""),
		AddressWindowLines: getEnvInt("ADDRESS_WINDOW_LINES", 20),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailQuery:        getEnv("GMAIL_QUERY", "newer_than:7d"),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "gmail"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 30),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if cfg.AddressWindowLines <= 0 {
		cfg.AddressWindowLines = 20
	}
	if cfg.LLMMaxRetries < 0 {
		cfg.LLMMaxRetries = 0
	}

	return cfg, nil
}

// LLMActive reports whether language model strategies may be attempted.
func (c Config) LLMActive() bool {
	return c.LLMEnabled && strings.TrimSpace(c.LLMAPIKey) != ""
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvDuration reads a whole number of seconds. Zero is a valid value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	secs := getEnvInt(key, -1)
	if secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
