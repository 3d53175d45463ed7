package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	// RunTimeout bounds a whole run; zero means no bound beyond the stage timeouts.
	RunTimeout  time.Duration
	SendTimeout time.Duration
	StoreDSN    string
	Adzuna      AdzunaEnvConfig
	RSS         RSSEnvConfig
	Twilio      TwilioEnvConfig
	SMTP        SMTPEnvConfig
	Telegram    TelegramEnvConfig
	OTel        OTelEnvConfig
}

type AdzunaEnvConfig struct {
	AppID       string `env:"ADZUNA_APP_ID" validate:"required"`
	AppKey      string `env:"ADZUNA_APP_KEY" validate:"required"`
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string
}

type RSSEnvConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
}

type TwilioEnvConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID" validate:"required"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN" validate:"required"`
	From       string `env:"WHATSAPP_FROM" validate:"required"`
	To         string `env:"WHATSAPP_TO" validate:"required"`
}

type SMTPEnvConfig struct {
	Host               string `env:"SMTP_HOST" validate:"required"`
	Port               int    `env:"SMTP_PORT" validate:"gt=0"`
	User               string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
	From               string `env:"EMAIL_FROM" validate:"required,email"`
	To                 string `env:"EMAIL_TO" validate:"required,email"`
}

type TelegramEnvConfig struct {
	Token  string `env:"TELEGRAM_BOT_TOKEN" validate:"required"`
	ChatID int64  `env:"TELEGRAM_CHAT_ID" validate:"required"`
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	return EnvConfig{
		ConfigPath:  envString("JOBALERT_CONFIG", "jobalert.yaml"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		LogFormat:   envString("LOG_FORMAT", "text"),
		RunTimeout:  envDuration("RUN_TIMEOUT", 0),
		SendTimeout: envDuration("SEND_TIMEOUT", 15*time.Second),
		StoreDSN:    envString("STORE_DSN", ""),
		Adzuna: AdzunaEnvConfig{
			AppID:       envString("ADZUNA_APP_ID", ""),
			AppKey:      envString("ADZUNA_APP_KEY", ""),
			BaseURL:     envString("ADZUNA_BASE_URL", ""),
			HTTPTimeout: envDuration("ADZUNA_HTTP_TIMEOUT", 20*time.Second),
			UserAgent:   envString("ADZUNA_USER_AGENT", "jobalert/0.1"),
		},
		RSS: RSSEnvConfig{
			HTTPTimeout: envDuration("RSS_HTTP_TIMEOUT", 20*time.Second),
			UserAgent:   envString("RSS_USER_AGENT", "jobalert/0.1"),
		},
		Twilio: TwilioEnvConfig{
			AccountSID: envString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  envString("TWILIO_AUTH_TOKEN", ""),
			From:       envString("WHATSAPP_FROM", ""),
			To:         envString("WHATSAPP_TO", ""),
		},
		SMTP: SMTPEnvConfig{
			Host:               envString("SMTP_HOST", ""),
			Port:               envInt("SMTP_PORT", 587),
			User:               envString("SMTP_USER", ""),
			Password:           envString("SMTP_PASSWORD", ""),
			TLSMode:            envString("SMTP_TLS_MODE", ""),
			InsecureSkipVerify: envBool("SMTP_INSECURE_SKIP_VERIFY", false),
			From:               envString("EMAIL_FROM", ""),
			To:                 envString("EMAIL_TO", ""),
		},
		Telegram: TelegramEnvConfig{
			Token:  envString("TELEGRAM_BOT_TOKEN", ""),
			ChatID: envInt64("TELEGRAM_CHAT_ID", 0),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "jobalert")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:")
}
