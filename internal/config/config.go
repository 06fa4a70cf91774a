package config

import (
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fdiadmin/internal/backend"
)

const (
	SessionStoreCookie   = "cookie"
	SessionStorePostgres = "postgres"

	minKeyLength = 32
)

type Config struct {
	Port       string
	Env        string
	LogFile    string
	APIBaseURL string
	APITimeout time.Duration

	SessionStore  string
	SessionKey    []byte
	SessionTTL    time.Duration
	SecureCookies bool
	DBConnString  string

	CSRFKey            []byte
	CSRFSecure         bool
	CSRFSameSite       string
	CSRFCookieName     string
	CSRFTrustedOrigins []string

	HealthCheckInterval time.Duration
	MetricsEnabled      bool
}

func (c Config) Development() bool {
	return c.Env == "development"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_FILE_PATH", "fdiadmin.log")
	v.SetDefault("API_BASE_URL", backend.DefaultBaseURL)
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("SESSION_STORE", SessionStoreCookie)
	v.SetDefault("SESSION_TTL_HOURS", 168)
	v.SetDefault("CSRF_SAMESITE", "lax")
	v.SetDefault("CSRF_COOKIE_NAME", "_csrf")
	v.SetDefault("HEALTH_CHECK_INTERVAL", "30s")
	v.SetDefault("METRICS_ENABLED", true)
	return v
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file:", err)
	}
	return FromViper(newViper())
}

func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		Port:                v.GetString("PORT"),
		Env:                 v.GetString("ENV"),
		LogFile:             v.GetString("LOG_FILE_PATH"),
		APIBaseURL:          strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:          v.GetDuration("API_TIMEOUT"),
		SessionStore:        strings.ToLower(v.GetString("SESSION_STORE")),
		SessionTTL:          time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		DBConnString:        v.GetString("DB_CONNECTION_STRING"),
		CSRFSameSite:        strings.ToLower(v.GetString("CSRF_SAMESITE")),
		CSRFCookieName:      v.GetString("CSRF_COOKIE_NAME"),
		CSRFTrustedOrigins:  splitList(v.GetString("CSRF_TRUSTED_ORIGINS")),
		HealthCheckInterval: v.GetDuration("HEALTH_CHECK_INTERVAL"),
		MetricsEnabled:      v.GetBool("METRICS_ENABLED"),
	}

	// Secure cookies stay on unless explicitly disabled or running in development.
	c.SecureCookies = !c.Development()
	if v.IsSet("SESSION_SECURE_COOKIE") {
		c.SecureCookies = v.GetBool("SESSION_SECURE_COOKIE")
	}
	c.CSRFSecure = true
	if v.IsSet("CSRF_SECURE") {
		c.CSRFSecure = v.GetBool("CSRF_SECURE")
	}

	switch c.SessionStore {
	case SessionStoreCookie:
	case SessionStorePostgres:
		if c.DBConnString == "" {
			return c, fmt.Errorf("SESSION_STORE=postgres requires DB_CONNECTION_STRING")
		}
	default:
		return c, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.SessionTTL <= 0 {
		return c, fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.HealthCheckInterval < time.Second {
		return c, fmt.Errorf("HEALTH_CHECK_INTERVAL must be at least 1s; got %s", c.HealthCheckInterval)
	}

	var err error
	if c.SessionKey, err = keyOrEphemeral(v, "SESSION_KEY"); err != nil {
		return c, err
	}
	if c.CSRFKey, err = keyOrEphemeral(v, "CSRF_AUTH_KEY"); err != nil {
		return c, err
	}
	return c, nil
}

func keyOrEphemeral(v *viper.Viper, name string) ([]byte, error) {
	if raw := v.GetString(name); raw != "" {
		if len(raw) < minKeyLength {
			return nil, fmt.Errorf("%s must be at least %d bytes; got %d", name, minKeyLength, len(raw))
		}
		return []byte(raw), nil
	}

	key := make([]byte, minKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", name, err)
	}
	log.Printf("WARNING: %s not set; using ephemeral key (sessions reset on restart).", name)
	return key, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
