package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a local .env file loaded at startup).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Twilio TwilioConfig
	Jobs   JobsConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit. Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// TwilioConfig carries the video API credentials.
// SID + API key pair sign video access tokens and authenticate room lookups.
type TwilioConfig struct {
	AccountSID string
	APIKey     string
	APISecret  string

	// TokenTTL bounds issued video access tokens. Default 1h.
	TokenTTL time.Duration

	// RequestTimeout bounds every room-status lookup. Default 10s.
	RequestTimeout time.Duration
}

// JobsConfig carries background-job periods and policy windows.
// Duration envs are optional; defaults mirror production behavior.
type JobsConfig struct {
	// PresenceFreshness is the window after which a stored 'online' row
	// no longer counts as online. Default 120s.
	PresenceFreshness time.Duration

	// PresenceSweepInterval drives the stale-presence sweeper. Default 2m.
	PresenceSweepInterval time.Duration

	// ReconcileInterval drives the provider reconciler. Default 3m.
	ReconcileInterval time.Duration

	// RetentionInterval drives the terminal-call retention sweep. Default 5m.
	RetentionInterval time.Duration

	// RetentionMaxAge is how long terminal calls are kept. Default 1h.
	RetentionMaxAge time.Duration
}

func Load() (Config, error) {
	// Local convenience; absent .env is not an error.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.APIKey = strings.TrimSpace(os.Getenv("TWILIO_API_KEY"))
	c.Twilio.APISecret = os.Getenv("TWILIO_API_SECRET")
	c.Twilio.TokenTTL = optionalDuration("TWILIO_TOKEN_TTL")
	c.Twilio.RequestTimeout = optionalDuration("TWILIO_REQUEST_TIMEOUT")

	c.Jobs.PresenceFreshness = optionalDuration("PRESENCE_FRESHNESS_WINDOW")
	c.Jobs.PresenceSweepInterval = optionalDuration("PRESENCE_SWEEP_INTERVAL")
	c.Jobs.ReconcileInterval = optionalDuration("RECONCILE_INTERVAL")
	c.Jobs.RetentionInterval = optionalDuration("CALL_RETENTION_INTERVAL")
	c.Jobs.RetentionMaxAge = optionalDuration("CALL_RETENTION_MAX_AGE")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	// Twilio credentials are required outside local: without them answer()
	// cannot allocate rooms and the reconciler has no ground truth.
	if !c.IsLocal() {
		if c.Twilio.AccountSID == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required"))
		}
		if c.Twilio.APIKey == "" {
			errs = append(errs, errors.New("TWILIO_API_KEY is required"))
		}
		if c.Twilio.APISecret == "" {
			errs = append(errs, errors.New("TWILIO_API_SECRET is required"))
		}
	}
	if c.Twilio.TokenTTL <= 0 {
		c.Twilio.TokenTTL = time.Hour
	}
	if c.Twilio.RequestTimeout <= 0 {
		c.Twilio.RequestTimeout = 10 * time.Second
	}

	if c.Jobs.PresenceFreshness <= 0 {
		c.Jobs.PresenceFreshness = 120 * time.Second
	}
	if c.Jobs.PresenceSweepInterval <= 0 {
		c.Jobs.PresenceSweepInterval = 2 * time.Minute
	}
	if c.Jobs.ReconcileInterval <= 0 {
		c.Jobs.ReconcileInterval = 3 * time.Minute
	}
	if c.Jobs.RetentionInterval <= 0 {
		c.Jobs.RetentionInterval = 5 * time.Minute
	}
	if c.Jobs.RetentionMaxAge <= 0 {
		c.Jobs.RetentionMaxAge = time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) IsLocal() bool {
	return c.App.Env == "local"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
