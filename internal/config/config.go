package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration required by the API process.
// Values come from env; a local .env file is loaded first when present.
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Retell     RetellConfig
	NextCall   NextCallConfig
	Stripe     StripeConfig
	Scheduling SchedulingConfig
	Pipeline   PipelineConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
	// Timezone is the fallback calendar zone for daily usage rows.
	Timezone string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	MaxOpenConns int
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// RetellConfig configures the outbound telephony vendor client.
type RetellConfig struct {
	BaseURL string
	APIKey  string
	// RatePerSecond caps outbound call creation across the process.
	RatePerSecond float64
	Timeout       time.Duration
}

// NextCallConfig configures the campaign selector that places the next call.
type NextCallConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	// Attempts and Backoff bound the retry loop of the continuation queue.
	Attempts int
	Backoff  time.Duration
	Workers  int
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type SchedulingConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig tunes webhook processing.
type PipelineConfig struct {
	// GracePeriod is how long the reconciler waits for the scheduler to ingest a booking.
	GracePeriod time.Duration
	// RecentWindow bounds the recency fallback when matching bookings.
	RecentWindow time.Duration
	// ProcessTimeout bounds a single webhook run once detached from the request.
	ProcessTimeout time.Duration
	// LockTTL is the lifetime of a per-user critical section lock in Redis.
	LockTTL time.Duration
	// DedupeTTL is how long a processed call id is remembered.
	DedupeTTL time.Duration
	// RefillFloor is the balance under which auto-refill is attempted.
	RefillFloor decimal.Decimal
}

func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))
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
	c.DB.MaxOpenConns = optionalInt("DB_MAX_OPEN_CONNS")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = optionalDuration("JWT_REFRESH_TTL")

	c.Retell.BaseURL = strings.TrimSpace(os.Getenv("RETELL_BASE_URL"))
	c.Retell.APIKey = os.Getenv("RETELL_API_KEY")
	c.Retell.RatePerSecond = optionalFloat("RETELL_RATE_PER_SECOND")
	c.Retell.Timeout = optionalDuration("RETELL_TIMEOUT")

	c.NextCall.URL = strings.TrimSpace(os.Getenv("NEXT_CALL_URL"))
	c.NextCall.Secret = os.Getenv("NEXT_CALL_SECRET")
	c.NextCall.Timeout = optionalDuration("NEXT_CALL_TIMEOUT")
	c.NextCall.Attempts = optionalInt("NEXT_CALL_ATTEMPTS")
	c.NextCall.Backoff = optionalDuration("NEXT_CALL_BACKOFF")
	c.NextCall.Workers = optionalInt("NEXT_CALL_WORKERS")

	c.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	c.Stripe.Currency = strings.ToLower(strings.TrimSpace(os.Getenv("STRIPE_CURRENCY")))

	c.Scheduling.BaseURL = strings.TrimSpace(os.Getenv("SCHEDULING_BASE_URL"))
	c.Scheduling.Timeout = optionalDuration("SCHEDULING_TIMEOUT")

	c.Pipeline.GracePeriod = optionalDuration("BOOKING_GRACE_PERIOD")
	c.Pipeline.RecentWindow = optionalDuration("BOOKING_RECENT_WINDOW")
	c.Pipeline.ProcessTimeout = optionalDuration("WEBHOOK_PROCESS_TIMEOUT")
	c.Pipeline.LockTTL = optionalDuration("USER_LOCK_TTL")
	c.Pipeline.DedupeTTL = optionalDuration("WEBHOOK_DEDUPE_TTL")
	if v := strings.TrimSpace(os.Getenv("AUTO_REFILL_FLOOR")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("AUTO_REFILL_FLOOR must be a decimal, got %q", v))
		}
		c.Pipeline.RefillFloor = d
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
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
	if c.App.Timezone == "" {
		c.App.Timezone = "America/New_York"
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE is not a known zone: %q", c.App.Timezone))
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
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
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

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Retell.BaseURL == "" {
		c.Retell.BaseURL = "https://api.retellai.com"
	}
	if c.Retell.APIKey == "" {
		errs = append(errs, errors.New("RETELL_API_KEY is required"))
	}
	if c.Retell.RatePerSecond <= 0 {
		c.Retell.RatePerSecond = 5
	}
	if c.Retell.Timeout <= 0 {
		c.Retell.Timeout = 10 * time.Second
	}

	if c.NextCall.URL == "" {
		errs = append(errs, errors.New("NEXT_CALL_URL is required"))
	} else if u, err := url.Parse(c.NextCall.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("NEXT_CALL_URL must be an absolute url, got %q", c.NextCall.URL))
	}
	if c.NextCall.Timeout <= 0 {
		c.NextCall.Timeout = 10 * time.Second
	}
	if c.NextCall.Attempts <= 0 {
		c.NextCall.Attempts = 2
	}
	if c.NextCall.Backoff <= 0 {
		c.NextCall.Backoff = 2 * time.Second
	}
	if c.NextCall.Workers <= 0 {
		c.NextCall.Workers = 4
	}

	if c.Stripe.SecretKey == "" && c.IsProduction() {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required in production"))
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}

	if c.Scheduling.BaseURL == "" {
		c.Scheduling.BaseURL = "https://api.cal.com/v2"
	}
	if c.Scheduling.Timeout <= 0 {
		c.Scheduling.Timeout = 10 * time.Second
	}

	if c.Pipeline.GracePeriod < 0 {
		errs = append(errs, errors.New("BOOKING_GRACE_PERIOD must not be negative"))
	}
	if c.Pipeline.GracePeriod == 0 {
		c.Pipeline.GracePeriod = 5 * time.Second
	}
	if c.Pipeline.RecentWindow <= 0 {
		c.Pipeline.RecentWindow = 10 * time.Minute
	}
	if c.Pipeline.ProcessTimeout <= 0 {
		c.Pipeline.ProcessTimeout = 60 * time.Second
	}
	if c.Pipeline.LockTTL <= 0 {
		c.Pipeline.LockTTL = 30 * time.Second
	}
	if c.Pipeline.DedupeTTL <= 0 {
		c.Pipeline.DedupeTTL = 48 * time.Hour
	}
	if c.Pipeline.RefillFloor.IsZero() {
		c.Pipeline.RefillFloor = decimal.NewFromInt(1)
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
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

// Location returns the fallback zone used for calendar-day bookkeeping.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optionalFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
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
