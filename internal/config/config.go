package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCallWebhookURL    = "https://nitro1908.app.n8n.cloud/webhook/ultravox/new-call"
	DefaultBookingWebhookURL = "https://nitro1908.app.n8n.cloud/webhook/399dadb1-50c0-4ad1-9207-a4377598aa0b"
)

// Config holds all configuration required by the API process.
// All values come from env; no business logic reads raw environment variables.
type Config struct {
	App      AppConfig
	Ultravox UltravoxConfig
	Booking  BookingConfig
	DB       DBConfig
	Redis    RedisConfig
	Ticket   TicketConfig
	OpenAI   OpenAIConfig
	Catalog  CatalogConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type UltravoxConfig struct {
	// APIKey and AgentID are only presence-checked by the credentials
	// middleware. APIKey is handed to the browser with the call payload.
	APIKey  string
	AgentID string

	WebhookURL      string
	DegradeToMock   bool
	JoinTimeout     time.Duration
	UpstreamTimeout time.Duration
}

type BookingConfig struct {
	WebhookURL string
}

type DBConfig struct {
	// Driver is "pgx" or "sqlite".
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	SQLitePath string
}

type RedisConfig struct {
	Host string
	Port int
}

type TicketConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type OpenAIConfig struct {
	APIKey    string
	ChatModel string
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
}

type CatalogConfig struct {
	Path  string
	Watch bool
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Ultravox.APIKey = strings.TrimSpace(os.Getenv("ULTRAVOX_API_KEY"))
	c.Ultravox.AgentID = strings.TrimSpace(os.Getenv("ULTRAVOX_AGENT_ID"))
	c.Ultravox.WebhookURL = strings.TrimSpace(os.Getenv("ULTRAVOX_WEBHOOK_URL"))
	{
		b, err := optionalBool("ULTRAVOX_DEGRADE_TO_MOCK", true)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Ultravox.DegradeToMock = b
	}
	{
		d, err := optionalDuration("ULTRAVOX_JOIN_TIMEOUT", 15*time.Second)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Ultravox.JoinTimeout = d
	}
	{
		d, err := optionalDuration("UPSTREAM_TIMEOUT", 10*time.Second)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Ultravox.UpstreamTimeout = d
	}

	c.Booking.WebhookURL = strings.TrimSpace(os.Getenv("BOOKING_WEBHOOK_URL"))

	c.DB.Driver = strings.TrimSpace(os.Getenv("DB_DRIVER"))
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if strings.TrimSpace(os.Getenv("DB_PORT")) != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if strings.TrimSpace(os.Getenv("REDIS_PORT")) != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Ticket.Secret = os.Getenv("CALL_TICKET_SECRET")
	c.Ticket.Issuer = strings.TrimSpace(os.Getenv("CALL_TICKET_ISSUER"))
	// Defaults applied in ApplyDefaults.
	c.Ticket.TTL = mustDuration("CALL_TICKET_TTL")

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.ChatModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL_CHAT"))
	c.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))

	c.Catalog.Path = strings.TrimSpace(os.Getenv("CATALOG_PATH"))
	{
		b, err := optionalBool("CATALOG_WATCH", false)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Catalog.Watch = b
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills optional settings. Production keeps explicit values
// where a default would hide a deployment mistake.
func (c *Config) ApplyDefaults() {
	if c.Ultravox.WebhookURL == "" {
		c.Ultravox.WebhookURL = DefaultCallWebhookURL
	}
	if c.Booking.WebhookURL == "" {
		c.Booking.WebhookURL = DefaultBookingWebhookURL
	}
	if c.DB.Driver == "" && !c.IsProduction() {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "pgx" {
		if c.DB.Port == 0 {
			c.DB.Port = 5432
		}
		if c.DB.SSLMode == "" && !c.IsProduction() {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SQLitePath == "" {
		c.DB.SQLitePath = "healthmate.db"
	}
	if c.Redis.Host != "" && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Ticket.Issuer == "" {
		c.Ticket.Issuer = "healthmate"
	}
	if c.Ticket.TTL <= 0 {
		c.Ticket.TTL = 2 * time.Minute
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Ultravox.JoinTimeout < 0 {
		errs = append(errs, errors.New("ULTRAVOX_JOIN_TIMEOUT must not be negative"))
	}
	if c.Ultravox.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}

	switch c.DB.Driver {
	case "pgx":
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
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	case "sqlite":
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_DRIVER=sqlite is not allowed in production"))
		}
	case "":
		errs = append(errs, errors.New("DB_DRIVER is required in production"))
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of pgx, sqlite, got %q", c.DB.Driver))
	}

	if c.Redis.Host == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("REDIS_HOST is required in production"))
		}
	} else if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Ticket.Secret == "" {
		errs = append(errs, errors.New("CALL_TICKET_SECRET is required"))
	} else if c.IsProduction() && len(c.Ticket.Secret) < 32 {
		errs = append(errs, errors.New("CALL_TICKET_SECRET must be at least 32 bytes in production"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DSN returns the data source name for the configured driver.
// Avoid logging it; the Postgres form contains secrets.
func (c Config) DSN() string {
	if c.DB.Driver == "sqlite" {
		return "file:" + c.DB.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
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

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c Config) LLMEnabled() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != ""
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

func mustDuration(key string) time.Duration {
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

// optionalDuration returns def when key is unset. "0" is a valid value.
func optionalDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
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
