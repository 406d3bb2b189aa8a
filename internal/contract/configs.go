package contract

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups must not depend on the host zoneinfo

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

// Default values for configuration.
const (
	DefaultEndpoint     = "https://client.farcaster.xyz/v1/top-mini-apps"
	DefaultPageLimit    = 100
	MaxPageLimit        = 100
	DefaultRequestRate  = 2.0
	DefaultMaxPages     = 50
	DefaultFetchTimeout = "60s"
	DefaultStoreTimeout = "2m"
	DefaultTopK         = 5
	MaxTopK             = 100
	DefaultResultLimit  = 25
	MaxResultLimit      = 1000
	DefaultPrecision    = 1
	DefaultNATSSubject  = "apprank.summary"
	DefaultListen       = ":8080"
	DefaultSchedule     = "0 6 * * *"
	DefaultTimezone     = "UTC"
)

// Config holds the validated runtime configuration handed to the pipeline and commands.
type Config struct {
	Endpoint     string
	PageLimit    int
	APIToken     string // Please use env var or .env as this is plaintext
	RequestRate  float64
	MaxPages     int
	FetchTimeout time.Duration
	StoreTimeout time.Duration

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	RunDate    time.Time
	RunDateSet bool // true when --date was given; schedulers recompute otherwise
	Location   *time.Location
	TopK       int

	Notifiers   []schema.NotifierKind
	NATSURL     string
	NATSSubject string
	WebhookURL  string

	PushgatewayURL string
	BackupDir      string

	ResultLimit int
	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	LogLevel  logrus.Level
	LogFormat schema.LogFormat

	Listen   string
	Schedule string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Upstream ---
	Endpoint     string  `mapstructure:"endpoint"`
	PageLimit    int     `mapstructure:"page-limit"`
	APIToken     string  `mapstructure:"api-token"`
	RequestRate  float64 `mapstructure:"request-rate"`
	MaxPages     int     `mapstructure:"max-pages"`
	FetchTimeout string  `mapstructure:"fetch-timeout"`
	StoreTimeout string  `mapstructure:"store-timeout"`

	// --- Store ---
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`

	// --- Run ---
	Date     string `mapstructure:"date"`
	Timezone string `mapstructure:"timezone"`
	TopK     int    `mapstructure:"top-k"`

	// --- Notification and metrics ---
	Notify         string `mapstructure:"notify"`
	NATSURL        string `mapstructure:"nats-url"`
	NATSSubject    string `mapstructure:"nats-subject"`
	WebhookURL     string `mapstructure:"webhook-url"`
	PushgatewayURL string `mapstructure:"pushgateway-url"`
	BackupDir      string `mapstructure:"backup-dir"`

	// --- Output ---
	Limit      int    `mapstructure:"limit"`
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`

	// --- Logging ---
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`

	// --- Long-running modes ---
	Listen   string `mapstructure:"listen"`
	Schedule string `mapstructure:"schedule"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Notifiers != nil {
		clone.Notifiers = make([]schema.NotifierKind, len(c.Notifiers))
		copy(clone.Notifiers, c.Notifiers)
	}
	return &clone
}

// CloneForDate returns a copy of the Config pinned to another run date.
func (c *Config) CloneForDate(date time.Time) *Config {
	clone := c.Clone()
	clone.RunDate = schema.NormalizeDate(date)
	clone.RunDateSet = true
	return clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. now anchors the default run date.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if err := processUpstream(cfg, input); err != nil {
		return err
	}
	if err := processStore(cfg, input); err != nil {
		return err
	}
	if err := processRun(cfg, input, now); err != nil {
		return err
	}
	if err := processNotify(cfg, input); err != nil {
		return err
	}
	if err := processOutput(cfg, input); err != nil {
		return err
	}
	return processLogging(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if isPostgresURL(connStr) {
			return nil
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter or be a postgres:// URL")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", backend)
	}
	return nil
}

// NormalizeDatabaseConnectionString rewrites a validated connection string into the
// form the store expects: MySQL always parses DATE columns into time.Time, and hosted
// Neon PostgreSQL always uses TLS.
func NormalizeDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) (string, error) {
	switch backend {
	case schema.MySQLBackend:
		mc, err := mysql.ParseDSN(connStr)
		if err != nil {
			return "", fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case schema.PostgreSQLBackend:
		if !strings.Contains(connStr, "neon.tech") || strings.Contains(connStr, "sslmode=") {
			return connStr, nil
		}
		if isPostgresURL(connStr) {
			sep := "?"
			if strings.Contains(connStr, "?") {
				sep = "&"
			}
			return connStr + sep + "sslmode=require", nil
		}
		return connStr + " sslmode=require", nil
	default:
		return connStr, nil
	}
}

func isPostgresURL(connStr string) bool {
	return strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://")
}

// processUpstream validates the fetcher settings.
func processUpstream(cfg *Config, input *ConfigRawInput) error {
	u, err := url.Parse(strings.TrimSpace(input.Endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", input.Endpoint)
	}
	cfg.Endpoint = u.String()
	cfg.APIToken = strings.TrimSpace(input.APIToken)

	if input.PageLimit <= 0 || input.PageLimit > MaxPageLimit {
		return fmt.Errorf("page-limit must be greater than 0 and cannot exceed %d (received %d)", MaxPageLimit, input.PageLimit)
	}
	cfg.PageLimit = input.PageLimit

	if input.RequestRate <= 0 {
		return fmt.Errorf("request-rate must be greater than 0 (received %g)", input.RequestRate)
	}
	cfg.RequestRate = input.RequestRate

	if input.MaxPages <= 0 {
		return fmt.Errorf("max-pages must be greater than 0 (received %d)", input.MaxPages)
	}
	cfg.MaxPages = input.MaxPages

	if cfg.FetchTimeout, err = parsePositiveDuration("fetch-timeout", input.FetchTimeout); err != nil {
		return err
	}
	if cfg.StoreTimeout, err = parsePositiveDuration("store-timeout", input.StoreTimeout); err != nil {
		return err
	}
	return nil
}

// processStore validates the backend and normalises its connection string.
func processStore(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(input.StoreBackend)))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, input.StoreDBConnect); err != nil {
		return err
	}
	connStr, err := NormalizeDatabaseConnectionString(cfg.StoreBackend, input.StoreDBConnect)
	if err != nil {
		return err
	}
	cfg.StoreDBConnect = connStr
	return nil
}

// processRun resolves the run date in the configured timezone.
func processRun(cfg *Config, input *ConfigRawInput, now time.Time) error {
	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", input.Timezone, err)
	}
	cfg.Location = loc

	if input.Date != "" {
		d, err := schema.ParseDate(input.Date)
		if err != nil {
			return err
		}
		cfg.RunDate = d
		cfg.RunDateSet = true
	} else {
		cfg.RunDate = schema.Today(now, loc)
		cfg.RunDateSet = false
	}

	if input.TopK <= 0 || input.TopK > MaxTopK {
		return fmt.Errorf("top-k must be greater than 0 and cannot exceed %d (received %d)", MaxTopK, input.TopK)
	}
	cfg.TopK = input.TopK

	cfg.Listen = strings.TrimSpace(input.Listen)
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	cfg.Schedule = strings.TrimSpace(input.Schedule)
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	return nil
}

// processNotify parses the notifier list and checks each has its endpoint.
func processNotify(cfg *Config, input *ConfigRawInput) error {
	cfg.Notifiers = nil
	seen := make(map[schema.NotifierKind]bool)
	for part := range strings.SplitSeq(input.Notify, ",") {
		kind := schema.NotifierKind(strings.ToLower(strings.TrimSpace(part)))
		if kind == "" || seen[kind] {
			continue
		}
		if _, ok := schema.ValidNotifiers[kind]; !ok {
			return fmt.Errorf("invalid notifier '%s'. must be log, nats, webhook", kind)
		}
		seen[kind] = true
		cfg.Notifiers = append(cfg.Notifiers, kind)
	}

	cfg.NATSURL = strings.TrimSpace(input.NATSURL)
	cfg.NATSSubject = strings.TrimSpace(input.NATSSubject)
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = DefaultNATSSubject
	}
	if seen[schema.NATSNotifier] && cfg.NATSURL == "" {
		return fmt.Errorf("nats-url is required when the nats notifier is enabled")
	}

	cfg.WebhookURL = strings.TrimSpace(input.WebhookURL)
	if seen[schema.WebhookNotifier] {
		if cfg.WebhookURL == "" {
			return fmt.Errorf("webhook-url is required when the webhook notifier is enabled")
		}
		if u, err := url.Parse(cfg.WebhookURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid webhook-url %q", cfg.WebhookURL)
		}
	}

	cfg.PushgatewayURL = strings.TrimSpace(input.PushgatewayURL)
	cfg.BackupDir = strings.TrimSpace(input.BackupDir)
	return nil
}

// processOutput validates rendering options.
func processOutput(cfg *Config, input *ConfigRawInput) error {
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors
	return nil
}

// processLogging validates the logger settings.
func processLogging(cfg *Config, input *ConfigRawInput) error {
	level, err := logrus.ParseLevel(input.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	cfg.LogLevel = level

	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log-format '%s'. must be text, json", input.LogFormat)
	}
	return nil
}

func parsePositiveDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive (received %s)", name, raw)
	}
	return d, nil
}
