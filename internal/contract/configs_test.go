package contract

import (
	"strings"
	"testing"
	"time"

	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation; tests mutate one field at a time.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Endpoint:     DefaultEndpoint,
		PageLimit:    DefaultPageLimit,
		RequestRate:  DefaultRequestRate,
		MaxPages:     DefaultMaxPages,
		FetchTimeout: DefaultFetchTimeout,
		StoreTimeout: DefaultStoreTimeout,
		StoreBackend: string(schema.SQLiteBackend),
		Timezone:     "UTC",
		TopK:         DefaultTopK,
		Notify:       "log",
		Limit:        DefaultResultLimit,
		Output:       "text",
		Precision:    DefaultPrecision,
		Color:        "yes",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func TestProcessAndValidate(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid minimal config"},
		{name: "relative endpoint", mutate: func(in *ConfigRawInput) { in.Endpoint = "/v1/top" }, expectError: "invalid endpoint"},
		{name: "ftp endpoint", mutate: func(in *ConfigRawInput) { in.Endpoint = "ftp://example.com" }, expectError: "invalid endpoint"},
		{name: "page limit too high", mutate: func(in *ConfigRawInput) { in.PageLimit = 101 }, expectError: "page-limit"},
		{name: "page limit zero", mutate: func(in *ConfigRawInput) { in.PageLimit = 0 }, expectError: "page-limit"},
		{name: "zero request rate", mutate: func(in *ConfigRawInput) { in.RequestRate = 0 }, expectError: "request-rate"},
		{name: "zero max pages", mutate: func(in *ConfigRawInput) { in.MaxPages = 0 }, expectError: "max-pages"},
		{name: "bad fetch timeout", mutate: func(in *ConfigRawInput) { in.FetchTimeout = "soon" }, expectError: "fetch-timeout"},
		{name: "negative store timeout", mutate: func(in *ConfigRawInput) { in.StoreTimeout = "-1s" }, expectError: "store-timeout"},
		{name: "unknown backend", mutate: func(in *ConfigRawInput) { in.StoreBackend = "oracle" }, expectError: "invalid store backend"},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.StoreBackend = "mysql" }, expectError: "store-db-connect is required"},
		{name: "bad date", mutate: func(in *ConfigRawInput) { in.Date = "03/10/2025" }, expectError: "invalid date"},
		{name: "bad timezone", mutate: func(in *ConfigRawInput) { in.Timezone = "Mars/Olympus" }, expectError: "invalid timezone"},
		{name: "top-k zero", mutate: func(in *ConfigRawInput) { in.TopK = 0 }, expectError: "top-k"},
		{name: "unknown notifier", mutate: func(in *ConfigRawInput) { in.Notify = "log,pager" }, expectError: "invalid notifier"},
		{name: "nats without url", mutate: func(in *ConfigRawInput) { in.Notify = "nats" }, expectError: "nats-url is required"},
		{name: "webhook without url", mutate: func(in *ConfigRawInput) { in.Notify = "webhook" }, expectError: "webhook-url is required"},
		{name: "limit too high", mutate: func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 }, expectError: "limit must be"},
		{name: "precision 3", mutate: func(in *ConfigRawInput) { in.Precision = 3 }, expectError: "precision"},
		{name: "parquet output", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: "invalid output format"},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: "--color"},
		{name: "bad log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: "log-level"},
		{name: "bad log format", mutate: func(in *ConfigRawInput) { in.LogFormat = "xml" }, expectError: "log-format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input, now)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidate_ResolvedValues(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	input := validInput()
	input.Timezone = "Asia/Tokyo"
	input.Notify = " log , webhook,log"
	input.WebhookURL = "https://hooks.example.com/apprank"
	input.LogLevel = "debug"
	input.LogFormat = "JSON"
	input.Color = "no"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input, now))

	// 23:00 UTC is already the next day in Tokyo
	assert.Equal(t, "2025-03-11", schema.FormatDate(cfg.RunDate))
	assert.False(t, cfg.RunDateSet)
	assert.Equal(t, []schema.NotifierKind{schema.LogNotifier, schema.WebhookNotifier}, cfg.Notifiers)
	assert.Equal(t, DefaultNATSSubject, cfg.NATSSubject)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Minute, cfg.StoreTimeout)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, schema.JSONLog, cfg.LogFormat)
	assert.False(t, cfg.UseColors)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultSchedule, cfg.Schedule)

	input.Date = "2025-01-31"
	require.NoError(t, ProcessAndValidate(cfg, input, now))
	assert.Equal(t, "2025-01-31", schema.FormatDate(cfg.RunDate))
	assert.True(t, cfg.RunDateSet)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "root:pw@tcp(localhost:3306)/apprank", false},
		{schema.MySQLBackend, "root:pw@localhost/apprank", true},
		{schema.MySQLBackend, "", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=apprank", false},
		{schema.PostgreSQLBackend, "postgres://u:p@localhost:5432/apprank", false},
		{schema.PostgreSQLBackend, "dbname=apprank", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
		{schema.DatabaseBackend("oracle"), "x", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.connStr, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeDatabaseConnectionString(t *testing.T) {
	t.Run("mysql gets parseTime", func(t *testing.T) {
		got, err := NormalizeDatabaseConnectionString(schema.MySQLBackend, "root:pw@tcp(localhost:3306)/apprank")
		require.NoError(t, err)
		assert.Contains(t, got, "parseTime=true")
		assert.True(t, strings.HasPrefix(got, "root:pw@tcp(localhost:3306)/apprank"))
	})

	t.Run("neon url gets sslmode", func(t *testing.T) {
		got, err := NormalizeDatabaseConnectionString(schema.PostgreSQLBackend, "postgres://u:p@ep-1.neon.tech/db")
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@ep-1.neon.tech/db?sslmode=require", got)

		got, err = NormalizeDatabaseConnectionString(schema.PostgreSQLBackend, "postgres://u:p@ep-1.neon.tech/db?application_name=x")
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@ep-1.neon.tech/db?application_name=x&sslmode=require", got)
	})

	t.Run("neon keyword form gets sslmode", func(t *testing.T) {
		got, err := NormalizeDatabaseConnectionString(schema.PostgreSQLBackend, "host=ep-1.neon.tech dbname=db")
		require.NoError(t, err)
		assert.Equal(t, "host=ep-1.neon.tech dbname=db sslmode=require", got)
	})

	t.Run("explicit sslmode kept", func(t *testing.T) {
		in := "postgres://u:p@ep-1.neon.tech/db?sslmode=verify-full"
		got, err := NormalizeDatabaseConnectionString(schema.PostgreSQLBackend, in)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	})

	t.Run("sqlite untouched", func(t *testing.T) {
		got, err := NormalizeDatabaseConnectionString(schema.SQLiteBackend, "/tmp/x.db")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/x.db", got)
	})
}

func TestConfigCloneForDate(t *testing.T) {
	cfg := &Config{Notifiers: []schema.NotifierKind{schema.LogNotifier}, TopK: 5}
	clone := cfg.CloneForDate(time.Date(2025, 2, 1, 15, 0, 0, 0, time.UTC))

	clone.Notifiers[0] = schema.NATSNotifier
	assert.Equal(t, schema.LogNotifier, cfg.Notifiers[0])
	assert.Equal(t, "2025-02-01", schema.FormatDate(clone.RunDate))
	assert.True(t, clone.RunDateSet)
	assert.False(t, cfg.RunDateSet)
}
