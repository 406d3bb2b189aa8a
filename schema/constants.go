package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the relational backend for rank storage.
	DatabaseBackend string

	// NotifierKind represents a notification collaborator.
	NotifierKind string

	// RunStatus represents the lifecycle state of a pipeline run.
	RunStatus string

	// LogFormat represents the log encoding.
	LogFormat string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All notifiers supported.
const (
	LogNotifier     NotifierKind = "log" // default
	NATSNotifier    NotifierKind = "nats"
	WebhookNotifier NotifierKind = "webhook"
)

// All run states.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// All log formats supported.
const (
	TextLog LogFormat = "text" // default
	JSONLog LogFormat = "json"
)

// Window is a lookback distance in days.
type Window int

// Lookback windows used by the delta computation.
const (
	Window24h Window = 1
	Window72h Window = 3
	Window7d  Window = 7
	Window30d Window = 30
)

// AllWindows lists every lookback window in ascending order.
var AllWindows = []Window{Window24h, Window72h, Window7d, Window30d}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidNotifiers lists all valid notifier kinds.
var ValidNotifiers = map[NotifierKind]struct{}{
	LogNotifier:     {},
	NATSNotifier:    {},
	WebhookNotifier: {},
}

// ValidLogFormats lists all valid log formats.
var ValidLogFormats = map[LogFormat]struct{}{
	TextLog: {},
	JSONLog: {},
}
