package definition

import (
	"reflect"
	"time"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	stringType   = reflect.TypeOf("")
	intType      = reflect.TypeOf(0)
	boolType     = reflect.TypeOf(true)
)

// CreateRegistry creates and populates the configuration registry.
// Defaults declared here are the only place default values live.
func CreateRegistry() *Registry {
	registry := NewRegistry()
	registerDatabaseFields(registry)
	registerProbeFields(registry)
	registerRuntimeFields(registry)
	return registry
}

func registerDatabaseFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "database.conn_string",
		Default: "",
		CLIFlag: "db-conn-string",
		EnvVar:  "TZPROBE_DB_CONN_STRING",
		Type:    stringType,
		Help:    "PostgreSQL connection string; overrides the individual connection fields",
	})
	registry.Register(&FieldDef{
		Path:    "database.host",
		Default: "127.0.0.1",
		CLIFlag: "db-host",
		EnvVar:  "TZPROBE_DB_HOST",
		Type:    stringType,
		Help:    "Database host",
	})
	registry.Register(&FieldDef{
		Path:    "database.port",
		Default: 5434,
		CLIFlag: "db-port",
		EnvVar:  "TZPROBE_DB_PORT",
		Type:    intType,
		Help:    "Database port",
	})
	registry.Register(&FieldDef{
		Path:    "database.name",
		Default: "test",
		CLIFlag: "db-name",
		EnvVar:  "TZPROBE_DB_NAME",
		Type:    stringType,
		Help:    "Database name",
	})
	registry.Register(&FieldDef{
		Path:    "database.user",
		Default: "postgres",
		CLIFlag: "db-user",
		EnvVar:  "TZPROBE_DB_USER",
		Type:    stringType,
		Help:    "Database user",
	})
	registry.Register(&FieldDef{
		Path:    "database.password",
		Default: "postgres",
		CLIFlag: "db-password",
		EnvVar:  "TZPROBE_DB_PASSWORD",
		Type:    stringType,
		Help:    "Database password",
	})
	registry.Register(&FieldDef{
		Path:    "database.ssl_mode",
		Default: "disable",
		CLIFlag: "db-ssl-mode",
		EnvVar:  "TZPROBE_DB_SSL_MODE",
		Type:    stringType,
		Help:    "PostgreSQL sslmode (disable, allow, prefer, require, verify-ca, verify-full)",
	})
	registry.Register(&FieldDef{
		Path:    "database.connect_timeout",
		Default: 5 * time.Second,
		CLIFlag: "db-connect-timeout",
		EnvVar:  "TZPROBE_DB_CONNECT_TIMEOUT",
		Type:    durationType,
		Help:    "Timeout for establishing a database connection",
	})
}

func registerProbeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "probe.schema",
		Default: "public",
		CLIFlag: "schema",
		EnvVar:  "TZPROBE_SCHEMA",
		Type:    stringType,
		Help:    "Schema holding the demo table",
	})
	registry.Register(&FieldDef{
		Path:    "probe.table",
		Default: "test_data",
		CLIFlag: "table",
		EnvVar:  "TZPROBE_TABLE",
		Type:    stringType,
		Help:    "Name of the demo table",
	})
	registry.Register(&FieldDef{
		Path:    "probe.drop_table_after_finish",
		Default: true,
		CLIFlag: "",
		EnvVar:  "TZPROBE_DROP_TABLE_AFTER_FINISH",
		Type:    boolType,
		Help:    "Drop the demo table once the report has been read",
	})
	registry.Register(&FieldDef{
		Path:    "probe.process_zone",
		Default: "UTC",
		CLIFlag: "process-zone",
		EnvVar:  "TZPROBE_PROCESS_ZONE",
		Type:    stringType,
		Help:    "IANA zone used as the session time zone and for legacy conversions",
	})
	registry.Register(&FieldDef{
		Path:    "probe.app_zone",
		Default: "Europe/Vienna",
		CLIFlag: "app-zone",
		EnvVar:  "TZPROBE_APP_ZONE",
		Type:    stringType,
		Help:    "IANA zone in which the reference wall clock is interpreted",
	})
	registry.Register(&FieldDef{
		Path:    "probe.reference",
		Default: "2013-09-13T09:00:00",
		CLIFlag: "reference",
		EnvVar:  "TZPROBE_REFERENCE",
		Type:    stringType,
		Help:    "Reference wall clock (YYYY-MM-DDTHH:MM:SS[.fraction])",
	})
}

func registerRuntimeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "runtime.log_level",
		Default: "info",
		CLIFlag: "log-level",
		EnvVar:  "TZPROBE_LOG_LEVEL",
		Type:    stringType,
		Help:    "Log level (debug, info, warn, error)",
	})
	registry.Register(&FieldDef{
		Path:    "runtime.log_json",
		Default: false,
		CLIFlag: "log-json",
		EnvVar:  "TZPROBE_LOG_JSON",
		Type:    boolType,
		Help:    "Emit logs as JSON",
	})
}
