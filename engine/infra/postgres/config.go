package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultConnectTimeout = 5 * time.Second

// Config holds PostgreSQL connection settings for the driver.
// Prefer providing a DSN via ConnString. When empty, a DSN will be
// synthesized from the individual fields.
type Config struct {
	ConnString     string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ConnectTimeout time.Duration
	// TimeZone becomes the session TimeZone runtime parameter when set.
	TimeZone string
}

// DSN returns ConnString or a keyword/value connection string built from the
// individual fields.
func (c *Config) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}
	parts := []string{
		"host=" + quoteDSNValue(valueOr(c.Host, "localhost")),
		"port=" + strconv.Itoa(portOr(c.Port, 5432)),
		"user=" + quoteDSNValue(valueOr(c.User, "postgres")),
		"dbname=" + quoteDSNValue(valueOr(c.DBName, "postgres")),
		"sslmode=" + quoteDSNValue(valueOr(c.SSLMode, "disable")),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(c.Password))
	}
	return strings.Join(parts, " ")
}

func (c *Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return defaultConnectTimeout
}

// String describes the target without credentials.
func (c *Config) String() string {
	if c.ConnString != "" {
		return SanitizeDSN(c.ConnString)
	}
	return fmt.Sprintf("%s:%d/%s", valueOr(c.Host, "localhost"), portOr(c.Port, 5432), valueOr(c.DBName, "postgres"))
}

// quoteDSNValue quotes v per libpq keyword/value rules when needed.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func valueOr(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func portOr(val, def int) int {
	if val <= 0 {
		return def
	}
	return val
}
