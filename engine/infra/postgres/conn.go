package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/tzprobe/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the minimal database interface the probe depends on.
// Both *pgx.Conn and pgxmock.PgxConnIface satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a DB that owns a single server connection.
type Conn interface {
	DB
	Close(ctx context.Context) error
}

// Connector opens single, unpooled connections.
type Connector struct {
	cfg *Config
}

// NewConnector validates cfg eagerly so that malformed DSNs fail before the
// first connection attempt.
func NewConnector(cfg *Config) (*Connector, error) {
	if cfg == nil {
		return nil, errors.New("postgres: config is required")
	}
	if _, err := parseConfig(cfg); err != nil {
		return nil, err
	}
	return &Connector{cfg: cfg}, nil
}

// String describes the target without credentials.
func (c *Connector) String() string {
	return c.cfg.String()
}

// Connect opens a connection with the session TimeZone set to cfg.TimeZone.
func (c *Connector) Connect(ctx context.Context) (Conn, error) {
	connCfg, err := parseConfig(c.cfg)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect to %s: %w", c.cfg, SanitizeError(err))
	}
	logger.FromContext(ctx).With(
		"host", connCfg.Host,
		"port", connCfg.Port,
		"db_name", connCfg.Database,
		"user", connCfg.User,
		"session_time_zone", connCfg.RuntimeParams["timezone"],
	).Debug("Database connection established")
	return conn, nil
}

func parseConfig(cfg *Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", SanitizeError(err))
	}
	connCfg.ConnectTimeout = cfg.connectTimeout()
	if cfg.TimeZone != "" {
		connCfg.RuntimeParams["timezone"] = cfg.TimeZone
	}
	return connCfg, nil
}

// ServerZone returns the session TimeZone reported by the server.
func ServerZone(ctx context.Context, db DB) (string, error) {
	var zone string
	if err := db.QueryRow(ctx, "show timezone").Scan(&zone); err != nil {
		return "", fmt.Errorf("postgres: show timezone: %w", err)
	}
	return zone, nil
}
