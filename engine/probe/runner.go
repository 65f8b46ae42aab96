package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/compozy/tzprobe/pkg/logger"
)

// Dialer opens database connections. *postgres.Connector implements it.
type Dialer interface {
	Connect(ctx context.Context) (postgres.Conn, error)
}

// Header is what is known before any row is written.
type Header struct {
	ProcessZone *time.Location
	// ServerZone is the session zone reported by the server, "" if unavailable.
	ServerZone string
	AppZone    *time.Location
	Reference  moment.Reference
}

// Reporter renders the outcome of a run.
type Reporter interface {
	WriteHeader(h Header) error
	WriteRows(ref moment.Reference, rows []Row) error
}

// Options configures a Runner.
type Options struct {
	Schema               string
	Table                string
	DropTableAfterFinish bool
	Zones                moment.Zones
	Reference            moment.Reference
}

// Runner drives connect, drop, create, insert, read, report and cleanup.
type Runner struct {
	dialer   Dialer
	reporter Reporter
	out      io.Writer
	opts     Options
	schema   *Schema
	writer   *Writer
	reader   *Reader
}

// NewRunner creates a runner that prints step status lines to out.
func NewRunner(dialer Dialer, reporter Reporter, out io.Writer, opts Options) *Runner {
	if out == nil {
		out = io.Discard
	}
	schema := NewSchema(opts.Schema, opts.Table, out)
	return &Runner{
		dialer:   dialer,
		reporter: reporter,
		out:      out,
		opts:     opts,
		schema:   schema,
		writer:   NewWriter(schema, out),
		reader:   NewReader(schema, out),
	}
}

// Run executes the probe and returns the rows it read back.
func (r *Runner) Run(ctx context.Context) ([]Row, error) {
	log := logger.FromContext(ctx).With("table", r.schema.String())

	header := Header{
		ProcessZone: r.opts.Zones.Process,
		ServerZone:  r.serverZone(ctx),
		AppZone:     r.opts.Zones.App,
		Reference:   r.opts.Reference,
	}
	if err := r.reporter.WriteHeader(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	var conn postgres.Conn
	err := runStep(ctx, r.out, StepConnect, "Connecting to "+r.target()+" ... ", func() error {
		var err error
		conn, err = r.dialer.Connect(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			log.Warn("Failed to close database connection", "error", cerr)
		}
	}()

	rows, err := r.exchange(ctx, conn)
	if err != nil {
		return nil, err
	}
	log.Info("Probe finished", "rows", len(rows))

	if err := r.reporter.WriteRows(r.opts.Reference, rows); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	return rows, nil
}

// exchange runs every statement on conn. Nothing is rolled back on failure.
func (r *Runner) exchange(ctx context.Context, conn postgres.DB) ([]Row, error) {
	if err := r.schema.DropTableIfExists(ctx, conn); err != nil {
		return nil, err
	}
	if err := r.schema.CreateTable(ctx, conn); err != nil {
		return nil, err
	}
	fmt.Fprintln(r.out)

	if err := r.writer.InsertAll(ctx, conn, r.opts.Reference, r.opts.Zones); err != nil {
		return nil, err
	}
	fmt.Fprintln(r.out)

	rows, err := r.reader.ReadAll(ctx, conn, r.opts.Zones)
	if err != nil {
		return nil, err
	}

	if r.opts.DropTableAfterFinish {
		fmt.Fprintln(r.out)
		if err := r.schema.DropTableIfExists(ctx, conn); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// target names the server in status lines without credentials.
func (r *Runner) target() string {
	if s, ok := r.dialer.(fmt.Stringer); ok {
		return s.String()
	}
	return "the database"
}

// serverZone asks the server for its session zone on a connection of its
// own. Failures are logged and reported as "".
func (r *Runner) serverZone(ctx context.Context) string {
	log := logger.FromContext(ctx)
	conn, err := r.dialer.Connect(ctx)
	if err != nil {
		log.Warn("Session time zone unavailable", "error", err)
		return ""
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			log.Warn("Failed to close database connection", "error", cerr)
		}
	}()
	zone, err := postgres.ServerZone(ctx, conn)
	if err != nil {
		log.Warn("Session time zone unavailable", "error", err)
		return ""
	}
	return zone
}
