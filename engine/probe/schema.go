package probe

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/jackc/pgx/v5"
)

// Column is one of the four timestamp columns of the demo table.
type Column struct {
	Name string
	// Type is the declared SQL type.
	Type string
	// Aware reports whether the column stores absolute instants.
	Aware bool
}

// Columns lists the timestamp columns in table and report order.
var Columns = []Column{
	{Name: "data_timestamptz", Type: "timestamptz", Aware: true},
	{Name: "data_timestamp_with_tz", Type: "timestamp with time zone", Aware: true},
	{Name: "data_timestamp", Type: "timestamp", Aware: false},
	{Name: "data_timestamp_without_tz", Type: "timestamp without time zone", Aware: false},
}

// ColumnNames returns the names of Columns.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Schema manages the demo table.
type Schema struct {
	Name  string
	Table string
	out   io.Writer
}

// NewSchema binds the manager to schema.table and prints status lines to out.
func NewSchema(schema, table string, out io.Writer) *Schema {
	if out == nil {
		out = io.Discard
	}
	return &Schema{Name: schema, Table: table, out: out}
}

// Qualified returns the quoted schema-qualified table name.
func (s *Schema) Qualified() string {
	return pgx.Identifier{s.Name, s.Table}.Sanitize()
}

// String returns schema.table as shown to the user.
func (s *Schema) String() string {
	return s.Name + "." + s.Table
}

func (s *Schema) dropStatement() string {
	return "drop table if exists " + s.Qualified()
}

func (s *Schema) createStatement() string {
	var b strings.Builder
	fmt.Fprintf(&b, "create table %s (\n", s.Qualified())
	fmt.Fprintf(&b, "    %-25s %s,\n", "id", "integer primary key")
	for _, c := range Columns {
		fmt.Fprintf(&b, "    %-25s %-27s not null,\n", c.Name, c.Type)
	}
	fmt.Fprintf(&b, "    %-25s %s\n", "info", "text")
	b.WriteString(")")
	return b.String()
}

// DropTableIfExists drops the demo table. A missing table is not an error.
func (s *Schema) DropTableIfExists(ctx context.Context, db postgres.DB) error {
	return runStep(ctx, s.out, StepDropTable, "Dropping table "+s.String()+" ... ", func() error {
		_, err := db.Exec(ctx, s.dropStatement())
		return err
	})
}

// CreateTable creates the demo table. It fails if the table already exists.
func (s *Schema) CreateTable(ctx context.Context, db postgres.DB) error {
	return runStep(ctx, s.out, StepCreateTable, "Creating table "+s.String()+" ... ", func() error {
		_, err := db.Exec(ctx, s.createStatement())
		return err
	})
}
