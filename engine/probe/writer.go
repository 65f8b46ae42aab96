package probe

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/moment"
)

// Writer inserts one row per write representation.
type Writer struct {
	schema *Schema
	out    io.Writer
}

// NewWriter binds the writer to schema and prints status lines to out.
func NewWriter(schema *Schema, out io.Writer) *Writer {
	if out == nil {
		out = io.Discard
	}
	return &Writer{schema: schema, out: out}
}

// buildInsert binds ref through kind to all four timestamp columns, cast to
// kind.BindType when it has one.
func (w *Writer) buildInsert(kind moment.Kind, ref moment.Reference, zones moment.Zones) (string, []any, error) {
	var value any = kind.Bind(ref, zones)
	if typ := kind.BindType(); typ != "" {
		value = squirrel.Expr("?::"+typ, value)
	}
	values := []any{kind.ID()}
	for range Columns {
		values = append(values, value)
	}
	values = append(values, kind.Info())

	columns := append(append([]string{"id"}, ColumnNames()...), "info")
	return squirrel.
		Insert(w.schema.Qualified()).
		Columns(columns...).
		Values(values...).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// Insert writes the row for kind.
func (w *Writer) Insert(ctx context.Context, db postgres.DB, kind moment.Kind, ref moment.Reference, zones moment.Zones) error {
	return runStep(ctx, w.out, StepInsert, insertMessage(kind), func() error {
		sql, args, err := w.buildInsert(kind, ref, zones)
		if err != nil {
			return fmt.Errorf("building insert for %s: %w", kind, err)
		}
		if _, err := db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", kind.ID(), err)
		}
		return nil
	})
}

// InsertAll writes one row per representation, stopping at the first failure.
func (w *Writer) InsertAll(ctx context.Context, db postgres.DB, ref moment.Reference, zones moment.Zones) error {
	for _, kind := range moment.Kinds() {
		if err := w.Insert(ctx, db, kind, ref, zones); err != nil {
			return err
		}
	}
	return nil
}

// insertMessage pads every label with dots to a common width.
func insertMessage(kind moment.Kind) string {
	width := 0
	for _, k := range moment.Kinds() {
		width = max(width, len(k.Label()))
	}
	dots := strings.Repeat(".", width-len(kind.Label())+3)
	return fmt.Sprintf("Inserting data as %s %s ", kind.Label(), dots)
}
