package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Masterminds/squirrel"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgtype"
)

// rawRow mirrors the table. Aware columns decode to instants, naive columns
// keep their wall-clock digits.
type rawRow struct {
	ID                 int32            `db:"id"`
	TimestampTz        time.Time        `db:"data_timestamptz"`
	TimestampWithTz    time.Time        `db:"data_timestamp_with_tz"`
	Timestamp          pgtype.Timestamp `db:"data_timestamp"`
	TimestampWithoutTz pgtype.Timestamp `db:"data_timestamp_without_tz"`
	Info               pgtype.Text      `db:"info"`
}

// Cell is one column read through one representation.
type Cell struct {
	Column Column
	Kind   moment.Kind
	Value  moment.Value
}

// Row is a retrieved row with every applicable representation of every
// timestamp column, grouped by column in Columns order.
type Row struct {
	ID    int
	Info  string
	Cells []Cell
}

// Reader selects all rows of the demo table.
type Reader struct {
	schema *Schema
	out    io.Writer
}

// NewReader binds the reader to schema and prints status lines to out.
func NewReader(schema *Schema, out io.Writer) *Reader {
	if out == nil {
		out = io.Discard
	}
	return &Reader{schema: schema, out: out}
}

func (r *Reader) buildSelect() (string, []any, error) {
	columns := append(append([]string{"id"}, ColumnNames()...), "info")
	return squirrel.
		Select(columns...).
		From(r.schema.Qualified()).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// ReadAll returns the rows ordered by id, materialized under zones.
func (r *Reader) ReadAll(ctx context.Context, db postgres.DB, zones moment.Zones) ([]Row, error) {
	var rows []Row
	err := runStep(ctx, r.out, StepRead, "Reading data ... ", func() error {
		sql, args, err := r.buildSelect()
		if err != nil {
			return fmt.Errorf("building select: %w", err)
		}
		var raws []rawRow
		if err := pgxscan.Select(ctx, db, &raws, sql, args...); err != nil {
			return fmt.Errorf("scanning rows: %w", err)
		}
		rows = make([]Row, 0, len(raws))
		for i := range raws {
			row, err := materialize(&raws[i], zones)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func materialize(raw *rawRow, zones moment.Zones) (Row, error) {
	stored, err := raw.stored()
	if err != nil {
		return Row{}, fmt.Errorf("row %d: %w", raw.ID, err)
	}
	row := Row{ID: int(raw.ID), Info: raw.Info.String}
	for i, column := range Columns {
		for _, kind := range moment.Kinds() {
			value, ok := kind.Read(stored[i], zones)
			if !ok {
				continue
			}
			row.Cells = append(row.Cells, Cell{Column: column, Kind: kind, Value: value})
		}
	}
	return row, nil
}

// stored returns the raw column values in Columns order.
func (raw *rawRow) stored() ([]moment.Stored, error) {
	naive := func(name string, ts pgtype.Timestamp) (moment.Stored, error) {
		if !ts.Valid || ts.InfinityModifier != pgtype.Finite {
			return moment.Stored{}, fmt.Errorf("column %s holds no finite timestamp", name)
		}
		return moment.NaiveValue(civil.DateTimeOf(ts.Time)), nil
	}
	ts, err := naive("data_timestamp", raw.Timestamp)
	if err != nil {
		return nil, err
	}
	tsWithout, err := naive("data_timestamp_without_tz", raw.TimestampWithoutTz)
	if err != nil {
		return nil, err
	}
	return []moment.Stored{
		moment.AwareValue(raw.TimestampTz.UTC()),
		moment.AwareValue(raw.TimestampWithTz.UTC()),
		ts,
		tsWithout,
	}, nil
}
