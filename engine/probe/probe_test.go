package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/compozy/tzprobe/engine/infra/postgres"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantArg matches a bound time.Time by instant and UTC offset.
type instantArg struct {
	want time.Time
}

func (a instantArg) Match(v any) bool {
	got, ok := v.(time.Time)
	if !ok || !got.Equal(a.want) {
		return false
	}
	_, gotOffset := got.Zone()
	_, wantOffset := a.want.Zone()
	return gotOffset == wantOffset
}

func fixture(t *testing.T, process string) (moment.Reference, moment.Zones) {
	t.Helper()
	zones, err := moment.LoadZones(process, "Europe/Vienna")
	require.NoError(t, err)
	ref, err := moment.ParseReference("2013-09-13T09:00:00", zones.App)
	require.NoError(t, err)
	return ref, zones
}

func bindArgs(kind moment.Kind, ref moment.Reference, zones moment.Zones) []any {
	value := kind.Bind(ref, zones)
	var arg any = value
	if tm, ok := value.(time.Time); ok {
		arg = instantArg{want: tm}
	}
	return []any{kind.ID(), arg, arg, arg, arg, kind.Info()}
}

// insertStatement is the SQL the writer sends for kind.
func insertStatement(kind moment.Kind) string {
	placeholder := func(n int) string {
		if typ := kind.BindType(); typ != "" {
			return fmt.Sprintf("$%d::%s", n, typ)
		}
		return fmt.Sprintf("$%d", n)
	}
	return `INSERT INTO "public"."test_data" ` +
		"(id,data_timestamptz,data_timestamp_with_tz,data_timestamp,data_timestamp_without_tz,info) " +
		fmt.Sprintf("VALUES ($1,%s,%s,%s,%s,$6)", placeholder(2), placeholder(3), placeholder(4), placeholder(5))
}

func newMockConn(t *testing.T) pgxmock.PgxConnIface {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	return mock
}

func rowColumns() []string {
	return append(append([]string{"id"}, ColumnNames()...), "info")
}

// storedRow returns what the server hands back for kind written under zones.
func storedRow(kind moment.Kind, ref moment.Reference, zones moment.Zones) []any {
	var naiveWall time.Time
	instant := ref.Instant
	switch kind {
	case moment.Legacy:
		naiveWall = ref.Instant.In(zones.Process)
	case moment.LegacyUTC:
		naiveWall = ref.Instant.UTC()
	case moment.Offset:
		naiveWall = ref.Instant.In(zones.Process)
	case moment.Naive:
		naiveWall = ref.Wall.In(time.UTC)
		instant = ref.Wall.In(zones.Process)
	}
	naive := pgtype.Timestamp{Time: civil.DateTimeOf(naiveWall).In(time.UTC), Valid: true}
	return []any{
		int32(kind.ID()),
		instant,
		instant,
		naive,
		naive,
		pgtype.Text{String: kind.Info(), Valid: true},
	}
}

func TestSchema(t *testing.T) {
	t.Run("Should drop the table and report OK", func(t *testing.T) {
		mock := newMockConn(t)
		var out bytes.Buffer
		schema := NewSchema("public", "test_data", &out)
		mock.ExpectExec(regexp.QuoteMeta(`drop table if exists "public"."test_data"`)).
			WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))

		err := schema.DropTableIfExists(t.Context(), mock)

		require.NoError(t, err)
		assert.Equal(t, "Dropping table public.test_data ... OK\n", out.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should declare every column with its type", func(t *testing.T) {
		stmt := NewSchema("public", "test_data", nil).createStatement()

		assert.Contains(t, stmt, `create table "public"."test_data" (`)
		assert.Regexp(t, `id\s+integer primary key,`, stmt)
		assert.Regexp(t, `data_timestamptz\s+timestamptz\s+not null,`, stmt)
		assert.Regexp(t, `data_timestamp_with_tz\s+timestamp with time zone\s+not null,`, stmt)
		assert.Regexp(t, `data_timestamp\s+timestamp\s+not null,`, stmt)
		assert.Regexp(t, `data_timestamp_without_tz\s+timestamp without time zone\s+not null,`, stmt)
		assert.Regexp(t, `info\s+text\n\)$`, stmt)
	})

	t.Run("Should quote identifiers", func(t *testing.T) {
		schema := NewSchema("Probe", "Data", nil)

		assert.Equal(t, `"Probe"."Data"`, schema.Qualified())
		assert.Equal(t, "Probe.Data", schema.String())
	})

	t.Run("Should print FAILED and wrap the database error", func(t *testing.T) {
		mock := newMockConn(t)
		var out bytes.Buffer
		schema := NewSchema("public", "test_data", &out)
		pgErr := &pgconn.PgError{Code: postgres.DuplicateTableCode, Message: `relation "test_data" already exists`}
		mock.ExpectExec(regexp.QuoteMeta(schema.createStatement())).WillReturnError(pgErr)

		err := schema.CreateTable(t.Context(), mock)

		require.Error(t, err)
		assert.Equal(t, "Creating table public.test_data ... FAILED\n", out.String())
		assert.ErrorIs(t, err, ErrDatabase)
		var probeErr *Error
		require.ErrorAs(t, err, &probeErr)
		assert.Equal(t, StepCreateTable, probeErr.Step)
		assert.Equal(t, postgres.DuplicateTableCode, postgres.SQLState(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWriter(t *testing.T) {
	t.Run("Should insert one row per representation", func(t *testing.T) {
		ref, zones := fixture(t, "America/Los_Angeles")
		mock := newMockConn(t)
		var out bytes.Buffer
		writer := NewWriter(NewSchema("public", "test_data", nil), &out)
		for _, kind := range moment.Kinds() {
			mock.ExpectExec(regexp.QuoteMeta(insertStatement(kind))).
				WithArgs(bindArgs(kind, ref, zones)...).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}

		err := writer.InsertAll(t.Context(), mock, ref, zones)

		require.NoError(t, err)
		assert.Equal(t,
			"Inserting data as time.Time ............. OK\n"+
				"Inserting data as time.Time in UTC ...... OK\n"+
				"Inserting data as time.Time at offset ... OK\n"+
				"Inserting data as civil.DateTime ........ OK\n",
			out.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should bind the naive row as text", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		sql, args, err := NewWriter(NewSchema("public", "test_data", nil), nil).buildInsert(moment.Naive, ref, zones)

		require.NoError(t, err)
		assert.Contains(t, sql, "VALUES ($1,$2,$3,$4,$5,$6)")
		assert.Equal(t, []any{1004, "2013-09-13 09:00:00", "2013-09-13 09:00:00", "2013-09-13 09:00:00", "2013-09-13 09:00:00", "Inserted as civil.DateTime"}, args)
	})

	t.Run("Should declare offset values as timestamptz", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		writer := NewWriter(NewSchema("public", "test_data", nil), nil)

		sql, args, err := writer.buildInsert(moment.Offset, ref, zones)

		require.NoError(t, err)
		assert.Contains(t, sql, "VALUES ($1,$2::timestamptz,$3::timestamptz,$4::timestamptz,$5::timestamptz,$6)")
		require.Len(t, args, 6)
		bound, ok := args[3].(time.Time)
		require.True(t, ok)
		assert.True(t, bound.Equal(ref.Instant))
		_, offset := bound.Zone()
		assert.Equal(t, 2*60*60, offset)

		sql, _, err = writer.buildInsert(moment.Legacy, ref, zones)
		require.NoError(t, err)
		assert.NotContains(t, sql, "::")
	})

	t.Run("Should stop at the first failing insert", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		mock := newMockConn(t)
		var out bytes.Buffer
		writer := NewWriter(NewSchema("public", "test_data", nil), &out)
		mock.ExpectExec("INSERT INTO").
			WithArgs(bindArgs(moment.Legacy, ref, zones)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO").
			WithArgs(bindArgs(moment.LegacyUTC, ref, zones)...).
			WillReturnError(errors.New("connection lost"))

		err := writer.InsertAll(t.Context(), mock, ref, zones)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDatabase)
		assert.Contains(t, err.Error(), "inserting row 1002")
		assert.Contains(t, out.String(), "Inserting data as time.Time in UTC ...... FAILED\n")
		assert.NotContains(t, out.String(), "offset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReader(t *testing.T) {
	t.Run("Should materialize every applicable representation", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		mock := newMockConn(t)
		var out bytes.Buffer
		reader := NewReader(NewSchema("public", "test_data", nil), &out)
		rows := mock.NewRows(rowColumns())
		for _, kind := range moment.Kinds() {
			rows.AddRow(storedRow(kind, ref, zones)...)
		}
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, data_timestamptz, data_timestamp_with_tz, data_timestamp, data_timestamp_without_tz, info FROM "public"."test_data" ORDER BY id`)).
			WillReturnRows(rows)

		got, err := reader.ReadAll(t.Context(), mock, zones)

		require.NoError(t, err)
		assert.Equal(t, "Reading data ... OK\n", out.String())
		require.Len(t, got, 4)
		for i, row := range got {
			assert.Equal(t, 1001+i, row.ID)
			assert.Len(t, row.Cells, 14)
		}
		assert.Equal(t, "Inserted as time.Time at a fixed offset", got[2].Info)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should reproduce the reference from aware columns", func(t *testing.T) {
		ref, zones := fixture(t, "America/Los_Angeles")
		raw := rawFromStored(t, storedRow(moment.Offset, ref, zones))

		row, err := materialize(raw, zones)

		require.NoError(t, err)
		for _, cell := range row.Cells {
			if cell.Column.Aware {
				assert.True(t, cell.Value.Matches(ref), "%s via %s", cell.Column.Name, cell.Kind)
			}
		}
	})

	t.Run("Should expose the naive shift when zones differ", func(t *testing.T) {
		ref, _ := fixture(t, "Europe/Vienna")
		writeZones, err := moment.LoadZones("Europe/Vienna", "Europe/Vienna")
		require.NoError(t, err)
		readZones, err := moment.LoadZones("America/Los_Angeles", "Europe/Vienna")
		require.NoError(t, err)
		raw := rawFromStored(t, storedRow(moment.Legacy, ref, writeZones))

		row, err := materialize(raw, readZones)

		require.NoError(t, err)
		var naive []Cell
		for _, cell := range row.Cells {
			if cell.Kind == moment.Naive {
				naive = append(naive, cell)
			}
		}
		require.Len(t, naive, 2)
		for _, cell := range naive {
			assert.Equal(t, "2013-09-13 09:00:00.0", cell.Value.Format())
			assert.False(t, cell.Value.Matches(ref))
		}
	})

	t.Run("Should reject rows without finite timestamps", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		raw := rawFromStored(t, storedRow(moment.Legacy, ref, zones))
		raw.Timestamp = pgtype.Timestamp{InfinityModifier: pgtype.Infinity, Valid: true}

		_, err := materialize(raw, zones)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "data_timestamp holds no finite timestamp")
	})

	t.Run("Should print FAILED when the query fails", func(t *testing.T) {
		_, zones := fixture(t, "UTC")
		mock := newMockConn(t)
		var out bytes.Buffer
		reader := NewReader(NewSchema("public", "test_data", nil), &out)
		mock.ExpectQuery("SELECT").WillReturnError(&pgconn.PgError{Code: postgres.UndefinedTableCode})

		_, err := reader.ReadAll(t.Context(), mock, zones)

		require.Error(t, err)
		assert.Equal(t, "Reading data ... FAILED\n", out.String())
		assert.Equal(t, postgres.UndefinedTableCode, postgres.SQLState(err))
	})
}

func rawFromStored(t *testing.T, values []any) *rawRow {
	t.Helper()
	require.Len(t, values, 6)
	return &rawRow{
		ID:                 values[0].(int32),
		TimestampTz:        values[1].(time.Time),
		TimestampWithTz:    values[2].(time.Time),
		Timestamp:          values[3].(pgtype.Timestamp),
		TimestampWithoutTz: values[4].(pgtype.Timestamp),
		Info:               values[5].(pgtype.Text),
	}
}

type fakeDialer struct {
	conns []postgres.Conn
	errs  []error
	calls int
}

func (d *fakeDialer) Connect(_ context.Context) (postgres.Conn, error) {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i >= len(d.conns) {
		return nil, errors.New("no more connections")
	}
	return d.conns[i], nil
}

type recordingReporter struct {
	header *Header
	rows   []Row
}

func (r *recordingReporter) WriteHeader(h Header) error {
	r.header = &h
	return nil
}

func (r *recordingReporter) WriteRows(_ moment.Reference, rows []Row) error {
	r.rows = rows
	return nil
}

func expectExchange(mock pgxmock.PgxConnIface, schema *Schema, ref moment.Reference, zones moment.Zones) {
	mock.ExpectExec(regexp.QuoteMeta(schema.dropStatement())).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta(schema.createStatement())).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	for _, kind := range moment.Kinds() {
		mock.ExpectExec("INSERT INTO").WithArgs(bindArgs(kind, ref, zones)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	rows := mock.NewRows(rowColumns())
	for _, kind := range moment.Kinds() {
		rows.AddRow(storedRow(kind, ref, zones)...)
	}
	mock.ExpectQuery("SELECT").WillReturnRows(rows)
}

func TestRunner_Run(t *testing.T) {
	t.Run("Should run the whole sequence and drop the table afterwards", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		zoneConn := newMockConn(t)
		zoneConn.ExpectQuery("show timezone").WillReturnRows(zoneConn.NewRows([]string{"TimeZone"}).AddRow("UTC"))
		zoneConn.ExpectClose()
		mainConn := newMockConn(t)
		schema := NewSchema("public", "test_data", nil)
		expectExchange(mainConn, schema, ref, zones)
		mainConn.ExpectExec(regexp.QuoteMeta(schema.dropStatement())).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
		mainConn.ExpectClose()
		reporter := &recordingReporter{}
		var out bytes.Buffer
		runner := NewRunner(&fakeDialer{conns: []postgres.Conn{zoneConn, mainConn}}, reporter, &out, Options{
			Schema: "public", Table: "test_data", DropTableAfterFinish: true, Zones: zones, Reference: ref,
		})

		rows, err := runner.Run(t.Context())

		require.NoError(t, err)
		require.Len(t, rows, 4)
		require.NotNil(t, reporter.header)
		assert.Equal(t, "UTC", reporter.header.ServerZone)
		assert.Equal(t, rows, reporter.rows)
		assert.Equal(t,
			"Connecting to the database ... OK\n"+
				"Dropping table public.test_data ... OK\n"+
				"Creating table public.test_data ... OK\n"+
				"\n"+
				"Inserting data as time.Time ............. OK\n"+
				"Inserting data as time.Time in UTC ...... OK\n"+
				"Inserting data as time.Time at offset ... OK\n"+
				"Inserting data as civil.DateTime ........ OK\n"+
				"\n"+
				"Reading data ... OK\n"+
				"\n"+
				"Dropping table public.test_data ... OK\n",
			out.String())
		assert.NoError(t, zoneConn.ExpectationsWereMet())
		assert.NoError(t, mainConn.ExpectationsWereMet())
	})

	t.Run("Should keep the table and tolerate a missing server zone", func(t *testing.T) {
		ref, zones := fixture(t, "America/Los_Angeles")
		mainConn := newMockConn(t)
		expectExchange(mainConn, NewSchema("public", "test_data", nil), ref, zones)
		mainConn.ExpectClose()
		reporter := &recordingReporter{}
		dialer := &fakeDialer{
			conns: []postgres.Conn{nil, mainConn},
			errs:  []error{errors.New("too many clients")},
		}
		runner := NewRunner(dialer, reporter, nil, Options{
			Schema: "public", Table: "test_data", DropTableAfterFinish: false, Zones: zones, Reference: ref,
		})

		rows, err := runner.Run(t.Context())

		require.NoError(t, err)
		assert.Len(t, rows, 4)
		assert.Empty(t, reporter.header.ServerZone)
		assert.NoError(t, mainConn.ExpectationsWereMet())
	})

	t.Run("Should fail with a connect step error", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		reporter := &recordingReporter{}
		dialer := &fakeDialer{errs: []error{errors.New("refused"), errors.New("refused")}}
		var out bytes.Buffer
		runner := NewRunner(dialer, reporter, &out, Options{Schema: "public", Table: "test_data", Zones: zones, Reference: ref})

		_, err := runner.Run(t.Context())

		require.Error(t, err)
		assert.Equal(t, "Connecting to the database ... FAILED\n", out.String())
		assert.ErrorIs(t, err, ErrDatabase)
		var probeErr *Error
		require.ErrorAs(t, err, &probeErr)
		assert.Equal(t, StepConnect, probeErr.Step)
		assert.Nil(t, reporter.rows)
	})

	t.Run("Should stop after a failing create and still close the connection", func(t *testing.T) {
		ref, zones := fixture(t, "UTC")
		mainConn := newMockConn(t)
		schema := NewSchema("public", "test_data", nil)
		mainConn.ExpectExec(regexp.QuoteMeta(schema.dropStatement())).WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
		mainConn.ExpectExec(regexp.QuoteMeta(schema.createStatement())).
			WillReturnError(&pgconn.PgError{Code: postgres.InvalidSchemaNameCode})
		mainConn.ExpectClose()
		dialer := &fakeDialer{conns: []postgres.Conn{nil, mainConn}, errs: []error{errors.New("skip")}}
		runner := NewRunner(dialer, &recordingReporter{}, nil, Options{Schema: "public", Table: "test_data", Zones: zones, Reference: ref})

		_, err := runner.Run(t.Context())

		require.Error(t, err)
		var probeErr *Error
		require.ErrorAs(t, err, &probeErr)
		assert.Equal(t, StepCreateTable, probeErr.Step)
		assert.NoError(t, mainConn.ExpectationsWereMet())
	})
}
