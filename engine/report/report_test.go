package report_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/compozy/tzprobe/engine/probe"
	"github.com/compozy/tzprobe/engine/report"
	"github.com/compozy/tzprobe/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip returns the rows a server with session zone zones.Process hands
// back after the four inserts.
func roundTrip(ref moment.Reference, zones moment.Zones) []probe.Row {
	rows := make([]probe.Row, 0, len(moment.Kinds()))
	for _, kind := range moment.Kinds() {
		instant := ref.Instant
		var wall civil.DateTime
		switch kind {
		case moment.Legacy:
			wall = civil.DateTimeOf(instant.In(zones.Process))
		case moment.LegacyUTC:
			wall = civil.DateTimeOf(instant.UTC())
		case moment.Offset:
			wall = civil.DateTimeOf(instant.In(zones.Process))
		case moment.Naive:
			wall = ref.Wall
			instant = ref.Wall.In(zones.Process).UTC()
		}
		stored := []moment.Stored{
			moment.AwareValue(instant),
			moment.AwareValue(instant),
			moment.NaiveValue(wall),
			moment.NaiveValue(wall),
		}
		row := probe.Row{ID: kind.ID(), Info: kind.Info()}
		for i, column := range probe.Columns {
			for _, read := range moment.Kinds() {
				if v, ok := read.Read(stored[i], zones); ok {
					row.Cells = append(row.Cells, probe.Cell{Column: column, Kind: read, Value: v})
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func render(t *testing.T, process, serverZone string) []byte {
	t.Helper()
	zones, err := moment.LoadZones(process, "Europe/Vienna")
	require.NoError(t, err)
	ref, err := moment.ParseReference("2013-09-13T09:00:00", zones.App)
	require.NoError(t, err)
	var out bytes.Buffer
	r := report.NewPlain(&out)
	require.NoError(t, r.WriteHeader(probe.Header{
		ProcessZone: zones.Process,
		ServerZone:  serverZone,
		AppZone:     zones.App,
		Reference:   ref,
	}))
	require.NoError(t, r.WriteRows(ref, roundTrip(ref, zones)))
	return out.Bytes()
}

func TestReporter(t *testing.T) {
	t.Run("Should render a UTC run", func(t *testing.T) {
		helpers.CompareWithGolden(t, render(t, "UTC", "UTC"), "engine/report/testdata/run_utc.golden")
	})

	t.Run("Should render a Los Angeles run without session zone", func(t *testing.T) {
		helpers.CompareWithGolden(t, render(t, "America/Los_Angeles", ""),
			"engine/report/testdata/run_los_angeles.golden")
	})

	t.Run("Should match the offset row in aware columns and process zone reads", func(t *testing.T) {
		out := string(render(t, "America/Los_Angeles", "America/Los_Angeles"))
		section := out[strings.Index(out, "1003 ("):strings.Index(out, "1004 (")]

		assert.Contains(t, out, "Session zone:         America/Los_Angeles (usually matches the process zone)")
		assert.Equal(t, 8, strings.Count(section, report.MarkMatch))
		assert.Equal(t, 6, strings.Count(section, report.MarkMismatch))
		assert.Contains(t, section, "timestamp                   read as time.Time           = 2013-09-13 00:00:00.0       (2013-09-13T07:00:00Z)   ✓")
	})

	t.Run("Should not color output that is not a terminal", func(t *testing.T) {
		var out bytes.Buffer
		assert.False(t, report.ShouldUseColor(&out))

		f, err := os.CreateTemp(t.TempDir(), "report")
		require.NoError(t, err)
		defer f.Close()
		assert.False(t, report.ShouldUseColor(f))
	})

	t.Run("Should propagate write failures", func(t *testing.T) {
		zones, err := moment.LoadZones("UTC", "UTC")
		require.NoError(t, err)
		ref, err := moment.ParseReference("2013-09-13T09:00:00", zones.App)
		require.NoError(t, err)
		r := report.New(failingWriter{})

		assert.Error(t, r.WriteHeader(probe.Header{ProcessZone: zones.Process, AppZone: zones.App, Reference: ref}))
		assert.Error(t, r.WriteRows(ref, nil))
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}
