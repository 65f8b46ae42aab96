package moment

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Kind enumerates the client-side representations a timestamp is written
// and read through.
type Kind int

const (
	// Legacy is an instant that carries the process zone as its calendar.
	Legacy Kind = iota + 1
	// LegacyUTC is an instant whose calendar is pinned to UTC.
	LegacyUTC
	// Offset is an instant at a fixed UTC offset.
	Offset
	// Naive is a wall clock without any zone.
	Naive
)

// NaiveLayout is the text form zone-naive values are bound with.
const NaiveLayout = "2006-01-02 15:04:05.999999999"

// Kinds returns all representations in insertion order.
func Kinds() []Kind {
	return []Kind{Legacy, LegacyUTC, Offset, Naive}
}

func (k Kind) String() string {
	switch k {
	case Legacy:
		return "legacy"
	case LegacyUTC:
		return "legacy-utc"
	case Offset:
		return "offset"
	case Naive:
		return "naive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label names the Go type used for the representation.
func (k Kind) Label() string {
	switch k {
	case Legacy:
		return "time.Time"
	case LegacyUTC:
		return "time.Time in UTC"
	case Offset:
		return "time.Time at offset"
	case Naive:
		return "civil.DateTime"
	default:
		return k.String()
	}
}

// ID is the primary key of the row written through k.
func (k Kind) ID() int {
	return 1000 + int(k)
}

// Info describes how the row written through k was inserted.
func (k Kind) Info() string {
	switch k {
	case Legacy:
		return "Inserted as time.Time in the process zone (legacy)"
	case LegacyUTC:
		return "Inserted as time.Time in UTC (legacy with UTC calendar)"
	case Offset:
		return "Inserted as time.Time at a fixed offset"
	case Naive:
		return "Inserted as civil.DateTime"
	default:
		return ""
	}
}

// KindForID is the inverse of Kind.ID.
func KindForID(id int) (Kind, bool) {
	k := Kind(id - 1000)
	if k < Legacy || k > Naive {
		return 0, false
	}
	return k, true
}

// Bind returns the value handed to the driver when ref is written through k.
// Zone-aware values are time.Time; the zone-naive value is a text literal so
// that the server applies its session zone to it.
func (k Kind) Bind(ref Reference, zones Zones) any {
	switch k {
	case Legacy:
		return ref.Instant.In(zones.Process)
	case LegacyUTC:
		return ref.Instant.UTC()
	case Offset:
		return ref.Instant.In(FixedZoneAt(zones.App, ref.Instant))
	case Naive:
		return ref.Wall.In(time.UTC).Format(NaiveLayout)
	default:
		return nil
	}
}

// BindType is the SQL type the bound value is declared as, or "" when the
// target column decides. An offset value is declared timestamptz so that
// zone-naive columns receive its wall clock in the session zone.
func (k Kind) BindType() string {
	if k == Offset {
		return "timestamptz"
	}
	return ""
}

// Stored is a raw column value as retrieved from the database. Aware columns
// yield an instant, naive columns yield the stored wall clock.
type Stored struct {
	Aware   bool
	Instant time.Time
	Wall    civil.DateTime
}

// AwareValue wraps an instant read from a zone-aware column.
func AwareValue(t time.Time) Stored {
	return Stored{Aware: true, Instant: t}
}

// NaiveValue wraps a wall clock read from a zone-naive column.
func NaiveValue(wall civil.DateTime) Stored {
	return Stored{Wall: wall}
}

// Read materializes s through k. It reports false when k cannot represent a
// value of that column kind.
func (k Kind) Read(s Stored, zones Zones) (Value, bool) {
	switch k {
	case Legacy:
		return Value{Kind: k, Time: s.in(zones.Process)}, true
	case LegacyUTC:
		return Value{Kind: k, Time: s.in(time.UTC)}, true
	case Offset:
		return Value{Kind: k, Time: s.in(time.UTC)}, true
	case Naive:
		if s.Aware {
			return Value{}, false
		}
		return Value{Kind: k, Wall: s.Wall}, true
	default:
		return Value{}, false
	}
}

// in shows an instant in loc, or interprets a wall clock in loc.
func (s Stored) in(loc *time.Location) time.Time {
	if s.Aware {
		return s.Instant.In(loc)
	}
	return s.Wall.In(loc)
}
