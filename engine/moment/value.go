package moment

import (
	"time"

	"cloud.google.com/go/civil"
)

const (
	denseLayout  = "2006-01-02 15:04:05"
	offsetLayout = "-07:00"
)

// Value is a timestamp materialized through one representation.
type Value struct {
	Kind Kind
	Time time.Time
	Wall civil.DateTime
}

// Instant is the absolute moment the value stands for. A wall clock has no
// zone and is taken as UTC.
func (v Value) Instant() time.Time {
	if v.Kind == Naive {
		return v.Wall.In(time.UTC)
	}
	return v.Time.UTC()
}

// Matches reports whether v denotes the reference instant exactly.
func (v Value) Matches(ref Reference) bool {
	return v.Instant().Equal(ref.Instant)
}

// Format renders v densely, e.g. 2013-09-13 07:00:00.0 or, for offset
// values, 2013-09-13 07:00:00.0+00:00.
func (v Value) Format() string {
	switch v.Kind {
	case Naive:
		return FormatDense(v.Wall.In(time.UTC))
	case Offset:
		return FormatDense(v.Time) + v.Time.Format(offsetLayout)
	default:
		return FormatDense(v.Time)
	}
}

// FormatDense prints t's wall clock with at least one fractional digit and
// every significant one.
func FormatDense(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format(denseLayout) + ".0"
	}
	return t.Format(denseLayout + ".999999999")
}
