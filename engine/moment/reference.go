package moment

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Zones carries the two zone assumptions of a run. They are independent of
// each other and of the host's time.Local.
type Zones struct {
	// Process is the default zone of the database session and of legacy
	// conversions.
	Process *time.Location
	// App is the zone in which the reference wall clock is interpreted.
	App *time.Location
}

// LoadZones resolves both zone names from the tz database.
func LoadZones(process, app string) (Zones, error) {
	p, err := loadZone(process)
	if err != nil {
		return Zones{}, fmt.Errorf("process zone: %w", err)
	}
	a, err := loadZone(app)
	if err != nil {
		return Zones{}, fmt.Errorf("app zone: %w", err)
	}
	return Zones{Process: p, App: a}, nil
}

func loadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("invalid zone %q", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid zone %q: %w", name, err)
	}
	return loc, nil
}

// Reference is the moment every representation must reproduce: a wall clock,
// the zone it was observed in and the resulting instant.
type Reference struct {
	Wall    civil.DateTime
	Zone    *time.Location
	Instant time.Time
}

// Precision is the finest resolution PostgreSQL timestamps store.
const Precision = time.Microsecond

// NewReference interprets wall in zone. Wall clocks inside a DST gap are
// normalized the way time.Date does. Digits below Precision are rejected
// since no column could store them.
func NewReference(wall civil.DateTime, zone *time.Location) (Reference, error) {
	if zone == nil {
		return Reference{}, errors.New("reference zone is required")
	}
	if !wall.IsValid() {
		return Reference{}, fmt.Errorf("invalid reference wall clock %s", wall)
	}
	if wall.Time.Nanosecond%int(Precision) != 0 {
		return Reference{}, fmt.Errorf("reference wall clock %s is finer than %s", wall, Precision)
	}
	return Reference{
		Wall:    wall,
		Zone:    zone,
		Instant: wall.In(zone).UTC(),
	}, nil
}

// ParseReference parses an ISO wall clock such as 2013-09-13T09:00:00.
func ParseReference(s string, zone *time.Location) (Reference, error) {
	wall, err := civil.ParseDateTime(s)
	if err != nil {
		return Reference{}, fmt.Errorf("parse reference %q: %w", s, err)
	}
	return NewReference(wall, zone)
}

// Zoned is the reference in its own zone.
func (r Reference) Zoned() time.Time {
	return r.Instant.In(r.Zone)
}

// Offset is the reference at the fixed offset its zone had at that instant.
func (r Reference) Offset() time.Time {
	return r.Instant.In(FixedZoneAt(r.Zone, r.Instant))
}

// FixedZoneAt returns a zone with the offset loc has at t and no DST rules.
func FixedZoneAt(loc *time.Location, t time.Time) *time.Location {
	_, offset := t.In(loc).Zone()
	return time.FixedZone("", offset)
}
