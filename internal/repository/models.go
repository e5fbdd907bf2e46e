package repository

import (
	"time"

	"gorm.io/datatypes"

	"radar-watch-service/internal/domain/anpr"
)

type MonitoredEntry struct {
	ID                  int64   `gorm:"primaryKey"`
	Plate               string  `gorm:"not null;uniqueIndex"`
	MakeModel           *string
	Color               *string
	Reason              *string
	Active              bool    `gorm:"not null"`
	Note                *string `gorm:"size:1000"`
	InterestedParty     *string
	Phone               *string
	PersonalDestination *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ConfirmedAlert struct {
	ID               int64          `gorm:"primaryKey"`
	Operator         string         `gorm:"not null"`
	EventDate        datatypes.Date `gorm:"not null"`
	EventTime        datatypes.Time `gorm:"not null"`
	Plate            string         `gorm:"not null;index"`
	Plaza            string
	Highway          string
	Km               string
	Direction        string
	MonitoredEntryID int64           `gorm:"not null;index"`
	MonitoredEntry   *MonitoredEntry `gorm:"constraint:OnDelete:CASCADE"`
	ConfirmedAt      time.Time       `gorm:"not null;index"`
}

func entryRow(e *anpr.MonitoredEntry) MonitoredEntry {
	return MonitoredEntry{
		ID:                  e.ID,
		Plate:               e.Plate,
		MakeModel:           optional(e.MakeModel),
		Color:               optional(e.Color),
		Reason:              optional(e.Reason),
		Active:              e.Active,
		Note:                optional(e.Note),
		InterestedParty:     optional(e.InterestedParty),
		Phone:               optional(e.Phone),
		PersonalDestination: optional(e.PersonalDestination),
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func (r *MonitoredEntry) toDomain() *anpr.MonitoredEntry {
	return &anpr.MonitoredEntry{
		ID:                  r.ID,
		Plate:               r.Plate,
		MakeModel:           deref(r.MakeModel),
		Color:               deref(r.Color),
		Reason:              deref(r.Reason),
		Active:              r.Active,
		Note:                deref(r.Note),
		InterestedParty:     deref(r.InterestedParty),
		Phone:               deref(r.Phone),
		PersonalDestination: deref(r.PersonalDestination),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func alertRow(a *anpr.ConfirmedAlert) ConfirmedAlert {
	return ConfirmedAlert{
		Operator:         a.Operator,
		EventDate:        datatypes.Date(a.Date),
		EventTime:        datatypes.NewTime(a.Time.Hour(), a.Time.Minute(), a.Time.Second(), a.Time.Nanosecond()),
		Plate:            a.Plate,
		Plaza:            a.Plaza,
		Highway:          a.Highway,
		Km:               a.Km,
		Direction:        a.Direction,
		MonitoredEntryID: a.MonitoredEntryID,
		ConfirmedAt:      a.ConfirmedAt,
	}
}

func (r *ConfirmedAlert) toDomain() *anpr.ConfirmedAlert {
	d := time.Time(r.EventDate)
	a := &anpr.ConfirmedAlert{
		ID:               r.ID,
		Operator:         r.Operator,
		Date:             time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Time:             time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.EventTime)),
		Plate:            r.Plate,
		Plaza:            r.Plaza,
		Highway:          r.Highway,
		Km:               r.Km,
		Direction:        r.Direction,
		MonitoredEntryID: r.MonitoredEntryID,
		ConfirmedAt:      r.ConfirmedAt,
	}
	if r.MonitoredEntry != nil {
		a.MonitoredEntry = r.MonitoredEntry.toDomain()
	}
	return a
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
