package anpr

import (
	"strings"
	"time"
)

// NotApplicable marks a location field the operator's record layout does not carry.
const NotApplicable = "N/A"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type MonitoredEntry struct {
	ID                  int64     `json:"id"`
	Plate               string    `json:"plate"`
	MakeModel           string    `json:"makeModel,omitempty"`
	Color               string    `json:"color,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	Active              bool      `json:"active"`
	Note                string    `json:"note,omitempty"`
	InterestedParty     string    `json:"interestedParty,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	PersonalDestination string    `json:"personalDestination,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DetectionEvent is one decoded sensor record. Date carries only the calendar day,
// Time only the time of day.
type DetectionEvent struct {
	Operator  string
	Date      time.Time
	Time      time.Time
	Plate     string
	Plaza     string
	Highway   string
	Km        string
	Direction string
}

type ConfirmedAlert struct {
	ID               int64
	Operator         string
	Date             time.Time
	Time             time.Time
	Plate            string
	Plaza            string
	Highway          string
	Km               string
	Direction        string
	MonitoredEntryID int64
	MonitoredEntry   *MonitoredEntry
	ConfirmedAt      time.Time
}

// NewConfirmedAlert copies the detection into an alert referencing entry.
// ID and ConfirmedAt are assigned by the store.
func NewConfirmedAlert(ev *DetectionEvent, entry *MonitoredEntry) *ConfirmedAlert {
	return &ConfirmedAlert{
		Operator:         ev.Operator,
		Date:             ev.Date,
		Time:             ev.Time,
		Plate:            ev.Plate,
		Plaza:            ev.Plaza,
		Highway:          ev.Highway,
		Km:               ev.Km,
		Direction:        ev.Direction,
		MonitoredEntryID: entry.ID,
		MonitoredEntry:   entry,
	}
}

// AlertMessage is the confirmation document republished downstream.
type AlertMessage struct {
	ID             int64           `json:"id"`
	Operator       string          `json:"operator"`
	Date           string          `json:"date"`
	Time           string          `json:"time"`
	Plate          string          `json:"plate"`
	Plaza          string          `json:"plaza"`
	Highway        string          `json:"highway"`
	Km             string          `json:"km"`
	Direction      string          `json:"direction"`
	ConfirmedAt    time.Time       `json:"confirmedAt"`
	MonitoredEntry *MonitoredEntry `json:"monitoredEntry,omitempty"`
}

func NewAlertMessage(a *ConfirmedAlert) AlertMessage {
	return AlertMessage{
		ID:             a.ID,
		Operator:       a.Operator,
		Date:           a.Date.Format(DateLayout),
		Time:           a.Time.Format(TimeLayout),
		Plate:          a.Plate,
		Plaza:          a.Plaza,
		Highway:        a.Highway,
		Km:             a.Km,
		Direction:      a.Direction,
		ConfirmedAt:    a.ConfirmedAt,
		MonitoredEntry: a.MonitoredEntry,
	}
}

// IsValid reports whether v carries useful information: not blank and not "N/A".
func IsValid(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, NotApplicable)
}
