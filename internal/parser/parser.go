// Package parser decodes pipe-delimited detection records into anpr.DetectionEvent.
//
// Records start with operator|date|time|plate. The location fields that follow depend
// on the operator and are described by a Layout registered under the operator code.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"radar-watch-service/internal/domain/anpr"
	"radar-watch-service/internal/utils"
)

const (
	separator = "|"
	minFields = 4
)

var (
	ErrTooFewFields = errors.New("too few fields")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidTime  = errors.New("invalid time")
)

// absent marks a location field that a layout does not carry.
const absent = -1

// Layout maps location fields to their zero-based position in the record. A record
// with fewer than Fields fields carries no location at all.
type Layout struct {
	Name      string
	Fields    int
	Plaza     int
	Highway   int
	Km        int
	Direction int
}

var (
	// LongForm: operator|date|time|plate|plaza|highway|km|direction
	LongForm = Layout{Name: "long", Fields: 8, Plaza: 4, Highway: 5, Km: 6, Direction: 7}
	// ShortForm: operator|date|time|plate|highway|km|direction
	ShortForm = Layout{Name: "short", Fields: 7, Plaza: absent, Highway: 4, Km: 5, Direction: 6}
)

var timeLayouts = []string{"15:04:05", "15:04"}

type Parser struct {
	mu       sync.RWMutex
	layouts  map[string]Layout
	fallback Layout
}

// New returns a parser with the known operator layouts. Operators without a
// registered layout use LongForm.
func New() *Parser {
	p := &Parser{
		layouts:  make(map[string]Layout),
		fallback: LongForm,
	}
	p.Register("RONDON", ShortForm)
	return p
}

// Register sets the layout for an operator code (case-insensitive).
func (p *Parser) Register(operator string, layout Layout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.layouts[strings.ToUpper(strings.TrimSpace(operator))] = layout
}

func (p *Parser) layoutFor(operator string) Layout {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if l, ok := p.layouts[operator]; ok {
		return l
	}
	return p.fallback
}

func (p *Parser) Parse(raw string) (*anpr.DetectionEvent, error) {
	parts := strings.Split(strings.TrimSpace(raw), separator)
	if len(parts) < minFields {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewFields, len(parts), minFields)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	operator := strings.ToUpper(parts[0])

	date, err := time.Parse(anpr.DateLayout, parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDate, parts[1], err)
	}

	tod, err := parseTimeOfDay(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTime, parts[2], err)
	}

	ev := &anpr.DetectionEvent{
		Operator:  operator,
		Date:      date,
		Time:      tod,
		Plate:     utils.NormalizePlate(parts[3]),
		Plaza:     anpr.NotApplicable,
		Highway:   anpr.NotApplicable,
		Km:        anpr.NotApplicable,
		Direction: anpr.NotApplicable,
	}

	// A truncated record cannot be mapped positionally without shifting fields.
	if layout := p.layoutFor(operator); len(parts) >= layout.Fields {
		ev.Plaza = field(parts, layout.Plaza)
		ev.Highway = field(parts, layout.Highway)
		ev.Km = field(parts, layout.Km)
		ev.Direction = field(parts, layout.Direction)
	}
	return ev, nil
}

func parseTimeOfDay(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func field(parts []string, idx int) string {
	if idx == absent || idx >= len(parts) || parts[idx] == "" {
		return anpr.NotApplicable
	}
	return parts[idx]
}
