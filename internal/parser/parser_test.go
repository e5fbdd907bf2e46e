package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radar-watch-service/internal/domain/anpr"
)

func TestParse_LongForm(t *testing.T) {
	p := New()

	ev, err := p.Parse("cart|2024-03-15|14:05:09|abc1d23|Praca Ourinhos|SP-270|112|Leste")
	require.NoError(t, err)

	assert.Equal(t, "CART", ev.Operator)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ev.Date)
	assert.Equal(t, "14:05:09", ev.Time.Format(anpr.TimeLayout))
	assert.Equal(t, "ABC1D23", ev.Plate)
	assert.Equal(t, "Praca Ourinhos", ev.Plaza)
	assert.Equal(t, "SP-270", ev.Highway)
	assert.Equal(t, "112", ev.Km)
	assert.Equal(t, "Leste", ev.Direction)
}

func TestParse_ShortForm(t *testing.T) {
	p := New()

	ev, err := p.Parse("Rondon|2024-03-15|08:00:00|XYZ9876|SP-300|450|Oeste")
	require.NoError(t, err)

	assert.Equal(t, "RONDON", ev.Operator)
	assert.Equal(t, anpr.NotApplicable, ev.Plaza)
	assert.Equal(t, "SP-300", ev.Highway)
	assert.Equal(t, "450", ev.Km)
	assert.Equal(t, "Oeste", ev.Direction)
}

func TestParse_MissingLocationFieldsDefault(t *testing.T) {
	p := New()

	ev, err := p.Parse("EIXO|2024-03-15|08:00:00|XYZ9876")
	require.NoError(t, err)
	assert.Equal(t, anpr.NotApplicable, ev.Plaza)
	assert.Equal(t, anpr.NotApplicable, ev.Highway)
	assert.Equal(t, anpr.NotApplicable, ev.Km)
	assert.Equal(t, anpr.NotApplicable, ev.Direction)

	ev, err = p.Parse("EIXO|2024-03-15|08:00:00|XYZ9876||SP-225|30|Sul")
	require.NoError(t, err)
	assert.Equal(t, anpr.NotApplicable, ev.Plaza)
	assert.Equal(t, "SP-225", ev.Highway)
	assert.Equal(t, "30", ev.Km)
	assert.Equal(t, "Sul", ev.Direction)
}

func TestParse_TruncatedRecordHasNoLocation(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		raw  string
	}{
		{"long form with seven fields", "CART|2024-03-10|14:22:05|ABC1D23|SP-270|123|Norte"},
		{"long form with six fields", "CART|2024-03-10|14:22:05|ABC1D23|SP-270|123"},
		{"short form with six fields", "RONDON|2024-03-10|14:22:05|ABC1D23|SP-300|450"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := p.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, "ABC1D23", ev.Plate)
			assert.Equal(t, anpr.NotApplicable, ev.Plaza)
			assert.Equal(t, anpr.NotApplicable, ev.Highway)
			assert.Equal(t, anpr.NotApplicable, ev.Km)
			assert.Equal(t, anpr.NotApplicable, ev.Direction)
		})
	}
}

func TestParse_TimeVariants(t *testing.T) {
	p := New()

	ev, err := p.Parse("CART|2024-03-15|14:05|ABC1D23")
	require.NoError(t, err)
	assert.Equal(t, "14:05:00", ev.Time.Format(anpr.TimeLayout))

	ev, err = p.Parse("CART|2024-03-15|14:05:09.250|ABC1D23")
	require.NoError(t, err)
	assert.Equal(t, "14:05:09", ev.Time.Format(anpr.TimeLayout))
}

func TestParse_Errors(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrTooFewFields},
		{"three fields", "CART|2024-03-15|14:05:09", ErrTooFewFields},
		{"bad date", "CART|15/03/2024|14:05:09|ABC1D23", ErrInvalidDate},
		{"bad time", "CART|2024-03-15|2pm|ABC1D23", ErrInvalidTime},
		{"out of range time", "CART|2024-03-15|25:00:00|ABC1D23", ErrInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := p.Parse(tt.raw)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_NewOperatorLayout(t *testing.T) {
	p := New()
	p.Register("viaoeste", Layout{Name: "viaoeste", Fields: 6, Plaza: absent, Highway: 4, Km: absent, Direction: 5})

	ev, err := p.Parse("VIAOESTE|2024-03-15|10:00:00|ABC1D23|SP-280|Capital")
	require.NoError(t, err)
	assert.Equal(t, "SP-280", ev.Highway)
	assert.Equal(t, "Capital", ev.Direction)
	assert.Equal(t, anpr.NotApplicable, ev.Km)

	// existing layouts untouched
	ev, err = p.Parse("RONDON|2024-03-15|08:00:00|XYZ9876|SP-300|450|Oeste")
	require.NoError(t, err)
	assert.Equal(t, "450", ev.Km)
}
