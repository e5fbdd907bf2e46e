package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"radar-watch-service/internal/domain/anpr"
)

func sampleAlert() *anpr.ConfirmedAlert {
	return &anpr.ConfirmedAlert{
		ID:        7,
		Operator:  "CCR",
		Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Time:      time.Date(0, 1, 1, 8, 15, 30, 0, time.UTC),
		Plate:     "ABC1D23",
		Plaza:     "Praça 1",
		Highway:   "SP-280",
		Km:        "45",
		Direction: "Norte",
		MonitoredEntry: &anpr.MonitoredEntry{
			ID:              3,
			Plate:           "ABC1D23",
			MakeModel:       "VW Gol",
			Color:           "Prata",
			Reason:          "Furto",
			Active:          true,
			InterestedParty: "João",
		},
	}
}

func TestFormat_FullAlert(t *testing.T) {
	want := "🚨 <b>Concessionária CCR</b> 🚨\n" +
		"🗓️ Data: 14/03/2025\n" +
		"⏰ Horário: 08:15:30\n" +
		"🚨 Placa: <b>ABC1D23</b>\n" +
		"🚗 Marca/Modelo: VW Gol, Prata\n" +
		"📍 Local: SP-280 - km 45 - Sentido: Norte - Praça 1\n" +
		"\n" +
		"⚠️ Motivo: Furto\n" +
		"👤 Interessado: João"

	assert.Equal(t, want, Format(sampleAlert()))
}

func TestFormat_OmitsInvalidFields(t *testing.T) {
	a := sampleAlert()
	a.Plaza = anpr.NotApplicable
	a.Km = ""
	a.Direction = "n/a"
	a.MonitoredEntry.MakeModel = "N/A"
	a.MonitoredEntry.Color = "   "
	a.MonitoredEntry.Reason = ""
	a.MonitoredEntry.InterestedParty = "N/A"

	got := Format(a)

	assert.Contains(t, got, "📍 Local: SP-280")
	assert.NotContains(t, got, "km")
	assert.NotContains(t, got, "Sentido")
	assert.NotContains(t, got, "Marca/Modelo")
	assert.NotContains(t, got, "Motivo")
	assert.NotContains(t, got, "Interessado")
	assert.NotContains(t, got, "N/A")
	assert.NotContains(t, got, "\n\n")
}

func TestFormat_PartialDescriptor(t *testing.T) {
	a := sampleAlert()
	a.MonitoredEntry.MakeModel = ""
	assert.Contains(t, Format(a), "🚗 Marca/Modelo: Prata\n")

	a.MonitoredEntry.MakeModel = "Fiat Uno"
	a.MonitoredEntry.Color = "n/A"
	assert.Contains(t, Format(a), "🚗 Marca/Modelo: Fiat Uno\n")
}

func TestFormat_NoLocation(t *testing.T) {
	a := sampleAlert()
	a.Plaza, a.Highway, a.Km, a.Direction = "N/A", "N/A", "N/A", "N/A"
	assert.NotContains(t, Format(a), "Local")
}

func TestFormat_EscapesHTML(t *testing.T) {
	a := sampleAlert()
	a.Plate = "A<B>"
	a.MonitoredEntry.Reason = "roubo & furto"

	got := Format(a)
	assert.Contains(t, got, "<b>A&lt;B&gt;</b>")
	assert.Contains(t, got, "⚠️ Motivo: roubo &amp; furto")
}

func TestFormat_WithoutEntry(t *testing.T) {
	a := sampleAlert()
	a.MonitoredEntry = nil

	got := Format(a)
	assert.Contains(t, got, "🚨 Placa: <b>ABC1D23</b>")
	assert.NotContains(t, got, "Motivo")
}

func TestRender_Plain(t *testing.T) {
	got := Render(sampleAlert(), Plain)
	assert.Contains(t, got, "🚨 *Concessionária CCR* 🚨\n")
	assert.Contains(t, got, "🚨 Placa: *ABC1D23*\n")
	assert.NotContains(t, got, "<b>")
}

func TestLocation_Order(t *testing.T) {
	a := &anpr.ConfirmedAlert{Highway: "BR-101", Km: "12,5", Direction: "Sul", Plaza: "N/A"}
	assert.Equal(t, "BR-101 - km 12,5 - Sentido: Sul", Location(a))

	a = &anpr.ConfirmedAlert{Highway: " ", Km: "N/A", Direction: "Sentido Norte", Plaza: "Praça Itu"}
	assert.Equal(t, "Sentido: Sentido Norte - Praça Itu", Location(a))
}

func TestPersonalPrefix(t *testing.T) {
	assert.Equal(t, "Alerta Veículo Monitorado - Maria!\n\n", PersonalPrefix(" Maria "))
	assert.Equal(t, "Alerta Veículo Monitorado!\n\n", PersonalPrefix("N/A"))
}
