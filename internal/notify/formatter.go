package notify

import (
	"fmt"
	"html"
	"strings"

	"radar-watch-service/internal/domain/anpr"
)

const (
	displayDateLayout = "02/01/2006"
	displayTimeLayout = "15:04:05"
)

// Style controls how emphasized and literal values are rendered for a channel.
type Style struct {
	Bold   func(string) string
	Escape func(string) string
}

// HTML renders for Telegram's parse_mode=HTML.
var HTML = Style{
	Bold:   func(s string) string { return "<b>" + s + "</b>" },
	Escape: html.EscapeString,
}

// Plain renders for the chat gateway, which understands *bold* markers only.
var Plain = Style{
	Bold:   func(s string) string { return "*" + s + "*" },
	Escape: func(s string) string { return s },
}

// Format renders a in the broadcast (HTML) style.
func Format(a *anpr.ConfirmedAlert) string {
	return Render(a, HTML)
}

// Render builds the notification text for a. Lines whose content is not valid
// (blank or N/A) are left out instead of printed empty.
func Render(a *anpr.ConfirmedAlert, st Style) string {
	esc := st.Escape
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 %s 🚨\n", st.Bold("Concessionária "+esc(a.Operator)))
	fmt.Fprintf(&b, "🗓️ Data: %s\n", a.Date.Format(displayDateLayout))
	fmt.Fprintf(&b, "⏰ Horário: %s\n", a.Time.Format(displayTimeLayout))
	fmt.Fprintf(&b, "🚨 Placa: %s\n", st.Bold(esc(a.Plate)))

	entry := a.MonitoredEntry
	if entry == nil {
		entry = &anpr.MonitoredEntry{}
	}

	if d := Descriptor(entry); d != "" {
		fmt.Fprintf(&b, "🚗 Marca/Modelo: %s\n", esc(d))
	}
	if loc := Location(a); loc != "" {
		fmt.Fprintf(&b, "📍 Local: %s\n", esc(loc))
	}

	var tail []string
	if anpr.IsValid(entry.Reason) {
		tail = append(tail, "⚠️ Motivo: "+esc(strings.TrimSpace(entry.Reason)))
	}
	if anpr.IsValid(entry.InterestedParty) {
		tail = append(tail, "👤 Interessado: "+esc(strings.TrimSpace(entry.InterestedParty)))
	}
	if len(tail) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(tail, "\n"))
	}

	return strings.TrimRight(b.String(), "\n")
}

// Descriptor joins make/model and color with ", ", skipping invalid values.
func Descriptor(e *anpr.MonitoredEntry) string {
	return joinValid(", ", e.MakeModel, e.Color)
}

// Location joins highway, km, direction and plaza with " - " in that order,
// skipping invalid values.
func Location(a *anpr.ConfirmedAlert) string {
	parts := make([]string, 0, 4)
	if anpr.IsValid(a.Highway) {
		parts = append(parts, strings.TrimSpace(a.Highway))
	}
	if anpr.IsValid(a.Km) {
		parts = append(parts, "km "+strings.TrimSpace(a.Km))
	}
	if anpr.IsValid(a.Direction) {
		parts = append(parts, "Sentido: "+strings.TrimSpace(a.Direction))
	}
	if anpr.IsValid(a.Plaza) {
		parts = append(parts, strings.TrimSpace(a.Plaza))
	}
	return strings.Join(parts, " - ")
}

// PersonalPrefix is the first line of a personal-channel notification.
func PersonalPrefix(interestedParty string) string {
	if !anpr.IsValid(interestedParty) {
		return "Alerta Veículo Monitorado!\n\n"
	}
	return "Alerta Veículo Monitorado - " + strings.TrimSpace(interestedParty) + "!\n\n"
}

func joinValid(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if anpr.IsValid(v) {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, sep)
}
