package commands

import revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"

// Events recorded by the session commands.
const (
	EventSessionOpen       = "revenue.session.open"
	EventSessionClose      = "revenue.session.close"
	EventSessionSelectYear = "revenue.session.select_year"
	EventSessionSweep      = "revenue.session.sweep"
)

// Telemetry is the same sink the chart controllers record to, so a host can
// hand one recorder to both layers.
type Telemetry = revenue.Telemetry

func telemetryOrDiscard(t Telemetry) Telemetry {
	if t == nil {
		return revenue.DiscardTelemetry
	}
	return t
}
