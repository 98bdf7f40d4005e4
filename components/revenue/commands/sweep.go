package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// SweepSessionsInput triggers an idle session sweep.
type SweepSessionsInput struct{}

type sessionSweeper interface {
	Sweep(ctx context.Context) int
}

// SweepSessionsCommand unmounts idle chart sessions on demand.
type SweepSessionsCommand struct {
	sessions  sessionSweeper
	telemetry Telemetry
}

// NewSweepSessionsCommand wires dependencies.
func NewSweepSessionsCommand(sessions sessionSweeper, telemetry Telemetry) *SweepSessionsCommand {
	return &SweepSessionsCommand{sessions: sessions, telemetry: telemetryOrDiscard(telemetry)}
}

var _ gocommand.Commander[SweepSessionsInput] = (*SweepSessionsCommand)(nil)

// Execute runs one sweep.
func (c *SweepSessionsCommand) Execute(ctx context.Context, _ SweepSessionsInput) error {
	if c.sessions == nil {
		return errors.New("sweep command requires sessions")
	}
	closed := c.sessions.Sweep(ctx)
	c.telemetry.Record(ctx, EventSessionSweep, map[string]any{"closed": closed})
	return nil
}
