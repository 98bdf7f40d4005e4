package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// CloseChartInput unmounts a chart session.
type CloseChartInput struct {
	SessionID string
}

type closeService interface {
	Close(ctx context.Context, sessionID string) error
}

// CloseChartCommand disposes the chart of a session and forgets it.
type CloseChartCommand struct {
	service   closeService
	telemetry Telemetry
}

// NewCloseChartCommand creates the command.
func NewCloseChartCommand(service closeService, telemetry Telemetry) *CloseChartCommand {
	return &CloseChartCommand{service: service, telemetry: telemetryOrDiscard(telemetry)}
}

var _ gocommand.Commander[CloseChartInput] = (*CloseChartCommand)(nil)

// Execute delegates to the revenue service.
func (c *CloseChartCommand) Execute(ctx context.Context, msg CloseChartInput) error {
	if c.service == nil {
		return errors.New("close command requires service")
	}
	if err := c.service.Close(ctx, msg.SessionID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventSessionClose, map[string]any{"session": msg.SessionID})
	return nil
}
