package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// OpenChartInput opens a chart session for a viewer. Opened receives the new
// session when the command succeeds.
type OpenChartInput struct {
	Request revenue.OpenRequest
	Opened  func(*revenue.Session)
}

type openService interface {
	Open(ctx context.Context, req revenue.OpenRequest) (*revenue.Session, error)
}

// OpenChartCommand mounts a revenue chart for a viewer.
type OpenChartCommand struct {
	service   openService
	telemetry Telemetry
}

// NewOpenChartCommand creates the command.
func NewOpenChartCommand(service openService, telemetry Telemetry) *OpenChartCommand {
	return &OpenChartCommand{service: service, telemetry: telemetryOrDiscard(telemetry)}
}

var _ gocommand.Commander[OpenChartInput] = (*OpenChartCommand)(nil)

// Execute delegates to the revenue service.
func (c *OpenChartCommand) Execute(ctx context.Context, msg OpenChartInput) error {
	if c.service == nil {
		return errors.New("open command requires service")
	}
	session, err := c.service.Open(ctx, msg.Request)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, EventSessionOpen, map[string]any{
		"session": session.ID,
		"user_id": msg.Request.Viewer.UserID,
		"state":   session.Controller.State().String(),
	})
	if msg.Opened != nil {
		msg.Opened(session)
	}
	return nil
}
