package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// SelectYearInput switches the year a session displays.
type SelectYearInput struct {
	SessionID string
	Year      string
}

type selectYearService interface {
	SelectYear(ctx context.Context, sessionID, year string) (bool, error)
}

// SelectYearCommand changes the selected year of a chart session.
type SelectYearCommand struct {
	service   selectYearService
	telemetry Telemetry
}

// NewSelectYearCommand creates the command.
func NewSelectYearCommand(service selectYearService, telemetry Telemetry) *SelectYearCommand {
	return &SelectYearCommand{service: service, telemetry: telemetryOrDiscard(telemetry)}
}

var _ gocommand.Commander[SelectYearInput] = (*SelectYearCommand)(nil)

// Execute returns revenue.ErrUnknownYear when the year is not in the dataset.
func (c *SelectYearCommand) Execute(ctx context.Context, msg SelectYearInput) error {
	if c.service == nil {
		return errors.New("select year command requires service")
	}
	ok, err := c.service.SelectYear(ctx, msg.SessionID, msg.Year)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", revenue.ErrUnknownYear, msg.Year)
	}
	c.telemetry.Record(ctx, EventSessionSelectYear, map[string]any{
		"session": msg.SessionID,
		"year":    msg.Year,
	})
	return nil
}
