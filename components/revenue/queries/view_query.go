package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// ChartViewInput identifies the session whose chart card is requested.
type ChartViewInput struct {
	SessionID string
}

type viewService interface {
	ViewModel(sessionID string) (revenue.ViewModel, error)
}

// ChartViewQuery resolves the view model of a chart session.
type ChartViewQuery struct {
	service viewService
}

// NewChartViewQuery builds the query.
func NewChartViewQuery(service viewService) *ChartViewQuery {
	return &ChartViewQuery{service: service}
}

var _ gocommand.Querier[ChartViewInput, revenue.ViewModel] = (*ChartViewQuery)(nil)

// Query builds the view model for the session.
func (q *ChartViewQuery) Query(ctx context.Context, input ChartViewInput) (revenue.ViewModel, error) {
	if err := ctx.Err(); err != nil {
		return revenue.ViewModel{}, err
	}
	return q.service.ViewModel(input.SessionID)
}
