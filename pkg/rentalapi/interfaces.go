package rentalapi

import (
	"context"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// YearlyQuery narrows the years requested from the rental backend.
type YearlyQuery struct {
	Years []string
}

// RevenueClient fetches yearly revenue reports from the rental backend.
type RevenueClient interface {
	FetchYearlyRevenue(ctx context.Context, query YearlyQuery) (*revenue.DatasetDocument, error)
}
