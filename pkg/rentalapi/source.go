package rentalapi

import (
	"context"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// NewDatasetSource adapts a RevenueClient into a revenue.DatasetSource that
// requests query on every load.
func NewDatasetSource(client RevenueClient, query YearlyQuery) revenue.DatasetSource {
	return &datasetSource{client: client, query: query}
}

type datasetSource struct {
	client RevenueClient
	query  YearlyQuery
}

func (s *datasetSource) LoadDataset(ctx context.Context) (revenue.Dataset, error) {
	doc, err := s.client.FetchYearlyRevenue(ctx, s.query)
	if err != nil {
		return revenue.Dataset{}, err
	}
	return doc.Dataset(), nil
}
