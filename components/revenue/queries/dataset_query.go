package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// DatasetInput requests the revenue dataset, optionally narrowed to one year.
type DatasetInput struct {
	Year string
}

// DatasetResult is the dataset together with the selected year's totals.
type DatasetResult struct {
	Dataset revenue.Dataset
	Year    string
	Samples []revenue.RevenueSample
	Total   float64
}

// DatasetQuery reads the dataset through a revenue.DatasetSource.
type DatasetQuery struct {
	source revenue.DatasetSource
}

// NewDatasetQuery builds the query.
func NewDatasetQuery(source revenue.DatasetSource) *DatasetQuery {
	return &DatasetQuery{source: source}
}

var _ gocommand.Querier[DatasetInput, DatasetResult] = (*DatasetQuery)(nil)

// Query loads the dataset. An empty year selects the dataset default; an
// unknown year returns revenue.ErrUnknownYear.
func (q *DatasetQuery) Query(ctx context.Context, input DatasetInput) (DatasetResult, error) {
	dataset, err := q.source.LoadDataset(ctx)
	if err != nil {
		return DatasetResult{}, err
	}
	year := input.Year
	if year == "" {
		year = dataset.DefaultYear()
	}
	samples, err := dataset.Samples(year)
	if err != nil {
		return DatasetResult{}, err
	}
	return DatasetResult{
		Dataset: dataset,
		Year:    year,
		Samples: samples,
		Total:   dataset.Total(year),
	}, nil
}
