package rentalapi

import (
	"context"
	"sync"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// MockClient implements RevenueClient using an in-memory dataset, for tests
// and local demos.
type MockClient struct {
	mu      sync.RWMutex
	dataset revenue.Dataset
	err     error
}

// NewMockClient builds a mock client serving dataset.
func NewMockClient(dataset revenue.Dataset) *MockClient {
	return &MockClient{dataset: dataset.Clone()}
}

// SetDataset replaces the served dataset.
func (c *MockClient) SetDataset(dataset revenue.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = dataset.Clone()
}

// SetError makes every subsequent fetch fail with err.
func (c *MockClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// FetchYearlyRevenue returns the configured dataset narrowed to query.Years.
func (c *MockClient) FetchYearlyRevenue(_ context.Context, query YearlyQuery) (*revenue.DatasetDocument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	doc := revenue.NewDatasetDocument(c.dataset)
	if len(query.Years) == 0 {
		return doc, nil
	}
	wanted := make(map[string]struct{}, len(query.Years))
	for _, year := range query.Years {
		wanted[year] = struct{}{}
	}
	filtered := doc.Years[:0]
	for _, bucket := range doc.Years {
		if _, ok := wanted[bucket.Year]; ok {
			filtered = append(filtered, bucket)
		}
	}
	doc.Years = filtered
	if _, ok := wanted[doc.CurrentYear]; !ok {
		doc.CurrentYear = ""
	}
	return doc, nil
}
