package rentalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// HTTPConfig configures the HTTP rental API client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient reads revenue reports from the rental backend's REST API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	validator *revenue.DatasetValidator
}

// NewHTTPClient builds a client for the rental backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rentalapi: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		client:    httpClient,
		validator: &revenue.DatasetValidator{},
	}, nil
}

// FetchYearlyRevenue implements RevenueClient by calling the yearly revenue
// endpoint. The response is validated like a dataset file.
func (c *HTTPClient) FetchYearlyRevenue(ctx context.Context, query YearlyQuery) (*revenue.DatasetDocument, error) {
	params := url.Values{}
	if len(query.Years) > 0 {
		params.Set("years", strings.Join(query.Years, ","))
	}
	var resp yearlyResponse
	if err := c.get(ctx, "/revenue/yearly", params, &resp); err != nil {
		return nil, err
	}
	doc := resp.toDocument()
	if err := c.validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("rentalapi: invalid yearly revenue: %w", err)
	}
	return doc, nil
}

// LoadDataset implements revenue.DatasetSource for every year on record.
func (c *HTTPClient) LoadDataset(ctx context.Context) (revenue.Dataset, error) {
	doc, err := c.FetchYearlyRevenue(ctx, YearlyQuery{})
	if err != nil {
		return revenue.Dataset{}, err
	}
	return doc.Dataset(), nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("rentalapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rentalapi: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("rentalapi: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("rentalapi: decode response: %w", err)
	}
	return nil
}

type monthlyRevenue struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

type yearlyRevenue struct {
	Year   string           `json:"year"`
	Months []monthlyRevenue `json:"months"`
}

type yearlyResponse struct {
	CurrentYear      string          `json:"current_year"`
	PriorGrossIncome float64         `json:"prior_gross_income"`
	Years            []yearlyRevenue `json:"years"`
}

func (r yearlyResponse) toDocument() *revenue.DatasetDocument {
	buckets := make([]revenue.YearBucket, len(r.Years))
	for i, year := range r.Years {
		samples := make([]revenue.RevenueSample, len(year.Months))
		for j, month := range year.Months {
			samples[j] = revenue.RevenueSample{Month: month.Month, Revenue: month.Amount}
		}
		buckets[i] = revenue.YearBucket{Year: year.Year, Samples: samples}
	}
	return &revenue.DatasetDocument{
		Version:          revenue.DatasetVersion,
		CurrentYear:      r.CurrentYear,
		PriorGrossIncome: r.PriorGrossIncome,
		Years:            buckets,
	}
}
