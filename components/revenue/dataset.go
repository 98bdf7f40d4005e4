package revenue

import (
	"context"
	"errors"
	"fmt"
)

// MonthsPerYear is the number of samples every year bucket carries.
const MonthsPerYear = 12

var (
	// ErrEmptyDataset reports a dataset without any year buckets.
	ErrEmptyDataset = errors.New("revenue: dataset has no years")
	// ErrUnknownYear reports a lookup for a year that is not part of the dataset.
	ErrUnknownYear = errors.New("revenue: unknown year")
)

// RevenueSample is a single month of revenue.
type RevenueSample struct {
	Month   string  `json:"month" yaml:"month"`
	Revenue float64 `json:"revenue" yaml:"revenue"`
}

// YearBucket holds one year of chronologically ordered samples.
type YearBucket struct {
	Year    string          `json:"year" yaml:"year"`
	Samples []RevenueSample `json:"samples" yaml:"samples"`
}

// Total sums the revenue of every sample in the bucket.
func (b YearBucket) Total() float64 {
	var total float64
	for _, sample := range b.Samples {
		total += sample.Revenue
	}
	return total
}

// Dataset maps years to their monthly revenue. Bucket order drives the order of
// the year selector, and CurrentYear (when valid) is the default selection.
type Dataset struct {
	Buckets          []YearBucket `json:"years" yaml:"years"`
	PriorGrossIncome float64      `json:"prior_gross_income" yaml:"prior_gross_income"`
	CurrentYear      string       `json:"current_year,omitempty" yaml:"current_year,omitempty"`
}

// DatasetSource provides the dataset consumed by chart sessions.
type DatasetSource interface {
	LoadDataset(ctx context.Context) (Dataset, error)
}

// DatasetSourceFunc adapts a function into a DatasetSource.
type DatasetSourceFunc func(ctx context.Context) (Dataset, error)

// LoadDataset implements DatasetSource.
func (fn DatasetSourceFunc) LoadDataset(ctx context.Context) (Dataset, error) {
	return fn(ctx)
}

// Empty reports whether the dataset has no years.
func (d Dataset) Empty() bool {
	return len(d.Buckets) == 0
}

// Years returns the year keys in dataset order.
func (d Dataset) Years() []string {
	years := make([]string, len(d.Buckets))
	for i, bucket := range d.Buckets {
		years[i] = bucket.Year
	}
	return years
}

// Has reports whether year is a key of the dataset.
func (d Dataset) Has(year string) bool {
	_, ok := d.Bucket(year)
	return ok
}

// Bucket returns the bucket for year.
func (d Dataset) Bucket(year string) (YearBucket, bool) {
	for _, bucket := range d.Buckets {
		if bucket.Year == year {
			return bucket, true
		}
	}
	return YearBucket{}, false
}

// Samples returns a copy of the samples for year.
func (d Dataset) Samples(year string) ([]RevenueSample, error) {
	bucket, ok := d.Bucket(year)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownYear, year)
	}
	return append([]RevenueSample(nil), bucket.Samples...), nil
}

// DefaultYear returns the explicit CurrentYear when it is a dataset key and the
// first bucket otherwise. It returns "" for an empty dataset.
func (d Dataset) DefaultYear() string {
	if d.CurrentYear != "" && d.Has(d.CurrentYear) {
		return d.CurrentYear
	}
	if d.Empty() {
		return ""
	}
	return d.Buckets[0].Year
}

// Total computes the derived total for year. Unknown years total zero.
func (d Dataset) Total(year string) float64 {
	bucket, ok := d.Bucket(year)
	if !ok {
		return 0
	}
	return bucket.Total()
}

// Validate checks the structural contract of the dataset: unique, non-empty
// year keys with exactly twelve samples each.
func (d Dataset) Validate() error {
	if d.Empty() {
		return ErrEmptyDataset
	}
	seen := make(map[string]struct{}, len(d.Buckets))
	for idx, bucket := range d.Buckets {
		if bucket.Year == "" {
			return fmt.Errorf("revenue: year bucket at index %d is missing its year", idx)
		}
		if _, exists := seen[bucket.Year]; exists {
			return fmt.Errorf("revenue: dataset duplicates year %s", bucket.Year)
		}
		seen[bucket.Year] = struct{}{}
		if len(bucket.Samples) != MonthsPerYear {
			return fmt.Errorf("revenue: year %s has %d samples, expected %d", bucket.Year, len(bucket.Samples), MonthsPerYear)
		}
	}
	if d.CurrentYear != "" && !d.Has(d.CurrentYear) {
		return fmt.Errorf("revenue: current year %s is not in the dataset", d.CurrentYear)
	}
	return nil
}

// Clone returns a deep copy so callers can hand datasets to controllers
// without sharing sample slices.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		PriorGrossIncome: d.PriorGrossIncome,
		CurrentYear:      d.CurrentYear,
		Buckets:          make([]YearBucket, len(d.Buckets)),
	}
	for i, bucket := range d.Buckets {
		out.Buckets[i] = YearBucket{
			Year:    bucket.Year,
			Samples: append([]RevenueSample(nil), bucket.Samples...),
		}
	}
	return out
}

// NewStaticDatasetSource returns a source that always serves a copy of dataset.
func NewStaticDatasetSource(dataset Dataset) DatasetSource {
	return staticDatasetSource{dataset: dataset.Clone()}
}

type staticDatasetSource struct {
	dataset Dataset
}

func (s staticDatasetSource) LoadDataset(context.Context) (Dataset, error) {
	return s.dataset.Clone(), nil
}
