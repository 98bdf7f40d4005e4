package revenue

var monthLabels = [MonthsPerYear]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthLabels returns the default x-axis categories in calendar order.
func MonthLabels() []string {
	return append([]string(nil), monthLabels[:]...)
}

// NewYearBucket pairs the default month labels with twelve revenue values.
// Missing values are zero and extra values are ignored.
func NewYearBucket(year string, values ...float64) YearBucket {
	samples := make([]RevenueSample, MonthsPerYear)
	for i, month := range monthLabels {
		samples[i].Month = month
		if i < len(values) {
			samples[i].Revenue = values[i]
		}
	}
	return YearBucket{Year: year, Samples: samples}
}

// DemoDataset is the rental revenue dataset served when no source is configured.
func DemoDataset() Dataset {
	return Dataset{
		CurrentYear:      "2025",
		PriorGrossIncome: 100000,
		Buckets: []YearBucket{
			NewYearBucket("2024",
				8000, 8500, 9000, 9500, 10000, 10000,
				10500, 10500, 11000, 11000, 11000, 11000,
			),
			NewYearBucket("2025",
				10000, 11000, 11500, 12000, 12500, 12500,
				13000, 13000, 13500, 13500, 13750, 13750,
			),
		},
	}
}
