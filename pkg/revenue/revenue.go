package revenue

import (
	core "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

// Service exposes the underlying components/revenue.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Dataset re-export for convenience.
type Dataset = core.Dataset

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewDefaultService builds a service serving dataset through the go-echarts
// engine and the embedded chart card template.
func NewDefaultService(dataset Dataset, opts Options) (*Service, error) {
	if opts.Source == nil {
		opts.Source = core.NewStaticDatasetSource(dataset)
	}
	if opts.Engine == nil {
		opts.Engine = core.NewEChartsEngine(core.WithEngineLogger(opts.Logger))
	}
	if opts.View == nil {
		renderer, err := core.NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		opts.View = core.NewView(renderer)
	}
	return core.NewService(opts), nil
}
