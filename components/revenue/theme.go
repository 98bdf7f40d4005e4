package revenue

import (
	"strings"

	"github.com/go-echarts/go-echarts/v2/types"
)

// ThemeResolver selects a chart theme per viewer.
type ThemeResolver func(ViewerContext) string

// ChartColors is the palette applied on top of the chart theme.
type ChartColors struct {
	Bar              string
	XAxisLabel       string
	YAxisLabel       string
	SplitLine        string
	SplitLineOpacity float32
}

// DefaultChartColors returns the dashboard palette: blue bars, slate axis
// labels and faint horizontal grid lines.
func DefaultChartColors() ChartColors {
	return ChartColors{
		Bar:              "#3B82F6",
		XAxisLabel:       "#64748B",
		YAxisLabel:       "#94A3B8",
		SplitLine:        "#000000",
		SplitLineOpacity: 0.05,
	}
}

func (c ChartColors) merge(override ChartColors) ChartColors {
	if override.Bar != "" {
		c.Bar = override.Bar
	}
	if override.XAxisLabel != "" {
		c.XAxisLabel = override.XAxisLabel
	}
	if override.YAxisLabel != "" {
		c.YAxisLabel = override.YAxisLabel
	}
	if override.SplitLine != "" {
		c.SplitLine = override.SplitLine
	}
	if override.SplitLineOpacity > 0 {
		c.SplitLineOpacity = override.SplitLineOpacity
	}
	return c
}

// ThemeForVariant maps a UI variant to a go-echarts theme. Unknown variants
// return "".
func ThemeForVariant(variant string) string {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case "dark":
		return types.ThemeWonderland
	case "light":
		return types.ThemeWesteros
	default:
		return ""
	}
}
