package revenue

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"go.uber.org/zap"
)

// DefaultSeriesName names the single bar series of the revenue chart.
const DefaultSeriesName = "Revenue"

var errForeignHandle = errors.New("revenue: handle was not created by the echarts engine")

// EChartsEngine drives go-echarts bar charts as the revenue chart backend.
// Every handle owns its own *charts.Bar, so rebinding never rebuilds the
// chart configuration.
type EChartsEngine struct {
	cache         RenderCache
	theme         string
	themeResolver ThemeResolver
	assetsHost    string
	colors        ChartColors
	seriesName    string
	barWidth      string
	logger        *zap.Logger
}

// EChartsEngineOption customizes engine behavior.
type EChartsEngineOption func(*EChartsEngine)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.cache = cache
	}
}

// WithChartTheme sets a static theme (defaults to Westeros).
func WithChartTheme(theme string) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.theme = theme
	}
}

// WithChartThemeResolver resolves themes dynamically per viewer.
func WithChartThemeResolver(resolver ThemeResolver) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.themeResolver = resolver
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.assetsHost = assetsHost(host)
	}
}

// WithChartColors overrides parts of the default palette.
func WithChartColors(colors ChartColors) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.colors = e.colors.merge(colors)
	}
}

// WithSeriesName renames the bar series.
func WithSeriesName(name string) EChartsEngineOption {
	return func(e *EChartsEngine) {
		if name = strings.TrimSpace(name); name != "" {
			e.seriesName = name
		}
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *zap.Logger) EChartsEngineOption {
	return func(e *EChartsEngine) {
		e.logger = logger
	}
}

// NewEChartsEngine builds the go-echarts backed engine.
func NewEChartsEngine(options ...EChartsEngineOption) *EChartsEngine {
	e := &EChartsEngine{
		cache:      NewChartCache(DefaultRenderCacheTTL),
		theme:      types.ThemeWesteros,
		assetsHost: EChartsAssetsHost(),
		colors:     DefaultChartColors(),
		seriesName: DefaultSeriesName,
		barWidth:   "20%",
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = normalizeLogger(e.logger).Named("echarts")
	return e
}

type echartsRoot struct {
	mu    sync.Mutex
	bar   *charts.Bar
	theme string
}

// Initialize implements ChartEngine.
func (e *EChartsEngine) Initialize(ctx context.Context, target MountTarget) (*ChartHandle, error) {
	if target == nil {
		return nil, &MountError{Cause: ErrDetachedTarget}
	}
	if !target.Attached() {
		return nil, &MountError{Target: target.ID(), Cause: ErrDetachedTarget}
	}
	if err := ctx.Err(); err != nil {
		return nil, &MountError{Target: target.ID(), Cause: err}
	}

	viewer, _ := ViewerFromContext(ctx)
	theme := e.resolveTheme(viewer)
	width, height := targetDimensions(target)

	bar := charts.NewBar()
	bar.SetGlobalOptions(e.globalChartOptions(ChartElementID(target.ID()), theme, width, height)...)
	bar.SetXAxis([]string{})
	bar.AddSeries(e.seriesName, []opts.BarData{}, e.seriesOptions()...)

	handle := NewChartHandle(target.ID(), &echartsRoot{bar: bar, theme: theme})
	e.logger.Debug("chart initialized",
		zap.String("handle", handle.ID()),
		zap.String("target", target.ID()),
		zap.String("theme", theme),
	)
	return handle, nil
}

// BindData implements ChartEngine. Categories and values are swapped under
// the root lock so renders never observe a half-applied binding.
func (e *EChartsEngine) BindData(handle *ChartHandle, samples []RevenueSample) error {
	root, err := e.root(handle)
	if err != nil {
		return err
	}
	months := make([]string, len(samples))
	data := make([]opts.BarData, len(samples))
	for i, sample := range samples {
		months[i] = sample.Month
		data[i] = opts.BarData{Name: sample.Month, Value: sample.Revenue}
	}

	root.mu.Lock()
	defer root.mu.Unlock()
	if handle.Disposed() || root.bar == nil {
		return ErrStaleBind
	}
	root.bar.SetXAxis(months)
	// The chart's own validation only runs on the first render.
	root.bar.XAxisList[0].Data = months
	root.bar.MultiSeries[0].Data = data
	handle.Advance()
	return nil
}

// Dispose implements ChartEngine.
func (e *EChartsEngine) Dispose(handle *ChartHandle) error {
	root, err := e.root(handle)
	if err != nil {
		return err
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	if !handle.Release() {
		return ErrStaleBind
	}
	root.bar = nil
	if e.cache != nil {
		e.cache.EvictPrefix(handleCachePrefix(handle))
	}
	e.logger.Debug("chart disposed", zap.String("handle", handle.ID()))
	return nil
}

// RenderChart implements ChartRenderer. It writes the asset script tags, the
// chart element and its init script, suitable for embedding in a page.
func (e *EChartsEngine) RenderChart(handle *ChartHandle, w io.Writer) error {
	root, err := e.root(handle)
	if err != nil {
		return err
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	if handle.Disposed() || root.bar == nil {
		return ErrStaleBind
	}

	render := func() (string, error) {
		return renderSnippet(root.bar)
	}
	var markup string
	if e.cache != nil {
		markup, err = e.cache.GetOrRender(renderCacheKey(handle), render)
	} else {
		markup, err = render()
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, markup)
	return err
}

// RenderPage writes the bound chart as a standalone HTML document.
func (e *EChartsEngine) RenderPage(handle *ChartHandle, w io.Writer) error {
	root, err := e.root(handle)
	if err != nil {
		return err
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	if handle.Disposed() || root.bar == nil {
		return ErrStaleBind
	}
	return safeRender(func() error {
		return root.bar.Render(w)
	})
}

// Theme returns the theme the handle was initialized with.
func (e *EChartsEngine) Theme(handle *ChartHandle) string {
	root, err := e.root(handle)
	if err != nil {
		return ""
	}
	return root.theme
}

func (e *EChartsEngine) root(handle *ChartHandle) (*echartsRoot, error) {
	if handle == nil || handle.Disposed() {
		return nil, ErrStaleBind
	}
	root, ok := handle.Root().(*echartsRoot)
	if !ok || root == nil {
		return nil, errForeignHandle
	}
	return root, nil
}

func (e *EChartsEngine) globalChartOptions(chartID, theme, width, height string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		ChartID: chartID,
		Theme:   theme,
		Width:   width,
		Height:  height,
	}
	if e.assetsHost != "" {
		initOpts.AssetsHost = e.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithColorsOpts(opts.Colors{e.colors.Bar}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithGridOpts(opts.Grid{
			Left:         "3%",
			Right:        "3%",
			Bottom:       "3%",
			ContainLabel: opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
			AxisLabel: &opts.AxisLabel{Color: e.colors.XAxisLabel, FontSize: 12},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
				LineStyle: &opts.LineStyle{
					Color:   e.colors.SplitLine,
					Opacity: opts.Float(e.colors.SplitLineOpacity),
				},
			},
			AxisLabel: &opts.AxisLabel{Color: e.colors.YAxisLabel, FontSize: 12},
		}),
	}
}

func (e *EChartsEngine) seriesOptions() []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithBarChartOpts(opts.BarChart{BarWidth: e.barWidth}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: e.colors.Bar}),
	}
}

func (e *EChartsEngine) resolveTheme(viewer ViewerContext) string {
	if e.themeResolver != nil {
		if theme := e.themeResolver(viewer); theme != "" {
			return theme
		}
	}
	if theme := ThemeForVariant(viewer.ThemeVariant); theme != "" {
		return theme
	}
	if e.theme != "" {
		return e.theme
	}
	return types.ThemeWesteros
}

func targetDimensions(target MountTarget) (string, string) {
	if sized, ok := target.(interface{ Dimensions() (string, string) }); ok {
		return sized.Dimensions()
	}
	return "100%", MinChartHeight
}

func renderSnippet(bar *charts.Bar) (string, error) {
	var builder strings.Builder
	err := safeRender(func() error {
		snippet := bar.RenderSnippet()
		for _, asset := range bar.Assets.JSAssets.Values {
			fmt.Fprintf(&builder, "<script src=\"%s\"></script>\n", html.EscapeString(asset))
		}
		builder.WriteString(snippet.Element)
		builder.WriteString("\n")
		builder.WriteString(snippet.Script)
		return nil
	})
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

// ChartElementID maps a surface id to the DOM id of the chart element. The
// id doubles as a JavaScript identifier in the init script, so every
// character outside [A-Za-z0-9_] becomes an underscore.
func ChartElementID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// safeRender converts template panics raised by go-echarts into errors.
func safeRender(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("revenue: render chart: %v", r)
		}
	}()
	return fn()
}
