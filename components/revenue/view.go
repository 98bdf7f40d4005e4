package revenue

import (
	"bytes"
	"errors"
	"io"
)

const (
	// DefaultViewTemplate is the embedded template rendering a chart card.
	DefaultViewTemplate = "revenue_chart.html"
	// DefaultViewTitle is the heading of the chart card.
	DefaultViewTitle = "Total Revenue"
	// DefaultPlaceholder is shown in place of a chart that failed to mount.
	DefaultPlaceholder = "Revenue chart is unavailable."
)

// Renderer describes the template renderer contract needed by the view.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// YearURLFunc builds the link a year toggle points to.
type YearURLFunc func(sessionID, year string) string

// YearOption is one toggle of the year selector.
type YearOption struct {
	Year     string `json:"year"`
	Selected bool   `json:"selected"`
	URL      string `json:"url,omitempty"`
}

// ViewModel is everything the chart card displays.
type ViewModel struct {
	SessionID        string          `json:"session_id,omitempty"`
	Title            string          `json:"title"`
	ElementID        string          `json:"element_id"`
	State            string          `json:"state"`
	Years            []YearOption    `json:"years"`
	SelectedYear     string          `json:"selected_year"`
	Samples          []RevenueSample `json:"samples"`
	Total            float64         `json:"total"`
	TotalLabel       string          `json:"total_label"`
	PriorGrossIncome float64         `json:"prior_gross_income"`
	PriorLabel       string          `json:"prior_label"`
	MinHeight        string          `json:"min_height"`
	Mounted          bool            `json:"mounted"`
	Placeholder      string          `json:"placeholder,omitempty"`
	Error            string          `json:"error,omitempty"`
	ChartHTML        string          `json:"-"`
}

// TemplateData converts the model into the map handed to the renderer.
func (vm ViewModel) TemplateData() map[string]any {
	years := make([]map[string]any, len(vm.Years))
	for i, option := range vm.Years {
		years[i] = map[string]any{
			"year":     option.Year,
			"selected": option.Selected,
			"url":      option.URL,
		}
	}
	return map[string]any{
		"session_id":    vm.SessionID,
		"title":         vm.Title,
		"element_id":    vm.ElementID,
		"state":         vm.State,
		"years":         years,
		"selected_year": vm.SelectedYear,
		"total":         vm.Total,
		"total_label":   vm.TotalLabel,
		"prior_label":   vm.PriorLabel,
		"min_height":    vm.MinHeight,
		"mounted":       vm.Mounted,
		"placeholder":   vm.Placeholder,
		"chart_html":    vm.ChartHTML,
	}
}

// View turns controller snapshots into rendered chart cards.
type View struct {
	renderer    Renderer
	template    string
	title       string
	placeholder string
	formatter   CurrencyFormatter
	yearURL     YearURLFunc
}

// ViewOption customizes a View.
type ViewOption func(*View)

// WithViewTemplate overrides the template name.
func WithViewTemplate(name string) ViewOption {
	return func(v *View) {
		if name != "" {
			v.template = name
		}
	}
}

// WithViewTitle overrides the card heading.
func WithViewTitle(title string) ViewOption {
	return func(v *View) {
		if title != "" {
			v.title = title
		}
	}
}

// WithPlaceholder overrides the text shown when mounting failed.
func WithPlaceholder(text string) ViewOption {
	return func(v *View) {
		if text != "" {
			v.placeholder = text
		}
	}
}

// WithCurrencyFormatter overrides currency formatting.
func WithCurrencyFormatter(formatter CurrencyFormatter) ViewOption {
	return func(v *View) {
		v.formatter = formatter
	}
}

// WithYearURL sets the link builder for year toggles.
func WithYearURL(fn YearURLFunc) ViewOption {
	return func(v *View) {
		v.yearURL = fn
	}
}

// NewView builds a view. A nil renderer is allowed when only models are needed.
func NewView(renderer Renderer, opts ...ViewOption) *View {
	v := &View{
		renderer:    renderer,
		template:    DefaultViewTemplate,
		title:       DefaultViewTitle,
		placeholder: DefaultPlaceholder,
		formatter:   NewCurrencyFormatter(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Model builds the view model for controller as seen by viewer. Chart markup
// is only included when the controller is bound and its engine can render.
func (v *View) Model(sessionID string, controller *ChartController, viewer ViewerContext) ViewModel {
	snap := controller.Snapshot()
	vm := ViewModel{
		SessionID:        sessionID,
		Title:            v.title,
		ElementID:        ChartElementID(snap.Target),
		State:            snap.State.String(),
		SelectedYear:     snap.SelectedYear,
		Samples:          snap.Samples,
		Total:            snap.Total,
		TotalLabel:       v.formatter.Format(viewer.Locale, snap.Total),
		PriorGrossIncome: snap.PriorGrossIncome,
		PriorLabel:       "last year " + v.formatter.Format(viewer.Locale, snap.PriorGrossIncome),
		MinHeight:        MinChartHeight,
	}
	vm.Years = make([]YearOption, len(snap.Years))
	for i, year := range snap.Years {
		vm.Years[i] = YearOption{Year: year, Selected: year == snap.SelectedYear}
		if v.yearURL != nil {
			vm.Years[i].URL = v.yearURL(sessionID, year)
		}
	}

	failure := snap.MountErr
	if failure == nil {
		failure = snap.Fault
	}
	if snap.State == StateBound {
		var buf bytes.Buffer
		err := controller.RenderChart(&buf)
		switch {
		case err == nil:
			vm.Mounted = true
			vm.ChartHTML = buf.String()
		case errors.Is(err, ErrRenderUnsupported):
			vm.Mounted = true
		default:
			failure = err
		}
	}
	if !vm.Mounted {
		vm.Placeholder = v.placeholder
		if failure != nil {
			vm.Error = failure.Error()
		}
	}
	return vm
}

// Render writes the chart card for vm.
func (v *View) Render(vm ViewModel, out io.Writer) error {
	if v.renderer == nil {
		return errors.New("revenue: view renderer not configured")
	}
	_, err := v.renderer.Render(v.template, vm.TemplateData(), out)
	return err
}
