package revenue

import (
	"embed"
	"fmt"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates/revenue_chart.html
var chartTemplates embed.FS

// NewTemplateRenderer loads the built-in revenue card template
// (DefaultViewTemplate) from the binary, independent of the working
// directory. Hosts that restyle the card hand their own Renderer to NewView
// instead.
func NewTemplateRenderer() (Renderer, error) {
	root, err := fs.Sub(chartTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("revenue: chart templates: %w", err)
	}
	return template.NewRenderer(
		template.WithFS(root),
		template.WithExtension(".html"),
	)
}
