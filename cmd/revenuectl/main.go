package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
)

type cli struct {
	Debug bool `env:"REVENUE_DEBUG" help:"Enable development logging."`

	Validate validateCmd `cmd:"" help:"Validate a revenue dataset file and print per-year totals."`
	Render   renderCmd   `cmd:"" help:"Render the revenue chart for one year as a standalone HTML page."`
	Seed     seedCmd     `cmd:"" help:"Write the demo dataset to a file."`
	Serve    serveCmd    `cmd:"" help:"Serve revenue charts over HTTP."`
}

// runtime carries the process wide dependencies handed to every command.
type runtime struct {
	ctx    context.Context
	logger *zap.Logger
	out    io.Writer
}

func main() {
	_ = godotenv.Load()

	var app cli
	parser := kong.Parse(&app,
		kong.Name("revenuectl"),
		kong.Description("Revenue chart utility: validate datasets, render charts and serve them."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(app.Debug)
	parser.FatalIfErrorf(err)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = parser.Run(&runtime{ctx: ctx, logger: logger, out: os.Stdout})
	parser.FatalIfErrorf(err)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type validateCmd struct {
	Dataset string `required:"" type:"existingfile" env:"REVENUE_DATASET" help:"Path to the dataset YAML/JSON file."`
	Locale  string `default:"en" help:"Locale used to format totals."`
}

func (cmd *validateCmd) Run(rt *runtime) error {
	doc, err := revenue.ReadDatasetFile(cmd.Dataset)
	if err != nil {
		return err
	}
	dataset := doc.Dataset()
	formatter := revenue.NewCurrencyFormatter()
	fmt.Fprintf(rt.out, "✓ %s is valid (version %s)\n", cmd.Dataset, doc.Version)
	for _, year := range dataset.Years() {
		marker := " "
		if year == dataset.DefaultYear() {
			marker = "*"
		}
		fmt.Fprintf(rt.out, "%s %s  %s\n", marker, year, formatter.Format(cmd.Locale, dataset.Total(year)))
	}
	fmt.Fprintf(rt.out, "  last year %s\n", formatter.Format(cmd.Locale, dataset.PriorGrossIncome))
	return nil
}

type renderCmd struct {
	Dataset string `type:"existingfile" env:"REVENUE_DATASET" help:"Dataset file; the demo dataset is used when empty."`
	Year    string `help:"Year to render (defaults to the dataset's current year)."`
	Out     string `type:"path" help:"Output HTML file (defaults to revenue_<year>.html)."`
	Theme   string `default:"light" enum:"light,dark" help:"Theme variant."`
	Height  string `default:"400px" help:"Chart height."`
}

func (cmd *renderCmd) Run(rt *runtime) error {
	dataset, err := loadDataset(rt.ctx, cmd.Dataset)
	if err != nil {
		return err
	}
	year := cmd.Year
	if year == "" {
		year = dataset.DefaultYear()
	}
	if !dataset.Has(year) {
		return fmt.Errorf("revenuectl: %w: %q", revenue.ErrUnknownYear, year)
	}

	engine := revenue.NewEChartsEngine(revenue.WithEngineLogger(rt.logger))
	controller := revenue.NewChartController(engine, dataset,
		revenue.WithControllerLogger(rt.logger),
		revenue.WithInitialYear(year),
	)
	ctx := revenue.WithViewer(rt.ctx, revenue.ViewerContext{ThemeVariant: cmd.Theme})
	if err := controller.Mount(ctx, revenue.Surface{ElementID: "revenue_chart", Height: cmd.Height}); err != nil {
		return err
	}
	defer func() {
		if err := controller.Unmount(context.WithoutCancel(rt.ctx)); err != nil {
			rt.logger.Warn("unmount chart", zap.Error(err))
		}
	}()

	path := cmd.Out
	if path == "" {
		path = outputName(year)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("revenuectl: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := writeFile(path, func(w io.Writer) error {
		return engine.RenderPage(controller.Handle(), w)
	}); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ Rendered %s revenue (%s) to %s\n",
		year, revenue.NewCurrencyFormatter().Format("en", controller.Total()), path)
	return nil
}

type seedCmd struct {
	Out       string `required:"" type:"path" help:"Destination dataset file."`
	Overwrite bool   `help:"Replace an existing file."`
}

func (cmd *seedCmd) Run(rt *runtime) error {
	if _, err := os.Stat(cmd.Out); err == nil && !cmd.Overwrite {
		return fmt.Errorf("revenuectl: %s already exists (use --overwrite)", cmd.Out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("revenuectl: stat %s: %w", cmd.Out, err)
	}
	if err := os.MkdirAll(filepath.Dir(cmd.Out), 0o755); err != nil {
		return fmt.Errorf("revenuectl: mkdir %s: %w", filepath.Dir(cmd.Out), err)
	}
	if err := revenue.WriteDatasetFile(cmd.Out, revenue.DemoDataset()); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "✓ Wrote demo dataset to %s\n", cmd.Out)
	return nil
}

func loadDataset(ctx context.Context, path string) (revenue.Dataset, error) {
	if path == "" {
		return revenue.DemoDataset(), nil
	}
	return revenue.FileDatasetSource{Path: path}.LoadDataset(ctx)
}

// outputName derives the default HTML file name for a rendered year.
func outputName(year string) string {
	name := strcase.ToSnake(strings.TrimSpace("revenue " + year))
	return name + ".html"
}

// writeFile creates path and hands it to write. A failed close is reported
// so a truncated file never counts as written.
func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("revenuectl: create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("revenuectl: close %s: %w", path, cerr))
		}
	}()
	return write(file)
}
