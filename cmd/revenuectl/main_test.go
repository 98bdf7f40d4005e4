package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
	"github.com/goliatone/go-revenue-dashboard/pkg/rentalapi"
)

func newTestRuntime() (*runtime, *bytes.Buffer) {
	var out bytes.Buffer
	return &runtime{ctx: context.Background(), logger: zap.NewNop(), out: &out}, &out
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "revenue_2025.html", outputName("2025"))
}

func TestSeedThenValidate(t *testing.T) {
	rt, out := newTestRuntime()
	path := filepath.Join(t.TempDir(), "data", "revenue.yaml")

	require.NoError(t, (&seedCmd{Out: path}).Run(rt))
	require.Error(t, (&seedCmd{Out: path}).Run(rt))

	out.Reset()
	require.NoError(t, (&validateCmd{Dataset: path, Locale: "en"}).Run(rt))
	assert.Contains(t, out.String(), "2024  $120,000")
	assert.Contains(t, out.String(), "* 2025  $150,000")
	assert.Contains(t, out.String(), "last year $100,000")
}

func TestRenderWritesStandalonePage(t *testing.T) {
	rt, out := newTestRuntime()
	path := filepath.Join(t.TempDir(), "chart.html")

	cmd := &renderCmd{Year: "2024", Out: path, Theme: "dark", Height: "400px"}
	require.NoError(t, cmd.Run(rt))

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "revenue_chart")
	assert.Contains(t, out.String(), "$120,000")
}

func TestRenderRejectsUnknownYear(t *testing.T) {
	rt, _ := newTestRuntime()
	err := (&renderCmd{Year: "1999", Out: filepath.Join(t.TempDir(), "x.html")}).Run(rt)
	require.ErrorIs(t, err, revenue.ErrUnknownYear)
}

func TestServeSource(t *testing.T) {
	source, err := (&serveCmd{}).source()
	require.NoError(t, err)
	dataset, err := source.LoadDataset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150000.0, dataset.Total("2025"))

	source, err = (&serveCmd{Remote: "http://rental.local", APIKey: "k"}).source()
	require.NoError(t, err)
	assert.IsType(t, &rentalapi.HTTPClient{}, source)

	source, err = (&serveCmd{Dataset: "revenue.yaml"}).source()
	require.NoError(t, err)
	assert.Equal(t, revenue.FileDatasetSource{Path: "revenue.yaml"}, source)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "<html></html>")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	renderErr := errors.New("render failed")
	assert.ErrorIs(t, writeFile(path, func(io.Writer) error { return renderErr }), renderErr)

	assert.Error(t, writeFile(filepath.Join(t.TempDir(), "missing", "page.html"), func(io.Writer) error { return nil }))
}
