package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/gorouter"
	"github.com/goliatone/go-revenue-dashboard/pkg/rentalapi"
)

type serveCmd struct {
	Addr          string        `default:":8080" env:"REVENUE_ADDR" help:"Listen address."`
	BasePath      string        `default:"/admin" env:"REVENUE_BASE_PATH" help:"Route prefix."`
	Dataset       string        `type:"existingfile" env:"REVENUE_DATASET" xor:"source" help:"Dataset file re-read on every session open."`
	Remote        string        `env:"REVENUE_REMOTE_URL" xor:"source" help:"Rental API base URL serving /revenue/yearly."`
	APIKey        string        `env:"REVENUE_REMOTE_API_KEY" help:"Bearer key for the rental API."`
	HiddenRole    []string      `env:"REVENUE_HIDDEN_ROLES" help:"Roles that may not view revenue."`
	ChartHeight   string        `default:"250px" help:"Chart height."`
	SessionTTL    time.Duration `default:"30m" env:"REVENUE_SESSION_TTL" help:"Idle session lifetime."`
	SweepInterval time.Duration `default:"1m" help:"How often idle sessions are swept."`
}

func (cmd *serveCmd) Run(rt *runtime) error {
	source, err := cmd.source()
	if err != nil {
		return err
	}
	renderer, err := revenue.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("revenuectl: templates: %w", err)
	}
	telemetry := revenue.NewLoggerTelemetry(rt.logger)
	service := revenue.NewService(revenue.Options{
		Source:      source,
		Engine:      revenue.NewEChartsEngine(revenue.WithEngineLogger(rt.logger)),
		Authorizer:  revenue.NewRoleAuthorizer(cmd.HiddenRole...),
		View:        revenue.NewView(renderer, revenue.WithYearURL(gorouter.YearURL(cmd.BasePath))),
		Telemetry:   telemetry,
		Logger:      rt.logger,
		SessionTTL:  cmd.SessionTTL,
		ChartHeight: cmd.ChartHeight,
	})

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:    server.Router(),
		Service:   service,
		Telemetry: telemetry,
		BasePath:  cmd.BasePath,
	}); err != nil {
		return fmt.Errorf("revenuectl: register routes: %w", err)
	}

	ctx, cancel := context.WithCancel(rt.ctx)
	defer cancel()
	sweeper := make(chan error, 1)
	go func() {
		sweeper <- service.Run(ctx, cmd.SweepInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(cmd.Addr)
	}()
	rt.logger.Info("revenue charts ready",
		zap.String("addr", cmd.Addr),
		zap.String("url", cmd.BasePath+"/revenue"),
	)

	var runErr error
	select {
	case <-rt.ctx.Done():
		shutdownCtx, release := context.WithTimeout(context.Background(), 10*time.Second)
		defer release()
		runErr = server.Shutdown(shutdownCtx)
	case runErr = <-serveErr:
	}
	cancel()
	return errors.Join(runErr, <-sweeper)
}

func (cmd *serveCmd) source() (revenue.DatasetSource, error) {
	switch {
	case cmd.Remote != "":
		return rentalapi.NewHTTPClient(rentalapi.HTTPConfig{BaseURL: cmd.Remote, APIKey: cmd.APIKey})
	case cmd.Dataset != "":
		return revenue.FileDatasetSource{Path: cmd.Dataset}, nil
	default:
		return revenue.NewStaticDatasetSource(revenue.DemoDataset()), nil
	}
}
