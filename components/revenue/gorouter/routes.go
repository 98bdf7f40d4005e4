package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	router "github.com/goliatone/go-router"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/commands"
)

// ViewerResolver converts a router.Context into a revenue.ViewerContext.
type ViewerResolver func(router.Context) revenue.ViewerContext

// Service is the subset of revenue.Service the routes drive.
type Service interface {
	Open(ctx context.Context, req revenue.OpenRequest) (*revenue.Session, error)
	SelectYear(ctx context.Context, sessionID, year string) (bool, error)
	Close(ctx context.Context, sessionID string) error
	ViewModel(sessionID string) (revenue.ViewModel, error)
	Render(sessionID string, out io.Writer) error
}

// Config wires go-router with the revenue chart service.
type Config[T any] struct {
	Router         router.Router[T]
	Service        Service
	Telemetry      commands.Telemetry
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for revenue endpoints.
type RouteConfig struct {
	HTML    string
	Chart   string
	View    string
	Year    string
	Unmount string
}

// Register mounts the revenue chart routes (HTML, JSON, REST) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Service == nil {
		return errors.New("gorouter: service is required")
	}
	routes := cfg.routes()
	base := cfg.basePath()
	viewerResolver := cfg.ViewerResolver
	if viewerResolver == nil {
		viewerResolver = defaultViewerResolver
	}
	selectYear := commands.NewSelectYearCommand(cfg.Service, cfg.Telemetry)
	closeChart := commands.NewCloseChartCommand(cfg.Service, cfg.Telemetry)

	group := cfg.Router.Group(base)

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		viewer := viewerResolver(ctx)
		session, err := cfg.Service.Open(ctx.Context(), revenue.OpenRequest{
			Viewer: viewer,
			Year:   strings.TrimSpace(ctx.Query("year")),
		})
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		ctx.SetHeader("X-Revenue-Session", session.ID)
		return renderHTML(ctx, cfg.Service, session.ID)
	}))

	group.Get(routes.Chart, router.WrapHandler(func(ctx router.Context) error {
		id := ctx.Param("id")
		if id == "" {
			return respondError(ctx, http.StatusBadRequest, errors.New("chart id is required"))
		}
		if year := strings.TrimSpace(ctx.Query("year")); year != "" {
			// Unknown years leave the current selection in place.
			if _, err := cfg.Service.SelectYear(ctx.Context(), id, year); err != nil {
				return respondError(ctx, statusFor(err), err)
			}
		}
		return renderHTML(ctx, cfg.Service, id)
	}))

	group.Get(routes.View, router.WrapHandler(func(ctx router.Context) error {
		vm, err := cfg.Service.ViewModel(ctx.Param("id"))
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, vm)
	}))

	group.Post(routes.Year, router.WrapHandler(func(ctx router.Context) error {
		var payload struct {
			Year string `json:"year"`
		}
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		input := commands.SelectYearInput{SessionID: ctx.Param("id"), Year: payload.Year}
		if err := selectYear.Execute(ctx.Context(), input); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		vm, err := cfg.Service.ViewModel(input.SessionID)
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, vm)
	}))

	group.Delete(routes.Unmount, router.WrapHandler(func(ctx router.Context) error {
		input := commands.CloseChartInput{SessionID: ctx.Param("id")}
		if err := closeChart.Execute(ctx.Context(), input); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "closed"})
	}))

	return nil
}

// YearURL builds year toggle links pointing at the default chart route under
// base.
func YearURL(base string) revenue.YearURLFunc {
	return RouteConfig{}.YearURL(base)
}

// YearURL builds year toggle links pointing at the configured chart route
// under base. The session id fills the route's :id segment.
func (r RouteConfig) YearURL(base string) revenue.YearURLFunc {
	base = strings.TrimRight(normalizeBase(base), "/")
	chart := defaultRouteConfig(r).Chart
	if !strings.HasPrefix(chart, "/") {
		chart = "/" + chart
	}
	return func(sessionID, year string) string {
		path := strings.Replace(chart, ":id", url.PathEscape(sessionID), 1)
		if path == chart {
			path = strings.TrimRight(chart, "/") + "/" + url.PathEscape(sessionID)
		}
		return base + path + "?year=" + url.QueryEscape(year)
	}
}

func renderHTML(ctx router.Context, service Service, sessionID string) error {
	var buf bytes.Buffer
	if err := service.Render(sessionID, &buf); err != nil {
		return respondError(ctx, statusFor(err), err)
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Send(buf.Bytes())
}

func defaultViewerResolver(ctx router.Context) revenue.ViewerContext {
	var viewer revenue.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if role, ok := ctx.Locals("role").(string); ok {
		viewer.Role = role
	} else if roles, ok := ctx.Locals("roles").([]string); ok && len(roles) > 0 {
		viewer.Role = roles[0]
	}
	if theme, ok := ctx.Locals("theme").(string); ok {
		viewer.ThemeVariant = theme
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		if lang := parseAcceptLanguage(header); lang != "" {
			return lang
		}
	}
	return ""
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, revenue.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, revenue.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, revenue.ErrUnknownYear):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func (cfg Config[T]) basePath() string {
	return normalizeBase(cfg.BasePath)
}

func normalizeBase(base string) string {
	if base == "" {
		return "/admin"
	}
	return base
}

func (cfg Config[T]) routes() RouteConfig {
	return defaultRouteConfig(cfg.Routes)
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/revenue"
	}
	if routes.Chart == "" {
		routes.Chart = "/revenue/charts/:id"
	}
	if routes.View == "" {
		routes.View = "/revenue/charts/:id/_view"
	}
	if routes.Year == "" {
		routes.Year = "/revenue/charts/:id/year"
	}
	if routes.Unmount == "" {
		routes.Unmount = "/revenue/charts/:id"
	}
	return routes
}
