package revenue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errMissingSource = errors.New("revenue: dataset source not configured")
	errMissingEngine = errors.New("revenue: chart engine not configured")
)

// Options configures the revenue Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	Source      DatasetSource
	Engine      ChartEngine
	Authorizer  Authorizer
	View        *View
	Telemetry   Telemetry
	Logger      *zap.Logger
	SessionTTL  time.Duration
	ChartHeight string
	Clock       func() time.Time
}

// Service opens chart sessions for viewers and drives them.
type Service struct {
	opts     Options
	sessions *Sessions
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Authorizer == nil {
		opts.Authorizer = allowAll{}
	}
	if opts.View == nil {
		opts.View = NewView(nil)
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Logger = normalizeLogger(opts.Logger)
	sessionOpts := []SessionsOption{
		WithSessionLogger(opts.Logger),
		WithSessionTelemetry(opts.Telemetry),
	}
	if opts.Clock != nil {
		sessionOpts = append(sessionOpts, WithSessionClock(opts.Clock))
	}
	return &Service{
		opts:     opts,
		sessions: NewSessions(opts.SessionTTL, sessionOpts...),
	}
}

// OpenRequest describes a new chart session.
type OpenRequest struct {
	Viewer ViewerContext
	// Year overrides the dataset's default selection when it is a known year.
	Year string
}

// Open loads the dataset, mounts a chart for the viewer and registers the
// session. A failed mount still yields a session whose view shows the
// placeholder; only authorization and dataset failures return errors.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	if !s.opts.Authorizer.CanViewRevenue(ctx, req.Viewer) {
		return nil, ErrForbidden
	}
	if s.opts.Source == nil {
		return nil, errMissingSource
	}
	if s.opts.Engine == nil {
		return nil, errMissingEngine
	}
	dataset, err := s.opts.Source.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue: load dataset: %w", err)
	}

	id := uuid.NewString()
	controller := NewChartController(s.opts.Engine, dataset,
		WithControllerLogger(s.opts.Logger.With(zap.String("session", id))),
		WithControllerTelemetry(s.opts.Telemetry),
		WithInitialYear(req.Year),
	)
	surface := Surface{
		ElementID: SurfaceID(id),
		Height:    s.opts.ChartHeight,
	}
	if err := controller.Mount(WithViewer(ctx, req.Viewer), surface); err != nil {
		if !errors.Is(err, ErrMount) {
			return nil, err
		}
		s.opts.Logger.Warn("revenue chart shows placeholder",
			zap.String("session", id),
			zap.Error(err),
		)
	}

	session := &Session{
		ID:         id,
		Viewer:     req.Viewer,
		Controller: controller,
	}
	s.sessions.Add(session)
	return session, nil
}

// Session returns a live session.
func (s *Service) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SelectYear switches the year shown by a session. It reports false for a
// year that is not part of the dataset.
func (s *Service) SelectYear(ctx context.Context, id, year string) (bool, error) {
	session, err := s.Session(id)
	if err != nil {
		return false, err
	}
	if session.Controller.SelectYear(ctx, year) {
		return true, nil
	}
	if session.Controller.dataset.Has(year) {
		// Known year the engine refused to bind.
		return false, session.Controller.Fault()
	}
	return false, nil
}

// Close unmounts a session.
func (s *Service) Close(ctx context.Context, id string) error {
	return s.sessions.Close(ctx, id)
}

// ViewModel builds the view model of a session.
func (s *Service) ViewModel(id string) (ViewModel, error) {
	session, err := s.Session(id)
	if err != nil {
		return ViewModel{}, err
	}
	return s.opts.View.Model(session.ID, session.Controller, session.Viewer), nil
}

// Render writes the chart card of a session.
func (s *Service) Render(id string, out io.Writer) error {
	vm, err := s.ViewModel(id)
	if err != nil {
		return err
	}
	return s.opts.View.Render(vm, out)
}

// Run drives the idle session sweeper until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	return s.sessions.Run(ctx, interval)
}

// Shutdown unmounts every open session.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.sessions.CloseAll(ctx)
}

// Sessions exposes the session registry.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// SurfaceID derives the mount surface id of a session.
func SurfaceID(sessionID string) string {
	return "revenue_chart_" + strings.ReplaceAll(sessionID, "-", "")
}
