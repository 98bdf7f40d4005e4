package revenue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyMounted reports a Mount call on a controller that owns a handle.
	ErrAlreadyMounted = errors.New("revenue: chart already mounted")
	// ErrMountInFlight reports a Mount call while a previous initialization
	// has not returned yet.
	ErrMountInFlight = errors.New("revenue: chart initialization in progress")
	// ErrMountAborted is returned by Mount when Unmount ran while the engine
	// was still initializing.
	ErrMountAborted = errors.New("revenue: chart unmounted during initialization")
	// ErrNotBound reports an operation that needs a live chart handle.
	ErrNotBound = errors.New("revenue: chart is not bound")
	// ErrRenderUnsupported reports an engine that cannot write chart markup.
	ErrRenderUnsupported = errors.New("revenue: chart engine cannot render")
)

// ChartState is the lifecycle state of a ChartController.
type ChartState int

const (
	StateUnmounted ChartState = iota
	StateInitializing
	StateBound
)

func (s ChartState) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateInitializing:
		return "initializing"
	case StateBound:
		return "bound"
	default:
		return fmt.Sprintf("ChartState(%d)", int(s))
	}
}

// ControllerOption customizes a ChartController.
type ControllerOption func(*ChartController)

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger *zap.Logger) ControllerOption {
	return func(c *ChartController) {
		c.logger = logger
	}
}

// WithControllerTelemetry sets the telemetry sink.
func WithControllerTelemetry(telemetry Telemetry) ControllerOption {
	return func(c *ChartController) {
		c.telemetry = telemetry
	}
}

// WithInitialYear overrides the default selection. Years that are not part
// of the dataset are ignored.
func WithInitialYear(year string) ControllerOption {
	return func(c *ChartController) {
		if c.dataset.Has(year) {
			c.selectedYear = year
		}
	}
}

// ChartController reconciles a ChartEngine handle with the selected year of a
// dataset. It owns at most one live handle at a time and releases it on every
// exit path.
type ChartController struct {
	engine    ChartEngine
	dataset   Dataset
	logger    *zap.Logger
	telemetry Telemetry

	mu           sync.Mutex
	state        ChartState
	selectedYear string
	target       string
	handle       *ChartHandle
	tornDown     bool
	mountErr     error
	fault        error
}

// NewChartController builds a controller over a private copy of dataset.
func NewChartController(engine ChartEngine, dataset Dataset, opts ...ControllerOption) *ChartController {
	c := &ChartController{
		engine:  engine,
		dataset: dataset.Clone(),
	}
	c.selectedYear = c.dataset.DefaultYear()
	for _, opt := range opts {
		opt(c)
	}
	c.logger = normalizeLogger(c.logger).Named("controller")
	c.telemetry = normalizeTelemetry(c.telemetry)
	return c
}

// Mount initializes the engine on target and binds the selected year. The
// engine runs outside the controller lock; an Unmount that arrives meanwhile
// makes Mount release the fresh handle and return ErrMountAborted.
func (c *ChartController) Mount(ctx context.Context, target MountTarget) error {
	targetID := ""
	if target != nil {
		targetID = target.ID()
	}

	c.mu.Lock()
	switch c.state {
	case StateBound:
		c.mu.Unlock()
		return ErrAlreadyMounted
	case StateInitializing:
		c.mu.Unlock()
		return ErrMountInFlight
	}
	if c.engine == nil {
		err := &MountError{Target: targetID, Cause: errors.New("revenue: chart engine not configured")}
		c.mountErr = err
		c.mu.Unlock()
		c.recordMountError(ctx, targetID, err)
		return err
	}
	if c.dataset.Empty() {
		err := &MountError{Target: targetID, Cause: ErrEmptyDataset}
		c.mountErr = err
		c.mu.Unlock()
		c.recordMountError(ctx, targetID, err)
		return err
	}
	c.state = StateInitializing
	c.target = targetID
	c.tornDown = false
	c.mountErr = nil
	c.fault = nil
	c.mu.Unlock()

	handle, initErr := c.engine.Initialize(ctx, target)

	c.mu.Lock()
	if initErr != nil {
		c.state = StateUnmounted
		aborted := c.tornDown
		c.tornDown = false
		err := newMountError(targetID, initErr)
		if !aborted {
			c.mountErr = err
		}
		c.mu.Unlock()
		c.recordMountError(ctx, targetID, err)
		return err
	}
	if c.tornDown {
		c.tornDown = false
		c.state = StateUnmounted
		disposeErr := c.disposeLocked(handle)
		c.mu.Unlock()
		c.logger.Debug("chart unmounted during initialization",
			zap.String("target", targetID),
			zap.String("handle", handle.ID()),
		)
		if disposeErr != nil {
			return errors.Join(ErrMountAborted, disposeErr)
		}
		return ErrMountAborted
	}

	year := c.selectedYear
	samples, err := c.dataset.Samples(year)
	if err == nil {
		err = c.engine.BindData(handle, samples)
	}
	if err != nil {
		c.reportStale("bind during mount", handle, err)
		disposeErr := c.disposeLocked(handle)
		c.state = StateUnmounted
		mountErr := newMountError(targetID, errors.Join(err, disposeErr))
		c.mountErr = mountErr
		c.mu.Unlock()
		c.recordMountError(ctx, targetID, mountErr)
		return mountErr
	}

	c.handle = handle
	c.state = StateBound
	c.mu.Unlock()

	c.logger.Debug("chart mounted",
		zap.String("target", targetID),
		zap.String("handle", handle.ID()),
		zap.String("year", year),
	)
	c.telemetry.Record(ctx, EventMount, map[string]any{
		"target": targetID,
		"handle": handle.ID(),
		"year":   year,
	})
	return nil
}

// SelectYear changes the selection and rebinds the live handle. Unknown
// years are ignored and reported with false, as is a year the engine failed
// to bind.
func (c *ChartController) SelectYear(ctx context.Context, year string) bool {
	c.mu.Lock()
	if !c.dataset.Has(year) {
		c.mu.Unlock()
		c.logger.Debug("ignoring unknown year", zap.String("year", year))
		return false
	}
	if year == c.selectedYear {
		c.mu.Unlock()
		return true
	}
	previous := c.selectedYear
	c.selectedYear = year
	target := c.target

	var handleID string
	if c.state == StateBound {
		handleID = c.handle.ID()
		samples, _ := c.dataset.Samples(year)
		if err := c.engine.BindData(c.handle, samples); err != nil {
			c.faultLocked("bind on year change", err)
			if c.state == StateBound {
				// The chart still shows the previous year.
				c.selectedYear = previous
				c.mu.Unlock()
				return false
			}
		}
	}
	c.mu.Unlock()

	c.telemetry.Record(ctx, EventSelectYear, map[string]any{
		"target":   target,
		"handle":   handleID,
		"year":     year,
		"previous": previous,
	})
	return true
}

// Unmount releases the live handle. It is safe to call in every state; while
// initialization is in flight the handle is released as soon as the engine
// returns it.
func (c *ChartController) Unmount(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateUnmounted:
		c.mu.Unlock()
		return nil
	case StateInitializing:
		c.tornDown = true
		c.mu.Unlock()
		return nil
	}

	handle := c.handle
	c.handle = nil
	c.state = StateUnmounted
	err := c.disposeLocked(handle)
	target := c.target
	c.mu.Unlock()

	c.telemetry.Record(ctx, EventUnmount, map[string]any{
		"target": target,
		"handle": handle.ID(),
	})
	if err != nil {
		return fmt.Errorf("revenue: unmount chart: %w", err)
	}
	return nil
}

// Total is the sum of the selected year's revenue.
func (c *ChartController) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset.Total(c.selectedYear)
}

// SelectedYear returns the current selection.
func (c *ChartController) SelectedYear() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedYear
}

// State returns the lifecycle state.
func (c *ChartController) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle returns the live handle, nil unless the controller is bound.
func (c *ChartController) Handle() *ChartHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// MountErr returns the error recorded by the last failed mount.
func (c *ChartController) MountErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mountErr
}

// Fault returns the engine fault recorded after mount, if any.
func (c *ChartController) Fault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Dataset returns a copy of the controller's dataset.
func (c *ChartController) Dataset() Dataset {
	return c.dataset.Clone()
}

// RenderChart writes the markup of the bound chart when the engine supports it.
func (c *ChartController) RenderChart(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateBound {
		return ErrNotBound
	}
	renderer, ok := c.engine.(ChartRenderer)
	if !ok {
		return ErrRenderUnsupported
	}
	if err := renderer.RenderChart(c.handle, w); err != nil {
		if errors.Is(err, ErrStaleBind) {
			c.faultLocked("render", err)
		}
		return err
	}
	return nil
}

// Snapshot captures the controller state for views.
type Snapshot struct {
	State            ChartState
	Target           string
	SelectedYear     string
	Years            []string
	Samples          []RevenueSample
	Total            float64
	PriorGrossIncome float64
	HandleID         string
	Generation       uint64
	MountErr         error
	Fault            error
}

// Snapshot returns a consistent copy of the controller state.
func (c *ChartController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	samples, _ := c.dataset.Samples(c.selectedYear)
	snap := Snapshot{
		State:            c.state,
		Target:           c.target,
		SelectedYear:     c.selectedYear,
		Years:            c.dataset.Years(),
		Samples:          samples,
		Total:            c.dataset.Total(c.selectedYear),
		PriorGrossIncome: c.dataset.PriorGrossIncome,
		MountErr:         c.mountErr,
		Fault:            c.fault,
	}
	if c.handle != nil {
		snap.HandleID = c.handle.ID()
		snap.Generation = c.handle.Generation()
	}
	return snap
}

func (c *ChartController) disposeLocked(handle *ChartHandle) error {
	if handle == nil {
		return nil
	}
	if err := c.engine.Dispose(handle); err != nil {
		c.reportStale("dispose", handle, err)
		return err
	}
	return nil
}

// faultLocked records an engine failure on the live handle. A stale handle
// can never be used again, so the controller drops it and falls back to
// unmounted.
func (c *ChartController) faultLocked(op string, err error) {
	c.fault = fmt.Errorf("revenue: %s: %w", op, err)
	if errors.Is(err, ErrStaleBind) {
		c.reportStale(op, c.handle, err)
		c.handle = nil
		c.state = StateUnmounted
		return
	}
	c.logger.Error("chart engine failed", zap.String("op", op), zap.Error(err))
}

func (c *ChartController) reportStale(op string, handle *ChartHandle, err error) {
	if !errors.Is(err, ErrStaleBind) {
		return
	}
	c.logger.DPanic("chart handle used after dispose",
		zap.String("op", op),
		zap.String("handle", handle.ID()),
		zap.Error(err),
	)
}

func (c *ChartController) recordMountError(ctx context.Context, target string, err error) {
	c.logger.Warn("chart mount failed", zap.String("target", target), zap.Error(err))
	c.telemetry.Record(ctx, EventMountError, map[string]any{
		"target": target,
		"error":  err.Error(),
	})
}
