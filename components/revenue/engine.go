package revenue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// MinChartHeight is the smallest height a mount surface is rendered with.
const MinChartHeight = "250px"

const minChartHeightPx = 250

var (
	// ErrMount is matched by every error returned from a failed mount.
	ErrMount = errors.New("revenue: chart mount failed")
	// ErrStaleBind reports use of a chart handle after it was disposed.
	ErrStaleBind = errors.New("revenue: chart handle is disposed")
	// ErrDetachedTarget reports a mount surface that is not attached.
	ErrDetachedTarget = errors.New("revenue: mount target is not attached")
)

// MountError describes why a chart could not be mounted on its target.
type MountError struct {
	Target string
	Cause  error
}

func (e *MountError) Error() string {
	if e == nil {
		return ErrMount.Error()
	}
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", ErrMount, e.Cause)
	}
	return fmt.Sprintf("%s on %s: %v", ErrMount, e.Target, e.Cause)
}

// Unwrap exposes both ErrMount and the underlying cause to errors.Is/As.
func (e *MountError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{ErrMount}
	}
	return []error{ErrMount, e.Cause}
}

func newMountError(target string, cause error) error {
	var existing *MountError
	if errors.As(cause, &existing) {
		return cause
	}
	return &MountError{Target: target, Cause: cause}
}

// MountTarget is the surface identity a chart root is bound to.
type MountTarget interface {
	ID() string
	Attached() bool
}

// Surface is the server-side mount point of a chart: the element id the
// rendered markup targets and its dimensions.
type Surface struct {
	ElementID string
	Width     string
	Height    string
	Detached  bool
}

// ID implements MountTarget.
func (s Surface) ID() string {
	return s.ElementID
}

// Attached implements MountTarget.
func (s Surface) Attached() bool {
	return !s.Detached && strings.TrimSpace(s.ElementID) != ""
}

// Dimensions returns the surface size with defaults applied. Pixel heights
// are raised to MinChartHeight.
func (s Surface) Dimensions() (width, height string) {
	width = strings.TrimSpace(s.Width)
	if width == "" {
		width = "100%"
	}
	height = strings.TrimSpace(s.Height)
	if height == "" || belowMinHeight(height) {
		height = MinChartHeight
	}
	return width, height
}

func belowMinHeight(height string) bool {
	px, ok := strings.CutSuffix(height, "px")
	if !ok {
		return false
	}
	value, err := strconv.ParseFloat(px, 64)
	if err != nil {
		return false
	}
	return value < minChartHeightPx
}

// ChartHandle is an opaque reference to a live chart root. It is created once
// per mount and never reused after Release.
type ChartHandle struct {
	id         string
	target     string
	root       any
	disposed   atomic.Bool
	generation atomic.Uint64
}

// NewChartHandle wraps an engine specific root bound to target. Engines
// outside this package use it to build their handles.
func NewChartHandle(target string, root any) *ChartHandle {
	return &ChartHandle{
		id:     uuid.NewString(),
		target: target,
		root:   root,
	}
}

// ID returns the unique handle id.
func (h *ChartHandle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Target returns the id of the surface the handle is bound to.
func (h *ChartHandle) Target() string {
	if h == nil {
		return ""
	}
	return h.target
}

// Root returns the engine specific root.
func (h *ChartHandle) Root() any {
	if h == nil {
		return nil
	}
	return h.root
}

// Disposed reports whether the handle was released.
func (h *ChartHandle) Disposed() bool {
	return h == nil || h.disposed.Load()
}

// Generation counts successful binds on the handle.
func (h *ChartHandle) Generation() uint64 {
	if h == nil {
		return 0
	}
	return h.generation.Load()
}

// Advance records a successful bind and returns the new generation.
func (h *ChartHandle) Advance() uint64 {
	return h.generation.Add(1)
}

// Release marks the handle disposed. It returns false when the handle was
// already released.
func (h *ChartHandle) Release() bool {
	if h == nil {
		return false
	}
	return h.disposed.CompareAndSwap(false, true)
}

// ChartEngine is the imperative charting backend driven by the controller.
type ChartEngine interface {
	// Initialize allocates a chart root on target with its axes, series and
	// theme configured. It is not idempotent.
	Initialize(ctx context.Context, target MountTarget) (*ChartHandle, error)
	// BindData replaces the axis categories and series values of handle.
	BindData(handle *ChartHandle, samples []RevenueSample) error
	// Dispose releases every resource held by handle.
	Dispose(handle *ChartHandle) error
}

// ChartRenderer is implemented by engines that can write the markup of a
// bound chart.
type ChartRenderer interface {
	RenderChart(handle *ChartHandle, w io.Writer) error
}
