package revenue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerTotalMatchesEveryYear(t *testing.T) {
	dataset := DemoDataset()
	controller := NewChartController(newRecordingEngine(), dataset)

	for _, year := range dataset.Years() {
		assert.True(t, controller.SelectYear(context.Background(), year))
		bucket, _ := dataset.Bucket(year)
		assert.Equal(t, bucket.Total(), controller.Total(), "year %s", year)
	}
}

func TestControllerIgnoresUnknownYear(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	require.NoError(t, controller.Mount(context.Background(), Surface{ElementID: "chart"}))
	before := engine.callCount()

	assert.False(t, controller.SelectYear(context.Background(), "1999"))
	assert.False(t, controller.SelectYear(context.Background(), ""))

	assert.Equal(t, "2025", controller.SelectedYear())
	assert.Equal(t, 150000.0, controller.Total())
	assert.Equal(t, before, engine.callCount())
}

func TestControllerLifecycleInitializesAndDisposesOnce(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	ctx := context.Background()

	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))
	handle := controller.Handle()
	require.NotNil(t, handle)

	for i := 0; i < 10; i++ {
		controller.SelectYear(ctx, "2024")
		controller.SelectYear(ctx, "2025")
	}
	require.NoError(t, controller.Unmount(ctx))
	require.NoError(t, controller.Unmount(ctx))

	assert.Equal(t, 1, engine.count("initialize"))
	assert.Equal(t, 1, engine.count("dispose"))
	assert.True(t, handle.Disposed())
	assert.Nil(t, controller.Handle())
	assert.Equal(t, StateUnmounted, controller.State())

	calls := engine.snapshotCalls()
	assert.Equal(t, "initialize", calls[0])
	assert.Equal(t, "dispose", calls[len(calls)-1])
}

func TestControllerBoundDataTracksSelection(t *testing.T) {
	engine := newRecordingEngine()
	dataset := DemoDataset()
	controller := NewChartController(engine, dataset)
	ctx := context.Background()
	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))

	sequence := []string{"2024", "2024", "bogus", "2025", "2024"}
	for _, year := range sequence {
		controller.SelectYear(ctx, year)
		expected, err := dataset.Samples(controller.SelectedYear())
		require.NoError(t, err)
		assert.Equal(t, expected, engine.bound(controller.Handle()))
	}
}

func TestControllerConcreteScenario(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	view := NewView(nil)
	ctx := context.Background()
	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))
	handle := controller.Handle()

	vm := view.Model("s1", controller, ViewerContext{})
	assert.Equal(t, "2025", vm.SelectedYear)
	assert.Equal(t, "$150,000", vm.TotalLabel)
	assert.Equal(t, "last year $100,000", vm.PriorLabel)

	require.True(t, controller.SelectYear(ctx, "2024"))
	vm = view.Model("s1", controller, ViewerContext{})
	assert.Equal(t, "$120,000", vm.TotalLabel)
	assert.Same(t, handle, controller.Handle())
	assert.Equal(t, 1, engine.count("initialize"))
}

func TestControllerMountOnDetachedSurface(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())

	err := controller.Mount(context.Background(), Surface{ElementID: "chart", Detached: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMount)
	assert.ErrorIs(t, err, ErrDetachedTarget)
	var mountErr *MountError
	require.ErrorAs(t, err, &mountErr)
	assert.Equal(t, "chart", mountErr.Target)

	assert.Equal(t, StateUnmounted, controller.State())
	assert.Nil(t, controller.Handle())
	assert.Equal(t, 0, engine.count("bind"))
	assert.ErrorIs(t, controller.MountErr(), ErrMount)

	vm := NewView(nil).Model("s1", controller, ViewerContext{})
	assert.False(t, vm.Mounted)
	assert.Equal(t, DefaultPlaceholder, vm.Placeholder)
	assert.NotEmpty(t, vm.Error)
}

func TestControllerUnmountAfterFailedInitialize(t *testing.T) {
	engine := newRecordingEngine()
	engine.initErr = errors.New("canvas unavailable")
	controller := NewChartController(engine, DemoDataset())

	err := controller.Mount(context.Background(), Surface{ElementID: "chart"})
	require.ErrorIs(t, err, ErrMount)
	require.NoError(t, controller.Unmount(context.Background()))

	assert.Equal(t, 0, engine.count("dispose"))
	assert.Equal(t, 0, engine.count("bind"))
}

func TestControllerEmptyDatasetIsMountError(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, Dataset{})

	err := controller.Mount(context.Background(), Surface{ElementID: "chart"})
	require.ErrorIs(t, err, ErrMount)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Equal(t, 0, engine.callCount())
	assert.Equal(t, "", controller.SelectedYear())
	assert.Zero(t, controller.Total())
}

func TestControllerBindFailureDuringMountDisposes(t *testing.T) {
	engine := newRecordingEngine()
	engine.bindErr = errors.New("series rejected")
	controller := NewChartController(engine, DemoDataset())

	err := controller.Mount(context.Background(), Surface{ElementID: "chart"})
	require.ErrorIs(t, err, ErrMount)
	assert.Equal(t, 1, engine.count("dispose"))
	assert.Equal(t, StateUnmounted, controller.State())
	assert.Nil(t, controller.Handle())
}

func TestControllerBindFailureOnYearChangeKeepsPreviousYear(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	require.NoError(t, controller.Mount(context.Background(), Surface{ElementID: "chart"}))
	handle := controller.Handle()
	before := engine.bound(handle)

	engine.bindErr = errors.New("series rejected")
	assert.False(t, controller.SelectYear(context.Background(), "2024"))

	assert.Equal(t, "2025", controller.SelectedYear())
	assert.Equal(t, 150000.0, controller.Total())
	assert.Equal(t, StateBound, controller.State())
	assert.Same(t, handle, controller.Handle())
	assert.Equal(t, before, engine.bound(handle))
	assert.ErrorContains(t, controller.Fault(), "series rejected")

	svc := NewService(Options{Source: NewStaticDatasetSource(DemoDataset()), Engine: engine})
	engine.bindErr = nil
	session, err := svc.Open(context.Background(), OpenRequest{})
	require.NoError(t, err)
	engine.bindErr = errors.New("series rejected")
	ok, err := svc.SelectYear(context.Background(), session.ID, "2024")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "series rejected")
}

func TestControllerTeardownDuringInitializeDisposesLateHandle(t *testing.T) {
	engine := newRecordingEngine()
	engine.gate = make(chan struct{})
	engine.entered = make(chan struct{})
	controller := NewChartController(engine, DemoDataset())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- controller.Mount(ctx, Surface{ElementID: "chart"})
	}()

	<-engine.entered
	assert.Equal(t, StateInitializing, controller.State())
	require.NoError(t, controller.Unmount(ctx))
	assert.ErrorIs(t, controller.Mount(ctx, Surface{ElementID: "chart"}), ErrMountInFlight)
	close(engine.gate)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrMountAborted)
	case <-time.After(time.Second):
		t.Fatal("mount did not return")
	}

	assert.Equal(t, StateUnmounted, controller.State())
	assert.Equal(t, 1, engine.count("initialize"))
	assert.Equal(t, 0, engine.count("bind"))
	assert.Equal(t, 1, engine.count("dispose"))
	assert.Equal(t, 0, engine.live())
}

func TestControllerRemountCreatesFreshHandle(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	ctx := context.Background()

	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))
	first := controller.Handle()
	assert.ErrorIs(t, controller.Mount(ctx, Surface{ElementID: "chart"}), ErrAlreadyMounted)
	require.NoError(t, controller.Unmount(ctx))

	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))
	second := controller.Handle()
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, first.Disposed())
	assert.False(t, second.Disposed())
	assert.Equal(t, []string{"initialize", "bind", "dispose", "initialize", "bind"}, engine.snapshotCalls())
}

func TestControllerSelectionBeforeMountIsBoundOnMount(t *testing.T) {
	engine := newRecordingEngine()
	dataset := DemoDataset()
	controller := NewChartController(engine, dataset)
	ctx := context.Background()

	require.True(t, controller.SelectYear(ctx, "2024"))
	assert.Equal(t, 0, engine.callCount())
	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))

	expected, _ := dataset.Samples("2024")
	assert.Equal(t, expected, engine.bound(controller.Handle()))
}

func TestControllerStaleBindFaults(t *testing.T) {
	engine := newRecordingEngine()
	controller := NewChartController(engine, DemoDataset())
	ctx := context.Background()
	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))

	// Simulate an engine that dropped the root behind the controller's back.
	controller.Handle().Release()

	assert.True(t, controller.SelectYear(ctx, "2024"))
	assert.ErrorIs(t, controller.Fault(), ErrStaleBind)
	assert.Equal(t, StateUnmounted, controller.State())
	assert.Nil(t, controller.Handle())
}

func TestControllerInitialYearOption(t *testing.T) {
	controller := NewChartController(newRecordingEngine(), DemoDataset(), WithInitialYear("2024"))
	assert.Equal(t, "2024", controller.SelectedYear())

	controller = NewChartController(newRecordingEngine(), DemoDataset(), WithInitialYear("1990"))
	assert.Equal(t, "2025", controller.SelectedYear())
}

func TestControllerRecordsTelemetry(t *testing.T) {
	telemetry := &recordingTelemetry{}
	controller := NewChartController(newRecordingEngine(), DemoDataset(), WithControllerTelemetry(telemetry))
	ctx := context.Background()

	require.NoError(t, controller.Mount(ctx, Surface{ElementID: "chart"}))
	controller.SelectYear(ctx, "2024")
	require.NoError(t, controller.Unmount(ctx))

	assert.Equal(t, []string{EventMount, EventSelectYear, EventUnmount}, telemetry.names())
}

func TestControllerRenderChartRequiresBinding(t *testing.T) {
	controller := NewChartController(newRecordingEngine(), DemoDataset())
	assert.ErrorIs(t, controller.RenderChart(io.Discard), ErrNotBound)
}

// --- Test helpers ---

type recordingEngine struct {
	mu       sync.Mutex
	calls    []string
	data     map[string][]RevenueSample
	handles  map[string]*ChartHandle
	initErr  error
	bindErr  error
	gate     chan struct{}
	entered  chan struct{}
	rendered int
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{
		data:    map[string][]RevenueSample{},
		handles: map[string]*ChartHandle{},
	}
}

func (e *recordingEngine) Initialize(ctx context.Context, target MountTarget) (*ChartHandle, error) {
	e.record("initialize")
	if e.entered != nil {
		close(e.entered)
	}
	if e.gate != nil {
		<-e.gate
	}
	if e.initErr != nil {
		return nil, e.initErr
	}
	if !target.Attached() {
		return nil, &MountError{Target: target.ID(), Cause: ErrDetachedTarget}
	}
	handle := NewChartHandle(target.ID(), nil)
	e.mu.Lock()
	e.handles[handle.ID()] = handle
	e.mu.Unlock()
	return handle, nil
}

func (e *recordingEngine) BindData(handle *ChartHandle, samples []RevenueSample) error {
	e.record("bind")
	if handle.Disposed() {
		return ErrStaleBind
	}
	if e.bindErr != nil {
		return e.bindErr
	}
	e.mu.Lock()
	e.data[handle.ID()] = append([]RevenueSample(nil), samples...)
	e.mu.Unlock()
	handle.Advance()
	return nil
}

func (e *recordingEngine) Dispose(handle *ChartHandle) error {
	e.record("dispose")
	if !handle.Release() {
		return ErrStaleBind
	}
	e.mu.Lock()
	delete(e.handles, handle.ID())
	e.mu.Unlock()
	return nil
}

func (e *recordingEngine) RenderChart(handle *ChartHandle, w io.Writer) error {
	if handle.Disposed() {
		return ErrStaleBind
	}
	e.mu.Lock()
	e.rendered++
	e.mu.Unlock()
	_, err := fmt.Fprintf(w, "<div id=%q></div>", handle.Target())
	return err
}

func (e *recordingEngine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

func (e *recordingEngine) count(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (e *recordingEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *recordingEngine) snapshotCalls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *recordingEngine) bound(handle *ChartHandle) []RevenueSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data[handle.ID()]
}

func (e *recordingEngine) live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingTelemetry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
