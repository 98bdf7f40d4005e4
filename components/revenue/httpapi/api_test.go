package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/commands"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/queries"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier struct {
	last  queries.ChartViewInput
	calls int
	err   error
}

func (s *stubQuerier) Query(ctx context.Context, input queries.ChartViewInput) (revenue.ViewModel, error) {
	s.last = input
	s.calls++
	return revenue.ViewModel{SessionID: input.SessionID, SelectedYear: "2025"}, s.err
}

func TestHandleOpen(t *testing.T) {
	open := &stubCommander[commands.OpenChartInput]{}
	api := &Handlers{Open: open}
	buf, _ := json.Marshal(OpenPayload{UserID: "u1", Role: "admin", Theme: "dark", Year: "2024"})
	req := httptest.NewRequest(http.MethodPost, "/revenue/charts", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	api.HandleOpen(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if open.calls != 1 {
		t.Fatalf("expected open to execute")
	}
	if open.last.Request.Viewer.ThemeVariant != "dark" || open.last.Request.Year != "2024" {
		t.Fatalf("expected payload propagation, got %+v", open.last.Request)
	}
}

func TestHandleOpenForbidden(t *testing.T) {
	open := &stubCommander[commands.OpenChartInput]{err: revenue.ErrForbidden}
	api := &Handlers{Open: open}
	req := httptest.NewRequest(http.MethodPost, "/revenue/charts", strings.NewReader(`{"role":"guest"}`))
	rec := httptest.NewRecorder()
	api.HandleOpen(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleOpenRejectsBadJSON(t *testing.T) {
	api := &Handlers{Open: &stubCommander[commands.OpenChartInput]{}}
	req := httptest.NewRequest(http.MethodPost, "/revenue/charts", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	api.HandleOpen(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSelectYear(t *testing.T) {
	selectYear := &stubCommander[commands.SelectYearInput]{}
	api := &Handlers{Select: selectYear}
	req := httptest.NewRequest(http.MethodPost, "/revenue/charts/s1/year", strings.NewReader(`{"year":"2024"}`))
	rec := httptest.NewRecorder()
	api.HandleSelectYear(rec, req, "s1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if selectYear.last.SessionID != "s1" || selectYear.last.Year != "2024" {
		t.Fatalf("expected id and year propagation, got %+v", selectYear.last)
	}
}

func TestHandleSelectUnknownYear(t *testing.T) {
	selectYear := &stubCommander[commands.SelectYearInput]{err: revenue.ErrUnknownYear}
	api := &Handlers{Select: selectYear}
	req := httptest.NewRequest(http.MethodPost, "/revenue/charts/s1/year", strings.NewReader(`{"year":"1999"}`))
	rec := httptest.NewRecorder()
	api.HandleSelectYear(rec, req, "s1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandleClose(t *testing.T) {
	closeCmd := &stubCommander[commands.CloseChartInput]{}
	api := &Handlers{Close: closeCmd}
	req := httptest.NewRequest(http.MethodDelete, "/revenue/charts/s1", nil)
	rec := httptest.NewRecorder()
	api.HandleClose(rec, req, "s1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if closeCmd.last.SessionID != "s1" {
		t.Fatalf("expected session id propagation")
	}
}

func TestHandleViewNotFound(t *testing.T) {
	view := &stubQuerier{err: revenue.ErrSessionNotFound}
	api := &Handlers{View: view}
	req := httptest.NewRequest(http.MethodGet, "/revenue/charts/missing", nil)
	rec := httptest.NewRecorder()
	api.HandleView(rec, req, "missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMuxRoutesPathValues(t *testing.T) {
	view := &stubQuerier{}
	closeCmd := &stubCommander[commands.CloseChartInput]{}
	api := &Handlers{View: view, Close: closeCmd}
	mux := api.Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenue/charts/abc", nil))
	if rec.Code != http.StatusOK || view.last.SessionID != "abc" {
		t.Fatalf("expected view for abc, got %d %+v", rec.Code, view.last)
	}
	var vm revenue.ViewModel
	if err := json.Unmarshal(rec.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode view model: %v", err)
	}
	if vm.SelectedYear != "2025" {
		t.Fatalf("unexpected view model %+v", vm)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/revenue/charts/abc", nil))
	if rec.Code != http.StatusNoContent || closeCmd.last.SessionID != "abc" {
		t.Fatalf("expected close for abc, got %d", rec.Code)
	}
}

func TestEndToEndWithService(t *testing.T) {
	service := revenue.NewService(revenue.Options{
		Source: revenue.NewStaticDatasetSource(revenue.DemoDataset()),
		Engine: revenue.NewEChartsEngine(),
	})
	api := &Handlers{
		Open:   commands.NewOpenChartCommand(service, nil),
		Select: commands.NewSelectYearCommand(service, nil),
		Close:  commands.NewCloseChartCommand(service, nil),
		View:   queries.NewChartViewQuery(service),
	}
	mux := api.Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revenue/charts", strings.NewReader(`{"user_id":"u1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var opened struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	if opened.SessionID == "" || opened.State != "bound" {
		t.Fatalf("unexpected open response %+v", opened)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revenue/charts/"+opened.SessionID+"/year", strings.NewReader(`{"year":"2024"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenue/charts/"+opened.SessionID, nil))
	var vm revenue.ViewModel
	if err := json.Unmarshal(rec.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode view model: %v", err)
	}
	if vm.TotalLabel != "$120,000" || vm.PriorLabel != "last year $100,000" {
		t.Fatalf("unexpected labels %q / %q", vm.TotalLabel, vm.PriorLabel)
	}
}
