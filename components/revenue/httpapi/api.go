package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	revenue "github.com/goliatone/go-revenue-dashboard/components/revenue"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/commands"
	"github.com/goliatone/go-revenue-dashboard/components/revenue/queries"
)

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Open   gocommand.Commander[commands.OpenChartInput]
	Select gocommand.Commander[commands.SelectYearInput]
	Close  gocommand.Commander[commands.CloseChartInput]
	View   gocommand.Querier[queries.ChartViewInput, revenue.ViewModel]
}

// OpenPayload is the body accepted by HandleOpen.
type OpenPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Locale string `json:"locale"`
	Theme  string `json:"theme"`
	Year   string `json:"year"`
}

// SelectYearPayload is the body accepted by HandleSelectYear.
type SelectYearPayload struct {
	Year string `json:"year"`
}

// Mux routes the handlers on a standard library mux.
func (h *Handlers) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /revenue/charts", h.HandleOpen)
	mux.HandleFunc("GET /revenue/charts/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleView(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("POST /revenue/charts/{id}/year", func(w http.ResponseWriter, r *http.Request) {
		h.HandleSelectYear(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("DELETE /revenue/charts/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleClose(w, r, r.PathValue("id"))
	})
	return mux
}

func (h *Handlers) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var payload OpenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var session *revenue.Session
	input := commands.OpenChartInput{
		Request: revenue.OpenRequest{
			Viewer: revenue.ViewerContext{
				UserID:       payload.UserID,
				Role:         payload.Role,
				Locale:       payload.Locale,
				ThemeVariant: payload.Theme,
			},
			Year: payload.Year,
		},
		Opened: func(s *revenue.Session) { session = s },
	}
	if err := h.Open.Execute(r.Context(), input); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	body := map[string]any{"session_id": ""}
	if session != nil {
		body["session_id"] = session.ID
		body["state"] = session.Controller.State().String()
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request, sessionID string) {
	vm, err := h.View.Query(r.Context(), queries.ChartViewInput{SessionID: sessionID})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

func (h *Handlers) HandleSelectYear(w http.ResponseWriter, r *http.Request, sessionID string) {
	var payload SelectYearPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.SelectYearInput{SessionID: sessionID, Year: payload.Year}
	if err := h.Select.Execute(r.Context(), input); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleClose(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.Close.Execute(r.Context(), commands.CloseChartInput{SessionID: sessionID}); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
