package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"airquality-dashboard/internal/utils"
)

// Check reports the state of one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	checks []Check
}

func NewHealthchecker(db *sql.DB, checks []Check) healthchecker {
	return &healthcheckerImpl{db: db, checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	if h.db != nil {
		var ok int
		if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
			slog.Error("failed to check database connectivity", "error", err)
			resp.Status = "unavailable"
			resp.Checks["database"] = err.Error()
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[c.Name] = err.Error()
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	utils.WriteJSON(w, status, resp)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, checks []Check) {
	healthchecker := NewHealthchecker(db, checks)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
