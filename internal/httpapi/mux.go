package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux serving /healthz and the static assets under /static/.
func NewMux(db *sql.DB, staticDir string, checks ...Check) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, checks)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return mux
}
