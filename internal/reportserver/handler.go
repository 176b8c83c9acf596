package reportserver

import (
	"errors"
	"io"
	"net/http"

	"permutest/internal/report"
)

// NewHandler builds the HTTP handler for the report page and data endpoints.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("reportserver: output dir is required")
	}
	mux := http.NewServeMux()
	mux.Handle("/", servePage(cfg.OutputDir))
	mux.HandleFunc("/healthz", serveHealth)
	mux.Handle("/db", serveDatabase(cfg.DBPath))
	return mux, nil
}

// servePage re-scans the output directory on every request so the page
// always reflects current ledger state.
func servePage(outputDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		entries, err := report.Load(outputDir)
		if err != nil {
			http.Error(w, "failed to load experiments", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = report.Page(entries).Render(r.Context(), w)
	})
}

// serveHealth answers liveness probes.
func serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// serveDatabase serves the DuckDB file from disk for client-side analysis.
// Without a configured artifact the endpoint answers 404.
func serveDatabase(dbPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if dbPath == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, dbPath)
	})
}
