package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/deusflow/biobrief/internal/app"
	"github.com/deusflow/biobrief/internal/metrics"
	"github.com/deusflow/biobrief/internal/storage"
)

// briefingSource is the part of the app the monitoring routes read.
type briefingSource interface {
	Metrics() *metrics.Metrics
	Writer() *storage.RunWriter
	History() app.RunHistory
}

const defaultRunsLimit = 20

func newMonitorServer(addr string, src briefingSource) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           newRouter(src),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newRouter(src briefingSource) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler(src)).Methods("GET")
	r.HandleFunc("/metrics", metricsHandler(src)).Methods("GET")
	r.HandleFunc("/briefing/latest", latestBriefingHandler(src)).Methods("GET")
	r.HandleFunc("/runs", runsHandler(src)).Methods("GET")
	r.HandleFunc("/runs/{id}", runItemsHandler(src)).Methods("GET")
	return r
}

func healthHandler(src briefingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := src.Metrics().GetStats()

		status := "ok"
		code := http.StatusOK
		if !src.Metrics().Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	}
}

func metricsHandler(src briefingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Metrics().GetStats())
	}
}

// latestBriefingHandler serves the briefing of the last run in this
// process, or the newest run directory on disk.
func latestBriefingHandler(src briefingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir := src.Metrics().LastBriefing()
		if dir == "" {
			var err error
			dir, err = src.Writer().LatestRunDir()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
		}
		if dir == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no briefing yet"})
			return
		}

		out, err := storage.LoadBriefing(dir)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// runsHandler lists archived runs, newest first. ?limit=N caps the list.
func runsHandler(src briefingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := src.History()
		if history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no archive configured"})
			return
		}
		limit := defaultRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}

		runs, err := history.RecentRuns(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if runs == nil {
			runs = []storage.RunRecord{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func runItemsHandler(src briefingSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := src.History()
		if history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no archive configured"})
			return
		}
		id := mux.Vars(r)["id"]
		items, err := history.RunItems(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if len(items) == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
