package market

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the dashboard market-data endpoints on the given
// router. These are thin reads over the store; all shaping happens client-side.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/market/top", topHandler(store))
	r.Get("/api/market/{symbol}", symbolHandler(store))
	r.Get("/api/feargreed", fearGreedHandler(store))
	r.Get("/api/derivatives", derivativesHandler(store))
	r.Get("/api/summaries", summariesHandler(store))
}

func topHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		snaps, err := store.Snapshots(r.Context(), nil, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if snaps == nil {
			snaps = []Snapshot{}
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}

func symbolHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		snaps, err := store.Snapshots(r.Context(), []string{symbol}, 1)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if len(snaps) == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data for " + symbol})
			return
		}
		writeJSON(w, http.StatusOK, snaps[0])
	}
}

func fearGreedHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fg, err := store.LatestFearGreed(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if fg == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no fear & greed data"})
			return
		}
		writeJSON(w, http.StatusOK, fg)
	}
}

func derivativesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var symbols []string
		if v := r.URL.Query().Get("symbols"); v != "" {
			symbols = strings.Split(v, ",")
		}
		metrics, err := store.Derivatives(r.Context(), symbols)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if metrics == nil {
			metrics = []Derivatives{}
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

func summariesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 3
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 30 {
				limit = n
			}
		}
		summaries, err := store.RecentSummaries(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if summaries == nil {
			summaries = []DailySummary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
