package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/polysentry/polysentry/internal/correlation"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts := s.eng.Config.Scan
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := q.Get("exchange"); v != "" {
		opts.Exchange = v
	}
	if v := q.Get("slug"); v != "" {
		opts.Slug = v
	}

	res, err := s.orch.Scan(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePulse(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.Pulse(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	opts := s.eng.Config.Signals
	q := r.URL.Query()
	if v := q.Get("min_confidence"); v != "" {
		opts.MinConfidence = v
	}
	if v := q.Get("action"); v != "" {
		opts.ActionFilter = v
	}
	if v := q.Get("max_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxDays = n
		}
	}
	if v := q.Get("min_edge"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			opts.MinEdge = f
		}
	}

	res, err := s.orch.Signals(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	opts := correlation.DefaultOptions()
	q := r.URL.Query()
	if v := q.Get("window_hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.WindowHours = n
		}
	}
	if v := q.Get("min_shared_wallets"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MinSharedWallets = n
		}
	}
	if v := q.Get("max_markets"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxMarkets = n
		}
	}

	res, err := s.orch.Correlations(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.Scorecard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	venues := make([]string, 0, len(s.eng.Venues))
	for _, v := range s.eng.Venues {
		venues = append(venues, v.Name())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"venues":         venues,
		"cache":          s.eng.Cache.Stats(),
		"cache_entries":  s.eng.Cache.Len(),
		"velocity_rings": s.eng.Velocity.Markets(),
		"time":           time.Now().UTC(),
	})
}
