package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/portwatch/internal/performance"
	"github.com/aristath/portwatch/internal/store"
)

const defaultHistoryDays = 30

type handlers struct {
	store       store.Store
	startupTime time.Time
	log         zerolog.Logger
}

func newHandlers(st store.Store, log zerolog.Logger) *handlers {
	return &handlers{
		store:       st,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "api").Logger(),
	}
}

// RegisterRoutes registers all API routes
func (h *handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/system", h.handleSystem)
		r.Get("/holdings", h.handleHoldings)
		r.Get("/prices", h.handlePrices)
		r.Get("/valuations", h.handleValuations)
		r.Get("/valuations/latest", h.handleLatestValuation)
		r.Get("/performance", h.handlePerformance)
		r.Get("/performance/stats", h.handlePerformanceStats)
	})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
	})
}

func (h *handlers) handleSystem(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp["memory_percent"] = vm.UsedPercent
		resp["memory_used_mb"] = vm.Used / 1024 / 1024
	}

	h.writeJSON(w, resp)
}

func (h *handlers) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.store.GetHoldings()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, holdings)
}

func (h *handlers) handlePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.store.LatestPrices()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, prices)
}

func (h *handlers) handleValuations(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.ValuationHistory(queryDays(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, history)
}

func (h *handlers) handleLatestValuation(w http.ResponseWriter, r *http.Request) {
	latest, err := h.store.GetLatestValuation()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		h.writeError(w, http.StatusNotFound, "no valuations recorded yet")
		return
	}
	h.writeJSON(w, latest)
}

func (h *handlers) handlePerformance(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.PerformanceHistory(queryDays(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, history)
}

func (h *handlers) handlePerformanceStats(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.ValuationHistory(queryDays(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, performance.ComputeHistoryStats(history))
}

func queryDays(r *http.Request) int {
	if raw := r.URL.Query().Get("days"); raw != "" {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			return days
		}
	}
	return defaultHistoryDays
}

func (h *handlers) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
