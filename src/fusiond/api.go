package fusiond

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/postgres"
)

// StartAPI serves the read-only status endpoints: the exchange rate
// history out of redis and the operation history out of postgres.
func (svc *Service) StartAPI(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rates", svc.handleRates)
	mux.HandleFunc("/v1/operations", svc.handleOperations)
	svc.logger.Info("serving status api", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

type rateHistoryResponse struct {
	TotalSamples int64        `json:"total_samples"`
	Samples      []RateSample `json:"samples"`
}

func (svc *Service) handleRates(w http.ResponseWriter, r *http.Request) {
	if svc.rateHistory.client == nil {
		http.Error(w, "the rate feed is not configured", http.StatusServiceUnavailable)
		return
	}
	now := uint64(time.Now().Unix())
	from := queryUint(r, "from", now-86400)
	to := queryUint(r, "to", now)
	samples, err := svc.GetRateHistory(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := svc.rateHistory.Count(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rateHistoryResponse{TotalSamples: total, Samples: samples})
}

func (svc *Service) handleOperations(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}
	events, err := postgres.GetOperationsForActor(r.Context(), model.AccountName(actor), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func queryUint(r *http.Request, key string, fallback uint64) uint64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return val
}
