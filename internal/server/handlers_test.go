package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/aristath/portwatch/internal/store"
)

func newTestServer(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	return New(Config{Port: 0, Store: st, Log: zerolog.Nop()}).Router()
}

func seedStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewMemoryStore()

	require.NoError(t, st.UpsertHolding(domain.Holding{
		Symbol:    "AAPL",
		Quantity:  decimal.NewFromInt(10),
		CostBasis: decimal.NewFromInt(1000),
	}))
	require.NoError(t, st.SavePrice(domain.PriceQuote{
		Symbol:    "AAPL",
		Price:     decimal.NewFromInt(150),
		Source:    domain.SourceYahoo,
		FetchedAt: time.Now().UTC(),
	}))
	require.NoError(t, st.SaveValuation(domain.ValuationSnapshot{
		At:         time.Now().UTC(),
		TotalValue: decimal.NewFromInt(1500),
		PerHolding: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1500)},
	}))
	return st
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, store.NewMemoryStore()), "/api/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHoldingsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, seedStore(t)), "/api/holdings")

	require.Equal(t, http.StatusOK, rec.Code)
	var holdings []domain.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
}

func TestPricesEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, seedStore(t)), "/api/prices")

	require.Equal(t, http.StatusOK, rec.Code)
	var prices []domain.PriceQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	require.Len(t, prices, 1)
	assert.Equal(t, domain.SourceYahoo, prices[0].Source)
}

func TestLatestValuationEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, seedStore(t)), "/api/valuations/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.ValuationSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(1500)))
}

func TestLatestValuationNotFound(t *testing.T) {
	rec := get(t, newTestServer(t, store.NewMemoryStore()), "/api/valuations/latest")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValuationHistoryEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, seedStore(t)), "/api/valuations?days=7")

	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.ValuationSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestPerformanceStatsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t, seedStore(t)), "/api/performance/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "periods")
}

func TestQueryDaysFallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultHistoryDays, queryDays(httptest.NewRequest(http.MethodGet, "/api/valuations", nil)))
	assert.Equal(t, defaultHistoryDays, queryDays(httptest.NewRequest(http.MethodGet, "/api/valuations?days=abc", nil)))
	assert.Equal(t, defaultHistoryDays, queryDays(httptest.NewRequest(http.MethodGet, "/api/valuations?days=-1", nil)))
	assert.Equal(t, 7, queryDays(httptest.NewRequest(http.MethodGet, "/api/valuations?days=7", nil)))
}
