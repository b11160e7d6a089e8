package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource fetches quotes from the Yahoo Finance quote API.
type YahooSource struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewYahooSource creates a new Yahoo Finance source
func NewYahooSource(timeout time.Duration, log zerolog.Logger) *YahooSource {
	return &YahooSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: yahooBaseURL,
		log:     log.With().Str("source", domain.SourceYahoo).Logger(),
	}
}

// Name returns the source identifier
func (s *YahooSource) Name() string {
	return domain.SourceYahoo
}

// yahooQuoteResponse represents the response from the Yahoo Finance quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string       `json:"symbol"`
			RegularMarketPrice *json.Number `json:"regularMarketPrice"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// GetPrice fetches the regular market price for a symbol
func (s *YahooSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", s.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Decimal{}, fmt.Errorf("yahoo: %s: %w", symbol, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("yahoo returned status %d", resp.StatusCode)
	}

	var decoded yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return decimal.Decimal{}, fmt.Errorf("yahoo: %w: %v", ErrMalformed, err)
	}

	if len(decoded.QuoteResponse.Result) == 0 {
		return decimal.Decimal{}, fmt.Errorf("yahoo: %s: %w", symbol, ErrNotFound)
	}

	raw := decoded.QuoteResponse.Result[0].RegularMarketPrice
	if raw == nil {
		return decimal.Decimal{}, fmt.Errorf("yahoo: no market price for %s: %w", symbol, ErrMalformed)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("yahoo: bad price %q for %s: %w", raw.String(), symbol, ErrMalformed)
	}

	return price, nil
}
