package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/portwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	googleBaseURL = "https://www.google.com/finance"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// The quote page renders the price inside a div with this class.
	googlePriceMarker = `class="YMlKec fxKbKc"`
)

// GoogleSource scrapes quotes from the Google Finance quote page. It is the
// fallback for symbols Yahoo cannot serve.
type GoogleSource struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewGoogleSource creates a new Google Finance source
func NewGoogleSource(timeout time.Duration, log zerolog.Logger) *GoogleSource {
	return &GoogleSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: googleBaseURL,
		log:     log.With().Str("source", domain.SourceGoogle).Logger(),
	}
}

// Name returns the source identifier
func (s *GoogleSource) Name() string {
	return domain.SourceGoogle
}

// googleSymbol converts an exchange-suffixed symbol to Google's quote path
// form, e.g. RELIANCE.NS -> RELIANCE:NSE.
func googleSymbol(symbol string) string {
	if base, ok := strings.CutSuffix(symbol, ".NS"); ok {
		return base + ":NSE"
	}
	return symbol
}

// GetPrice fetches the current price from the quote page
func (s *GoogleSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/quote/%s", s.baseURL, googleSymbol(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("google request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Decimal{}, fmt.Errorf("google: %s: %w", symbol, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read google response: %w", err)
	}

	price, err := parseGooglePrice(string(body))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("google: %s: %w", symbol, err)
	}

	return price, nil
}

// parseGooglePrice extracts the price from the quote page HTML. The value sits
// in the first element carrying the price marker class.
func parseGooglePrice(body string) (decimal.Decimal, error) {
	idx := strings.Index(body, googlePriceMarker)
	if idx < 0 {
		return decimal.Decimal{}, fmt.Errorf("price element missing: %w", ErrNotFound)
	}

	rest := body[idx+len(googlePriceMarker):]
	start := strings.Index(rest, ">")
	if start < 0 {
		return decimal.Decimal{}, ErrMalformed
	}
	end := strings.Index(rest[start:], "<")
	if end < 0 {
		return decimal.Decimal{}, ErrMalformed
	}

	text := rest[start+1 : start+end]
	cleaned := strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", ",", "").Replace(text)
	cleaned = strings.TrimSpace(cleaned)

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable price %q: %w", text, ErrMalformed)
	}

	return price, nil
}
