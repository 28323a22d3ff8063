package collector

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

const (
	defaultRatesURL  = "https://api.exchangerate-api.com/v4/latest/USD"
	ratesURLWithKey  = "https://v6.exchangerate-api.com/v6/%s/latest/USD"
	defaultRatesTTL  = 10 * time.Minute
	forexDriftPeriod = 15.0
	forexDriftAmp    = 0.02
	forexJitterAmp   = 0.01
)

// DefaultForexPairs are the majors and crosses scored by default.
var DefaultForexPairs = []string{
	"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF", "NZDUSD",
	"EURJPY", "GBPJPY", "EURGBP", "AUDJPY", "CADJPY", "CHFJPY", "NZDJPY",
	"GBPAUD", "EURAUD", "GBPCAD", "EURCAD", "GBPNZD", "EURNZD", "AUDCAD",
	"AUDCHF", "AUDNZD", "CADCHF", "NZDCHF",
}

// ratesResponse accepts both the keyless v4 and the keyed v6 payloads.
type ratesResponse struct {
	Result          string             `json:"result"`
	Base            string             `json:"base"`
	BaseCode        string             `json:"base_code"`
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (r ratesResponse) usdRates() (map[string]float64, error) {
	if r.Result != "" && r.Result != "success" {
		return nil, errors.Errorf("exchange rate API result %q", r.Result)
	}
	base := r.Base
	if base == "" {
		base = r.BaseCode
	}
	if !strings.EqualFold(base, "USD") {
		return nil, errors.Errorf("expected USD based rates, got %q", base)
	}

	rates := r.Rates
	if len(rates) == 0 {
		rates = r.ConversionRates
	}
	if len(rates) == 0 {
		return nil, errors.Wrap(domain.ErrNoPriceData, "exchange rate API returned no rates")
	}

	out := make(map[string]float64, len(rates)+1)
	for code, v := range rates {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		out[strings.ToUpper(code)] = v
	}
	out["USD"] = 1
	return out, nil
}

// ForexConfig configures ForexProvider. Zero values fall back to defaults.
type ForexConfig struct {
	// BaseURL overrides the rates endpoint entirely.
	BaseURL string
	// APIKey selects the keyed v6 endpoint when BaseURL is empty.
	APIKey     string
	HTTPClient *http.Client
	CacheTTL   time.Duration
	// Rand drives the jitter of synthesized history.
	Rand *rand.Rand
	Now  func() time.Time
}

// ForexProvider has no free historical source, so it synthesizes a daily history around
// the live cross rate: a slow sine drift of ±2% plus ±0.5% jitter per currency.
// The last point is always the live rate.
type ForexProvider struct {
	cfg ForexConfig

	mu        sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

// NewForexProvider creates a new forex provider.
func NewForexProvider(cfg ForexConfig) *ForexProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRatesURL
		if cfg.APIKey != "" {
			cfg.BaseURL = strings.Replace(ratesURLWithKey, "%s", cfg.APIKey, 1)
		}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultRatesTTL
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ForexProvider{cfg: cfg}
}

// Rates returns units of each currency per one USD.
func (p *ForexProvider) Rates(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ratesLocked(ctx)
}

func (p *ForexProvider) ratesLocked(ctx context.Context) (map[string]float64, error) {
	now := p.cfg.Now()
	if p.rates != nil && now.Sub(p.fetchedAt) < p.cfg.CacheTTL {
		return p.rates, nil
	}

	var resp ratesResponse
	if err := getJSON(ctx, p.cfg.HTTPClient, p.cfg.BaseURL, &resp); err != nil {
		return nil, errors.Wrap(err, "exchange rates")
	}
	rates, err := resp.usdRates()
	if err != nil {
		return nil, err
	}

	p.rates = rates
	p.fetchedAt = now
	return rates, nil
}

func splitForexPair(inst domain.Instrument) (base, quote string, err error) {
	if p, perr := domain.ParsePair(inst.Symbol); perr == nil {
		return p.From, p.To, nil
	}
	s := domain.NormalizeSymbol(inst.Symbol)
	if len(s) != 6 {
		return "", "", errors.Wrapf(domain.ErrInvalidSymbol, "forex symbol %q must be six letters", inst.Symbol)
	}
	return s[:3], s[3:], nil
}

// crossRate is the price of one base in quote.
func crossRate(rates map[string]float64, base, quote string) (float64, error) {
	b, ok := rates[base]
	if !ok {
		return 0, errors.Wrapf(domain.ErrInvalidSymbol, "no rate for %s", base)
	}
	q, ok := rates[quote]
	if !ok {
		return 0, errors.Wrapf(domain.ErrInvalidSymbol, "no rate for %s", quote)
	}
	return q / b, nil
}

// Series synthesizes limit daily points ending today at the live rate.
func (p *ForexProvider) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	if limit <= 0 {
		return domain.PriceSeries{}, errors.New("limit must be > 0")
	}
	base, quote, err := splitForexPair(inst)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rates, err := p.ratesLocked(ctx)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	live, err := crossRate(rates, base, quote)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	today := p.cfg.Now().UTC().Truncate(24 * time.Hour)
	points := make([]domain.PricePoint, limit)
	for k := 0; k < limit; k++ {
		daysAgo := limit - 1 - k
		price := live
		if daysAgo > 0 {
			price = live * p.variation(daysAgo, quote) / p.variation(daysAgo, base)
		}
		points[k] = domain.PricePoint{
			Time:  today.AddDate(0, 0, -daysAgo),
			Price: price,
		}
	}

	return domain.PriceSeries{Symbol: domain.NormalizeSymbol(inst.Symbol), Points: points}, nil
}

// variation is the synthetic multiplier of a USD rate daysAgo days back. USD itself is fixed.
func (p *ForexProvider) variation(daysAgo int, currency string) float64 {
	if currency == "USD" {
		return 1
	}
	drift := math.Sin(float64(daysAgo)/forexDriftPeriod) * forexDriftAmp
	jitter := (p.cfg.Rand.Float64() - 0.5) * forexJitterAmp
	return 1 + drift + jitter
}

// Quotes returns live rates for the given pairs. ChangePercent is not available and stays zero.
func (p *ForexProvider) Quotes(ctx context.Context, pairs []string) ([]domain.Quote, error) {
	rates, err := p.Rates(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(pairs))
	for _, symbol := range pairs {
		inst := domain.Instrument{Symbol: symbol, Market: domain.MarketForex}
		base, quote, err := splitForexPair(inst)
		if err != nil {
			continue
		}
		price, err := crossRate(rates, base, quote)
		if err != nil {
			continue
		}
		quotes = append(quotes, domain.Quote{
			Symbol: domain.NormalizeSymbol(symbol),
			Market: domain.MarketForex,
			Price:  price,
		})
	}
	return quotes, nil
}
