package collector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	defaultMarketsPage  = 200
	defaultMarketsTTL   = 2 * time.Minute
)

// coinMarket is the subset of /coins/markets we rely on.
type coinMarket struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	CurrentPrice   float64  `json:"current_price"`
	PriceChange24h *float64 `json:"price_change_percentage_24h"`
	Sparkline      *struct {
		// CoinGecko leaves gaps as null
		Price []*float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

func (m coinMarket) validate() error {
	if m.Symbol == "" {
		return errors.New("market without symbol")
	}
	if math.IsNaN(m.CurrentPrice) || m.CurrentPrice <= 0 {
		return errors.Wrapf(domain.ErrInvalidPrice, "%s current price %v", m.Symbol, m.CurrentPrice)
	}
	return nil
}

// sparklinePoints spaces the sparkline hourly back from fetchedAt and drops null points.
func (m coinMarket) sparklinePoints(fetchedAt time.Time) []domain.PricePoint {
	if m.Sparkline == nil {
		return nil
	}
	prices := m.Sparkline.Price
	points := make([]domain.PricePoint, 0, len(prices))
	for i, price := range prices {
		if price == nil {
			continue
		}
		points = append(points, domain.PricePoint{
			Time:  fetchedAt.Add(-time.Duration(len(prices)-1-i) * time.Hour).UTC(),
			Price: *price,
		})
	}
	return points
}

// CoinGeckoConfig configures CoinGeckoProvider. Zero values fall back to defaults.
type CoinGeckoConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	PerPage    int
	CacheTTL   time.Duration
	Now        func() time.Time
}

// CoinGeckoProvider serves the 7 day hourly sparkline of the top coins by market cap.
// One markets page is fetched and shared by all symbols until it expires.
type CoinGeckoProvider struct {
	cfg CoinGeckoConfig

	mu        sync.Mutex
	markets   []coinMarket
	fetchedAt time.Time
}

// NewCoinGeckoProvider creates a new CoinGecko provider.
func NewCoinGeckoProvider(cfg CoinGeckoConfig) *CoinGeckoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCoinGeckoURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultMarketsPage
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultMarketsTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CoinGeckoProvider{cfg: cfg}
}

func (p *CoinGeckoProvider) fetchMarkets(ctx context.Context) ([]coinMarket, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.cfg.Now()
	if p.markets != nil && now.Sub(p.fetchedAt) < p.cfg.CacheTTL {
		return p.markets, p.fetchedAt, nil
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprint(p.cfg.PerPage))
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")

	var raw []coinMarket
	if err := getJSON(ctx, p.cfg.HTTPClient, strings.TrimRight(p.cfg.BaseURL, "/")+"/coins/markets?"+q.Encode(), &raw); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "coingecko markets")
	}

	markets := raw[:0]
	for _, m := range raw {
		if m.validate() != nil {
			continue
		}
		markets = append(markets, m)
	}

	p.markets = markets
	p.fetchedAt = now
	return markets, now, nil
}

// Series returns the sparkline of the coin whose ticker matches the instrument base.
// Sparkline points carry no timestamps, so they are spaced hourly back from fetch time.
func (p *CoinGeckoProvider) Series(ctx context.Context, inst domain.Instrument, limit int) (domain.PriceSeries, error) {
	pair, err := inst.Pair()
	if err != nil {
		return domain.PriceSeries{}, err
	}

	markets, fetchedAt, err := p.fetchMarkets(ctx)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	for _, m := range markets {
		if !strings.EqualFold(m.Symbol, pair.From) {
			continue
		}
		points := m.sparklinePoints(fetchedAt)
		if len(points) == 0 {
			return domain.PriceSeries{}, errors.Wrapf(domain.ErrNoPriceData, "coingecko has no sparkline for %s", m.ID)
		}
		if limit > 0 && len(points) > limit {
			points = points[len(points)-limit:]
		}
		return domain.PriceSeries{Symbol: inst.Symbol, Points: points}, nil
	}

	return domain.PriceSeries{}, errors.Wrapf(domain.ErrInvalidSymbol, "%s is not among the top %d coins", pair.From, p.cfg.PerPage)
}

// Markets returns quotes of the top n coins by market cap.
func (p *CoinGeckoProvider) Markets(ctx context.Context, n int) ([]domain.Quote, error) {
	markets, _, err := p.fetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(markets) > n {
		markets = markets[:n]
	}

	quotes := make([]domain.Quote, len(markets))
	for i, m := range markets {
		q := domain.Quote{
			Symbol: strings.ToUpper(m.Symbol),
			Name:   m.Name,
			Market: domain.MarketCrypto,
			Price:  m.CurrentPrice,
		}
		if m.PriceChange24h != nil {
			q.ChangePercent = *m.PriceChange24h
		}
		quotes[i] = q
	}
	return quotes, nil
}

// Instruments lists the top n coins as instruments.
func (p *CoinGeckoProvider) Instruments(ctx context.Context, n int) ([]domain.Instrument, error) {
	quotes, err := p.Markets(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Instrument, 0, len(quotes))
	for _, q := range quotes {
		inst := domain.Instrument{Symbol: q.Symbol, Market: domain.MarketCrypto, Name: q.Name}
		if inst.Validate() != nil {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}
