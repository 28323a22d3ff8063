package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/services/insights"
	"github.com/vadiminshakov/tradesignals/internal/storage/signals"
)

func buy(symbol string) domain.Signal {
	return domain.Signal{
		Symbol:      symbol,
		Market:      domain.MarketCrypto,
		Type:        domain.SignalBuy,
		Indicator:   domain.IndicatorRules,
		Confidence:  90,
		Price:       decimal.NewFromInt(100),
		TakeProfit:  decimal.NewFromInt(105),
		StopLoss:    decimal.NewFromInt(98),
		Score:       5,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeSignals struct {
	market domain.MarketKind
	symbol string
	err    error
}

func (f *fakeSignals) Batch(_ context.Context, market domain.MarketKind) (aggregator.Batch, error) {
	f.market = market
	if f.err != nil {
		return aggregator.Batch{}, f.err
	}
	sig := buy("BTC")
	return aggregator.Batch{
		ID: "batch-1",
		Results: []aggregator.Result{
			{Symbol: "BTC", Signal: &sig},
			{Symbol: "ETH", Err: errors.Wrap(domain.ErrInsufficientData, "got 3 points")},
		},
	}, nil
}

func (f *fakeSignals) Signal(_ context.Context, symbol string, market domain.MarketKind) (domain.Signal, error) {
	f.symbol, f.market = symbol, market
	if f.err != nil {
		return domain.Signal{}, f.err
	}
	return buy(symbol), nil
}

type insightFunc func(ctx context.Context) (insights.Insight, error)

func (f insightFunc) Generate(ctx context.Context) (insights.Insight, error) { return f(ctx) }

func newTestServer(t *testing.T, svc signalService, ins insightService, journal SignalReader) *Server {
	t.Helper()
	s, err := NewServer(":0", svc, ins, journal, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	s.pollInterval = 10 * time.Millisecond
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Batch(t *testing.T) {
	svc := &fakeSignals{}
	h := newTestServer(t, svc, nil, nil).Handler()

	rec := get(t, h, "/api/signals?market=Crypto")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MarketCrypto, svc.market)

	var body batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "batch-1", body.ID)
	require.Len(t, body.Signals, 1)
	assert.Equal(t, "BTC", body.Signals[0].Symbol)
	assert.True(t, body.Signals[0].TakeProfit.Equal(decimal.NewFromInt(105)))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "ETH", body.Errors[0].Symbol)
	assert.Contains(t, body.Errors[0].Error, "insufficient price data")

	rec = get(t, h, "/api/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.MarketKind(""), svc.market)

	rec = get(t, h, "/api/signals?market=stocks")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Signal(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		err            error
		expectedStatus int
		expectedMarket domain.MarketKind
	}{
		{name: "crypto by default", target: "/api/signals/BTC", expectedStatus: http.StatusOK, expectedMarket: domain.MarketCrypto},
		{name: "forex", target: "/api/signals/EURUSD?market=forex", expectedStatus: http.StatusOK, expectedMarket: domain.MarketForex},
		{name: "bad market", target: "/api/signals/BTC?market=bonds", expectedStatus: http.StatusBadRequest},
		{name: "invalid symbol", target: "/api/signals/B$C", err: domain.ErrInvalidSymbol, expectedStatus: http.StatusBadRequest, expectedMarket: domain.MarketCrypto},
		{name: "no data", target: "/api/signals/XYZ", err: errors.Wrap(domain.ErrNoPriceData, "XYZ"), expectedStatus: http.StatusNotFound, expectedMarket: domain.MarketCrypto},
		{name: "short history", target: "/api/signals/XYZ", err: domain.ErrInsufficientData, expectedStatus: http.StatusUnprocessableEntity, expectedMarket: domain.MarketCrypto},
		{name: "timeout", target: "/api/signals/XYZ", err: context.DeadlineExceeded, expectedStatus: http.StatusGatewayTimeout, expectedMarket: domain.MarketCrypto},
		{name: "upstream", target: "/api/signals/XYZ", err: errors.New("connection reset"), expectedStatus: http.StatusBadGateway, expectedMarket: domain.MarketCrypto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSignals{err: tt.err}
			rec := get(t, newTestServer(t, svc, nil, nil).Handler(), tt.target)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedMarket, svc.market)
			if tt.expectedStatus != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"error"`)
				return
			}
			var sig domain.Signal
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
			assert.Equal(t, svc.symbol, sig.Symbol)
		})
	}
}

func TestServer_Insights(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeSignals{}, nil, nil).Handler(), "/api/insights")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ins := insightFunc(func(context.Context) (insights.Insight, error) {
		return insights.Insight{Summary: "Crypto: 2 of 4 top coins advancing.", Source: insights.SourceFallback}, nil
	})
	rec = get(t, newTestServer(t, &fakeSignals{}, ins, nil).Handler(), "/api/insights")
	require.Equal(t, http.StatusOK, rec.Code)

	var body insights.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, insights.SourceFallback, body.Source)

	failing := insightFunc(func(context.Context) (insights.Insight, error) {
		return insights.Insight{}, errors.Wrap(domain.ErrNoPriceData, "both sources failed")
	})
	rec = get(t, newTestServer(t, &fakeSignals{}, failing, nil).Handler(), "/api/insights")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HealthIndexMetrics(t *testing.T) {
	h := newTestServer(t, &fakeSignals{}, nil, nil).Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/signals/stream")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)

	get(t, h, "/api/signals")
	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tradesignals_http_requests_total{route="batch"} 1`)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(":0", nil, nil, nil, nil, nil)
	assert.Error(t, err)

	reg := prometheus.NewRegistry()
	_, err = NewServer(":0", &fakeSignals{}, nil, nil, reg, nil)
	require.NoError(t, err)
	_, err = NewServer(":0", &fakeSignals{}, nil, nil, reg, nil)
	assert.Error(t, err)
}

type fixedReader struct{ current uint64 }

func (f fixedReader) SignalsAfter(uint64) ([]signals.Record, error) { return nil, nil }
func (f fixedReader) CurrentIndex() uint64                        { return f.current }

func TestServer_StartIndex(t *testing.T) {
	tests := []struct {
		name     string
		current  uint64
		header   string
		target   string
		expected uint64
	}{
		{name: "short journal replays everything", current: 10, target: "/", expected: 0},
		{name: "long journal replays a window", current: 120, target: "/", expected: 70},
		{name: "after parameter", current: 120, target: "/?after=7", expected: 7},
		{name: "last event id wins", current: 120, header: "99", target: "/?after=7", expected: 99},
		{name: "garbage is ignored", current: 120, header: "x", target: "/?after=y", expected: 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeSignals{}, nil, fixedReader{current: tt.current})
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Last-Event-ID", tt.header)
			}
			assert.Equal(t, tt.expected, s.startIndex(r))
		})
	}
}

func openJournal(t *testing.T, symbols ...string) *signals.Journal {
	t.Helper()
	j := signals.New(100)
	for _, s := range symbols {
		_, err := j.Save("batch-1", buy(s))
		require.NoError(t, err)
	}
	return j
}

func TestServer_SignalStream(t *testing.T) {
	journal := openJournal(t, "BTC", "ETH")
	srv := httptest.NewServer(newTestServer(t, &fakeSignals{}, nil, journal).Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/signals/stream?after=1", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, signals.Record) {
		var id string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "id: "):
				id = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "data: "):
				var rec signals.Record
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec))
				return id, rec
			}
		}
	}

	id, rec := next()
	assert.Equal(t, "2", id)
	assert.Equal(t, "ETH", rec.Signal.Symbol)

	_, err = journal.Save("batch-2", buy("SOL"))
	require.NoError(t, err)

	id, rec = next()
	assert.Equal(t, "3", id)
	assert.Equal(t, "SOL", rec.Signal.Symbol)
	assert.Equal(t, "batch-2", rec.BatchID)
}

func TestServer_SignalSocket(t *testing.T) {
	journal := openJournal(t, "BTC")
	srv := httptest.NewServer(newTestServer(t, &fakeSignals{}, nil, journal).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/signals/ws?after=0"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var rec signals.Record
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, uint64(1), rec.Index)
	assert.Equal(t, "BTC", rec.Signal.Symbol)

	_, err = journal.Save("", buy("ETH"))
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, uint64(2), rec.Index)
	assert.Equal(t, "ETH", rec.Signal.Symbol)
}

func TestServer_StreamsWithoutJournal(t *testing.T) {
	h := newTestServer(t, &fakeSignals{}, nil, nil).Handler()

	for _, target := range []string{"/api/signals/stream", "/api/signals/ws"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		body, _ := io.ReadAll(rec.Body)
		assert.Contains(t, string(body), "journal not available")
	}
}
