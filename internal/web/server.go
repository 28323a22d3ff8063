// Package web serves signals, insights and metrics over HTTP, with SSE and websocket
// streams of the signal journal.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/tradesignals/internal/domain"
	"github.com/vadiminshakov/tradesignals/internal/services/aggregator"
	"github.com/vadiminshakov/tradesignals/internal/services/insights"
	"github.com/vadiminshakov/tradesignals/internal/storage/signals"
)

const (
	journalPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
	// streams start this many signals back unless the client names an index
	replayWindow = 50
)

type signalService interface {
	Batch(ctx context.Context, market domain.MarketKind) (aggregator.Batch, error)
	Signal(ctx context.Context, symbol string, market domain.MarketKind) (domain.Signal, error)
}

type insightService interface {
	Generate(ctx context.Context) (insights.Insight, error)
}

// SignalReader reads the signal journal by index.
type SignalReader interface {
	SignalsAfter(index uint64) ([]signals.Record, error)
	CurrentIndex() uint64
}

// Server exposes the JSON API, the HTML page and the signal streams.
type Server struct {
	Addr     string
	Signals  signalService
	Insights insightService
	Journal  SignalReader

	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
	logger   *zap.Logger

	pollInterval time.Duration
	heartbeat    time.Duration
}

// NewServer creates a server. insights and journal may be nil, their endpoints then
// answer 503. reg receives the HTTP metrics and is served on /metrics.
func NewServer(addr string, signalSvc signalService, insightSvc insightService, journal SignalReader,
	reg *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	if signalSvc == nil {
		return nil, errors.New("signal service is required")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradesignals",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route.",
	}, []string{"route"})
	if err := reg.Register(requests); err != nil {
		return nil, errors.Wrap(err, "failed to register http metrics")
	}

	s := &Server{
		Addr:         addr,
		Signals:      signalSvc,
		Insights:     insightSvc,
		Journal:      journal,
		gatherer:     reg,
		requests:     requests,
		logger:       logger,
		pollInterval: journalPollInterval,
		heartbeat:    heartbeatInterval,
	}
	return s, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.count("index", s.handleIndex))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/signals", s.count("batch", s.handleBatch))
	mux.HandleFunc("GET /api/signals/stream", s.count("stream", s.handleSignalStream))
	mux.HandleFunc("GET /api/signals/ws", s.count("ws", s.handleSignalSocket))
	mux.HandleFunc("GET /api/signals/{symbol}", s.count("signal", s.handleSignal))
	mux.HandleFunc("GET /api/insights", s.count("insights", s.handleInsights))
	return mux
}

func (s *Server) count(route string, h http.HandlerFunc) http.HandlerFunc {
	c := s.requests.WithLabelValues(route)
	return func(w http.ResponseWriter, r *http.Request) {
		c.Inc()
		h(w, r)
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with certificates obtained via ACME.
// A plain HTTP server on port 80 answers the HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme server failed", zap.Error(err))
		}
	}()

	s.logger.Info("https server listening", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type batchError struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type batchResponse struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Signals    []domain.Signal `json:"signals"`
	Errors     []batchError    `json:"errors,omitempty"`
}

func newBatchResponse(b aggregator.Batch) batchResponse {
	resp := batchResponse{
		ID:         b.ID,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
		Signals:    b.Signals(),
	}
	for _, r := range b.Results {
		if r.Err != nil {
			resp.Errors = append(resp.Errors, batchError{Symbol: r.Symbol, Error: r.Err.Error()})
		}
	}
	return resp
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var market domain.MarketKind
	if m := r.URL.Query().Get("market"); m != "" {
		parsed, err := domain.ParseMarketKind(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		market = parsed
	}

	batch, err := s.Signals.Batch(r.Context(), market)
	if err != nil {
		s.logger.Warn("batch request failed", zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchResponse(batch))
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	market := domain.MarketCrypto
	if m := r.URL.Query().Get("market"); m != "" {
		parsed, err := domain.ParseMarketKind(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		market = parsed
	}

	sig, err := s.Signals.Signal(r.Context(), r.PathValue("symbol"), market)
	if err != nil {
		s.logger.Warn("signal request failed", zap.String("symbol", r.PathValue("symbol")), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.Insights == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("insights are not available"))
		return
	}

	insight, err := s.Insights.Generate(r.Context())
	if err != nil {
		s.logger.Warn("insights request failed", zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoPriceData):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientData),
		errors.Is(err, domain.ErrNonChronological),
		errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
