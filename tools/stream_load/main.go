// Command stream_load opens many concurrent subscriptions to the signal stream and reports
// how many signals each direction delivered.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	buy         atomic.Int64
	sell        atomic.Int64
	hold        atomic.Int64
}

// observe tallies one journal record by signal direction.
func (c *counters) observe(payload []byte) {
	switch gjson.GetBytes(payload, "signal.type").String() {
	case "BUY":
		c.buy.Add(1)
	case "SELL":
		c.sell.Add(1)
	case "HOLD":
		c.hold.Add(1)
	}
}

func (c *counters) events() int64 {
	return c.buy.Load() + c.sell.Load() + c.hold.Load()
}

func (c *counters) fields() []zap.Field {
	return []zap.Field{
		zap.Int64("connected", c.connected.Load()),
		zap.Int64("connect_errs", c.connectErrs.Load()),
		zap.Int64("stream_errs", c.streamErrs.Load()),
		zap.Int64("buy", c.buy.Load()),
		zap.Int64("sell", c.sell.Load()),
		zap.Int64("hold", c.hold.Load()),
	}
}

func main() {
	var (
		baseURL      string
		mode         string
		connections  int
		testDuration time.Duration
		rampUp       time.Duration
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&mode, "mode", "sse", "sse or ws")
	flag.IntVar(&connections, "conns", 500, "number of concurrent subscriptions")
	flag.DurationVar(&testDuration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", time.Second, "spread connection starts across this window")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}
	if mode != "sse" && mode != "ws" {
		logger.Fatal("invalid mode", zap.String("mode", mode))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if testDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testDuration)
		defer cancel()
	}

	transport := &http.Transport{
		MaxConnsPerHost:     connections + 100,
		MaxIdleConns:        connections + 100,
		MaxIdleConnsPerHost: connections + 100,
		DisableCompression:  true,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	client := &http.Client{Transport: transport}

	logger.Info("starting stream load",
		zap.String("url", baseURL), zap.String("mode", mode),
		zap.Int("conns", connections), zap.Duration("dur", testDuration))

	var c counters
	start := time.Now()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("status", append(c.fields(), zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))...)
			}
		}
	}()

	interval := rampUp / time.Duration(connections)
	var g errgroup.Group
	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		g.Go(func() error {
			if mode == "ws" {
				subscribeWS(ctx, baseURL, &c)
			} else {
				subscribeSSE(ctx, client, baseURL, &c)
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d buy=%d sell=%d hold=%d elapsed=%s events/s=%.2f\n",
		c.connected.Load(), c.connectErrs.Load(), c.streamErrs.Load(),
		c.buy.Load(), c.sell.Load(), c.hold.Load(),
		elapsed.Truncate(time.Millisecond), float64(c.events())/elapsed.Seconds())
	if c.connectErrs.Load() > 0 {
		os.Exit(1)
	}
}

func subscribeSSE(ctx context.Context, client *http.Client, baseURL string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/signals/stream", nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}
	c.connected.Add(1)

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				c.streamErrs.Add(1)
			}
			return
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			c.observe([]byte(data))
		}
	}
}

func subscribeWS(ctx context.Context, baseURL string, c *counters) {
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/signals/ws"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c.connected.Add(1)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.streamErrs.Add(1)
			}
			return
		}
		c.observe(payload)
	}
}
