package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tradesignals/internal/storage/signals"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startIndex resolves where a stream resumes: the Last-Event-ID header, the after query
// parameter, or replayWindow signals back from the head of the journal.
func (s *Server) startIndex(r *http.Request) uint64 {
	for _, v := range []string{r.Header.Get("Last-Event-ID"), r.URL.Query().Get("after")} {
		if v == "" {
			continue
		}
		if idx, err := strconv.ParseUint(v, 10, 64); err == nil {
			return idx
		}
	}

	current := s.Journal.CurrentIndex()
	if current <= replayWindow {
		return 0
	}
	return current - replayWindow
}

func (s *Server) handleSignalStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "signal journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastIndex := s.startIndex(r)
	records, err := s.Journal.SignalsAfter(lastIndex)
	if err != nil {
		http.Error(w, "failed to load signals", http.StatusInternalServerError)
		s.logger.Error("signal stream initial load", zap.Error(err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(records []signals.Record) error {
		for _, record := range records {
			payload, err := json.Marshal(record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: signal\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		flusher.Flush()
		return nil
	}

	if err := send(records); err != nil {
		s.logger.Error("signal stream initial send", zap.Error(err))
		return
	}

	// comment heartbeats keep proxies from closing idle connections
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-poll.C:
			records, err := s.Journal.SignalsAfter(lastIndex)
			if err != nil {
				s.logger.Warn("signal stream poll", zap.Error(err))
				continue
			}
			if err := send(records); err != nil {
				s.logger.Warn("signal stream send", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) handleSignalSocket(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "signal journal not available")
		return
	}

	lastIndex := s.startIndex(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// clients only listen; reading surfaces the close frame and answers pings
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		records, err := s.Journal.SignalsAfter(lastIndex)
		if err != nil {
			s.logger.Warn("signal socket poll", zap.Error(err))
			return nil
		}
		for _, record := range records {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(record); err != nil {
				return err
			}
			lastIndex = record.Index
		}
		return nil
	}

	if err := send(); err != nil {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Debug("signal socket closed", zap.Error(err))
				return
			}
		}
	}
}
