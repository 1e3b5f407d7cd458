package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type stats struct {
	started     time.Time
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	events      atomic.Int64
	heartbeats  atomic.Int64
	lastIndex   atomic.Uint64
}

// consume reads one SSE stream until it ends. Only "offer" events count.
func (s *stats) consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, ":"):
			s.heartbeats.Add(1)
		case strings.HasPrefix(line, "id:"):
			idx, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, "id:")), 10, 64)
			if err == nil {
				s.observeIndex(idx)
			}
		case line == "event: offer" || line == "event:offer":
			s.events.Add(1)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

func (s *stats) observeIndex(idx uint64) {
	for {
		cur := s.lastIndex.Load()
		if idx <= cur || s.lastIndex.CompareAndSwap(cur, idx) {
			return
		}
	}
}

func (s *stats) report(ctx context.Context, logger *zap.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("status",
				zap.Int64("connected", s.connected.Load()),
				zap.Int64("connect_errs", s.connectErrs.Load()),
				zap.Int64("stream_errs", s.streamErrs.Load()),
				zap.Int64("events", s.events.Load()),
				zap.Uint64("last_index", s.lastIndex.Load()),
				zap.Duration("elapsed", time.Since(s.started).Truncate(time.Second)))
		}
	}
}

func (s *stats) summary() string {
	elapsed := time.Since(s.started)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	events := s.events.Load()
	return fmt.Sprintf("done: connected=%d connect_errs=%d stream_errs=%d events=%d heartbeats=%d last_index=%d elapsed=%s events/s=%.2f",
		s.connected.Load(),
		s.connectErrs.Load(),
		s.streamErrs.Load(),
		events,
		s.heartbeats.Load(),
		s.lastIndex.Load(),
		elapsed.Truncate(time.Millisecond),
		float64(events)/elapsed.Seconds())
}
