// Command streamload opens many concurrent subscriptions to the journal
// stream and reports connection and event counts.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type loadOptions struct {
	url         string
	conns       int
	duration    time.Duration
	ramp        time.Duration
	lastEventID string
}

func main() {
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	opts := loadOptions{}

	cmd := &cobra.Command{
		Use:          "streamload",
		Short:        "Load test the journal event stream",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := run(ctx, opts, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080/api/journal/stream", "journal stream URL")
	cmd.Flags().IntVar(&opts.conns, "conns", 200, "number of concurrent subscriptions")
	cmd.Flags().DurationVar(&opts.duration, "dur", time.Minute, "test duration (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.ramp, "ramp", 0, "spread connection starts across this window")
	cmd.Flags().StringVar(&opts.lastEventID, "last-event-id", "", "resume every subscription after this journal index")

	return cmd
}

func run(ctx context.Context, opts loadOptions, logger *zap.Logger) (*stats, error) {
	if opts.conns <= 0 {
		return nil, fmt.Errorf("invalid conns: %d", opts.conns)
	}
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	if opts.ramp == 0 && opts.conns > 100 {
		// 1s per 500 connections, at least 1s
		opts.ramp = max(time.Duration(opts.conns/500)*time.Second, time.Second)
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     opts.conns + 100,
			MaxIdleConns:        opts.conns + 100,
			MaxIdleConnsPerHost: opts.conns + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting stream load",
		zap.String("url", opts.url),
		zap.Int("conns", opts.conns),
		zap.Duration("duration", opts.duration),
		zap.Duration("ramp", opts.ramp))

	st := &stats{started: time.Now()}
	go st.report(ctx, logger, 5*time.Second)

	interval := opts.ramp / time.Duration(opts.conns)

	// subscribers never fail the group; errors are counted instead
	var g errgroup.Group
	for i := 0; i < opts.conns; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			subscribe(ctx, client, opts, st)
			return nil
		})
	}
	_ = g.Wait()

	return st, nil
}

func subscribe(ctx context.Context, client *http.Client, opts loadOptions, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if opts.lastEventID != "" {
		req.Header.Set("Last-Event-ID", opts.lastEventID)
	}

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}

	st.connected.Add(1)
	if err := st.consume(resp.Body); err != nil && ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}
