package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/watchtower/pkg/watchtower"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval    time.Duration
		sinks       string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the dashboard and publish snapshots until interrupted",
		Long: `Poll alerts, incidents and health on an interval and publish each
snapshot to the configured sinks. A failing source keeps its last good data.
Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("interval") {
				a.cfg.PollInterval = interval
			}
			if f.Changed("sinks") {
				a.cfg.Sinks = sinks
			}
			if f.Changed("metrics-addr") {
				a.cfg.MetricsAddr = metricsAddr
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			c, err := a.requireSession()
			if err != nil {
				return err
			}
			c.OnSessionEnd(func(e watchtower.SessionEnd) {
				fmt.Fprintf(a.errOut, "session for %s ended (%s); run `watchtower login` and restart\n", e.Handle, e.Reason)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.cfg.MetricsAddr != "" {
				srv := serveMetrics(a)
				defer shutdown(srv)
			}

			w, err := c.Watch(ctx)
			if err != nil {
				return err
			}
			slog.Info("watching", "api", a.cfg.APIURL, "interval", a.cfg.PollInterval, "sinks", a.cfg.SinkNames())

			select {
			case <-ctx.Done():
				fmt.Fprintln(a.errOut, "\nstopping...")
			case <-w.Done():
			}
			w.Stop()
			<-w.Done()
			return nil
		},
	}
	f := cmd.Flags()
	f.DurationVar(&interval, "interval", 0, "polling interval (default from POLL_INTERVAL)")
	f.StringVar(&sinks, "sinks", "", "comma-separated sinks: stdout, file, webhook")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func serveMetrics(a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics listener failed", "addr", srv.Addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", srv.Addr)
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("metrics shutdown", "error", err)
	}
}
