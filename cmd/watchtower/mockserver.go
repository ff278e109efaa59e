package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/watchtower/internal/mockapi"
)

func newMockServerCmd(a *app) *cobra.Command {
	var (
		addr string
		seed int
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory stand-in for the detection service",
		Long: `Serve the detection API under /api from memory with synthetic alerts
and incidents. Log in as analyst/analyst123 or admin/admin123.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.MockAddr
			}
			srv := mockapi.New(
				mockapi.WithSecret(a.cfg.MockSecret),
				mockapi.WithSeed(seed),
				mockapi.WithTokenTTL(ttl),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ready := make(chan string, 1)
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe(ctx, addr, ready) }()

			select {
			case bound := <-ready:
				fmt.Fprintf(a.out, "mock api listening on http://%s/api\n", bound)
			case err := <-errc:
				return err
			}
			return <-errc
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address (default from MOCK_ADDR)")
	f.IntVar(&seed, "seed", 40, "number of synthetic alerts to start with")
	f.DurationVar(&ttl, "token-ttl", mockapi.DefaultTokenTTL, "access token lifetime")
	return cmd
}
