package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/watchtower/internal/config"
	"github.com/crimson-sun/watchtower/internal/logging"
	"github.com/crimson-sun/watchtower/internal/session"
	"github.com/crimson-sun/watchtower/pkg/watchtower"
)

// app carries flag values and lazily built dependencies shared by subcommands.
type app struct {
	configFile  string
	apiURL      string
	logLevel    string
	sessionFile string
	jsonOut     bool

	cfg      *config.Config
	registry *prometheus.Registry
	client   *watchtower.Client
	out      io.Writer
	errOut   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "watchtower",
		Short:         "Command-line client for the insider threat detection service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return a.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.client != nil {
				return a.client.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML config file")
	pf.StringVar(&a.apiURL, "api-url", "", "API root, e.g. http://localhost:8000/api")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.sessionFile, "session-file", "", "where the session is kept between runs")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newAlertsCmd(a),
		newIncidentsCmd(a),
		newTimelineCmd(a),
		newUsersCmd(a),
		newIngestCmd(a),
		newPredictCmd(a),
		newHealthCmd(a),
		newSimulateCmd(a),
		newMockServerCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithFile(a.configFile))
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		opts = append(opts, config.WithOverride("API_URL", a.apiURL))
	}
	if flags.Changed("log-level") {
		opts = append(opts, config.WithOverride("LOG_LEVEL", a.logLevel))
	}
	if flags.Changed("session-file") {
		opts = append(opts, config.WithOverride("SESSION_FILE", a.sessionFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.Init(logging.ParseLevel(cfg.LogLevel))
	return nil
}

// watchtower returns the shared client, building it on first use.
func (a *app) watchtower() (*watchtower.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	a.registry = prometheus.NewRegistry()
	c, err := watchtower.New(watchtower.WithConfig(a.cfg), watchtower.WithRegistry(a.registry))
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// requireSession fails early with a hint when no login is held.
func (a *app) requireSession() (*watchtower.Client, error) {
	c, err := a.watchtower()
	if err != nil {
		return nil, err
	}
	if !c.Authenticated() {
		return nil, fmt.Errorf("%w; run `watchtower login`", session.ErrNotAuthenticated)
	}
	return c, nil
}
