package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/watchtower/internal/model"
)

func newAlertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "alerts", Short: "List and acknowledge alerts"}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			alerts, err := c.RecentAlerts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, alerts)
			}
			renderTable(a.out, alertHeaders, alertRows(alerts))
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum alerts to show (0 uses the server default)")

	ack := &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			alert, err := c.AcknowledgeAlert(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, alert)
			}
			renderTable(a.out, alertHeaders, alertRows([]model.Alert{alert}))
			return nil
		},
	}

	cmd.AddCommand(list, ack)
	return cmd
}

func newIncidentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "incidents", Short: "List and update incidents"}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "Show incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			incidents, err := c.Incidents(cmd.Context(), status)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, incidents)
			}
			renderTable(a.out, incidentHeaders, incidentRows(incidents))
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "only incidents in this status (open, investigating, resolved, closed)")

	var (
		newStatus, assignee, notes string
		falsePositive              bool
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an incident's status, assignee or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p model.IncidentPatch
			f := cmd.Flags()
			if f.Changed("status") {
				p.Status = &newStatus
			}
			if f.Changed("assign") {
				p.AssignedTo = &assignee
			}
			if f.Changed("notes") {
				p.ResolutionNotes = &notes
			}
			if f.Changed("false-positive") {
				p.FalsePositive = &falsePositive
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			inc, err := c.UpdateIncident(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, inc)
			}
			renderTable(a.out, incidentHeaders, incidentRows([]model.Incident{inc}))
			return nil
		},
	}
	update.Flags().StringVar(&newStatus, "status", "", "new status")
	update.Flags().StringVar(&assignee, "assign", "", "analyst to assign")
	update.Flags().StringVar(&notes, "notes", "", "resolution notes")
	update.Flags().BoolVar(&falsePositive, "false-positive", false, "mark as a false positive")

	cmd.AddCommand(list, update)
	return cmd
}

func newTimelineCmd(a *app) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "timeline <user-id>",
		Short: "Show a monitored user's recent events and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			tl, err := c.Timeline(cmd.Context(), args[0], hours)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, tl)
			}
			renderFields(a.out, "user", tl.UserID,
				"events", strconv.Itoa(tl.TotalEvents),
				"alerts", strconv.Itoa(tl.TotalAlerts))
			if len(tl.Events) > 0 {
				rows := make([][]string, 0, len(tl.Events))
				for _, ev := range tl.Events {
					rows = append(rows, []string{stamp(ev.Timestamp), ev.EventType, ev.SrcIP, strconv.FormatBool(ev.Success)})
				}
				renderTable(a.out, []string{"TIME", "EVENT", "SOURCE IP", "SUCCESS"}, rows)
			}
			if len(tl.Alerts) > 0 {
				rows := make([][]string, 0, len(tl.Alerts))
				for _, al := range tl.Alerts {
					rows = append(rows, []string{
						stamp(al.Timestamp), strconv.FormatFloat(al.ThreatScore, 'f', 3, 64), severity(al.ThreatLevel), al.Description,
					})
				}
				renderTable(a.out, []string{"TIME", "SCORE", "LEVEL", "DESCRIPTION"}, rows)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "look-back window in hours")
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Inspect analyst accounts"}

	show := func(users ...model.User) error {
		if a.jsonOut {
			if len(users) == 1 {
				return renderJSON(a.out, users[0])
			}
			return renderJSON(a.out, users)
		}
		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, u.Email, u.Role})
		}
		renderTable(a.out, []string{"ID", "USERNAME", "EMAIL", "ROLE"}, rows)
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := a.requireSession()
				if err != nil {
					return err
				}
				users, err := c.Users(cmd.Context())
				if err != nil {
					return err
				}
				if a.jsonOut {
					return renderJSON(a.out, users)
				}
				return show(users...)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.requireSession()
				if err != nil {
					return err
				}
				u, err := c.User(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return show(u)
			},
		},
		&cobra.Command{
			Use:   "me",
			Short: "Show the logged-in account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := a.requireSession()
				if err != nil {
					return err
				}
				u, err := c.Me(cmd.Context())
				if err != nil {
					return err
				}
				return show(u)
			},
		},
	)
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the service's health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.watchtower()
			if err != nil {
				return err
			}
			h, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, h)
			}
			status := h.Status
			if status == "healthy" {
				status = okStyle.Render(status)
			}
			renderFields(a.out, "status", status, "version", h.Version)
			for _, k := range slices.Sorted(maps.Keys(h.Components)) {
				renderFields(a.out, "  "+k, h.Components[k])
			}
			return nil
		},
	}
}

// readEvent decodes one event from a file, "-" for stdin, or an inline JSON argument.
func readEvent(cmd *cobra.Command, file string, args []string) (model.EventInput, error) {
	var (
		r   io.Reader
		src string
	)
	switch {
	case len(args) == 1:
		r, src = strings.NewReader(args[0]), "argument"
	case file == "-":
		r, src = cmd.InOrStdin(), "stdin"
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return model.EventInput{}, err
		}
		defer f.Close()
		r, src = f, file
	default:
		return model.EventInput{}, fmt.Errorf("pass the event as a JSON argument or with --file")
	}
	var ev model.EventInput
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return ev, fmt.Errorf("decode event from %s: %w", src, err)
	}
	return ev, nil
}

func newIngestCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "ingest [event-json]",
		Short: "Store a raw security event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := readEvent(cmd, file, args)
			if err != nil {
				return err
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			r, err := c.Ingest(cmd.Context(), ev)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, r)
			}
			fmt.Fprintf(a.out, "event %d %s\n", r.EventID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the event from a JSON file (- for stdin)")
	return cmd
}

func newPredictCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "predict [event-json]",
		Short: "Score a security event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := readEvent(cmd, file, args)
			if err != nil {
				return err
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			p, err := c.Predict(cmd.Context(), ev)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return renderJSON(a.out, p)
			}
			renderFields(a.out,
				"score", strconv.FormatFloat(p.ThreatScore, 'f', 3, 64),
				"level", severity(p.ThreatLevel),
				"malicious", strconv.FormatBool(p.IsMalicious),
				"mitre", p.MitreTactic+"/"+p.MitreTechnique,
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the event from a JSON file (- for stdin)")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
