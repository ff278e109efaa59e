package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/watchtower/internal/model"
)

type step struct {
	label string
	event model.EventInput
}

var scenarios = []string{"insider", "apt", "benign"}

// scenarioSteps returns the scripted events of a demo attack starting at base.
func scenarioSteps(name string, base time.Time) []step {
	ok, failed := true, false
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	var steps []step
	switch name {
	case "insider":
		for i := 0; i < 5; i++ {
			steps = append(steps, step{fmt.Sprintf("file_access %d/5", i+1), model.EventInput{
				Timestamp: at(i), UserID: "user042", SrcIP: "10.0.42.10", EventType: "file_access",
				FileName: fmt.Sprintf("CONFIDENTIAL_project_%d.pdf", i), Process: "Explorer.exe",
				Device: "PC-042", Success: &ok, GeoCountry: "US",
			}})
		}
		steps = append(steps, step{"exfiltration 500MB", model.EventInput{
			Timestamp: at(6), UserID: "user042", SrcIP: "10.0.42.10", DstIP: "203.0.113.200",
			EventType: "file_transfer", FileName: "archive_confidential.zip", BytesTransferred: 500 << 20,
			Process: "7z.exe", Device: "PC-042", Success: &ok, GeoCountry: "US",
		}})

	case "apt":
		for i := 0; i < 5; i++ {
			steps = append(steps, step{fmt.Sprintf("login_fail %d/5", i+1), model.EventInput{
				Timestamp: at(i), UserID: "user007", SrcIP: "101.81.0.5", EventType: "login_fail",
				Success: &failed, GeoCountry: "CN",
			}})
		}
		steps = append(steps,
			step{"login_success (CN)", model.EventInput{
				Timestamp: at(6), UserID: "user007", SrcIP: "101.81.0.5", EventType: "login_success",
				Success: &ok, GeoCountry: "CN",
			}},
			step{"privilege_escalation (powershell)", model.EventInput{
				Timestamp: at(7), UserID: "user007", SrcIP: "10.0.7.10", EventType: "privilege_escalation",
				Process: "powershell.exe", Device: "PC-007", Success: &ok, GeoCountry: "US",
			}},
		)
		for _, d := range []string{"PC-021", "PC-033", "PC-045"} {
			steps = append(steps, step{"lateral movement to " + d, model.EventInput{
				Timestamp: at(8), UserID: "user007", SrcIP: "10.0.7.10", EventType: "file_access",
				FileName: "system.config", Process: "Explorer.exe", Device: d, Success: &ok, GeoCountry: "US",
			}})
		}
		steps = append(steps, step{"exfiltration 1GB", model.EventInput{
			Timestamp: at(12), UserID: "user007", SrcIP: "10.0.7.10", DstIP: "198.51.100.55",
			EventType: "file_transfer", FileName: "backup_apt_payload.bin", BytesTransferred: 1 << 30,
			Process: "scp", Device: "PC-007", Success: &ok, GeoCountry: "US",
		}})

	case "benign":
		activities := []struct {
			kind, file string
			bytes      int64
		}{
			{"login_success", "", 0},
			{"file_access", "readme.txt", 0},
			{"file_access", "notes.docx", 0},
			{"file_transfer", "logo.png", 150 << 10},
			{"http_request", "", 0},
			{"email_send", "", 0},
			{"file_access", "report.xlsx", 0},
			{"file_transfer", "thumbnail.jpg", 200 << 10},
			{"login_success", "", 0},
			{"file_access", "presentation.pptx", 0},
		}
		for i, act := range activities {
			steps = append(steps, step{act.kind, model.EventInput{
				Timestamp: at(i), UserID: "user123", SrcIP: "10.0.123.5", EventType: act.kind,
				FileName: act.file, BytesTransferred: act.bytes, Device: "PC-123", Success: &ok, GeoCountry: "US",
			}})
		}
	}
	return steps
}

func newSimulateCmd(a *app) *cobra.Command {
	var pause time.Duration
	cmd := &cobra.Command{
		Use:       "simulate [insider|apt|benign|all]",
		Short:     "Replay a scripted attack against /predict",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: append(slices.Clone(scenarios), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := scenarios
			if len(args) == 1 && args[0] != "all" {
				run = args[:1]
			}
			c, err := a.requireSession()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			for _, name := range run {
				fmt.Fprintf(a.out, "\n%s\n", headerStyle.Render("== scenario: "+name+" =="))
				for i, s := range scenarioSteps(name, time.Now().UTC()) {
					if i > 0 && pause > 0 {
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(pause):
						}
					}
					p, err := c.Predict(ctx, s.event)
					if err != nil {
						return fmt.Errorf("%s: %w", s.label, err)
					}
					fmt.Fprintf(a.out, "  → %-36s score=%.3f level=%s mitre=%s/%s\n",
						s.label, p.ThreatScore, severity(p.ThreatLevel), p.MitreTactic, p.MitreTechnique)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&pause, "pause", time.Second, "wait between events")
	return cmd
}
