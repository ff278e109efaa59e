package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/crimson-sun/watchtower/internal/model"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	labelStyle    = lipgloss.NewStyle().Bold(true).Width(14)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	severityStyle = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#E67E22")),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54")),
	}
)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderFields(w io.Writer, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintln(w, labelStyle.Render(pairs[i])+pairs[i+1])
	}
}

func severity(level string) string {
	sev := model.ParseSeverity(level)
	if st, ok := severityStyle[sev]; ok {
		return st.Render(string(sev))
	}
	return level
}

func alertRows(alerts []model.Alert) [][]string {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		ack := ""
		if a.Acknowledged {
			ack = okStyle.Render("✓ " + a.AcknowledgedBy)
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			stamp(a.Timestamp),
			a.UserID,
			strconv.FormatFloat(a.ThreatScore, 'f', 3, 64),
			severity(a.ThreatLevel),
			strings.Trim(a.MitreTactic+"/"+a.MitreTechnique, "/"),
			ack,
		})
	}
	return rows
}

var alertHeaders = []string{"ID", "TIME", "USER", "SCORE", "LEVEL", "MITRE", "ACK"}

func incidentRows(incidents []model.Incident) [][]string {
	rows := make([][]string, 0, len(incidents))
	for _, inc := range incidents {
		rows = append(rows, []string{
			strconv.FormatInt(inc.ID, 10),
			inc.IncidentNumber,
			inc.UserID,
			severity(inc.Severity),
			inc.Status,
			inc.AssignedTo,
			stamp(inc.StartTime),
			strconv.Itoa(len(inc.AlertIDs)),
		})
	}
	return rows
}

var incidentHeaders = []string{"ID", "NUMBER", "USER", "SEVERITY", "STATUS", "ASSIGNEE", "STARTED", "ALERTS"}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
