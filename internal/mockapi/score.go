package mockapi

import (
	"math"
	"net/netip"
	"strings"

	"github.com/crimson-sun/watchtower/internal/model"
)

// Threat level thresholds used by the remote service.
const (
	ThresholdCritical = 0.85
	ThresholdHigh     = 0.70
	ThresholdMedium   = 0.50
)

var baseScores = map[string]float64{
	"login_fail":           0.30,
	"login_success":        0.05,
	"file_access":          0.15,
	"file_transfer":        0.25,
	"privilege_escalation": 0.55,
	"email_send":           0.10,
}

var suspectProcesses = []string{"powershell", "scp", "7z", "rar", "psexec", "mimikatz"}

// Score rates an event with a fixed heuristic in place of the remote model.
// The result is in [0, 0.99] and rounded to three decimals.
func Score(ev model.EventInput) float64 {
	score := baseScores[ev.EventType]
	if score == 0 {
		score = 0.05
	}
	if strings.Contains(strings.ToUpper(ev.FileName), "CONFIDENTIAL") {
		score += 0.40
	}
	if ev.DstIP != "" && !internal(ev.DstIP) {
		score += 0.20
	}
	switch mb := ev.BytesTransferred >> 20; {
	case mb >= 500:
		score += 0.35
	case mb >= 100:
		score += 0.20
	}
	if foreign(ev.GeoCountry) {
		score += 0.25
	}
	proc := strings.ToLower(ev.Process)
	for _, p := range suspectProcesses {
		if proc != "" && strings.Contains(proc, p) {
			score += 0.10
			break
		}
	}
	if ev.Success != nil && !*ev.Success {
		score += 0.10
	}
	score = math.Min(score, 0.99)
	return math.Round(score*1000) / 1000
}

// Level maps a score onto the service's threat levels.
func Level(score float64) string {
	switch {
	case score >= ThresholdCritical:
		return string(model.SeverityCritical)
	case score >= ThresholdHigh:
		return string(model.SeverityHigh)
	case score >= ThresholdMedium:
		return string(model.SeverityMedium)
	default:
		return string(model.SeverityLow)
	}
}

type tactic struct{ tactic, technique string }

var mitre = map[string]map[string]tactic{
	"apt": {
		"login_fail":           {"TA0001", "T1110"},
		"login_success":        {"TA0001", "T1078"},
		"privilege_escalation": {"TA0004", "T1068"},
		"file_access":          {"TA0008", "T1021"},
		"file_transfer":        {"TA0010", "T1041"},
	},
	"insider": {
		"file_access":   {"TA0009", "T1005"},
		"file_transfer": {"TA0010", "T1048"},
		"email_send":    {"TA0009", "T1114"},
	},
}

// Mitre returns the ATT&CK tactic and technique for an event. Events from
// abroad or touching credentials are treated as external intrusions, the
// rest as insider activity.
func Mitre(ev model.EventInput) (string, string) {
	actor := "insider"
	if foreign(ev.GeoCountry) || strings.HasPrefix(ev.EventType, "login_") || ev.EventType == "privilege_escalation" {
		actor = "apt"
	}
	if t, ok := mitre[actor][ev.EventType]; ok {
		return t.tactic, t.technique
	}
	return "TA0000", "T0000"
}

func foreign(country string) bool {
	return country != "" && !strings.EqualFold(country, "US")
}

func internal(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	return addr.IsPrivate() || addr.IsLoopback()
}
