package sink

import (
	"unicode/utf8"

	"github.com/crimson-sun/watchtower/internal/model"
)

// maxTextLen is the rune limit for free text at Standard verbosity.
const maxTextLen = 200

// FormatSnapshot returns a copy of s reduced according to verbosity.
// At Minimal: alerts, incidents and health are dropped; counts, threat
// level and source status remain.
// At Standard: alert descriptions, incident narratives and resolution notes
// are truncated to 200 characters.
// At Full: the copy is unchanged.
func FormatSnapshot(s model.Snapshot, v Verbosity) model.Snapshot {
	s = s.Clone()
	switch v {
	case Minimal:
		s.Alerts = nil
		s.Incidents = nil
		s.Health = nil
	case Standard:
		for i := range s.Alerts {
			s.Alerts[i].Description = truncate(s.Alerts[i].Description, maxTextLen)
		}
		for i := range s.Incidents {
			s.Incidents[i].Narrative = truncate(s.Incidents[i].Narrative, maxTextLen)
			s.Incidents[i].ResolutionNotes = truncate(s.Incidents[i].ResolutionNotes, maxTextLen)
		}
	}
	return s
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
