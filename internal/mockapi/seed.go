package mockapi

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/watchtower/internal/model"
)

var seedEventTypes = []string{"login_fail", "login_success", "file_access", "file_transfer", "privilege_escalation"}

// seed fills the store with n synthetic alerts spread over the last day and
// groups the severe ones into incidents. The generator is fixed-seeded so
// the same n always yields the same alerts.
func (s *Server) seed(n int) {
	rng := rand.New(rand.NewPCG(7, 42))
	now := s.now().UTC()

	for i := 0; i < n; i++ {
		ev := model.EventInput{
			UserID:    fmt.Sprintf("user%03d", rng.IntN(50)+1),
			EventType: seedEventTypes[rng.IntN(len(seedEventTypes))],
		}
		score := 0.5 + rng.Float64()*0.49
		score = float64(int(score*1000)) / 1000
		tactic, technique := Mitre(ev)
		s.nextAlert++
		s.alerts = append(s.alerts, model.Alert{
			ID:             s.nextAlert,
			Timestamp:      now.Add(-time.Duration(rng.IntN(24*60)) * time.Minute),
			UserID:         ev.UserID,
			ThreatScore:    score,
			ThreatLevel:    Level(score),
			MitreTactic:    tactic,
			MitreTechnique: technique,
			Description:    "Threat detected: " + ev.EventType,
		})
	}

	byUser := make(map[string][]int)
	for i, a := range s.alerts {
		if a.Severity().Rank() >= model.SeverityHigh.Rank() {
			byUser[a.UserID] = append(byUser[a.UserID], i)
		}
	}
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	statuses := []string{model.IncidentOpen, model.IncidentInvestigating, model.IncidentOpen, model.IncidentResolved}
	for i, u := range users {
		idx := byUser[u]
		inc := model.Incident{
			ID:             int64(i + 1),
			IncidentNumber: "INC-" + strings.ToUpper(uuid.NewString()[:8]),
			UserID:         u,
			StartTime:      s.alerts[idx[0]].Timestamp,
			Severity:       string(model.SeverityHigh),
			Status:         statuses[i%len(statuses)],
		}
		for _, j := range idx {
			a := &s.alerts[j]
			if a.Timestamp.Before(inc.StartTime) {
				inc.StartTime = a.Timestamp
			}
			if a.Severity() == model.SeverityCritical {
				inc.Severity = string(model.SeverityCritical)
			}
			id := inc.ID
			a.IncidentID = &id
			inc.AlertIDs = append(inc.AlertIDs, a.ID)
		}
		inc.Narrative = fmt.Sprintf("%d correlated %s alerts for %s", len(idx), inc.Severity, u)
		if inc.Status == model.IncidentResolved {
			end := now
			inc.EndTime = &end
			inc.ResolutionNotes = "contained"
		}
		s.incidents = append(s.incidents, inc)
	}
}
