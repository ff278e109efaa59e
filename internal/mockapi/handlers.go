package mockapi

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/watchtower/internal/model"
)

const (
	defaultRecentLimit = 50
	defaultTimelineHrs = 24
	timelineEvents     = 100
	timelineAlerts     = 50
)

func (s *Server) health(c *gin.Context) {
	s.mu.Lock()
	ready := s.modelsReady
	s.mu.Unlock()

	status, models := "healthy", "loaded"
	if !ready {
		status, models = "degraded", "unavailable"
	}
	c.JSON(http.StatusOK, model.Health{
		Status:     status,
		Version:    Version,
		Components: map[string]string{"database": "ok", "models": models},
	})
}

func (s *Server) recentAlerts(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultRecentLimit)
	if !ok {
		return
	}
	s.mu.Lock()
	out := model.CloneAlerts(s.alerts)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b model.Alert) int { return b.Timestamp.Compare(a.Timestamp) })
	if limit < len(out) {
		out = out[:limit]
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	by := currentAccount(c).Username

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.ID != id {
			continue
		}
		if !a.Acknowledged {
			at := s.now().UTC()
			a.Acknowledged, a.AcknowledgedBy, a.AcknowledgedAt = true, by, &at
		}
		c.JSON(http.StatusOK, a.Clone())
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Alert not found"})
}

func (s *Server) listIncidents(c *gin.Context) {
	status := c.Query("status")

	s.mu.Lock()
	out := make([]model.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		if status == "" || inc.Status == status {
			out = append(out, inc.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b model.Incident) int { return b.StartTime.Compare(a.StartTime) })
	c.JSON(http.StatusOK, out)
}

var incidentStatuses = []string{model.IncidentOpen, model.IncidentInvestigating, model.IncidentResolved, model.IncidentClosed}

func (s *Server) updateIncident(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var p model.IncidentPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if p.Status != nil && !slices.Contains(incidentStatuses, *p.Status) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid status " + strconv.Quote(*p.Status)})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.incidents {
		inc := &s.incidents[i]
		if inc.ID != id {
			continue
		}
		if p.Status != nil {
			inc.Status = *p.Status
			if inc.Status == model.IncidentResolved || inc.Status == model.IncidentClosed {
				end := s.now().UTC()
				inc.EndTime = &end
			} else {
				inc.EndTime = nil
			}
		}
		if p.AssignedTo != nil {
			inc.AssignedTo = *p.AssignedTo
		}
		if p.ResolutionNotes != nil {
			inc.ResolutionNotes = *p.ResolutionNotes
		}
		if p.FalsePositive != nil {
			inc.FalsePositive = *p.FalsePositive
		}
		c.JSON(http.StatusOK, inc.Clone())
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "Incident not found"})
}

func (s *Server) bindEvent(c *gin.Context) (model.EventInput, bool) {
	var ev model.EventInput
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return ev, false
	}
	if ev.UserID == "" || ev.EventType == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "user_id and event_type are required"})
		return ev, false
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	return ev, true
}

func (s *Server) ingest(c *gin.Context) {
	ev, ok := s.bindEvent(c)
	if !ok {
		return
	}
	s.mu.Lock()
	s.nextEvent++
	id := s.nextEvent
	s.events = append(s.events, storedEvent{id: id, EventInput: ev})
	s.mu.Unlock()

	c.JSON(http.StatusOK, model.IngestReceipt{EventID: id, Status: "ingested"})
}

func (s *Server) predict(c *gin.Context) {
	s.mu.Lock()
	ready := s.modelsReady
	s.mu.Unlock()
	if !ready {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "ML models not loaded"})
		return
	}
	ev, ok := s.bindEvent(c)
	if !ok {
		return
	}

	score := Score(ev)
	p := model.Prediction{
		ThreatScore: score,
		ThreatLevel: Level(score),
		IsMalicious: score >= ThresholdMedium,
	}
	p.MitreTactic, p.MitreTechnique = Mitre(ev)

	s.mu.Lock()
	s.nextEvent++
	s.events = append(s.events, storedEvent{id: s.nextEvent, EventInput: ev})
	if p.IsMalicious {
		s.nextAlert++
		s.alerts = append(s.alerts, model.Alert{
			ID:             s.nextAlert,
			Timestamp:      ev.Timestamp,
			UserID:         ev.UserID,
			ThreatScore:    p.ThreatScore,
			ThreatLevel:    p.ThreatLevel,
			MitreTactic:    p.MitreTactic,
			MitreTechnique: p.MitreTechnique,
			Description:    "Threat detected: " + ev.EventType,
		})
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, p)
}

func (a Account) user() model.User {
	return model.User{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role}
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	out := make([]model.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user())
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentAccount(c).user())
}

// getUser accepts either the numeric id or the username.
func (s *Server) getUser(c *gin.Context) {
	key := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == key || strconv.FormatInt(a.ID, 10) == key {
			c.JSON(http.StatusOK, a.user())
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
}

func (s *Server) timeline(c *gin.Context) {
	userID := c.Param("id")
	hours, ok := intQuery(c, "hours", defaultTimelineHrs)
	if !ok {
		return
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)

	tl := model.Timeline{UserID: userID, Events: []model.TimelineEvent{}, Alerts: []model.TimelineAlert{}}
	s.mu.Lock()
	for i := len(s.events) - 1; i >= 0 && len(tl.Events) < timelineEvents; i-- {
		ev := s.events[i]
		if ev.UserID != userID || ev.Timestamp.Before(since) {
			continue
		}
		success := ev.Success == nil || *ev.Success
		tl.Events = append(tl.Events, model.TimelineEvent{
			Timestamp: ev.Timestamp, EventType: ev.EventType, SrcIP: ev.SrcIP, Success: success,
		})
	}
	for i := len(s.alerts) - 1; i >= 0 && len(tl.Alerts) < timelineAlerts; i-- {
		a := s.alerts[i]
		if a.UserID != userID || a.Timestamp.Before(since) {
			continue
		}
		tl.Alerts = append(tl.Alerts, model.TimelineAlert{
			Timestamp: a.Timestamp, ThreatScore: a.ThreatScore, ThreatLevel: a.ThreatLevel, Description: a.Description,
		})
	}
	s.mu.Unlock()

	tl.TotalEvents, tl.TotalAlerts = len(tl.Events), len(tl.Alerts)
	c.JSON(http.StatusOK, tl)
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": key + " must be a positive integer"})
		return 0, false
	}
	return n, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "id must be an integer"})
		return 0, false
	}
	return id, true
}
