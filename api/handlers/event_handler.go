// api/handlers/event_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"example.com/planner/services/calendar/api/middleware"
	"example.com/planner/services/calendar/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// EventHandler handles event-related requests
type EventHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(svc service.Service, log *logrus.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		log:     log,
	}
}

type eventRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	StartTime      string `json:"start_time" binding:"required"`
	EndTime        string `json:"end_time" binding:"required"`
	IsRecurring    bool   `json:"is_recurring"`
	RecurrenceRule string `json:"recurrence_rule"`
}

func (r *eventRequest) toInput() (service.EventInput, error) {
	start, err := parseEventTime(r.StartTime)
	if err != nil {
		return service.EventInput{}, err
	}
	end, err := parseEventTime(r.EndTime)
	if err != nil {
		return service.EventInput{}, err
	}
	return service.EventInput{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		StartTime:      start,
		EndTime:        end,
		IsRecurring:    r.IsRecurring,
		RecurrenceRule: r.RecurrenceRule,
	}, nil
}

// parseEventTime accepts RFC 3339 datetimes; values without a zone offset
// are taken as UTC
func parseEventTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC)
}

// CreateEvent handles event creation
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event format"})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid datetime format, expected RFC 3339"})
		return
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), input, user, checkConflictsFlag(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// CreateEventBatch handles atomic creation of multiple events
func (h *EventHandler) CreateEventBatch(c *gin.Context) {
	var req struct {
		Events []eventRequest `json:"events" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid batch format"})
		return
	}

	inputs := make([]service.EventInput, 0, len(req.Events))
	for _, item := range req.Events {
		input, err := item.toInput()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid datetime format, expected RFC 3339"})
			return
		}
		inputs = append(inputs, input)
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	events, err := h.service.CreateEventBatch(c.Request.Context(), inputs, user, checkConflictsFlag(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"events": events})
}

// GetEvent handles event retrieval
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	event, err := h.service.GetEvent(c.Request.Context(), eventID, user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListEvents lists the caller's own events
func (h *EventHandler) ListEvents(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	skip, limit := paginationParams(c)
	events, err := h.service.ListOwnedEvents(c.Request.Context(), user, skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ListOccurrences expands every accessible event in a datetime range,
// including per-occurrence expansion of recurring events
func (h *EventHandler) ListOccurrences(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	start, err := parseEventTime(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'start' parameter"})
		return
	}
	end, err := parseEventTime(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'end' parameter"})
		return
	}

	skip, limit := paginationParams(c)
	occurrences, err := h.service.ListOccurrences(c.Request.Context(), user, start, end, skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}

type eventPatchRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Location       *string `json:"location"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	IsRecurring    *bool   `json:"is_recurring"`
	RecurrenceRule *string `json:"recurrence_rule"`
}

func (r *eventPatchRequest) toPatch() (service.EventPatch, error) {
	var patch service.EventPatch
	if r.Title != nil {
		patch.Title = mo.Some(*r.Title)
	}
	if r.Description != nil {
		patch.Description = mo.Some(*r.Description)
	}
	if r.Location != nil {
		patch.Location = mo.Some(*r.Location)
	}
	if r.StartTime != nil {
		t, err := parseEventTime(*r.StartTime)
		if err != nil {
			return patch, err
		}
		patch.StartTime = mo.Some(t)
	}
	if r.EndTime != nil {
		t, err := parseEventTime(*r.EndTime)
		if err != nil {
			return patch, err
		}
		patch.EndTime = mo.Some(t)
	}
	if r.IsRecurring != nil {
		patch.IsRecurring = mo.Some(*r.IsRecurring)
	}
	if r.RecurrenceRule != nil {
		patch.RecurrenceRule = mo.Some(*r.RecurrenceRule)
	}
	return patch, nil
}

// UpdateEvent handles partial event updates. Only fields present in the
// request body are written.
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req eventPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update format"})
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid datetime format, expected RFC 3339"})
		return
	}

	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	event, err := h.service.UpdateEvent(c.Request.Context(), eventID, patch, user, checkConflictsFlag(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent soft-deletes an event; ?hard=true removes it permanently
// along with its versions, permissions and notifications
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := middleware.GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if c.Query("hard") == "true" {
		err = h.service.HardDeleteEvent(c.Request.Context(), eventID, user)
	} else {
		err = h.service.SoftDeleteEvent(c.Request.Context(), eventID, user)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// checkConflictsFlag reads the check_conflicts query parameter, on by default
func checkConflictsFlag(c *gin.Context) bool {
	return c.DefaultQuery("check_conflicts", "true") != "false"
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}

func paginationParams(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return skip, limit
}
