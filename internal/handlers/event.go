package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/middleware"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/pkg/response"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{eventService: events}
}

func eventID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return 0, false
	}
	return uint(id), true
}

// List returns the organization's events
// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.eventService.List(c.Request.Context(), middleware.OrganizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, events)
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	ev, err := h.eventService.Get(c.Request.Context(), middleware.OrganizationID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, ev)
}

// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	var req services.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ev, err := h.eventService.Create(c.Request.Context(), middleware.OrganizationID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, ev)
}

// PUT /api/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req services.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ev, err := h.eventService.Update(c.Request.Context(), middleware.OrganizationID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, ev)
}

// Register signs the caller up for an event
// POST /api/events/:id/registration
func (h *EventHandler) Register(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.eventService.Register(c.Request.Context(), middleware.OrganizationID(c), id, user); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"registered": true})
}

// DELETE /api/events/:id/registration
func (h *EventHandler) Unregister(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.eventService.Unregister(c.Request.Context(), middleware.OrganizationID(c), id, user); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"registered": false})
}

// GET /api/events/:id/registrants
func (h *EventHandler) Registrants(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	users, err := h.eventService.Registrants(c.Request.Context(), middleware.OrganizationID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, users)
}
