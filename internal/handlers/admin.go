package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/pkg/response"
)

// AdminHandler serves instance-wide maintenance for super-admins.
type AdminHandler struct {
	hotness *services.HotnessScheduler
}

func NewAdminHandler(hotness *services.HotnessScheduler) *AdminHandler {
	return &AdminHandler{hotness: hotness}
}

// RunHotness rescores every organization's projects immediately
// POST /api/admin/hotness/run
func (h *AdminHandler) RunHotness(c *gin.Context) {
	n, err := h.hotness.RunOnce(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"projects": n})
}
