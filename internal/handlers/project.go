package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/middleware"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/pkg/logger"
	"github.com/huangang/hackfest/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projects}
}

// ProjectDetail is a project as seen by the current user.
type ProjectDetail struct {
	*models.Project
	Param               string `json:"param"`
	Backlog             bool   `json:"backlog"`
	VotingAllowed       bool   `json:"voting_allowed"`
	VolunteeringAllowed bool   `json:"volunteering_allowed"`
	Voted               bool   `json:"voted"`
	Volunteered         bool   `json:"volunteered"`
	CanEdit             bool   `json:"can_edit"`
}

// load resolves the :id route param ("42" or "42-slug") within the tenant.
func (h *ProjectHandler) load(c *gin.Context) (*models.Project, bool) {
	p, err := h.projectService.GetByParam(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return p, true
}

// List returns paginated projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(c.Request.Context(), middleware.OrganizationID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Get returns one project with the caller's vote and volunteer state
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	orgID := middleware.OrganizationID(c)
	detail := ProjectDetail{
		Project:             p,
		Param:               p.Param(),
		Backlog:             p.IsBacklog(),
		VotingAllowed:       p.VotingAllowed(),
		VolunteeringAllowed: p.VolunteeringAllowed(),
	}
	if user := middleware.CurrentUser(c); user != nil {
		detail.Voted, _ = h.projectService.VotedOn(ctx, orgID, p.ID, user)
		detail.Volunteered, _ = h.projectService.VolunteeredFor(ctx, orgID, p.ID, user)
		detail.CanEdit = h.projectService.CanEdit(ctx, orgID, p, user)
	}
	response.Success(c, detail)
}

// Create submits a project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	p, err := h.projectService.Create(c.Request.Context(), middleware.OrganizationID(c), &req, user)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, p)
}

// Update edits a project; owner, submitter or organization admin only
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	orgID := middleware.OrganizationID(c)
	if !h.projectService.CanEdit(c.Request.Context(), orgID, p, user) {
		response.Forbidden(c, "only the project owner or an admin can edit this project")
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updated, err := h.projectService.Update(c.Request.Context(), orgID, p.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, updated)
}

// Delete removes a project and everything attached to it
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	orgID := middleware.OrganizationID(c)
	if !h.projectService.CanEdit(c.Request.Context(), orgID, p, user) {
		response.Forbidden(c, "only the project owner or an admin can delete this project")
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), orgID, p.ID); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleVote likes or unlikes a project
// POST /api/projects/:id/vote
func (h *ProjectHandler) ToggleVote(c *gin.Context) {
	h.changeState(c, "voted", h.projectService.ToggleVote)
}

// Volunteer offers help on a project
// POST /api/projects/:id/volunteers
func (h *ProjectHandler) Volunteer(c *gin.Context) {
	h.changeState(c, "volunteered", h.projectService.Volunteer)
}

// Unvolunteer withdraws an offer to help
// DELETE /api/projects/:id/volunteers
func (h *ProjectHandler) Unvolunteer(c *gin.Context) {
	h.changeState(c, "volunteered", h.projectService.Unvolunteer)
}

// ToggleVolunteer flips the volunteer state
// POST /api/projects/:id/volunteers/toggle
func (h *ProjectHandler) ToggleVolunteer(c *gin.Context) {
	h.changeState(c, "volunteered", h.projectService.ToggleVolunteer)
}

type stateChange func(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error)

func (h *ProjectHandler) changeState(c *gin.Context, key string, change stateChange) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}

	orgID := middleware.OrganizationID(c)
	state, err := change(c.Request.Context(), orgID, p.ID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	fresh, err := h.projectService.GetByID(c.Request.Context(), orgID, p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		key:               state,
		"vote_count":      fresh.RatingsCount,
		"volunteer_count": fresh.VolunteersCount,
	})
}

// Volunteers lists users helping on a project
// GET /api/projects/:id/volunteers
func (h *ProjectHandler) Volunteers(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	users, err := h.projectService.Volunteers(c.Request.Context(), middleware.OrganizationID(c), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, users)
}

// Comments lists a project's comments
// GET /api/projects/:id/comments
func (h *ProjectHandler) Comments(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	comments, err := h.projectService.Comments(c.Request.Context(), middleware.OrganizationID(c), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, comments)
}

// AddComment posts a comment
// POST /api/projects/:id/comments
func (h *ProjectHandler) AddComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	var req services.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.projectService.AddComment(c.Request.Context(), middleware.OrganizationID(c), p.ID, user, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, comment)
}

// DeleteComment removes a comment; author or organization admin only
// DELETE /api/projects/:id/comments/:comment_id
func (h *ProjectHandler) DeleteComment(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	commentID, err := strconv.ParseUint(c.Param("comment_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return
	}

	if err := h.projectService.DeleteComment(c.Request.Context(), middleware.OrganizationID(c), p.ID, uint(commentID), user); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

// Presentation provisions the project's presentation on first call
// POST /api/projects/:id/presentation
func (h *ProjectHandler) Presentation(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	orgID := middleware.OrganizationID(c)
	if !h.projectService.CanEdit(c.Request.Context(), orgID, p, user) {
		response.Forbidden(c, "only the project owner or an admin can edit the presentation")
		return
	}
	pres, err := h.projectService.GetOrCreatePresentation(c.Request.Context(), orgID, p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, pres)
}

// UpdatePresentation edits slide and video links
// PUT /api/projects/:id/presentation
func (h *ProjectHandler) UpdatePresentation(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	orgID := middleware.OrganizationID(c)
	if !h.projectService.CanEdit(c.Request.Context(), orgID, p, user) {
		response.Forbidden(c, "only the project owner or an admin can edit the presentation")
		return
	}
	var req services.UpdatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pres, err := h.projectService.UpdatePresentation(c.Request.Context(), orgID, p.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, pres)
}

// TransferableOwners lists users the project can be handed to
// GET /api/projects/:id/transferable-owners
func (h *ProjectHandler) TransferableOwners(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	orgID := middleware.OrganizationID(c)
	if !h.projectService.CanEdit(c.Request.Context(), orgID, p, user) {
		response.Forbidden(c, "only the project owner or an admin can transfer the project")
		return
	}
	users, err := h.projectService.TransferableOwners(c.Request.Context(), orgID, p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, users)
}

// RecalculateHotness rescores one project
// POST /api/projects/:id/hotness
func (h *ProjectHandler) RecalculateHotness(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	score, err := h.projectService.RecalculateHotness(c.Request.Context(), middleware.OrganizationID(c), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"hotness": score})
}

// Recount compares cached counters with live rows; ?repair=true fixes drift
// POST /api/projects/:id/recount
func (h *ProjectHandler) Recount(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	repair, _ := strconv.ParseBool(c.Query("repair"))
	counters, err := h.projectService.Recount(c.Request.Context(), middleware.OrganizationID(c), p.ID, repair)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, counters)
}

// ExportCSV downloads every project of the organization
// GET /api/export/projects.csv
func (h *ProjectHandler) ExportCSV(c *gin.Context) {
	org := middleware.CurrentOrganization(c)
	if org == nil {
		response.BadRequest(c, "no organization selected")
		return
	}

	filename := org.Subdomain + "-projects-" + time.Now().UTC().Format("20060102") + ".csv"
	response.Attachment(c, filename, "text/csv; charset=utf-8")
	if err := h.projectService.ExportCSV(c.Request.Context(), org.ID, c.Writer); err != nil {
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Type")
			respondError(c, err)
			return
		}
		logger.Error().Err(err).Uint("organization_id", org.ID).Msg("csv export aborted mid-stream")
	}
}
