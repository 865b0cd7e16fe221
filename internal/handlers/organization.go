package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/middleware"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/pkg/response"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
	links      *services.Links
}

func NewOrganizationHandler(orgs *services.OrganizationService, links *services.Links) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgs, links: links}
}

type organizationView struct {
	*models.Organization
	URL        string              `json:"url"`
	Membership services.Membership `json:"membership"`
}

// Create registers a new organization; the caller becomes its admin
// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), &req, user)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, organizationView{
		Organization: org,
		URL:          h.links.OrganizationURL(org),
		Membership:   services.Membership{Member: true, Verified: true, Admin: true},
	})
}

// ListPublic returns organizations open to everyone
// GET /api/organizations
func (h *OrganizationHandler) ListPublic(c *gin.Context) {
	orgs, err := h.orgService.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, orgs)
}

// ListMine returns the caller's organizations
// GET /api/organizations/mine
func (h *OrganizationHandler) ListMine(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	orgs, err := h.orgService.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, orgs)
}

// Current returns the request's organization and the caller's membership
// GET /api/organization
func (h *OrganizationHandler) Current(c *gin.Context) {
	org := middleware.CurrentOrganization(c)
	response.Success(c, organizationView{
		Organization: org,
		URL:          h.links.OrganizationURL(org),
		Membership:   h.orgService.MembershipOf(c.Request.Context(), org.ID, middleware.CurrentUser(c)),
	})
}

// Update edits the current organization
// PUT /api/organization
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req services.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	org, err := h.orgService.Update(c.Request.Context(), middleware.OrganizationID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, org)
}

// Join makes the caller a member of the current organization
// POST /api/organization/join
func (h *OrganizationHandler) Join(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	m, err := h.orgService.Join(c.Request.Context(), middleware.CurrentOrganization(c), user)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, services.Membership{Member: true, Verified: m.Verified, Admin: m.Admin || user.Admin})
}

// Membership reports the caller's role in the current organization
// GET /api/organization/membership
func (h *OrganizationHandler) Membership(c *gin.Context) {
	response.Success(c, h.orgService.MembershipOf(c.Request.Context(), middleware.OrganizationID(c), middleware.CurrentUser(c)))
}

// Members lists the current organization's members
// GET /api/organization/members
func (h *OrganizationHandler) Members(c *gin.Context) {
	members, err := h.orgService.Members(c.Request.Context(), middleware.OrganizationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, members)
}

// UpdateMember sets a member's admin and verified flags
// PUT /api/organization/members/:user_id
func (h *OrganizationHandler) UpdateMember(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req services.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.orgService.UpdateMember(c.Request.Context(), middleware.OrganizationID(c), uint(userID), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, m)
}
