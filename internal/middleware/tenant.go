package middleware

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
	"github.com/huangang/hackfest/pkg/logger"
	"github.com/huangang/hackfest/pkg/response"
)

const (
	ContextOrganization = "organization"

	OrganizationHeader = "X-Organization"
)

var errOrganizationNotFound = errors.New("organization not found")

// OrganizationResolver finds an organization by subdomain.
type OrganizationResolver interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error)
}

// MembershipChecker answers per-organization role questions.
type MembershipChecker interface {
	IsAdmin(ctx context.Context, orgID uint, user *models.User) bool
	IsVerified(ctx context.Context, orgID uint, user *models.User) bool
	IsMember(ctx context.Context, orgID uint, user *models.User) bool
}

// SubdomainOf extracts the tenant label from host, e.g. "acme" from
// "acme.hackfest.io:8080" with base domain "hackfest.io". It returns "" for
// the bare base domain, "www" and hosts outside the base domain.
func SubdomainOf(host, baseDomain string) string {
	host = strings.ToLower(stripPort(host))
	base := strings.ToLower(stripPort(baseDomain))
	if base == "" || !strings.HasSuffix(host, "."+base) {
		return ""
	}
	label := strings.TrimSuffix(host, "."+base)
	if label == "" || label == "www" || strings.Contains(label, ".") {
		return ""
	}
	return label
}

func stripPort(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

// Tenant resolves the organization of the request from the Host subdomain,
// falling back to the X-Organization header. The id is bound to the request
// context for services and logged by GinLogger. Requests naming an unknown
// organization get 404; requests naming none continue without a tenant.
func Tenant(orgs OrganizationResolver, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subdomain := SubdomainOf(c.Request.Host, baseDomain)
		if subdomain == "" {
			subdomain = strings.TrimSpace(c.GetHeader(OrganizationHeader))
		}
		if subdomain == "" {
			c.Next()
			return
		}

		org, err := orgs.GetBySubdomain(c.Request.Context(), subdomain)
		if err != nil {
			logger.Debug().Err(err).Str("subdomain", subdomain).Msg("tenant lookup failed")
			response.Error(c, response.NewNotFound(errOrganizationNotFound.Error()))
			c.Abort()
			return
		}

		c.Set(ContextOrganization, org)
		c.Set(logger.ContextOrganizationID, org.ID)
		c.Request = c.Request.WithContext(tenant.WithOrganization(c.Request.Context(), org.ID))
		c.Next()
	}
}

// TenantRequired rejects requests that did not resolve an organization.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentOrganization(c) == nil {
			response.Error(c, response.NewBadRequest(tenant.ErrNoTenant.Error()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentOrganization returns the organization set by Tenant, or nil.
func CurrentOrganization(c *gin.Context) *models.Organization {
	if org, exists := c.Get(ContextOrganization); exists {
		return org.(*models.Organization)
	}
	return nil
}

// OrganizationID is 0 when no tenant was resolved.
func OrganizationID(c *gin.Context) uint {
	if org := CurrentOrganization(c); org != nil {
		return org.ID
	}
	return 0
}

// ReadAccess admits anyone to public organizations, and members (or
// super-admins) to the rest. Must run after Tenant and LoadUser.
func ReadAccess(m MembershipChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		org := CurrentOrganization(c)
		if org == nil || org.PublicAccess {
			c.Next()
			return
		}
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c, "sign in to view this organization")
			c.Abort()
			return
		}
		if !user.Admin && !m.IsMember(c.Request.Context(), org.ID, user) {
			response.Forbidden(c, "members only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// VerifiedRequired admits verified members and organization admins.
func VerifiedRequired(m MembershipChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, user := CurrentOrganization(c), CurrentUser(c)
		if org == nil || user == nil {
			response.Unauthorized(c, "sign in required")
			c.Abort()
			return
		}
		ctx := c.Request.Context()
		if !m.IsVerified(ctx, org.ID, user) && !m.IsAdmin(ctx, org.ID, user) {
			response.Forbidden(c, "verified membership required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OrgAdminRequired admits organization admins and super-admins.
func OrgAdminRequired(m MembershipChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		org, user := CurrentOrganization(c), CurrentUser(c)
		if org == nil || user == nil {
			response.Unauthorized(c, "sign in required")
			c.Abort()
			return
		}
		if !m.IsAdmin(c.Request.Context(), org.ID, user) {
			response.Forbidden(c, "organization admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
