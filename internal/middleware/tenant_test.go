package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
)

func TestSubdomainOf(t *testing.T) {
	tests := []struct {
		host string
		base string
		want string
	}{
		{"acme.hackfest.io", "hackfest.io", "acme"},
		{"ACME.hackfest.io:443", "hackfest.io", "acme"},
		{"acme.lvh.me:8080", "lvh.me:8080", "acme"},
		{"hackfest.io", "hackfest.io", ""},
		{"www.hackfest.io", "hackfest.io", ""},
		{"a.b.hackfest.io", "hackfest.io", ""},
		{"acme.other.io", "hackfest.io", ""},
		{"acme.hackfest.io", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := SubdomainOf(tt.host, tt.base); got != tt.want {
				t.Errorf("SubdomainOf(%q, %q) = %q, expected %q", tt.host, tt.base, got, tt.want)
			}
		})
	}
}

type stubOrgs map[string]*models.Organization

func (s stubOrgs) GetBySubdomain(_ context.Context, subdomain string) (*models.Organization, error) {
	if org, ok := s[subdomain]; ok {
		return org, nil
	}
	return nil, errors.New("organization not found")
}

type stubMembership struct {
	admins, verified, members map[uint]bool
}

func (s stubMembership) IsAdmin(_ context.Context, _ uint, u *models.User) bool {
	return u != nil && (u.Admin || s.admins[u.ID])
}
func (s stubMembership) IsVerified(_ context.Context, _ uint, u *models.User) bool {
	return u != nil && s.verified[u.ID]
}
func (s stubMembership) IsMember(_ context.Context, _ uint, u *models.User) bool {
	return u != nil && s.members[u.ID]
}

func tenantRouter(orgs stubOrgs, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Tenant(orgs, "hackfest.test"))
	router.Use(extra...)
	router.GET("/org", func(c *gin.Context) {
		id, _ := tenant.FromContext(c.Request.Context())
		if id != OrganizationID(c) {
			c.String(500, "context and gin disagree")
			return
		}
		if org := CurrentOrganization(c); org != nil {
			c.String(200, org.Subdomain)
			return
		}
		c.String(200, "none")
	})
	return router
}

func TestTenant_Resolution(t *testing.T) {
	orgs := stubOrgs{
		"acme":   {ID: 1, Subdomain: "acme"},
		"globex": {ID: 2, Subdomain: "globex"},
	}
	router := tenantRouter(orgs)

	tests := []struct {
		name   string
		host   string
		header string
		code   int
		body   string
	}{
		{"subdomain", "acme.hackfest.test", "", 200, "acme"},
		{"header fallback", "hackfest.test", "globex", 200, "globex"},
		{"subdomain wins over header", "acme.hackfest.test", "globex", 200, "acme"},
		{"no tenant", "hackfest.test", "", 200, "none"},
		{"unknown organization", "nope.hackfest.test", "", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/org", nil)
			req.Host = tt.host
			if tt.header != "" {
				req.Header.Set(OrganizationHeader, tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.code {
				t.Fatalf("status = %d, expected %d (%s)", w.Code, tt.code, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q, expected %q", w.Body.String(), tt.body)
			}
		})
	}
}

func TestTenantRequired(t *testing.T) {
	router := tenantRouter(stubOrgs{"acme": {ID: 1, Subdomain: "acme"}}, TenantRequired())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/org", nil)
	req.Host = "hackfest.test"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestAccessGuards(t *testing.T) {
	private := &models.Organization{ID: 1, Subdomain: "private"}
	public := &models.Organization{ID: 2, Subdomain: "public", PublicAccess: true}
	orgs := stubOrgs{"private": private, "public": public}

	membership := stubMembership{
		admins:   map[uint]bool{1: true},
		verified: map[uint]bool{2: true},
		members:  map[uint]bool{1: true, 2: true, 3: true},
	}
	users := map[string]*models.User{
		"admin":    {ID: 1},
		"verified": {ID: 2},
		"member":   {ID: 3},
		"stranger": {ID: 4},
		"super":    {ID: 5, Admin: true},
	}

	withUser := func(c *gin.Context) {
		if u, ok := users[c.GetHeader("X-Test-User")]; ok {
			c.Set(ContextUser, u)
		}
		c.Next()
	}

	tests := []struct {
		name  string
		guard gin.HandlerFunc
		host  string
		user  string
		code  int
	}{
		{"read public anonymous", ReadAccess(membership), "public.hackfest.test", "", 200},
		{"read private anonymous", ReadAccess(membership), "private.hackfest.test", "", 401},
		{"read private stranger", ReadAccess(membership), "private.hackfest.test", "stranger", 403},
		{"read private member", ReadAccess(membership), "private.hackfest.test", "member", 200},
		{"read private super", ReadAccess(membership), "private.hackfest.test", "super", 200},
		{"verified member", VerifiedRequired(membership), "private.hackfest.test", "verified", 200},
		{"unverified member", VerifiedRequired(membership), "private.hackfest.test", "member", 403},
		{"admin passes verified", VerifiedRequired(membership), "private.hackfest.test", "admin", 200},
		{"org admin", OrgAdminRequired(membership), "private.hackfest.test", "admin", 200},
		{"super passes org admin", OrgAdminRequired(membership), "private.hackfest.test", "super", 200},
		{"verified is not admin", OrgAdminRequired(membership), "private.hackfest.test", "verified", 403},
		{"org admin anonymous", OrgAdminRequired(membership), "private.hackfest.test", "", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := tenantRouter(orgs, withUser, tt.guard)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/org", nil)
			req.Host = tt.host
			req.Header.Set("X-Test-User", tt.user)
			router.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("status = %d, expected %d", w.Code, tt.code)
			}
		})
	}
}
