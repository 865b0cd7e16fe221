package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/hackfest/internal/oauth"
	"github.com/huangang/hackfest/internal/services"
	"github.com/huangang/hackfest/pkg/logger"
	"github.com/huangang/hackfest/pkg/response"
)

const oauthStateCookie = "hackfest_oauth_state"

type AuthHandler struct {
	authService *services.AuthService
	providers   *oauth.Registry
	secure      bool
}

func NewAuthHandler(auth *services.AuthService, providers *oauth.Registry, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: auth, providers: providers, secure: secureCookies}
}

// Login handles local super-admin login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	response.Success(c, user)
}

// Providers lists the identity providers users can sign in with
// GET /api/auth/providers
func (h *AuthHandler) Providers(c *gin.Context) {
	response.Success(c, gin.H{"providers": h.providers.Names()})
}

// OAuthStart redirects to the provider's consent page
// GET /api/auth/oauth/:provider
func (h *AuthHandler) OAuthStart(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/api/auth/oauth", "", h.secure, true)
	c.Redirect(http.StatusFound, p.AuthCodeURL(state))
}

// OAuthCallback finishes sign-in and returns a session token
// GET /api/auth/oauth/:provider/callback
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		response.BadRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth/oauth", "", h.secure, true)

	if msg := c.Query("error"); msg != "" {
		response.Unauthorized(c, "sign-in cancelled: "+msg)
		return
	}

	profile, err := p.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		logger.Warn().Err(err).Str("provider", p.Name).Str("request_id", c.GetString(logger.ContextRequestID)).
			Msg("oauth exchange failed")
		response.Unauthorized(c, "could not sign in with "+p.Name)
		return
	}

	resp, err := h.authService.LoginWithProfile(c.Request.Context(), profile)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

