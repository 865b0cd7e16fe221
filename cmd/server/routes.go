package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/internal/handlers"
	"github.com/huangang/hackfest/internal/middleware"
	"github.com/huangang/hackfest/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	base := svc.cfg.App.BaseDomain

	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(base))
	r.Use(middleware.Tenant(svc.orgs, base))
	r.Use(middleware.OptionalAuth(), middleware.LoadUser(svc.auth))
	r.Use(middleware.AuditLog())

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.NewMetricsHandler(svc.db, svc.taskQueue).Metrics)

	authHandler := handlers.NewAuthHandler(svc.auth, svc.providers, svc.cfg.App.Scheme == "https")
	orgHandler := handlers.NewOrganizationHandler(svc.orgs, svc.links)
	eventHandler := handlers.NewEventHandler(svc.events)
	projectHandler := handlers.NewProjectHandler(svc.projects)

	signedIn := middleware.AuthRequired()
	verified := middleware.VerifiedRequired(svc.orgs)
	orgAdmin := middleware.OrgAdminRequired(svc.orgs)

	// Write endpoints share one limiter keyed by user or IP.
	writeLimiter := middleware.NewRateLimiter(5, 20)
	limited := writeLimiter.Middleware()

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			loginLimiter := middleware.RateLimit(1, 5)
			auth.POST("/login", loginLimiter, authHandler.Login)
			auth.GET("/providers", authHandler.Providers)
			auth.GET("/oauth/:provider", authHandler.OAuthStart)
			auth.GET("/oauth/:provider/callback", authHandler.OAuthCallback)
			auth.GET("/me", signedIn, authHandler.GetCurrentUser)
		}

		admin := api.Group("/admin", signedIn, middleware.AdminRequired())
		{
			admin.POST("/hotness/run", handlers.NewAdminHandler(svc.hotness).RunHotness)
		}

		// Organization directory, independent of the request's tenant.
		orgs := api.Group("/organizations")
		{
			orgs.GET("", orgHandler.ListPublic)
			orgs.GET("/mine", signedIn, orgHandler.ListMine)
			orgs.POST("", signedIn, limited, orgHandler.Create)
		}

		tenant := api.Group("", middleware.TenantRequired())

		org := tenant.Group("/organization")
		{
			org.GET("", orgHandler.Current)
			org.GET("/membership", orgHandler.Membership)
			org.POST("/join", signedIn, limited, orgHandler.Join)
			org.PUT("", signedIn, orgAdmin, orgHandler.Update)
			org.GET("/members", signedIn, orgAdmin, orgHandler.Members)
			org.PUT("/members/:user_id", signedIn, orgAdmin, orgHandler.UpdateMember)
		}

		readable := tenant.Group("", middleware.ReadAccess(svc.orgs))

		events := readable.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/:id", eventHandler.Get)
			events.POST("", signedIn, orgAdmin, eventHandler.Create)
			events.PUT("/:id", signedIn, orgAdmin, eventHandler.Update)
			events.GET("/:id/registrants", eventHandler.Registrants)
			events.POST("/:id/registration", signedIn, verified, limited, eventHandler.Register)
			events.DELETE("/:id/registration", signedIn, eventHandler.Unregister)
		}

		readable.GET("/export/projects.csv", signedIn, orgAdmin, projectHandler.ExportCSV)

		projects := readable.Group("/projects")
		{
			projects.GET("", projectHandler.List)
			projects.POST("", signedIn, verified, limited, projectHandler.Create)
			projects.GET("/:id", projectHandler.Get)
			projects.PUT("/:id", signedIn, projectHandler.Update)
			projects.DELETE("/:id", signedIn, projectHandler.Delete)

			projects.POST("/:id/vote", signedIn, verified, limited, projectHandler.ToggleVote)
			projects.GET("/:id/volunteers", projectHandler.Volunteers)
			projects.POST("/:id/volunteers", signedIn, verified, limited, projectHandler.Volunteer)
			projects.DELETE("/:id/volunteers", signedIn, verified, projectHandler.Unvolunteer)
			projects.POST("/:id/volunteers/toggle", signedIn, verified, limited, projectHandler.ToggleVolunteer)

			projects.GET("/:id/comments", projectHandler.Comments)
			projects.POST("/:id/comments", signedIn, verified, limited, projectHandler.AddComment)
			projects.DELETE("/:id/comments/:comment_id", signedIn, projectHandler.DeleteComment)

			projects.POST("/:id/presentation", signedIn, projectHandler.Presentation)
			projects.PUT("/:id/presentation", signedIn, projectHandler.UpdatePresentation)
			projects.GET("/:id/transferable-owners", signedIn, projectHandler.TransferableOwners)
			projects.POST("/:id/hotness", signedIn, orgAdmin, projectHandler.RecalculateHotness)
			projects.POST("/:id/recount", signedIn, orgAdmin, projectHandler.Recount)
		}
	}
}
