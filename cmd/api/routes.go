package main

import (
	"legal-clinic/internal/auth"
	"legal-clinic/internal/httpapi"
	"legal-clinic/internal/metrics"
	"legal-clinic/internal/rbac"

	"github.com/gin-gonic/gin"
)

type routeOptions struct {
	// DevTokens exposes unauthenticated token issuance. Never set in production.
	DevTokens bool
	Metrics   *metrics.Metrics
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, opts routeOptions) {
	// public
	r.GET("/healthz", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/v1")

	if opts.DevTokens {
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", h.IssueToken)
			authGroup.POST("/refresh", h.RefreshToken)
		}
	}

	// protected API group
	api := v1.Group("")
	api.Use(auth.RequireAccessToken(h.Auth), rbac.RequireUser())

	api.GET("/me", func(c *gin.Context) {
		uid, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		c.JSON(200, gin.H{"user_id": uid, "role": role})
	})

	// INTAKE routes
	intakes := api.Group("")
	intakes.Use(rbac.RequireAnyRole(rbac.Intake...))
	{
		intakes.POST("/intakes", h.CreateIntake)
		intakes.POST("/consultations", h.CreateConsultation)
		intakes.PATCH("/consultations/:code", h.UpdateConsultation)
		intakes.DELETE("/consultations/:code", h.DeleteConsultation)
	}

	// read-only consultation routes are open to every staff role
	reads := api.Group("")
	reads.Use(rbac.RequireAnyRole(rbac.Staff...))
	{
		reads.GET("/consultations", h.ListConsultations)
		reads.GET("/consultations/:code", h.GetConsultation)
		reads.GET("/consultations/:code/attention-sheet", h.AttentionSheet)
		reads.GET("/sectors", h.ListSectors)
		reads.GET("/sectors/:id", h.GetSector)
	}

	// SOCIAL WORK routes
	sw := api.Group("/social-work")
	sw.Use(rbac.RequireAnyRole(rbac.SocialWork...))
	{
		sw.POST("", h.CreateCase)
		sw.GET("", h.ListCases)
		sw.GET("/:number", h.GetCase)
		sw.PATCH("/:number", h.UpdateCase)
		sw.PUT("/:number/status", h.UpdateCaseStatus)
		sw.DELETE("/:number", h.DeleteCase)
	}

	// REPORT routes
	reports := api.Group("/reports")
	reports.Use(rbac.RequireAnyRole(rbac.Reports...))
	{
		reports.GET("/consultations", h.ConsultationSummary)
		reports.GET("/social-work.xlsx", h.SocialWorkWorkbook)
	}

	// ADMIN routes
	// Only admin (which bypasses role lists) may change parameter tables.
	admin := api.Group("/sectors")
	admin.Use(rbac.RequireAnyRole())
	{
		admin.POST("", h.CreateSectors)
		admin.PUT("/:id", h.UpdateSector)
		admin.DELETE("/:id", h.DeleteSector)
	}
}
