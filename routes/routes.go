package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"invoicely/handlers"
	"invoicely/middleware"
)

// RegisterAuthRoutes registers login, token and session endpoints.
func RegisterAuthRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle, authMW gin.HandlerFunc) {
	group := api.Group("/auth")
	{
		group.POST("/login", hb.LoginLimit.Middleware(), hb.Auth.Login)
		group.POST("/refresh", hb.Auth.Refresh)
		group.POST("/logout", hb.Auth.Logout)

		protected := group.Group("", authMW)
		protected.GET("/me", hb.Auth.Me)
		protected.POST("/change-password", hb.Auth.ChangePassword)
		protected.PUT("/change-password", hb.Auth.ChangePassword)
		protected.GET("/sessions", hb.Auth.Sessions)
		protected.DELETE("/sessions/others", hb.Auth.RevokeOtherSessions)
	}
}

// RegisterResourceRoutes registers the owner-scoped endpoints.
func RegisterResourceRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle, authMW gin.HandlerFunc) {
	protected := api.Group("", authMW)

	contacts := protected.Group("/contacts")
	{
		contacts.GET("", hb.Contacts.List)
		contacts.POST("", hb.Contacts.Create)
		contacts.GET("/:id", hb.Contacts.Get)
		contacts.PUT("/:id", hb.Contacts.Update)
		contacts.DELETE("/:id", hb.Contacts.Delete)
	}

	invoices := protected.Group("/invoices")
	{
		invoices.GET("", hb.Invoices.List)
		invoices.POST("", hb.Invoices.Create)
		invoices.GET("/:id", hb.Invoices.Get)
		invoices.PUT("/:id", hb.Invoices.Update)
		invoices.DELETE("/:id", hb.Invoices.Delete)
		invoices.PUT("/:id/status", hb.Invoices.SetStatus)
		invoices.POST("/:id/payment-intent", hb.Invoices.PaymentIntent)
	}

	payments := protected.Group("/payments")
	{
		payments.GET("", hb.Invoices.ListPayments)
		payments.POST("", hb.Invoices.RecordPayment)
	}

	settings := protected.Group("/settings")
	{
		settings.GET("", hb.Settings.Get)
		settings.PUT("", hb.Settings.Update)
		settings.POST("/logo", hb.Settings.UploadLogo)
		settings.DELETE("/logo", hb.Settings.RemoveLogo)
	}

	stock := protected.Group("/stock")
	{
		stock.GET("", hb.Stock.List)
		stock.POST("", hb.Stock.Create)
		stock.GET("/:id", hb.Stock.Get)
		stock.PUT("/:id", hb.Stock.Update)
		stock.DELETE("/:id", hb.Stock.Delete)
		stock.POST("/:id/adjust", hb.Stock.Adjust)
	}

	currency := protected.Group("/currency")
	{
		currency.GET("/rates", hb.Currency.Rates)
		currency.GET("/convert", hb.Currency.Convert)
	}

	protected.GET("/activity", hb.Activity.List)
}

// RegisterAdminRoutes registers the account management endpoints.
func RegisterAdminRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle, authMW gin.HandlerFunc) {
	users := api.Group("/users", authMW, middleware.RequireAdmin())
	{
		users.GET("", hb.Users.List)
		users.POST("", hb.Users.Create)
		users.PUT("/:id", hb.Users.Update)
		users.DELETE("/:id", hb.Users.Delete)
	}
}

// RegisterWebhookRoutes registers unauthenticated provider callbacks.
func RegisterWebhookRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	api.POST("/webhooks/stripe", hb.Webhooks.Stripe)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.Health)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     hb.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, middleware.RenewedTokenHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)

	api := r.Group("/api", hb.GlobalLimit.Middleware())
	authMW := middleware.Auth(hb.AuthService, hb.Auth.Cookies)

	RegisterAuthRoutes(api, hb, authMW)
	RegisterResourceRoutes(api, hb, authMW)
	RegisterAdminRoutes(api, hb, authMW)
	RegisterWebhookRoutes(api, hb)
}
