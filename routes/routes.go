package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zemo-mobility/ZemoPay/config"
	"github.com/zemo-mobility/ZemoPay/controllers"
	"github.com/zemo-mobility/ZemoPay/middleware"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// Controllers bundles everything the router wires up.
type Controllers struct {
	Auth            *controllers.AuthController
	Booking         *controllers.BookingController
	Payment         *controllers.PaymentController
	Webhook         *controllers.WebhookController
	Deposit         *controllers.DepositController
	Extension       *controllers.ExtensionController
	Receipt         *controllers.ReceiptController
	Notification    *controllers.NotificationController
	AdminPayment    *controllers.AdminPaymentController
	AdminAdjustment *controllers.AdminAdjustmentController
	Cron            *controllers.CronController
}

// SetupRouter initializes the Gin router with all routes.
func SetupRouter(cfg *config.Config, users *store.UserStore, c Controllers) *gin.Engine {
	router := gin.New()
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	// Unauthenticated surface: login, webhooks, and scheduler sweeps.
	auth := api.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/:provider", c.Webhook.Receive)
		webhooks.GET("/:provider", c.Webhook.Challenge)
	}

	cron := api.Group("/cron", middleware.CronAuthMiddleware(cfg.CronSecret))
	{
		cron.POST("/trips/activate", c.Cron.ActivateTrips)
		cron.POST("/trips/complete", c.Cron.CompleteTrips)
	}

	// Authenticated surface.
	authed := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, users))
	{
		bookings := authed.Group("/bookings")
		{
			bookings.POST("", middleware.RequireRole(models.RoleRenter), c.Booking.Create)
			bookings.GET("/:id", c.Booking.Get)
			bookings.POST("/:id/cancel", c.Booking.Cancel)
			bookings.GET("/:id/payments", c.Payment.ListForBooking)
			bookings.GET("/:id/receipt", c.Receipt.Download)

			bookings.POST("/:id/deposit/release",
				middleware.RequireRole(models.RoleHost), c.Deposit.Release)
			bookings.POST("/:id/deposit/capture",
				middleware.RequireRole(models.RoleHost), c.Deposit.Capture)
			bookings.POST("/:id/adjustments",
				middleware.RequireRole(models.RoleHost), c.Deposit.CreateAdjustment)

			bookings.POST("/:id/extensions",
				middleware.RequireRole(models.RoleRenter), c.Extension.Propose)
			bookings.GET("/:id/extensions", c.Extension.List)
		}

		payments := authed.Group("/payments", middleware.RequireRole(models.RoleRenter))
		{
			payments.POST("", c.Payment.CreatePayment)
			payments.POST("/deposit", c.Payment.CreateDepositHold)
			payments.POST("/:id/confirm", c.Payment.ConfirmPayment)
		}

		authed.POST("/extensions/:extensionId/respond",
			middleware.RequireRole(models.RoleHost), c.Extension.Respond)
		authed.POST("/adjustments/:adjustmentId/dispute",
			middleware.RequireRole(models.RoleRenter), c.Deposit.Dispute)

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", c.Notification.List)
			notifications.POST("/:id/read", c.Notification.MarkRead)
		}

		admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/payments", c.AdminPayment.List)
			admin.GET("/payments/review", c.AdminPayment.ListReview)
			admin.GET("/payments/export", c.AdminPayment.Export)
			admin.POST("/payments/refund", c.AdminPayment.Refund)

			admin.GET("/adjustments", c.AdminAdjustment.List)
			admin.POST("/adjustments/:id/approve", c.AdminAdjustment.Approve)
			admin.POST("/adjustments/:id/process", c.AdminAdjustment.Process)
			admin.POST("/adjustments/:id/resolve", c.AdminAdjustment.Resolve)
		}
	}

	return router
}
