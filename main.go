package main

import (
	"log"

	"github.com/zemo-mobility/ZemoPay/config"
	"github.com/zemo-mobility/ZemoPay/controllers"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/routes"
	"github.com/zemo-mobility/ZemoPay/services"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		utils.LogError("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database:", err)
	}

	// Stores
	payments := store.NewPaymentStore(db)
	bookings := store.NewBookingStore(db)
	extensions := store.NewExtensionStore(db)
	adjustments := store.NewAdjustmentStore(db)
	notifications := store.NewNotificationStore(db)
	users := store.NewUserStore(db)
	vehicles := store.NewVehicleStore(db)

	// Payment rails
	registry := providers.NewRegistry(
		providers.NewRazorpay(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.RazorpayWebhookSecret, "ZMW"),
		providers.NewMTNMoMo(cfg.MTNBaseURL, cfg.MTNTokenURL, cfg.MTNClientID, cfg.MTNClientSecret, cfg.MTNWebhookSecret, "ZMW"),
		providers.NewAirtelMoney(cfg.AirtelBaseURL, cfg.AirtelAPIKey, cfg.AirtelWebhookSecret, "ZMW"),
		providers.NewZamtelKwacha(cfg.ZamtelBaseURL, cfg.ZamtelAPIKey, cfg.ZamtelWebhookToken, "ZMW"),
	)

	// Services
	notifier := services.NewEmailNotifier(notifications, users, cfg)
	reconciler := services.NewReconciler(payments, bookings, registry, notifier)
	paymentSvc := services.NewPaymentService(payments, bookings, registry, reconciler, notifier)
	depositSvc := services.NewDepositService(payments, bookings, adjustments, registry, notifier)
	extensionSvc := services.NewExtensionService(extensions, bookings, notifier, cfg)
	bookingSvc := services.NewBookingService(bookings, vehicles, payments, paymentSvc, notifier, cfg)
	tripSvc := services.NewTripService(bookings, payments, notifier)

	// Router
	router := routes.SetupRouter(cfg, users, routes.Controllers{
		Auth:            controllers.NewAuthController(users, cfg.JWTSecret),
		Booking:         controllers.NewBookingController(bookingSvc),
		Payment:         controllers.NewPaymentController(paymentSvc),
		Webhook:         controllers.NewWebhookController(reconciler, registry),
		Deposit:         controllers.NewDepositController(depositSvc),
		Extension:       controllers.NewExtensionController(extensionSvc),
		Receipt:         controllers.NewReceiptController(bookingSvc, paymentSvc),
		Notification:    controllers.NewNotificationController(notifications),
		AdminPayment:    controllers.NewAdminPaymentController(payments, paymentSvc),
		AdminAdjustment: controllers.NewAdminAdjustmentController(adjustments, depositSvc),
		Cron:            controllers.NewCronController(tripSvc),
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	utils.LogInfo("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
