package api

import (
	"net/http"

	"livraison-backend/internal/api/middleware"
	"livraison-backend/internal/metrics"
	"livraison-backend/internal/modules/orders"
	"livraison-backend/internal/modules/settings"
	"livraison-backend/internal/modules/support"
	"livraison-backend/internal/modules/users"
	"livraison-backend/internal/modules/wallet"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	userHandler *users.Handler,
	orderHandler *orders.Handler,
	walletHandler *wallet.Handler,
	settingsHandler *settings.Handler,
	supportHandler *support.Handler,
	accounts middleware.AccountReader,
	jwtSecret string,
) {
	authMiddleware := middleware.JWTMAuth(jwtSecret)
	activeAccount := middleware.ActiveAccountRequired(accounts)
	adminRequired := middleware.AdminRequired()
	livreurRequired := middleware.LivreurRequired()

	// --- Public Routes ---
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/otp/request", userHandler.RequestOTP)
		authGroup.POST("/otp/verify", userHandler.VerifyOTP)
		authGroup.POST("/admin/login", userHandler.AdminLogin)
	}

	// --- Profile Routes ---
	profileGroup := e.Group("/profile", authMiddleware, activeAccount)
	{
		profileGroup.GET("", userHandler.GetMyProfile)
		profileGroup.PUT("", userHandler.UpdateMyProfile)
	}

	// --- Order Routes (clients and admins) ---
	orderGroup := e.Group("/orders", authMiddleware, activeAccount)
	{
		orderGroup.POST("", orderHandler.CreateOrder)
		orderGroup.GET("", orderHandler.ListMyOrders)
		orderGroup.GET("/:orderId", orderHandler.GetOrder)
		orderGroup.PUT("/:orderId/cancel", orderHandler.Cancel)
		orderGroup.GET("/:orderId/timeline", orderHandler.GetTimeline)
		orderGroup.GET("/:orderId/chat", orderHandler.ListChatMessages)
		orderGroup.POST("/:orderId/chat", orderHandler.PostChatMessage)
	}

	// --- Livreur Routes ---
	livreurGroup := e.Group("/livreur", authMiddleware, activeAccount, livreurRequired)
	{
		livreurGroup.PUT("/presence", userHandler.SetPresence)
		livreurGroup.POST("/location", userHandler.ReportLocation)
		livreurGroup.GET("/orders/available", orderHandler.ListAvailable)
		livreurGroup.POST("/orders/:orderId/accept", orderHandler.Accept)
		livreurGroup.POST("/orders/:orderId/reject", orderHandler.Reject)
		livreurGroup.PUT("/orders/:orderId/shopping", orderHandler.MarkShopping)
		livreurGroup.PUT("/orders/:orderId/picked-up", orderHandler.MarkPickedUp)
		livreurGroup.PUT("/orders/:orderId/in-transit", orderHandler.MarkInTransit)
		livreurGroup.PUT("/orders/:orderId/deliver", orderHandler.Deliver)

		livreurGroup.GET("/wallet", walletHandler.GetMyWallet)
		livreurGroup.GET("/wallet/transactions", walletHandler.ListMyTransactions)
		livreurGroup.POST("/wallet/withdraw", walletHandler.Withdraw)
		livreurGroup.POST("/wallet/top-up", walletHandler.TopUp)
	}

	// --- Complaint Routes ---
	complaintGroup := e.Group("/complaints", authMiddleware, activeAccount)
	{
		complaintGroup.POST("", supportHandler.CreateComplaint)
		complaintGroup.GET("", supportHandler.ListMyComplaints)
		complaintGroup.GET("/:complaintId", supportHandler.GetComplaint)
		complaintGroup.POST("/:complaintId/messages", supportHandler.AppendComplaintMessage)
	}

	// --- Admin Routes ---
	adminGroup := e.Group("/admin", authMiddleware, adminRequired)
	{
		adminGroup.GET("/orders", orderHandler.ListAllOrders)
		adminGroup.GET("/orders/:orderId", orderHandler.GetOrder)
		adminGroup.PUT("/orders/:orderId/cancel", orderHandler.Cancel)

		adminGroup.GET("/users", userHandler.ListUsers)
		adminGroup.PUT("/users/:userId/status", userHandler.SetAccountStatus)

		adminGroup.POST("/wallets/:livreurId/adjust", walletHandler.AdminAdjust)
		adminGroup.POST("/orders/:orderId/reverse-payout", walletHandler.AdminReversePayout)

		adminGroup.GET("/settings", settingsHandler.GetSettings)
		adminGroup.PUT("/settings", settingsHandler.UpdateSettings)

		adminGroup.GET("/complaints", supportHandler.ListAllComplaints)
		adminGroup.PUT("/complaints/:complaintId/status", supportHandler.UpdateComplaintStatus)
		adminGroup.POST("/complaints/:complaintId/messages", supportHandler.AppendComplaintMessage)
		adminGroup.GET("/complaints/:complaintId", supportHandler.GetComplaint)
	}
}
