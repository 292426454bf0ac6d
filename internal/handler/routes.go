package handler

import (
	"github.com/bingovintage/loan-engine/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Handlers groups the REST adapters mounted under /api/v1
type Handlers struct {
	Loans     *LoanHandler
	Payments  *PaymentHandler
	Clients   *ClientHandler
	KYC       *KYCHandler
	WebSocket *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)

	// Live loan events; the token travels in the query string
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1, every route protected
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Loan routes
	loans := api.Group("/loans")
	loans.POST("", h.Loans.CreateLoan)
	loans.GET("", h.Loans.ListLoans)
	loans.POST("/preview", h.Loans.PreviewSchedule)
	loans.GET("/:id", h.Loans.GetLoan)
	loans.PUT("/:id", h.Loans.EditLoan)
	loans.POST("/:id/transitions", h.Loans.TransitionLoan)
	loans.POST("/:id/evaluate", h.Loans.EvaluateLoan)
	loans.GET("/:id/schedule", h.Loans.GetSchedule)
	loans.GET("/:id/audit", h.Loans.ListAudit)

	// Payment routes
	loans.POST("/:id/payments", h.Payments.PostPayment)
	loans.GET("/:id/payments", h.Payments.ListPayments)
	payments := api.Group("/payments")
	payments.GET("/:paymentId", h.Payments.GetPayment)
	payments.PUT("/:paymentId", h.Payments.EditPayment)
	payments.POST("/:paymentId/reverse", h.Payments.ReversePayment)

	// Client routes
	clients := api.Group("/clients")
	clients.POST("", h.Clients.CreateClient)
	clients.GET("", h.Clients.ListClients)
	clients.GET("/:id", h.Clients.GetClient)
	clients.PUT("/:id", h.Clients.UpdateClientKYC)
	clients.GET("/:id/audit", h.Clients.ListClientAudit)
	clients.GET("/:id/loans", h.Clients.ListClientLoans)
	clients.POST("/:id/documents", h.KYC.UploadDocument)
	clients.GET("/:id/documents", h.KYC.ListDocuments)
}
