package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "reconciliation-ledger-backend/internal/handlers"
	service "reconciliation-ledger-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	reconService := service.NewService(db)

	matchHandler := handler.NewMatchHandler(reconService)
	auditHandler := handler.NewAuditHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Match lifecycle routes
	matches := api.Group("/matches")
	matches.POST("", matchHandler.CreateMatch)
	matches.GET("", matchHandler.GetMatches)
	matches.POST("/:id/approve", matchHandler.ApproveMatch)
	matches.DELETE("/:id", matchHandler.Unmatch)

	// Transaction routes
	tx := api.Group("/transactions")
	tx.POST("/import", matchHandler.ImportTransactions)
	tx.GET("", matchHandler.ListTransactions)
	tx.GET("/summary", matchHandler.UnmatchedSummary)

	// Audit trail routes
	auditGroup := api.Group("/audit")
	{
		auditGroup.POST("/logs", auditHandler.CreateAuditLog)
		auditGroup.GET("/logs", auditHandler.GetAuditLogs)
		auditGroup.GET("/trail/:entityType/:entityId", auditHandler.GetEntityAuditTrail)
		auditGroup.GET("/activity/:userId", auditHandler.GetUserActivitySummary)
		auditGroup.GET("/verify", auditHandler.VerifyAuditChain)
	}
}
