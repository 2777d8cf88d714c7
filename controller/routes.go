package controller

import "github.com/gin-gonic/gin"

// Controllers groups the HTTP handlers mounted under /api.
type Controllers struct {
	Compliance *ComplianceController
	Documents  *DocumentController
	RiskScores *RiskScoreController
	Dashboard  *DashboardController
}

// Register mounts the API routes. strict guards uploads and scoring.
func (cs Controllers) Register(api *gin.RouterGroup, strict gin.HandlerFunc) {
	compliance := api.Group("/compliance")
	compliance.POST("", cs.Compliance.CreateItem)
	compliance.GET("", cs.Compliance.ListItems)
	compliance.GET("/:id", cs.Compliance.GetItem)
	compliance.PATCH("/:id", cs.Compliance.UpdateItem)
	compliance.DELETE("/:id", cs.Compliance.DeleteItem)
	compliance.POST("/:id/transition", cs.Compliance.TransitionItem)
	compliance.POST("/:id/reopen", cs.Compliance.ReopenItem)
	compliance.POST("/:id/recompute", cs.Compliance.RecomputeRiskLevel)
	compliance.GET("/:id/risk-scores", cs.Compliance.ListRiskScores)
	compliance.GET("/:id/risk-scores/latest", cs.Compliance.ListLatestRiskScores)
	compliance.POST("/:id/score", strict, cs.Compliance.ScoreDocument)

	documents := api.Group("/documents")
	documents.POST("", strict, cs.Documents.UploadDocument)
	documents.POST("/text", strict, cs.Documents.CreateTextDocument)
	documents.GET("", cs.Documents.ListDocuments)
	documents.GET("/search", cs.Documents.SearchDocuments)
	documents.GET("/:id", cs.Documents.GetDocument)
	documents.PATCH("/:id", cs.Documents.UpdateDocument)
	documents.DELETE("/:id", cs.Documents.DeleteDocument)

	riskScores := api.Group("/risk-scores")
	riskScores.GET("", cs.RiskScores.ListRiskScores)
	riskScores.POST("", cs.RiskScores.CreateRiskScore)
	riskScores.GET("/:id", cs.RiskScores.GetRiskScore)

	api.GET("/dashboard/stats", cs.Dashboard.GetStats)
	api.GET("/dashboard/activity", cs.Dashboard.GetActivity)
}
