package controller

import (
	"net/http"

	"github.com/Itish41/ParseGuard/middleware"
	"github.com/Itish41/ParseGuard/models"
	services "github.com/Itish41/ParseGuard/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ComplianceController serves compliance items and their risk scores.
type ComplianceController struct {
	lifecycle *services.LifecycleManager
	engine    *services.ScoringEngine
	scores    *services.RiskScoreService
	log       *zap.Logger
}

func NewComplianceController(lifecycle *services.LifecycleManager, engine *services.ScoringEngine, scores *services.RiskScoreService, log *zap.Logger) *ComplianceController {
	return &ComplianceController{lifecycle: lifecycle, engine: engine, scores: scores, log: log.Named("compliance_controller")}
}

func (c *ComplianceController) CreateItem(ctx *gin.Context) {
	var in services.CreateItemInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	item, err := c.lifecycle.Create(ctx.Request.Context(), middleware.Owner(ctx), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, item)
}

func (c *ComplianceController) ListItems(ctx *gin.Context) {
	items, err := c.lifecycle.List(ctx.Request.Context(), middleware.Owner(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"compliance_items": items,
		"total":            len(items),
	})
}

func (c *ComplianceController) GetItem(ctx *gin.Context) {
	item, err := c.lifecycle.Get(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, item)
}

func (c *ComplianceController) UpdateItem(ctx *gin.Context) {
	var in services.UpdateItemInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	item, err := c.lifecycle.UpdateDetails(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, item)
}

func (c *ComplianceController) DeleteItem(ctx *gin.Context) {
	if err := c.lifecycle.Delete(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id")); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// TransitionItem handles {"status": "in_progress" | "completed"}.
func (c *ComplianceController) TransitionItem(ctx *gin.Context) {
	var request struct {
		Status models.Status `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		badRequest(ctx, "status is required")
		return
	}
	item, err := c.lifecycle.Transition(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"), request.Status)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, item)
}

func (c *ComplianceController) ReopenItem(ctx *gin.Context) {
	var in services.ReopenInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	item, err := c.lifecycle.Reopen(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, item)
}

func (c *ComplianceController) RecomputeRiskLevel(ctx *gin.Context) {
	item, err := c.lifecycle.RecomputeRiskLevel(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, item)
}

func (c *ComplianceController) ListRiskScores(ctx *gin.Context) {
	scores, err := c.scores.ListByComplianceItem(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"risk_scores": scores, "total": len(scores)})
}

func (c *ComplianceController) ListLatestRiskScores(ctx *gin.Context) {
	scores, err := c.scores.ListLatestByCategory(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"risk_scores": scores, "total": len(scores)})
}

// ScoreDocument runs extraction and analysis of a document against the item.
func (c *ComplianceController) ScoreDocument(ctx *gin.Context) {
	var request struct {
		DocumentID string `json:"document_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		badRequest(ctx, "document_id is required")
		return
	}
	res, err := c.engine.ScoreFromDocument(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"), request.DocumentID)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
