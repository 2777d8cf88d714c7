package controller

import (
	"net/http"

	"github.com/Itish41/ParseGuard/middleware"
	services "github.com/Itish41/ParseGuard/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RiskScoreController records manual assessments and serves score reads.
type RiskScoreController struct {
	engine *services.ScoringEngine
	scores *services.RiskScoreService
	log    *zap.Logger
}

func NewRiskScoreController(engine *services.ScoringEngine, scores *services.RiskScoreService, log *zap.Logger) *RiskScoreController {
	return &RiskScoreController{engine: engine, scores: scores, log: log.Named("risk_score_controller")}
}

func (c *RiskScoreController) CreateRiskScore(ctx *gin.Context) {
	var in services.ManualScoreInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	res, err := c.engine.RecordManualScore(ctx.Request.Context(), middleware.Owner(ctx), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

func (c *RiskScoreController) ListRiskScores(ctx *gin.Context) {
	scores, err := c.scores.List(ctx.Request.Context(), middleware.Owner(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"risk_scores": scores, "total": len(scores)})
}

func (c *RiskScoreController) GetRiskScore(ctx *gin.Context) {
	score, err := c.scores.Get(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, score)
}
