package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Itish41/ParseGuard/analysis"
	"github.com/Itish41/ParseGuard/extraction"
	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
	"github.com/Itish41/ParseGuard/search"
	"github.com/Itish41/ParseGuard/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ScoringEngine turns documents, or manual reviewer input, into risk scores
// and keeps the owning compliance item in step.
type ScoringEngine struct {
	store     repository.Store
	blobs     storage.BlobStore
	extractor extraction.Extractor
	analyzer  analysis.Analyzer
	index     *search.Index
	lifecycle *LifecycleManager
	validate  *validator.Validate
	log       *zap.Logger
	settings  settings
}

// NewScoringEngine wires the engine. index may be nil.
func NewScoringEngine(
	store repository.Store,
	blobs storage.BlobStore,
	extractor extraction.Extractor,
	analyzer analysis.Analyzer,
	index *search.Index,
	lifecycle *LifecycleManager,
	log *zap.Logger,
	opts ...Option,
) *ScoringEngine {
	return &ScoringEngine{
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		analyzer:  analyzer,
		index:     index,
		lifecycle: lifecycle,
		validate:  newValidator(),
		log:       log.Named("scoring"),
		settings:  applyOptions(opts),
	}
}

// ScoreResult is the outcome of ScoreFromDocument.
type ScoreResult struct {
	RiskScoreIDs []string                  `json:"risk_score_ids"`
	Item         *models.ComplianceItem    `json:"compliance_item"`
	Dropped      []models.DroppedCandidate `json:"dropped,omitempty"`
}

func scoreIDs(itemID, documentID string) map[string]string {
	return map[string]string{"compliance_item_id": itemID, "document_id": documentID}
}

// ScoreFromDocument extracts (if needed) and analyzes a document, then
// records one risk score per valid candidate against the compliance item
// and recomputes the item, all in one unit of work.
func (e *ScoringEngine) ScoreFromDocument(ctx context.Context, owner, itemID, documentID string) (*ScoreResult, error) {
	res, err := e.scoreFromDocument(ctx, owner, itemID, documentID)
	result := "ok"
	if err != nil {
		result = "error"
		var svcErr *Error
		if errors.As(err, &svcErr) {
			result = svcErr.Code
		}
	}
	scoringRunsTotal.WithLabelValues(result).Inc()
	return res, err
}

func (e *ScoringEngine) scoreFromDocument(ctx context.Context, owner, itemID, documentID string) (*ScoreResult, error) {
	ids := scoreIDs(itemID, documentID)
	repos := e.store.Repos()

	item, err := loadOwned(ctx, repos, owner, itemID)
	if err != nil {
		return nil, err
	}
	doc, err := repos.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound, ids)
	}
	if doc.Owner != item.Owner {
		e.log.Warn("cross-owner scoring rejected", zap.String("compliance_item_id", itemID), zap.String("document_id", documentID))
		return nil, newError(ErrOwnerMismatch, ids, nil)
	}

	text, err := e.documentText(ctx, repos, doc, ids)
	if err != nil {
		return nil, err
	}

	candidates, err := e.analyze(ctx, text, ids)
	if err != nil {
		return nil, err
	}

	kept, dropped := normalizeCandidates(candidates)
	for _, d := range dropped {
		e.log.Warn("analysis candidate dropped",
			zap.String("compliance_item_id", itemID),
			zap.String("document_id", documentID),
			zap.String("category", d.Category),
			zap.String("reason", d.Reason),
		)
	}

	now := e.settings.now()
	blob := models.Analysis{
		Version:    models.AnalysisVersion,
		Analyzer:   e.analyzer.Identifier(),
		AnalyzedAt: models.StorageTime(now),
		Candidates: recordableCandidates(candidates),
		Dropped:    dropped,
	}
	rawBlob, err := blob.JSON()
	if err != nil {
		return nil, err
	}

	assessedBy := models.SystemAssessorPrefix + e.analyzer.Identifier()
	result := &ScoreResult{RiskScoreIDs: []string{}, Dropped: dropped}
	err = runUnitOfWork(ctx, e.store, e.settings, e.log, "score_document", ids, func(tx repository.Repositories) error {
		result.RiskScoreIDs = result.RiskScoreIDs[:0]

		current, err := loadOwned(ctx, tx, owner, itemID)
		if err != nil {
			return err
		}

		for _, c := range kept {
			confidence := c.Confidence
			score := &models.RiskScore{
				ComplianceItemID: itemID,
				DocumentID:       &doc.ID,
				Owner:            item.Owner,
				RiskCategory:     c.Category,
				Score:            c.Score,
				AssessmentDate:   models.StorageTime(now),
				AssessedBy:       assessedBy,
				AIConfidence:     &confidence,
				AIReasoning:      optionalString(c.Reasoning),
			}
			if err := tx.RiskScores.Create(ctx, score); err != nil {
				return translate(err, ErrDocumentNotFound, ids)
			}
			result.RiskScoreIDs = append(result.RiskScoreIDs, score.ID)
		}

		if err := tx.Documents.SetAnalysis(ctx, doc.ID, rawBlob); err != nil {
			return translate(err, ErrDocumentNotFound, ids)
		}

		result.Item, err = e.lifecycle.recompute(ctx, tx, current, len(kept) > 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	riskScoresCreatedTotal.WithLabelValues("analysis").Add(float64(len(result.RiskScoreIDs)))
	e.log.Info("document scored",
		zap.String("compliance_item_id", itemID),
		zap.String("document_id", documentID),
		zap.Int("scores", len(result.RiskScoreIDs)),
		zap.Int("dropped", len(dropped)),
		zap.String("risk_level", string(result.Item.RiskLevel)),
		zap.String("status", string(result.Item.Status)),
	)
	return result, nil
}

// documentText returns the stored text or runs extraction and persists the
// result. No document field is written when extraction fails.
func (e *ScoringEngine) documentText(ctx context.Context, repos repository.Repositories, doc *models.Document, ids map[string]string) (string, error) {
	if doc.ExtractedText != nil {
		return *doc.ExtractedText, nil
	}

	data, err := e.blobs.Get(ctx, doc.StoragePath)
	if err != nil {
		e.log.Error("failed to load document bytes", zap.String("document_id", doc.ID), zap.Error(err))
		return "", newError(ErrExtractionFailed, ids, err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, e.settings.extractionTimeout)
	defer cancel()

	start := time.Now()
	text, err := e.extractor.Extract(extractCtx, data, doc.MimeType)
	if err != nil {
		collaboratorDuration.WithLabelValues("extraction", "error").Observe(time.Since(start).Seconds())
		e.log.Error("text extraction failed",
			zap.String("document_id", doc.ID),
			zap.String("mime_type", doc.MimeType),
			zap.Error(err),
		)
		return "", newError(ErrExtractionFailed, ids, err)
	}
	collaboratorDuration.WithLabelValues("extraction", "ok").Observe(time.Since(start).Seconds())

	// Re-extraction of the same bytes is deterministic, so concurrent
	// writers store the same value.
	if err := repos.Documents.SetExtractedText(ctx, doc.ID, text); err != nil {
		return "", translate(err, ErrDocumentNotFound, ids)
	}
	e.index.IndexDocument(ctx, search.Entry{
		DocumentID: doc.ID,
		Owner:      doc.Owner,
		Filename:   doc.Filename,
		Text:       text,
		Timestamp:  e.settings.now().UTC(),
	})
	return text, nil
}

func (e *ScoringEngine) analyze(ctx context.Context, text string, ids map[string]string) ([]analysis.Candidate, error) {
	analyzeCtx, cancel := context.WithTimeout(ctx, e.settings.analysisTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := e.analyzer.Analyze(analyzeCtx, text)
	if err != nil {
		collaboratorDuration.WithLabelValues("analysis", "error").Observe(time.Since(start).Seconds())
		e.log.Error("analysis failed", zap.Any("ids", ids), zap.Error(err))
		return nil, newError(ErrAnalysisFailed, ids, err)
	}
	collaboratorDuration.WithLabelValues("analysis", "ok").Observe(time.Since(start).Seconds())
	return candidates, nil
}

// ManualScoreInput is a reviewer-entered assessment.
type ManualScoreInput struct {
	ComplianceItemID string     `json:"compliance_item_id" validate:"required"`
	DocumentID       *string    `json:"document_id"`
	RiskCategory     string     `json:"risk_category" validate:"required"`
	RiskScore        *float64   `json:"risk_score" validate:"required"`
	AssessedBy       string     `json:"assessed_by" validate:"required,max=255"`
	Notes            *string    `json:"notes"`
	AIConfidence     *float64   `json:"ai_confidence"`
	AIReasoning      *string    `json:"ai_reasoning"`
	AssessmentDate   *time.Time `json:"assessment_date"`
}

// ManualScoreResult is the created score and the recomputed item.
type ManualScoreResult struct {
	RiskScore *models.RiskScore      `json:"risk_score"`
	Item      *models.ComplianceItem `json:"compliance_item"`
}

// RecordManualScore stores a reviewer's assessment with the same
// normalization as analysis output. Because there is no batch to continue,
// an invalid confidence is returned as ValidationFailed.
func (e *ScoringEngine) RecordManualScore(ctx context.Context, owner string, in ManualScoreInput) (*ManualScoreResult, error) {
	in.RiskCategory = strings.TrimSpace(in.RiskCategory)
	in.AssessedBy = strings.TrimSpace(in.AssessedBy)
	ids := itemIDs(in.ComplianceItemID)
	if in.DocumentID != nil {
		ids["document_id"] = *in.DocumentID
	}

	if err := e.validate.Struct(in); err != nil {
		return nil, validationError(ids, "%s", describeValidation(err))
	}
	if strings.HasPrefix(in.AssessedBy, models.SystemAssessorPrefix) {
		return nil, validationError(ids, "assessed_by must not use the %q prefix", models.SystemAssessorPrefix)
	}
	confidence := 1.0
	if in.AIConfidence != nil {
		confidence = *in.AIConfidence
	}
	sc, reason := normalizeCandidate(analysis.Candidate{
		Category:   in.RiskCategory,
		RawScore:   *in.RiskScore,
		Confidence: confidence,
	})
	if reason != "" {
		return nil, validationError(ids, "%s", reason)
	}

	repos := e.store.Repos()
	item, err := loadOwned(ctx, repos, owner, in.ComplianceItemID)
	if err != nil {
		return nil, err
	}
	if in.DocumentID != nil {
		doc, err := repos.Documents.GetByID(ctx, *in.DocumentID)
		if err != nil {
			return nil, translate(err, ErrDocumentNotFound, ids)
		}
		if doc.Owner != item.Owner {
			return nil, newError(ErrOwnerMismatch, ids, nil)
		}
	}

	assessed := e.settings.now()
	if in.AssessmentDate != nil {
		assessed = *in.AssessmentDate
	}

	out := &ManualScoreResult{}
	err = runUnitOfWork(ctx, e.store, e.settings, e.log, "manual_score", ids, func(tx repository.Repositories) error {
		current, err := loadOwned(ctx, tx, owner, in.ComplianceItemID)
		if err != nil {
			return err
		}
		score := &models.RiskScore{
			ComplianceItemID: in.ComplianceItemID,
			DocumentID:       in.DocumentID,
			Owner:            item.Owner,
			RiskCategory:     sc.Category,
			Score:            sc.Score,
			AssessmentDate:   models.StorageTime(assessed),
			AssessedBy:       in.AssessedBy,
			Notes:            in.Notes,
			AIConfidence:     in.AIConfidence,
			AIReasoning:      in.AIReasoning,
		}
		if err := tx.RiskScores.Create(ctx, score); err != nil {
			return translate(err, ErrDocumentNotFound, ids)
		}
		out.RiskScore = score

		out.Item, err = e.lifecycle.recompute(ctx, tx, current, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	riskScoresCreatedTotal.WithLabelValues("manual").Inc()
	e.log.Info("manual risk score recorded",
		zap.String("compliance_item_id", in.ComplianceItemID),
		zap.String("risk_score_id", out.RiskScore.ID),
		zap.String("assessed_by", in.AssessedBy),
	)
	return out, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
