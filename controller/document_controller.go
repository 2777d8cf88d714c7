package controller

import (
	"io"
	"net/http"

	"github.com/Itish41/ParseGuard/middleware"
	services "github.com/Itish41/ParseGuard/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentController manages HTTP requests for document uploads
type DocumentController struct {
	service     *services.DocumentService
	maxFileSize int64
	log         *zap.Logger
}

// NewDocumentController initializes the controller with the service
func NewDocumentController(service *services.DocumentService, maxFileSize int64, log *zap.Logger) *DocumentController {
	return &DocumentController{service: service, maxFileSize: maxFileSize, log: log.Named("document_controller")}
}

// UploadDocument handles the multipart "file" upload request
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		badRequest(ctx, "Failed to get file from request")
		return
	}
	defer file.Close()

	// one byte over the limit is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(file, c.maxFileSize+1))
	if err != nil {
		badRequest(ctx, "Failed to read uploaded file")
		return
	}

	doc, err := c.service.Upload(ctx.Request.Context(), middleware.Owner(ctx), services.UploadInput{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, doc)
}

// CreateTextDocument stores pasted text as a document.
func (c *DocumentController) CreateTextDocument(ctx *gin.Context) {
	var request struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		badRequest(ctx, "title and content are required")
		return
	}
	doc, err := c.service.CreateFromText(ctx.Request.Context(), middleware.Owner(ctx), request.Title, request.Content)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, doc)
}

func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	docs, err := c.service.List(ctx.Request.Context(), middleware.Owner(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

func (c *DocumentController) GetDocument(ctx *gin.Context) {
	doc, err := c.service.Get(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

func (c *DocumentController) UpdateDocument(ctx *gin.Context) {
	var in services.DocumentUpdate
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}
	doc, err := c.service.Update(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id"), in)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, doc)
}

func (c *DocumentController) DeleteDocument(ctx *gin.Context) {
	if err := c.service.Delete(ctx.Request.Context(), middleware.Owner(ctx), ctx.Param("id")); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *DocumentController) SearchDocuments(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		badRequest(ctx, "Query parameter 'q' is required")
		return
	}

	results, err := c.service.Search(ctx.Request.Context(), middleware.Owner(ctx), query)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}
