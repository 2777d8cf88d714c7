package services

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Itish41/ParseGuard/extraction"
	"github.com/Itish41/ParseGuard/models"
	"github.com/Itish41/ParseGuard/repository"
	"github.com/Itish41/ParseGuard/search"
	"github.com/Itish41/ParseGuard/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedMimeTypes are the document types accepted on upload.
var allowedMimeTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain":       ".txt",
	"text/csv":         ".csv",
	"text/markdown":    ".md",
	"application/json": ".json",
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
	"image/tiff":       ".tiff",
}

// DocumentService handles document storage, metadata and search.
type DocumentService struct {
	store    repository.Store
	blobs    storage.BlobStore
	index    *search.Index
	log      *zap.Logger
	settings settings
}

// NewDocumentService wires the service. index may be nil.
func NewDocumentService(store repository.Store, blobs storage.BlobStore, index *search.Index, log *zap.Logger, opts ...Option) *DocumentService {
	return &DocumentService{
		store:    store,
		blobs:    blobs,
		index:    index,
		log:      log.Named("documents"),
		settings: applyOptions(opts),
	}
}

// UploadInput is a file received from a client.
type UploadInput struct {
	Filename string
	MimeType string
	Data     []byte
}

// resolveMimeType trusts a specific declared type and sniffs the bytes when
// the client sent none or a generic one.
func resolveMimeType(declared string, data []byte) string {
	mt := extraction.NormalizeMimeType(declared)
	if mt == "" || mt == "application/octet-stream" {
		mt = extraction.NormalizeMimeType(mimetype.Detect(data).String())
	}
	return mt
}

func (s *DocumentService) Upload(ctx context.Context, owner string, in UploadInput) (*models.Document, error) {
	size := int64(len(in.Data))
	switch {
	case size == 0:
		return nil, validationError(nil, "file is empty")
	case size > s.settings.maxFileSize:
		return nil, validationError(nil, "file exceeds the maximum size of %d bytes", s.settings.maxFileSize)
	}

	mt := resolveMimeType(in.MimeType, in.Data)
	ext, ok := allowedMimeTypes[mt]
	if !ok {
		return nil, validationError(nil, "file type %s is not allowed", mt)
	}

	filename := filepath.Base(strings.TrimSpace(in.Filename))
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		filename = "document" + ext
	}
	return s.create(ctx, owner, filename, mt, ext, in.Data, nil)
}

const maxFilenameLength = 255

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9 _.-]+`)

// sanitizeTitle turns a user title into a safe filename stem.
func sanitizeTitle(title string) string {
	stem := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(title, "_"))
	stem = strings.Trim(stem, ".")
	if stem == "" {
		stem = "document"
	}
	if len(stem) > 200 {
		stem = stem[:200]
	}
	return stem
}

// CreateFromText stores pasted text as a .txt document with extracted_text
// already populated.
func (s *DocumentService) CreateFromText(ctx context.Context, owner, title, content string) (*models.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError(nil, "title is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationError(nil, "content is required")
	}
	if int64(len(content)) > s.settings.maxFileSize {
		return nil, validationError(nil, "content exceeds the maximum size of %d bytes", s.settings.maxFileSize)
	}
	return s.create(ctx, owner, sanitizeTitle(title)+".txt", "text/plain", ".txt", []byte(content), &content)
}

func (s *DocumentService) create(ctx context.Context, owner, filename, mimeType, ext string, data []byte, text *string) (*models.Document, error) {
	id := uuid.NewString()
	key := owner + "/" + id + ext

	if err := s.blobs.Put(ctx, key, data, mimeType); err != nil {
		s.log.Error("failed to store document bytes", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	doc := &models.Document{
		ID:            id,
		Owner:         owner,
		Filename:      filename,
		StoragePath:   key,
		Size:          int64(len(data)),
		MimeType:      mimeType,
		ExtractedText: text,
		UploadedAt:    models.StorageTime(s.settings.now()),
	}
	if err := s.store.Repos().Documents.Create(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Warn("failed to clean up orphaned blob", zap.String("key", key), zap.Error(derr))
		}
		return nil, translate(err, ErrDocumentNotFound, map[string]string{"document_id": id})
	}

	entry := search.Entry{DocumentID: doc.ID, Owner: owner, Filename: filename, Timestamp: doc.UploadedAt}
	if text != nil {
		entry.Text = *text
	}
	s.index.IndexDocument(ctx, entry)

	s.log.Info("document stored",
		zap.String("document_id", doc.ID),
		zap.String("mime_type", mimeType),
		zap.Int64("size", doc.Size),
	)
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, owner, id string) (*models.Document, error) {
	ids := map[string]string{"document_id": id}
	doc, err := s.store.Repos().Documents.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound, ids)
	}
	if doc.Owner != owner {
		return nil, newError(ErrDocumentNotFound, ids, nil)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, owner string) ([]models.Document, error) {
	docs, err := s.store.Repos().Documents.ListByOwner(ctx, owner)
	return nonNil(docs), err
}

// DocumentUpdate carries the editable document fields. Nil fields are left
// unchanged.
type DocumentUpdate struct {
	Filename      *string `json:"filename"`
	ExtractedText *string `json:"extracted_text"`
}

// Update renames a document or replaces its extracted text, for example to
// correct OCR output. A stored analysis is kept until the document is
// scored again.
func (s *DocumentService) Update(ctx context.Context, owner, id string, in DocumentUpdate) (*models.Document, error) {
	ids := map[string]string{"document_id": id}
	if in.Filename == nil && in.ExtractedText == nil {
		return nil, validationError(ids, "no fields to update")
	}
	var filename string
	if in.Filename != nil {
		filename = filepath.Base(strings.TrimSpace(*in.Filename))
		if filename == "." || filename == string(filepath.Separator) || filename == "" {
			return nil, validationError(ids, "filename is required")
		}
		if len(filename) > maxFilenameLength {
			return nil, validationError(ids, "filename must be at most %d characters", maxFilenameLength)
		}
	}
	if in.ExtractedText != nil && int64(len(*in.ExtractedText)) > s.settings.maxFileSize {
		return nil, validationError(ids, "extracted_text exceeds the maximum size of %d bytes", s.settings.maxFileSize)
	}

	var doc *models.Document
	err := s.store.InTx(ctx, func(tx repository.Repositories) error {
		current, err := tx.Documents.GetByID(ctx, id)
		if err != nil {
			return translate(err, ErrDocumentNotFound, ids)
		}
		if current.Owner != owner {
			return newError(ErrDocumentNotFound, ids, nil)
		}
		if in.Filename != nil {
			if err := tx.Documents.SetFilename(ctx, id, filename); err != nil {
				return translate(err, ErrDocumentNotFound, ids)
			}
			current.Filename = filename
		}
		if in.ExtractedText != nil {
			if err := tx.Documents.SetExtractedText(ctx, id, *in.ExtractedText); err != nil {
				return translate(err, ErrDocumentNotFound, ids)
			}
			current.ExtractedText = in.ExtractedText
		}
		doc = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := search.Entry{DocumentID: doc.ID, Owner: owner, Filename: doc.Filename, Timestamp: doc.UploadedAt}
	if doc.ExtractedText != nil {
		entry.Text = *doc.ExtractedText
	}
	s.index.IndexDocument(ctx, entry)

	s.log.Info("document updated",
		zap.String("document_id", id),
		zap.Bool("filename", in.Filename != nil),
		zap.Bool("extracted_text", in.ExtractedText != nil),
	)
	return doc, nil
}

// Delete removes the row, which nulls document references on risk scores,
// then removes the blob and index entry best-effort.
func (s *DocumentService) Delete(ctx context.Context, owner, id string) error {
	doc, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.Repos().Documents.Delete(ctx, id); err != nil {
		return translate(err, ErrDocumentNotFound, map[string]string{"document_id": id})
	}

	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("failed to delete document bytes", zap.String("document_id", id), zap.Error(err))
	}
	s.index.DeleteDocument(ctx, id)

	s.log.Info("document deleted", zap.String("document_id", id))
	return nil
}

// Search runs a full-text query over the owner's documents.
func (s *DocumentService) Search(ctx context.Context, owner, query string) ([]models.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError(nil, "query is required")
	}
	if !s.index.Enabled() {
		return nil, newError(ErrSearchUnavailable, nil, nil)
	}

	ids, err := s.index.Search(ctx, owner, query, 50)
	if err != nil {
		s.log.Error("document search failed", zap.Error(err))
		return nil, newError(ErrSearchUnavailable, nil, err)
	}

	docs, err := s.store.Repos().Documents.ListByIDs(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	// keep relevance order
	byID := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]models.Document, 0, len(docs))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}
