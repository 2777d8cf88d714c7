package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultOCRSpaceEndpoint is the public OCR.space parse endpoint.
const DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

var ocrFileTypes = map[string]string{
	"application/pdf": "PDF",
	"image/png":       "PNG",
	"image/jpeg":      "JPG",
	"image/gif":       "GIF",
	"image/tiff":      "TIFF",
}

// OCRSpace extracts text from PDFs and images through the OCR.space API.
type OCRSpace struct {
	apiKey   string
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewOCRSpace builds the client. An empty endpoint selects the public one.
func NewOCRSpace(apiKey, endpoint string, client *http.Client, log *zap.Logger) *OCRSpace {
	if endpoint == "" {
		endpoint = DefaultOCRSpaceEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OCRSpace{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		client:   client,
		log:      log.Named("ocrspace"),
	}
}

// Supports reports whether the mime type is handled.
func (o *OCRSpace) Supports(mimeType string) bool {
	_, ok := ocrFileTypes[NormalizeMimeType(mimeType)]
	return ok
}

type ocrResponse struct {
	ParsedResults []struct {
		ParsedText   string `json:"ParsedText"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorMessage flattens ErrorMessage, which the API sends as a string or
// a list of strings.
func (r *ocrResponse) errorMessage() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(r.ErrorMessage, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(r.ErrorMessage)
}

func (o *OCRSpace) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	fileType, ok := ocrFileTypes[NormalizeMimeType(mimeType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: OCR.space API key is not set", ErrUnavailable)
	}

	body, contentType, err := o.form(data, fileType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := o.client.Do(req)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("%w: OCR request failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if cerr := contextError(ctx); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("%w: failed to read response body: %w", ErrUnavailable, err)
	}

	o.log.Debug("ocr response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(bodyBytes)))

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: OCR.space returned %s", ErrUnavailable, resp.Status)
	}

	var result ocrResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		// OCR.space answers some failures with a plain text body.
		return "", fmt.Errorf("%w: OCR API error: %s", ErrUnavailable, truncate(string(bodyBytes), 200))
	}
	if msg := result.errorMessage(); result.IsErroredOnProcessing || msg != "" {
		return "", fmt.Errorf("%w: OCR.space error: %s", ErrCorrupt, msg)
	}
	if len(result.ParsedResults) == 0 {
		return "", fmt.Errorf("%w: no OCR results found in response", ErrCorrupt)
	}

	var text strings.Builder
	for i, page := range result.ParsedResults {
		if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(page.ParsedText)
	}

	out := strings.TrimSpace(text.String())
	o.log.Debug("ocr text extracted", zap.Int("chars", len(out)), zap.Int("pages", len(result.ParsedResults)))
	return out, nil
}

func (o *OCRSpace) form(data []byte, fileType string) (io.Reader, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fields := [][2]string{
		{"apikey", o.apiKey},
		{"language", "eng"},
		{"isOverlayRequired", "false"},
		{"filetype", fileType},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}

	fw, err := w.CreateFormFile("file", "document."+strings.ToLower(fileType))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file bytes: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &b, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
