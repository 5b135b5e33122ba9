package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/pfolio/portfolio-api/internal/api/request"
	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/apperrors"
	"github.com/pfolio/portfolio-api/internal/service"
	"github.com/pfolio/portfolio-api/internal/validation"
)

// ImportHandler handles statement uploads. Text exports are posted as JSON,
// spreadsheet exports as a multipart file.
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: importService,
	}
}

// Preview handles POST requests that parse pasted statement text without storing it.
//
// Endpoint: POST /api/import/preview
// Request Body: ImportRequest (raw)
// Response: 200 OK with ImportPreview (format, rows, invalidRows)
// Error: 400 Bad Request if the body is invalid or the format is not recognised
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseImportRequest(w, r)
	if !ok {
		return
	}

	preview, err := h.importService.Preview(req.Raw)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToImportTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, preview)
}

// Import handles POST requests that parse pasted statement text and store its trades.
//
// Endpoint: POST /api/import
// Request Body: ImportRequest (raw)
// Response: 201 Created with ImportResult
// Error: 400 Bad Request if the body is invalid or the format is not recognised
// Error: 500 Internal Server Error if storing fails
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseImportRequest(w, r)
	if !ok {
		return
	}

	result, err := h.importService.Import(r.Context(), req.Raw)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToImportTransactions)
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

// PreviewTable handles multipart uploads of a CSV or TSV export without storing it.
//
// Endpoint: POST /api/import/table/preview
// Request Body: multipart/form-data with a "file" field
// Response: 200 OK with ImportPreview
// Error: 400 Bad Request if the file is missing or lacks required columns
func (h *ImportHandler) PreviewTable(w http.ResponseWriter, r *http.Request) {
	file, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := h.importService.PreviewTable(file)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToImportTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, preview)
}

// ImportTable handles multipart uploads of a CSV or TSV export and stores its trades.
//
// Endpoint: POST /api/import/table
// Request Body: multipart/form-data with a "file" field
// Response: 201 Created with ImportResult
// Error: 400 Bad Request if the file is missing or lacks required columns
// Error: 500 Internal Server Error if storing fails
func (h *ImportHandler) ImportTable(w http.ResponseWriter, r *http.Request) {
	file, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportTable(r.Context(), file)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToImportTransactions)
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

func (h *ImportHandler) parseImportRequest(w http.ResponseWriter, r *http.Request) (request.ImportRequest, bool) {
	req, err := parseJSON[request.ImportRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return req, false
	}
	if err := validation.ValidateImport(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return req, false
	}
	return req, true
}

// formFile returns the uploaded "file" part, answering 400 when it is missing.
func formFile(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "file is required", err.Error())
		return nil, false
	}
	return file, true
}
