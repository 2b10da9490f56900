package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/waterworks/backend/internal/application/import"
	"github.com/waterworks/backend/internal/domain/shared"
	csvimport "github.com/waterworks/backend/internal/infrastructure/import"
	"github.com/waterworks/backend/internal/interfaces/http/dto"
)

const (
	// Maximum file size for imports (10MB)
	maxImportFileSize = 10 * 1024 * 1024

	// How long validated sessions and their rows are kept before expiring
	importSessionTTL = 15 * time.Minute
)

// ImportHandler handles CSV bulk import for readings, customers, and
// meters. Validation and import are separate steps: a validate call parses
// and checks the file and stores the valid rows under a session, the
// import call replays those rows against the matching import service.
type ImportHandler struct {
	BaseHandler
	readings  *importapp.ReadingImportService
	customers *importapp.CustomerImportService
	meters    *importapp.MeterImportService

	sessionStore csvimport.SessionStore
	// validRowsStore keeps the parsed valid rows between the validate and
	// import calls, keyed by session ID
	validRowsStore     map[uuid.UUID][]*csvimport.Row
	validRowsStoreMu   sync.RWMutex
	validRowsCleanupCh chan struct{}
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(
	readings *importapp.ReadingImportService,
	customers *importapp.CustomerImportService,
	meters *importapp.MeterImportService,
) *ImportHandler {
	h := &ImportHandler{
		readings:           readings,
		customers:          customers,
		meters:             meters,
		sessionStore:       csvimport.NewInMemorySessionStore(importSessionTTL),
		validRowsStore:     make(map[uuid.UUID][]*csvimport.Row),
		validRowsCleanupCh: make(chan struct{}),
	}

	go h.cleanupValidRowsStore()

	return h
}

// cleanupValidRowsStore periodically removes valid rows whose session has
// expired from the session store
func (h *ImportHandler) cleanupValidRowsStore() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.validRowsStoreMu.Lock()
			for sessionID := range h.validRowsStore {
				session, _ := h.sessionStore.Get(sessionID)
				if session == nil {
					delete(h.validRowsStore, sessionID)
				}
			}
			h.validRowsStoreMu.Unlock()
		case <-h.validRowsCleanupCh:
			return
		}
	}
}

// Stop stops the background cleanup goroutine
func (h *ImportHandler) Stop() {
	close(h.validRowsCleanupCh)
}

// ImportRequest is the request body shared by the import endpoints
type ImportRequest struct {
	ValidationID string `json:"validation_id" binding:"required"`
	ConflictMode string `json:"conflict_mode" binding:"required,oneof=skip update fail"`
}

// ImportValidationResponse is the result of validating an uploaded CSV
type ImportValidationResponse struct {
	ValidationID string               `json:"validation_id"`
	TotalRows    int                  `json:"total_rows"`
	ValidRows    int                  `json:"valid_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	Preview      []map[string]any     `json:"preview,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// ImportResponse is the result of executing a validated import
type ImportResponse struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	UpdatedRows  int                  `json:"updated_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// importFunc adapts one entity's import service to the shared import flow
type importFunc func(ctx context.Context, userID uuid.UUID, session *csvimport.ImportSession, rows []*csvimport.Row, mode importapp.ConflictMode) (*importapp.ImportResult, error)

// ValidateReadings validates an uploaded readings CSV
// POST /import/readings/validate
func (h *ImportHandler) ValidateReadings(c *gin.Context) {
	ctx := c.Request.Context()

	processor := csvimport.NewImportProcessor(
		csvimport.WithReferenceLookup(func(refType, value string) (bool, error) {
			if refType == "meter" {
				return h.readings.LookupMeter(ctx, value)
			}
			return true, nil
		}),
	)

	h.validateUpload(c, csvimport.EntityReadings, h.readings.GetValidationRules(), processor)
}

// ImportReadings imports readings from a previously validated CSV
// POST /import/readings
func (h *ImportHandler) ImportReadings(c *gin.Context) {
	h.executeImport(c, func(ctx context.Context, userID uuid.UUID, session *csvimport.ImportSession, rows []*csvimport.Row, mode importapp.ConflictMode) (*importapp.ImportResult, error) {
		return h.readings.Import(ctx, userID, session, rows, mode)
	})
}

// ValidateCustomers validates an uploaded customers CSV
// POST /import/customers/validate
func (h *ImportHandler) ValidateCustomers(c *gin.Context) {
	ctx := c.Request.Context()

	processor := csvimport.NewImportProcessor(
		csvimport.WithUniqueLookup(func(entityType, field, value string) (bool, error) {
			return h.customers.LookupUnique(ctx, field, value)
		}),
	)

	h.validateUpload(c, csvimport.EntityCustomers, h.customers.GetValidationRules(), processor)
}

// ImportCustomers imports customers from a previously validated CSV
// POST /import/customers
func (h *ImportHandler) ImportCustomers(c *gin.Context) {
	h.executeImport(c, func(ctx context.Context, userID uuid.UUID, session *csvimport.ImportSession, rows []*csvimport.Row, mode importapp.ConflictMode) (*importapp.ImportResult, error) {
		return h.customers.Import(ctx, userID, session, rows, mode)
	})
}

// ValidateMeters validates an uploaded meters CSV
// POST /import/meters/validate
func (h *ImportHandler) ValidateMeters(c *gin.Context) {
	ctx := c.Request.Context()

	processor := csvimport.NewImportProcessor(
		csvimport.WithReferenceLookup(func(refType, value string) (bool, error) {
			if refType == "customer" {
				return h.meters.LookupCustomer(ctx, value)
			}
			return true, nil
		}),
		csvimport.WithUniqueLookup(func(entityType, field, value string) (bool, error) {
			return h.meters.LookupUnique(ctx, field, value)
		}),
	)

	h.validateUpload(c, csvimport.EntityMeters, h.meters.GetValidationRules(), processor)
}

// ImportMeters imports meters from a previously validated CSV
// POST /import/meters
func (h *ImportHandler) ImportMeters(c *gin.Context) {
	h.executeImport(c, func(ctx context.Context, userID uuid.UUID, session *csvimport.ImportSession, rows []*csvimport.Row, mode importapp.ConflictMode) (*importapp.ImportResult, error) {
		return h.meters.Import(ctx, userID, session, rows, mode)
	})
}

// GetSession retrieves the status of an import session
// GET /import/sessions/:id
func (h *ImportHandler) GetSession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID")
		return
	}

	session, err := h.sessionStore.Get(sessionID)
	if err != nil {
		h.InternalError(c, "failed to retrieve session")
		return
	}

	if session == nil {
		h.NotFound(c, "Import session not found or expired")
		return
	}

	// Sessions are private to the user who started the upload
	if session.UserID != userID {
		h.NotFound(c, "Import session not found or expired")
		return
	}

	h.Success(c, session)
}

// validateUpload runs the shared multipart validation flow: accept the
// file, validate it against the rules, and stash the valid rows for the
// import call.
func (h *ImportHandler) validateUpload(c *gin.Context, entityType csvimport.EntityType, rules []csvimport.FieldRule, processor *csvimport.ImportProcessor) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
		contentType != "text/plain" && contentType != "application/vnd.ms-excel" {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a CSV file")
		return
	}

	session := csvimport.NewImportSession(userID, entityType, header.Filename, header.Size)

	result, err := processor.Validate(ctx, session, file, rules)
	if err != nil {
		switch {
		case errors.Is(err, csvimport.ErrEmptyFile):
			h.BadRequest(c, "CSV file is empty")
		case errors.Is(err, csvimport.ErrInvalidEncoding):
			h.BadRequest(c, "CSV file has invalid encoding, must be UTF-8")
		case errors.Is(err, csvimport.ErrMissingHeader):
			h.BadRequest(c, "CSV file is missing header row")
		default:
			h.InternalError(c, "failed to validate file: "+err.Error())
		}
		return
	}

	// Parse the file again to collect the valid rows, since validation
	// consumed the reader.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.InternalError(c, "Failed to process file")
		return
	}
	if parser, err := csvimport.NewCSVParser(file); err == nil {
		if err := parser.ParseHeader(); err == nil {
			errorRows := make(map[int]bool)
			for _, e := range result.Errors {
				errorRows[e.Row] = true
			}

			var validRows []*csvimport.Row
			for {
				row, err := parser.ReadRow()
				if err == io.EOF {
					break
				}
				if err != nil {
					continue
				}
				if row.IsEmpty() {
					continue
				}
				if !errorRows[row.LineNumber] {
					validRows = append(validRows, row)
				}
			}

			if len(validRows) > 0 {
				h.validRowsStoreMu.Lock()
				h.validRowsStore[session.ID] = validRows
				h.validRowsStoreMu.Unlock()
			}
		}
	}

	if err := h.sessionStore.Save(session); err != nil {
		h.InternalError(c, "failed to save import session")
		return
	}

	h.Success(c, ImportValidationResponse{
		ValidationID: result.ValidationID,
		TotalRows:    result.TotalRows,
		ValidRows:    result.ValidRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		Preview:      result.Preview,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}

// executeImport runs the shared import flow against the entity's import
// service
func (h *ImportHandler) executeImport(c *gin.Context, fn importFunc) {
	ctx := c.Request.Context()

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	validationID, err := uuid.Parse(req.ValidationID)
	if err != nil {
		h.BadRequest(c, "Invalid validation_id")
		return
	}

	conflictMode := importapp.ConflictMode(req.ConflictMode)
	if !conflictMode.IsValid() {
		h.BadRequest(c, "Invalid conflict_mode, must be one of: skip, update, fail")
		return
	}

	session, err := h.sessionStore.Get(validationID)
	if err != nil {
		h.InternalError(c, "failed to retrieve session")
		return
	}

	if session == nil || session.UserID != userID {
		h.NotFound(c, "Import session not found or expired")
		return
	}

	if session.State != csvimport.StateValidated {
		h.BadRequest(c, "Session must be validated before import. Current state: "+string(session.State))
		return
	}

	h.validRowsStoreMu.RLock()
	validRows := h.validRowsStore[validationID]
	h.validRowsStoreMu.RUnlock()

	if len(validRows) == 0 {
		h.BadRequest(c, "No valid rows found for import. Please re-validate the file.")
		return
	}

	result, err := fn(ctx, userID, session, validRows, conflictMode)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			h.Error(c, http.StatusUnprocessableEntity, domainErr.Code, domainErr.Message)
			return
		}
		h.InternalError(c, "import failed: "+err.Error())
		return
	}

	h.validRowsStoreMu.Lock()
	delete(h.validRowsStore, validationID)
	h.validRowsStoreMu.Unlock()

	// Best effort; the import itself already succeeded.
	_ = h.sessionStore.Save(session)

	h.Success(c, ImportResponse{
		TotalRows:    result.TotalRows,
		ImportedRows: result.ImportedRows,
		UpdatedRows:  result.UpdatedRows,
		SkippedRows:  result.SkippedRows,
		ErrorRows:    result.ErrorRows,
		Errors:       result.Errors,
		IsTruncated:  result.IsTruncated,
		TotalErrors:  result.TotalErrors,
	})
}
