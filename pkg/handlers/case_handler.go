package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/audit"
	"github.com/elicita/delphi-engine/pkg/auth"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/services"

	"github.com/google/uuid"
)

// CaseListResponse for GET /api/cases
type CaseListResponse struct {
	Cases []*models.Case `json:"cases"`
	Total int            `json:"total"`
}

// CaseDetailResponse for GET /api/cases/{cid}
type CaseDetailResponse struct {
	*models.Case
	Rounds []models.Round `json:"rounds"`
}

// AssignUsersRequest for POST /api/cases/{cid}/users
type AssignUsersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

// CaseHandler handles case lifecycle HTTP requests.
type CaseHandler struct {
	caseService services.CaseService
	auditor     *audit.Auditor
	logger      *zap.Logger
}

// NewCaseHandler creates a new case handler. The auditor may be nil.
func NewCaseHandler(caseService services.CaseService, auditor *audit.Auditor, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
		auditor:     auditor,
		logger:      logger,
	}
}

// RegisterRoutes registers the case handler's routes on the given mux.
// Mutating operations require the master role; reads require authentication.
func (h *CaseHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases", authMiddleware.RequireMaster(h.Create))
	mux.HandleFunc("GET /api/cases", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/cases/{cid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/cases/{cid}", authMiddleware.RequireMaster(h.Update))
	mux.HandleFunc("DELETE /api/cases/{cid}", authMiddleware.RequireMaster(h.Delete))
	mux.HandleFunc("PUT /api/cases/{cid}/thresholds", authMiddleware.RequireMaster(h.UpdateThresholds))
	mux.HandleFunc("POST /api/cases/{cid}/users", authMiddleware.RequireMaster(h.AssignUsers))
}

// Create handles POST /api/cases
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateCaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	c, err := h.caseService.CreateCase(r.Context(), input)
	if err != nil {
		h.logger.Error("Failed to create case",
			zap.String("name", input.Name),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: c}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/cases
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	cases, err := h.caseService.ListCases(r.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list cases", zap.Error(err))
		httpStatus, code := statusForError(err)
		if err := ErrorResponse(w, httpStatus, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := CaseListResponse{Cases: cases, Total: len(cases)}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/cases/{cid}
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	c, err := h.caseService.GetCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Failed to get case",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := CaseDetailResponse{Case: c, Rounds: c.Rounds()}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/cases/{cid}
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var input services.UpdateCaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	c, err := h.caseService.UpdateCase(r.Context(), caseID, input)
	if err != nil {
		h.logger.Error("Failed to update case",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: c}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/cases/{cid}
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	subject := ""
	if claims, ok := auth.GetClaims(r.Context()); ok {
		subject = claims.Subject
	}
	h.auditor.Record(audit.Event{
		EventType: audit.EventCaseDeleted,
		Subject:   subject,
		ClientIP:  r.RemoteAddr,
		Path:      r.URL.Path,
		Severity:  "warning",
	})

	if err := h.caseService.DeleteCase(r.Context(), caseID); err != nil {
		h.logger.Error("Failed to delete case",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateThresholds handles PUT /api/cases/{cid}/thresholds
func (h *CaseHandler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var input services.ThresholdsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.caseService.UpdateThresholds(r.Context(), caseID, input); err != nil {
		h.logger.Error("Failed to update thresholds",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AssignUsers handles POST /api/cases/{cid}/users
func (h *CaseHandler) AssignUsers(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var req AssignUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.caseService.AssignUsers(r.Context(), caseID, req.UserIDs); err != nil {
		h.logger.Error("Failed to assign users",
			zap.String("case_id", caseID.String()),
			zap.Int("user_count", len(req.UserIDs)),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
