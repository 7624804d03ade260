package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/auth"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/services"
)

// SubmitEvaluationsRequest for POST /api/cases/{cid}/evaluations
type SubmitEvaluationsRequest struct {
	Evaluations []services.EvaluationSubmission `json:"evaluations"`
}

// EvaluationListResponse for GET /api/cases/{cid}/evaluations
type EvaluationListResponse struct {
	Evaluations []*models.Evaluation `json:"evaluations"`
	Total       int                  `json:"total"`
}

// ProgressResponse for GET /api/cases/{cid}/progress
type ProgressResponse struct {
	Users []services.UserProgress `json:"users"`
}

// EvaluationHandler handles expert rating HTTP requests.
type EvaluationHandler struct {
	evalService services.EvaluationService
	logger      *zap.Logger
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(evalService services.EvaluationService, logger *zap.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		evalService: evalService,
		logger:      logger,
	}
}

// RegisterRoutes registers the evaluation handler's routes on the given mux.
func (h *EvaluationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases/{cid}/evaluations", authMiddleware.RequireAuth(h.Submit))
	mux.HandleFunc("GET /api/cases/{cid}/evaluations", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/cases/{cid}/progress", authMiddleware.RequireAuth(h.Progress))
	mux.HandleFunc("GET /api/cases/{cid}/reevaluation", authMiddleware.RequireAuth(h.ReevaluationSet))
}

// Submit handles POST /api/cases/{cid}/evaluations
// Accepts a batch of ratings; items are validated independently so one bad
// rating never blocks the rest of the batch.
func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	var req SubmitEvaluationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.evalService.SubmitEvaluations(r.Context(), caseID, req.Evaluations)
	if err != nil {
		h.logger.Error("Failed to submit evaluations",
			zap.String("case_id", caseID.String()),
			zap.Int("item_count", len(req.Evaluations)),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/cases/{cid}/evaluations?user_id=&round=
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserIDQuery(w, r, h.logger)
	if !ok {
		return
	}
	round, ok := ParseRoundQuery(w, r, h.logger)
	if !ok {
		return
	}

	evals, err := h.evalService.ListForUserRound(r.Context(), caseID, userID, round)
	if err != nil {
		h.logger.Error("Failed to list evaluations",
			zap.String("case_id", caseID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := EvaluationListResponse{Evaluations: evals, Total: len(evals)}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Progress handles GET /api/cases/{cid}/progress
func (h *EvaluationHandler) Progress(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	progress, err := h.evalService.GetProgress(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Failed to get progress",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: ProgressResponse{Users: progress}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ReevaluationSet handles GET /api/cases/{cid}/reevaluation?user_id=
func (h *EvaluationHandler) ReevaluationSet(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserIDQuery(w, r, h.logger)
	if !ok {
		return
	}

	set, err := h.evalService.GetReevaluationSet(r.Context(), caseID, userID)
	if err != nil {
		h.logger.Error("Failed to get reevaluation set",
			zap.String("case_id", caseID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: set}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
