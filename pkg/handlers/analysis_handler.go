package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/audit"
	"github.com/elicita/delphi-engine/pkg/auth"
	"github.com/elicita/delphi-engine/pkg/models"
	"github.com/elicita/delphi-engine/pkg/services"
)

// RoundAnalysisListResponse for GET /api/cases/{cid}/round-analyses
type RoundAnalysisListResponse struct {
	Analyses []*models.RoundAnalysis `json:"analyses"`
	Total    int                     `json:"total"`
}

// AnalysisHandler handles round analysis HTTP requests.
type AnalysisHandler struct {
	analysisService services.AnalysisService
	auditor         *audit.Auditor
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler. The auditor may be nil.
func NewAnalysisHandler(analysisService services.AnalysisService, auditor *audit.Auditor, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
// Triggering an analysis is a master-only operation.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/cases/{cid}/analyze", authMiddleware.RequireMaster(h.Trigger))
	mux.HandleFunc("GET /api/cases/{cid}/round-analyses", authMiddleware.RequireAuth(h.List))
}

// Trigger handles POST /api/cases/{cid}/analyze
func (h *AnalysisHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	subject := ""
	if claims, ok := auth.GetClaims(r.Context()); ok {
		subject = claims.Subject
	}
	h.auditor.Record(audit.Event{
		EventType: audit.EventAnalysisTriggered,
		Subject:   subject,
		ClientIP:  r.RemoteAddr,
		Path:      r.URL.Path,
	})

	result, err := h.analysisService.TriggerAnalysis(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Failed to trigger analysis",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Round analysis completed",
		zap.String("case_id", caseID.String()),
		zap.Int("round", result.RoundNumber),
		zap.Bool("passed", result.PassedAnalysis))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/cases/{cid}/round-analyses
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	caseID, ok := ParseCaseID(w, r, h.logger)
	if !ok {
		return
	}

	analyses, err := h.analysisService.GetRoundAnalyses(r.Context(), caseID)
	if err != nil {
		h.logger.Error("Failed to list round analyses",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		status, code := statusForError(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := RoundAnalysisListResponse{Analyses: analyses, Total: len(analyses)}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
