package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	decisionengine "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine"
	governanceerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	governancehttp "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/transport/http"

	_ "github.com/HassanBaig007/Investor-app-sub002/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance decisionengine.Module
}

func New(governance decisionengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/governance/v1/projects/{project_id}/decisions", s.handleCreateDecision)
	s.mux.HandleFunc("GET /api/governance/v1/projects/{project_id}/decisions", s.handleListProjectDecisions)
	s.mux.HandleFunc("GET /api/governance/v1/decisions", s.handleListDecisions)
	s.mux.HandleFunc("GET /api/governance/v1/decisions/{decision_id}", s.handleGetDecision)
	s.mux.HandleFunc("POST /api/governance/v1/decisions/{decision_id}/votes", s.handleSubmitVote)
}

func (s *Server) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.CreateDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	projectID := r.PathValue("project_id")
	resp, err := s.governance.Handler.CreateDecisionHandler(r.Context(), projectID, userID, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProjectDecisions(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	resp, err := s.governance.Handler.ListProjectDecisionsHandler(
		r.Context(),
		projectID,
		r.Header.Get("X-User-Role"),
	)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.ListProjectDecisionsHandler(
		r.Context(),
		r.URL.Query().Get("project_id"),
		r.Header.Get("X-User-Role"),
	)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	decisionID := r.PathValue("decision_id")
	resp, err := s.governance.Handler.GetDecisionHandler(r.Context(), decisionID)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeGovernanceError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req governancehttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGovernanceError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	decisionID := r.PathValue("decision_id")
	resp, err := s.governance.Handler.SubmitVoteHandler(
		r.Context(),
		decisionID,
		userID,
		r.Header.Get("X-User-Role"),
		req,
	)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governanceerrors.ErrDecisionNotFound):
		writeGovernanceError(w, http.StatusNotFound, "decision_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrProjectNotFound):
		writeGovernanceError(w, http.StatusNotFound, "project_not_found", err.Error())
	case errors.Is(err, governanceerrors.ErrDecisionAlreadyApproved),
		errors.Is(err, governanceerrors.ErrDecisionAlreadyRejected):
		writeGovernanceError(w, http.StatusConflict, "decision_finalized", err.Error())
	case errors.Is(err, governanceerrors.ErrNotEligibleVoter):
		writeGovernanceError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, governanceerrors.ErrInvalidDecisionInput),
		errors.Is(err, governanceerrors.ErrInvalidVoteInput):
		writeGovernanceError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governanceerrors.ErrPersistenceConflict):
		writeGovernanceError(w, http.StatusServiceUnavailable, "transient_conflict", "please retry the request")
	default:
		writeGovernanceError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGovernanceError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, governancehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
