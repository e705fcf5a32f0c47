package server

import (
	"net/http"

	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

type fitScoreRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	PersonaID string `json:"personaId"`
	TenantID  string `json:"tenantId"`
}

type personaMatchRequest struct {
	ContactID     string `json:"contactId" validate:"required"`
	TenantID      string `json:"tenantId" validate:"required"`
	ReturnDetails bool   `json:"returnDetails"`
}

// personaIDResponse is the compact persona-match body.
type personaIDResponse struct {
	PersonaID *string `json:"personaId"`
}

func (s *Server) handleFitScore(w http.ResponseWriter, r *http.Request) {
	var req fitScoreRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	personaID := req.PersonaID
	if personaID == "" && req.TenantID != "" && s.matcher != nil {
		personaID = s.matcher.FindMatchingPersona(ctx, req.ContactID, req.TenantID, scoring.MatchOptions{}).ID()
		requestLogger(ctx, s.logger).Debug("persona resolved for fit score",
			zap.String("contact_id", req.ContactID),
			zap.String("persona_id", personaID),
		)
	}

	res := s.scorer.CalculateFitScore(ctx, req.ContactID, req.ProductID, personaID)
	s.jsonResponse(w, fitStatus(res), res)
}

func (s *Server) handlePersonaMatch(w http.ResponseWriter, r *http.Request) {
	var req personaMatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	match := s.matcher.FindMatchingPersona(r.Context(), req.ContactID, req.TenantID, scoring.MatchOptions{
		ReturnDetails: req.ReturnDetails,
	})

	if !req.ReturnDetails {
		s.jsonResponse(w, http.StatusOK, personaIDResponse{PersonaID: match.PersonaID})
		return
	}
	s.jsonResponse(w, http.StatusOK, match)
}
