package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/guardian/internal/api"
	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/service"
)

type Researcher interface {
	Research(ctx context.Context, query string) (service.Completion, error)
	FollowUp(ctx context.Context, query, webContext string, history []domain.ConversationTurn) service.Completion
}

type WebHandler struct {
	researcher Researcher
}

func NewWebHandler(researcher Researcher) *WebHandler {
	return &WebHandler{researcher: researcher}
}

type WebSearchRequest struct {
	Query string `json:"query"`
}

type WebSearchResponse struct {
	Summary string `json:"summary"`
}

type WebQARequest struct {
	Query   string                    `json:"query"`
	Context string                    `json:"context"`
	History []domain.ConversationTurn `json:"history"`
}

func (h *WebHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req WebSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	completion, err := h.researcher.Research(r.Context(), req.Query)
	if err != nil {
		fail(r.Context(), w, err)
		return
	}

	api.JSON(w, http.StatusOK, WebSearchResponse{Summary: completion.String()})
}

func (h *WebHandler) QA(w http.ResponseWriter, r *http.Request) {
	var req WebQARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	completion := h.researcher.FollowUp(r.Context(), req.Query, req.Context, req.History)
	api.JSON(w, http.StatusOK, AnswerResponse{Answer: completion.String()})
}
