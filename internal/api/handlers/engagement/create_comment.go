package engagement

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"
	"Omnipost/internal/core/platforms"
)

// CreateCommentHandler handles outbound comment creation requests
type CreateCommentHandler struct {
	service  *engagementCore.Service
	accounts accounts.Repository
}

// NewCreateCommentHandler creates a new handler for posting comments
func NewCreateCommentHandler(service *engagementCore.Service, accountRepo accounts.Repository) *CreateCommentHandler {
	return &CreateCommentHandler{service: service, accounts: accountRepo}
}

// CreateCommentInput carries the comment text
type CreateCommentInput struct {
	Message string `json:"message"`
}

// HandleCreate posts a top-level comment on a published object
// POST /engagement/accounts/{accountID}/targets/{targetID}/comments
//
// Request body: { "message": "..." }
// Response: { "id": "...", "success": true } or { "success": false, "error": "..." }
func (h *CreateCommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	targetID := chi.URLParam(r, "targetID")
	if accountID == "" || targetID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing account or target id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 100*1024)

	var input CreateCommentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	account, err := requireAccount(r, h.accounts, accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.PublishComment(r.Context(),
		platforms.Platform(account.Platform), accountID, targetID, input.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePostResult(w, result)
}

// writePostResult encodes a comment-post outcome. Platform rejections are
// carried inside the body with a 200, matching the listing endpoints'
// treatment of per-item platform verdicts.
func writePostResult(w http.ResponseWriter, result *engagementCore.PostResult) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("Failed to encode post result: %v", err)
	}
}
