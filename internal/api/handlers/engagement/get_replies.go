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

// GetRepliesHandler handles reply listing requests
type GetRepliesHandler struct {
	service  *engagementCore.Service
	accounts accounts.Repository
}

// NewGetRepliesHandler creates a new handler for listing comment replies
func NewGetRepliesHandler(service *engagementCore.Service, accountRepo accounts.Repository) *GetRepliesHandler {
	return &GetRepliesHandler{service: service, accounts: accountRepo}
}

// HandleGet lists one page of replies rooted at a comment
// GET /engagement/accounts/{accountID}/comments/{commentID}/replies?cursor=...
func (h *GetRepliesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	commentID := chi.URLParam(r, "commentID")
	if accountID == "" || commentID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing account or comment id")
		return
	}

	account, err := requireAccount(r, h.accounts, accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cursor, err := parseCursor(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	page, err := h.service.FetchCommentReplies(r.Context(),
		platforms.Platform(account.Platform), accountID, commentID, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		log.Printf("Failed to encode replies response: %v", err)
	}
}
