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

// GetCommentsHandler handles comment listing requests
type GetCommentsHandler struct {
	service  *engagementCore.Service
	accounts accounts.Repository
}

// NewGetCommentsHandler creates a new handler for listing comments
func NewGetCommentsHandler(service *engagementCore.Service, accountRepo accounts.Repository) *GetCommentsHandler {
	return &GetCommentsHandler{service: service, accounts: accountRepo}
}

// HandleGet lists one page of comments on a published object
// GET /engagement/accounts/{accountID}/targets/{targetID}/comments?type=post&cursor=...
//
// Response: { "comments": [...], "nextCursor": "..." }
func (h *GetCommentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	targetID := chi.URLParam(r, "targetID")
	if accountID == "" || targetID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing account or target id")
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

	targetType := platforms.TargetType(r.URL.Query().Get("type"))
	if targetType == "" {
		targetType = platforms.TargetPost
	}

	page, err := h.service.FetchPostComments(r.Context(),
		platforms.Platform(account.Platform), accountID, targetID, targetType, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		log.Printf("Failed to encode comments response: %v", err)
	}
}
