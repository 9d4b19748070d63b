package engagement

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"
	"Omnipost/internal/core/platforms"
)

// CreateReplyHandler handles outbound reply creation requests
type CreateReplyHandler struct {
	service  *engagementCore.Service
	accounts accounts.Repository
}

// NewCreateReplyHandler creates a new handler for posting replies
func NewCreateReplyHandler(service *engagementCore.Service, accountRepo accounts.Repository) *CreateReplyHandler {
	return &CreateReplyHandler{service: service, accounts: accountRepo}
}

// CreateReplyInput carries the reply text
type CreateReplyInput struct {
	Message string `json:"message"`
}

// HandleCreate posts a reply under an existing comment
// POST /engagement/accounts/{accountID}/comments/{commentID}/replies
func (h *CreateReplyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	commentID := chi.URLParam(r, "commentID")
	if accountID == "" || commentID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing account or comment id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 100*1024)

	var input CreateReplyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	account, err := requireAccount(r, h.accounts, accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.PublishReply(r.Context(),
		platforms.Platform(account.Platform), accountID, commentID, input.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePostResult(w, result)
}
