package engagement

import (
	"net/http"

	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"
	"Omnipost/internal/core/platforms"
)

// requireAccount loads the account and hides it from non-owners. The
// platform is derived from the account so callers can't aim one account's
// tokens at another platform's adapter.
func requireAccount(r *http.Request, repo accounts.Repository, accountID string) (*accounts.Account, error) {
	account, err := repo.GetByID(r.Context(), accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != middleware.GetUserID(r) {
		return nil, accounts.ErrAccountNotFound
	}
	return account, nil
}

// parseCursor decodes the opaque cursor query parameter, nil when absent
func parseCursor(r *http.Request) (*platforms.Cursor, error) {
	return engagementCore.DecodeCursor(r.URL.Query().Get("cursor"))
}
