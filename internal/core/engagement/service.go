package engagement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rivo/uniseg"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
	"Omnipost/internal/core/platforms"
)

// maxCommentGraphemes caps outbound comments before the platform call.
// Every supported platform rejects longer messages anyway; failing locally
// is the same negative result without the round trip.
const maxCommentGraphemes = 2000

// Page is one normalized page of comments with its opaque next cursor
type Page struct {
	Comments   []platforms.Comment `json:"comments"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// PostResult is the outcome of posting a comment or reply. Expected
// platform rejections (content policy, length, closed comments) are normal
// negative results carried in Error, not Go errors.
type PostResult struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Service normalizes comment listing and posting across providers with
// incompatible pagination models. It holds no state: every call is cursor
// validation, delegation and shape normalization, which is what makes it
// safe to call concurrently.
type Service struct {
	registry *platforms.Registry
	accounts accounts.Repository
	creds    *credentials.Store
	logger   *slog.Logger
}

// NewService creates the engagement aggregator
func NewService(registry *platforms.Registry, accountRepo accounts.Repository, creds *credentials.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		accounts: accountRepo,
		creds:    creds,
		logger:   logger,
	}
}

// resolve loads the adapter, account and fresh credential for one call
func (s *Service) resolve(ctx context.Context, platform platforms.Platform, accountID string) (platforms.Adapter, *accounts.Account, *credentials.Credential, error) {
	adapter, err := s.registry.Get(platform)
	if err != nil {
		return nil, nil, nil, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	cred, err := s.creds.EnsureFresh(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	return adapter, account, cred, nil
}

// checkCursor validates the cursor kind against the adapter's declared
// pagination model and returns the concrete cursor to pass down. A nil
// cursor means first page and is valid for every provider.
func checkCursor(adapter platforms.Adapter, cursor *platforms.Cursor) (platforms.Cursor, error) {
	if cursor == nil {
		return platforms.Cursor{Kind: adapter.Pagination()}, nil
	}
	if cursor.Kind != adapter.Pagination() {
		return platforms.Cursor{}, fmt.Errorf("%w: %s expects %s, got %s",
			ErrUnsupportedPagination, adapter.Platform(), adapter.Pagination(), cursor.Kind)
	}
	return *cursor, nil
}

// FetchPostComments lists comments on a published object in the normalized
// shape. Adapter errors pass through unchanged.
func (s *Service) FetchPostComments(ctx context.Context, platform platforms.Platform, accountID, targetID string, targetType platforms.TargetType, cursor *platforms.Cursor) (*Page, error) {
	adapter, account, cred, err := s.resolve(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}
	cur, err := checkCursor(adapter, cursor)
	if err != nil {
		return nil, err
	}

	page, err := adapter.FetchComments(ctx, account, cred, targetID, targetType, cur)
	if err != nil {
		return nil, err
	}
	return &Page{Comments: page.Comments, NextCursor: EncodeCursor(page.Next)}, nil
}

// FetchCommentReplies mirrors FetchPostComments rooted at a comment id
func (s *Service) FetchCommentReplies(ctx context.Context, platform platforms.Platform, accountID, commentID string, cursor *platforms.Cursor) (*Page, error) {
	adapter, account, cred, err := s.resolve(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}
	cur, err := checkCursor(adapter, cursor)
	if err != nil {
		return nil, err
	}

	page, err := adapter.FetchReplies(ctx, account, cred, commentID, cur)
	if err != nil {
		return nil, err
	}
	return &Page{Comments: page.Comments, NextCursor: EncodeCursor(page.Next)}, nil
}

// PublishComment posts a top-level comment through the matching adapter
func (s *Service) PublishComment(ctx context.Context, platform platforms.Platform, accountID, targetID, message string) (*PostResult, error) {
	return s.post(ctx, platform, accountID, message, func(ctx context.Context, adapter platforms.Adapter, account *accounts.Account, cred *credentials.Credential) (string, error) {
		return adapter.PostComment(ctx, account, cred, targetID, message)
	})
}

// PublishReply posts a reply under an existing comment
func (s *Service) PublishReply(ctx context.Context, platform platforms.Platform, accountID, commentID, message string) (*PostResult, error) {
	return s.post(ctx, platform, accountID, message, func(ctx context.Context, adapter platforms.Adapter, account *accounts.Account, cred *credentials.Credential) (string, error) {
		return adapter.ReplyToComment(ctx, account, cred, commentID, message)
	})
}

func (s *Service) post(ctx context.Context, platform platforms.Platform, accountID, message string, call func(context.Context, platforms.Adapter, *accounts.Account, *credentials.Credential) (string, error)) (*PostResult, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if uniseg.GraphemeClusterCount(message) > maxCommentGraphemes {
		return &PostResult{Success: false, Error: "comment too long"}, nil
	}

	adapter, account, cred, err := s.resolve(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}

	id, err := call(ctx, adapter, account, cred)
	if err != nil {
		// Explicit platform rejections are normal negative results
		if platforms.IsRejected(err) {
			s.logger.Info("platform rejected comment",
				"platform", platform, "accountId", accountID, "reason", err.Error())
			return &PostResult{Success: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	return &PostResult{ID: id, Success: true}, nil
}
