package platforms

import (
	"context"
	"encoding/json"
	"time"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
)

// PublishPayload is the already-resolved description of one piece of
// content to publish. Media is carried by URL reference only; upload
// pipelines live outside this service.
type PublishPayload struct {
	Title       string          `json:"title"`
	Description string          `json:"desc"`
	VideoURL    string          `json:"videoUrl,omitempty"`
	ImageURLs   []string        `json:"imgUrlList,omitempty"`
	CoverURL    string          `json:"coverUrl,omitempty"`
	Topics      []string        `json:"topics,omitempty"`
	Options     json.RawMessage `json:"option,omitempty"`
}

// PublishResult is the tagged outcome of an adapter publish call.
// Synchronous platforms return a terminal result inline; asynchronous
// platforms return a pending correlation token and complete later through
// their webhook.
type PublishResult struct {
	Pending          bool
	CorrelationToken string
	PostID           string
	Permalink        string
}

// TerminalResult builds a synchronous success outcome
func TerminalResult(postID, permalink string) *PublishResult {
	return &PublishResult{PostID: postID, Permalink: permalink}
}

// PendingResult builds an asynchronous outcome carrying the token the
// platform will echo back in its completion webhook
func PendingResult(token string) *PublishResult {
	return &PublishResult{Pending: true, CorrelationToken: token}
}

// Cursor is the discriminated pagination union. Kind declares which fields
// are meaningful; mixing them is a caller error the aggregator rejects
// before any network call.
type Cursor struct {
	Kind     PaginationType
	Before   string
	After    string
	Page     int
	PageSize int
}

// KeysetCursor builds an opaque before/after cursor
func KeysetCursor(before, after string) Cursor {
	return Cursor{Kind: PaginationKeyset, Before: before, After: after}
}

// OffsetCursor builds a numeric page cursor
func OffsetCursor(page, pageSize int) Cursor {
	return Cursor{Kind: PaginationOffset, Page: page, PageSize: pageSize}
}

// CommentAuthor is the normalized author projection
type CommentAuthor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Comment is the normalized comment shape returned for every platform
// regardless of the wire format the adapter consumed. Read-only projection,
// never persisted.
type Comment struct {
	ID         string        `json:"id"`
	Message    string        `json:"message"`
	Author     CommentAuthor `json:"author"`
	CreatedAt  time.Time     `json:"createdAt"`
	HasReplies bool          `json:"hasReplies"`
}

// CommentPage is one page of normalized comments plus the cursor for the
// following page (nil when exhausted)
type CommentPage struct {
	Comments []Comment
	Next     *Cursor
}

// Adapter is the capability interface every platform implements once.
// Adapters hold no mutable state; everything flows through parameters, so a
// single adapter instance is safe for concurrent use across accounts.
type Adapter interface {
	// Platform returns the platform this adapter serves
	Platform() Platform

	// Pagination declares which Cursor kind the comment APIs accept
	Pagination() PaginationType

	// AsyncPublish reports whether Publish completes via webhook rather
	// than inline
	AsyncPublish() bool

	// Publish pushes the payload to the platform. Synchronous platforms
	// return a terminal result; asynchronous ones return a pending token.
	// Expected platform failures come back as *PlatformError.
	Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error)

	// RefreshCredential exchanges the current credential for a rotated one
	RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error)

	// FetchComments lists comments on a published object
	FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error)

	// FetchReplies lists replies rooted at a comment id
	FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error)

	// PostComment publishes a top-level comment, returning its external id
	PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error)

	// ReplyToComment publishes a reply under an existing comment
	ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error)
}
