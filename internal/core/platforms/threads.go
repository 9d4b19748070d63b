package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
)

// ThreadsConfig holds Threads Graph API settings
type ThreadsConfig struct {
	GraphBaseURL string
}

// DefaultThreadsConfig returns production endpoints
func DefaultThreadsConfig() ThreadsConfig {
	return ThreadsConfig{GraphBaseURL: "https://graph.threads.net/v1.0"}
}

// ThreadsAdapter publishes through the two-step Threads flow (create a
// media container, then publish it) and reads replies with Graph cursor
// paging.
type ThreadsAdapter struct {
	config ThreadsConfig
	client *http.Client
}

// NewThreadsAdapter creates the Threads adapter
func NewThreadsAdapter(config ThreadsConfig, client *http.Client) *ThreadsAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ThreadsAdapter{config: config, client: client}
}

func (a *ThreadsAdapter) Platform() Platform         { return PlatformThreads }
func (a *ThreadsAdapter) Pagination() PaginationType { return PaginationKeyset }
func (a *ThreadsAdapter) AsyncPublish() bool         { return false }

// threadsPublishOptions is the caller-supplied option blob for posts
type threadsPublishOptions struct {
	ReplyControl string `json:"replyControl"`
}

// Publish creates a media container and publishes it in one call pair
func (a *ThreadsAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := threadsPublishOptions{}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}

	container := map[string]interface{}{
		"access_token": cred.AccessToken,
		"text":         payload.Description,
	}
	if opts.ReplyControl != "" {
		container["reply_control"] = opts.ReplyControl
	}
	switch {
	case payload.VideoURL != "":
		container["media_type"] = "VIDEO"
		container["video_url"] = payload.VideoURL
	case len(payload.ImageURLs) > 0:
		container["media_type"] = "IMAGE"
		container["image_url"] = payload.ImageURLs[0]
	default:
		container["media_type"] = "TEXT"
	}

	var created struct {
		ID string `json:"id"`
	}
	createURL := fmt.Sprintf("%s/%s/threads", a.config.GraphBaseURL, account.ExternalUID)
	if err := doJSON(ctx, a.client, PlatformThreads, http.MethodPost, createURL, nil, container, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, &PlatformError{Platform: PlatformThreads, Class: ClassRejected, Message: "container response missing id"}
	}

	publish := map[string]string{
		"access_token": cred.AccessToken,
		"creation_id":  created.ID,
	}
	var published struct {
		ID string `json:"id"`
	}
	publishURL := fmt.Sprintf("%s/%s/threads_publish", a.config.GraphBaseURL, account.ExternalUID)
	if err := doJSON(ctx, a.client, PlatformThreads, http.MethodPost, publishURL, nil, publish, &published); err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, &PlatformError{Platform: PlatformThreads, Class: ClassRejected, Message: "publish response missing media id"}
	}

	return TerminalResult(published.ID, "https://www.threads.net/post/"+published.ID), nil
}

// RefreshCredential exchanges the long-lived token for a fresh one
func (a *ThreadsAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	form := url.Values{
		"grant_type":   {"th_refresh_token"},
		"access_token": {cred.AccessToken},
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := doForm(ctx, a.client, PlatformThreads, a.config.GraphBaseURL+"/refresh_access_token", form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &PlatformError{Platform: PlatformThreads, Class: ClassAuthRevoked, Message: "refresh response missing access_token"}
	}

	return &credentials.Credential{
		AccountID:   account.ID,
		AccessToken: out.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

type threadsReplyList struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		Username  string    `json:"username"`
		Timestamp time.Time `json:"timestamp"`
		HasReplies bool     `json:"has_replies"`
		Owner     struct {
			ID string `json:"id"`
		} `json:"owner"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func (a *ThreadsAdapter) listReplies(ctx context.Context, cred *credentials.Credential, rootID string, cursor Cursor) (*CommentPage, error) {
	q := url.Values{
		"access_token": {cred.AccessToken},
		"fields":       {"id,text,username,timestamp,has_replies,owner"},
		"limit":        {"50"},
	}
	if cursor.After != "" {
		q.Set("after", cursor.After)
	}
	if cursor.Before != "" {
		q.Set("before", cursor.Before)
	}

	var out threadsReplyList
	endpoint := fmt.Sprintf("%s/%s/replies?%s", a.config.GraphBaseURL, rootID, q.Encode())
	if err := doJSON(ctx, a.client, PlatformThreads, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: make([]Comment, 0, len(out.Data))}
	for _, r := range out.Data {
		page.Comments = append(page.Comments, Comment{
			ID:      r.ID,
			Message: r.Text,
			Author: CommentAuthor{
				ID:   r.Owner.ID,
				Name: r.Username,
			},
			CreatedAt:  r.Timestamp,
			HasReplies: r.HasReplies,
		})
	}
	if out.Paging.Next != "" && out.Paging.Cursors.After != "" {
		next := KeysetCursor("", out.Paging.Cursors.After)
		page.Next = &next
	}
	return page, nil
}

// FetchComments lists top-level replies on a published thread
func (a *ThreadsAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	return a.listReplies(ctx, cred, targetID, cursor)
}

// FetchReplies lists the conversation under one reply
func (a *ThreadsAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	return a.listReplies(ctx, cred, commentID, cursor)
}

func (a *ThreadsAdapter) publishReply(ctx context.Context, account *accounts.Account, cred *credentials.Credential, replyToID, message string) (string, error) {
	container := map[string]string{
		"access_token": cred.AccessToken,
		"media_type":   "TEXT",
		"text":         message,
		"reply_to_id":  replyToID,
	}
	var created struct {
		ID string `json:"id"`
	}
	createURL := fmt.Sprintf("%s/%s/threads", a.config.GraphBaseURL, account.ExternalUID)
	if err := doJSON(ctx, a.client, PlatformThreads, http.MethodPost, createURL, nil, container, &created); err != nil {
		return "", err
	}

	publish := map[string]string{
		"access_token": cred.AccessToken,
		"creation_id":  created.ID,
	}
	var published struct {
		ID string `json:"id"`
	}
	publishURL := fmt.Sprintf("%s/%s/threads_publish", a.config.GraphBaseURL, account.ExternalUID)
	if err := doJSON(ctx, a.client, PlatformThreads, http.MethodPost, publishURL, nil, publish, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", fmt.Errorf("threads reply publish response missing id")
	}
	return published.ID, nil
}

// PostComment publishes a reply directly under a thread
func (a *ThreadsAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return a.publishReply(ctx, account, cred, targetID, message)
}

// ReplyToComment publishes a nested reply under an existing reply
func (a *ThreadsAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	return a.publishReply(ctx, account, cred, commentID, message)
}
