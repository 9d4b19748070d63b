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

// FacebookConfig holds Graph API settings for the Facebook page adapter
type FacebookConfig struct {
	GraphBaseURL string
	AppID        string
	AppSecret    string
}

// DefaultFacebookConfig returns production Graph API endpoints
func DefaultFacebookConfig() FacebookConfig {
	return FacebookConfig{GraphBaseURL: "https://graph.facebook.com/v21.0"}
}

// FacebookAdapter publishes to a page feed and reads comments through the
// Graph API. Comment listing uses Graph cursor paging (before/after).
type FacebookAdapter struct {
	config FacebookConfig
	client *http.Client
}

// NewFacebookAdapter creates the Facebook adapter
func NewFacebookAdapter(config FacebookConfig, client *http.Client) *FacebookAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FacebookAdapter{config: config, client: client}
}

func (a *FacebookAdapter) Platform() Platform         { return PlatformFacebook }
func (a *FacebookAdapter) Pagination() PaginationType { return PaginationKeyset }
func (a *FacebookAdapter) AsyncPublish() bool         { return false }

// facebookPublishOptions is the caller-supplied option blob for page posts
type facebookPublishOptions struct {
	PageID    string `json:"pageId"`
	Published *bool  `json:"published"`
}

// Publish posts to the connected page's feed. Video payloads go to /videos,
// image payloads to /photos, text-only to /feed.
func (a *FacebookAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := facebookPublishOptions{}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}
	pageID := account.ExternalUID
	if opts.PageID != "" {
		pageID = opts.PageID
	}

	var edge string
	body := map[string]interface{}{
		"access_token": cred.AccessToken,
	}
	if opts.Published != nil {
		body["published"] = *opts.Published
	}
	switch {
	case payload.VideoURL != "":
		edge = "videos"
		body["file_url"] = payload.VideoURL
		body["title"] = payload.Title
		body["description"] = payload.Description
	case len(payload.ImageURLs) > 0:
		edge = "photos"
		body["url"] = payload.ImageURLs[0]
		body["caption"] = payload.Description
	default:
		edge = "feed"
		body["message"] = payload.Description
	}

	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	endpoint := fmt.Sprintf("%s/%s/%s", a.config.GraphBaseURL, pageID, edge)
	if err := doJSON(ctx, a.client, PlatformFacebook, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return nil, err
	}

	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	if postID == "" {
		return nil, &PlatformError{Platform: PlatformFacebook, Class: ClassRejected, Message: "publish response missing post id"}
	}
	return TerminalResult(postID, "https://www.facebook.com/"+postID), nil
}

// RefreshCredential exchanges the current long-lived token for a new one.
// Facebook rotates the token itself; there is no separate refresh token.
func (a *FacebookAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	form := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {a.config.AppID},
		"client_secret":     {a.config.AppSecret},
		"fb_exchange_token": {cred.AccessToken},
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := doForm(ctx, a.client, PlatformFacebook, a.config.GraphBaseURL+"/oauth/access_token", form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &PlatformError{Platform: PlatformFacebook, Class: ClassAuthRevoked, Message: "token exchange response missing access_token"}
	}

	return &credentials.Credential{
		AccountID:   account.ID,
		AccessToken: out.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// graphComment is the wire shape of one Graph API comment
type graphComment struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	From    struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	} `json:"from"`
	CreatedTime  time.Time `json:"created_time"`
	CommentCount int       `json:"comment_count"`
}

type graphCommentList struct {
	Data   []graphComment `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func (a *FacebookAdapter) listComments(ctx context.Context, cred *credentials.Credential, objectID string, cursor Cursor) (*CommentPage, error) {
	q := url.Values{
		"access_token": {cred.AccessToken},
		"fields":       {"id,message,from{id,name,picture},created_time,comment_count"},
		"limit":        {"50"},
	}
	if cursor.After != "" {
		q.Set("after", cursor.After)
	}
	if cursor.Before != "" {
		q.Set("before", cursor.Before)
	}

	var out graphCommentList
	endpoint := fmt.Sprintf("%s/%s/comments?%s", a.config.GraphBaseURL, objectID, q.Encode())
	if err := doJSON(ctx, a.client, PlatformFacebook, http.MethodGet, endpoint, nil, nil, &out); err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: make([]Comment, 0, len(out.Data))}
	for _, c := range out.Data {
		page.Comments = append(page.Comments, Comment{
			ID:      c.ID,
			Message: c.Message,
			Author: CommentAuthor{
				ID:     c.From.ID,
				Name:   c.From.Name,
				Avatar: c.From.Picture.Data.URL,
			},
			CreatedAt:  c.CreatedTime,
			HasReplies: c.CommentCount > 0,
		})
	}
	// Graph returns cursors even on the last page; only a `next` link means
	// there is more data.
	if out.Paging.Next != "" && out.Paging.Cursors.After != "" {
		next := KeysetCursor("", out.Paging.Cursors.After)
		page.Next = &next
	}
	return page, nil
}

// FetchComments lists comments on a page post
func (a *FacebookAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	return a.listComments(ctx, cred, targetID, cursor)
}

// FetchReplies lists replies under a comment; Graph exposes them on the
// same /comments edge rooted at the comment id
func (a *FacebookAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	return a.listComments(ctx, cred, commentID, cursor)
}

func (a *FacebookAdapter) postComment(ctx context.Context, cred *credentials.Credential, objectID, message string) (string, error) {
	body := map[string]string{
		"message":      message,
		"access_token": cred.AccessToken,
	}
	var out struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s/comments", a.config.GraphBaseURL, objectID)
	if err := doJSON(ctx, a.client, PlatformFacebook, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("facebook comment response missing id")
	}
	return out.ID, nil
}

// PostComment publishes a comment on a post
func (a *FacebookAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return a.postComment(ctx, cred, targetID, message)
}

// ReplyToComment publishes a reply under an existing comment
func (a *FacebookAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	return a.postComment(ctx, cred, commentID, message)
}
