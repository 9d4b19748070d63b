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

// YouTubeConfig holds endpoint and OAuth client settings for the YouTube
// Data API adapter. Base URLs are configurable so tests can point at a stub.
type YouTubeConfig struct {
	APIBaseURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// DefaultYouTubeConfig returns production endpoints
func DefaultYouTubeConfig() YouTubeConfig {
	return YouTubeConfig{
		APIBaseURL: "https://www.googleapis.com/youtube/v3",
		TokenURL:   "https://oauth2.googleapis.com/token",
	}
}

// YouTubeAdapter publishes videos and reads comment threads through the
// YouTube Data API. Comment listing is keyset-paginated via pageToken.
type YouTubeAdapter struct {
	config YouTubeConfig
	client *http.Client
}

// NewYouTubeAdapter creates the YouTube adapter
func NewYouTubeAdapter(config YouTubeConfig, client *http.Client) *YouTubeAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeAdapter{config: config, client: client}
}

func (a *YouTubeAdapter) Platform() Platform         { return PlatformYouTube }
func (a *YouTubeAdapter) Pagination() PaginationType { return PaginationKeyset }
func (a *YouTubeAdapter) AsyncPublish() bool         { return false }

func (a *YouTubeAdapter) authHeader(cred *credentials.Credential) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cred.AccessToken}
}

// youtubePublishOptions is the caller-supplied option blob for video inserts
type youtubePublishOptions struct {
	PrivacyStatus string `json:"privacyStatus"`
	CategoryID    string `json:"categoryId"`
	MadeForKids   *bool  `json:"madeForKids"`
}

// Publish inserts a video resource referencing the already-uploaded media
func (a *YouTubeAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := youtubePublishOptions{PrivacyStatus: "public"}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}

	snippet := map[string]interface{}{
		"title":       payload.Title,
		"description": payload.Description,
		"tags":        payload.Topics,
	}
	if opts.CategoryID != "" {
		snippet["categoryId"] = opts.CategoryID
	}
	status := map[string]interface{}{
		"privacyStatus": opts.PrivacyStatus,
	}
	if opts.MadeForKids != nil {
		status["selfDeclaredMadeForKids"] = *opts.MadeForKids
	}
	body := map[string]interface{}{
		"snippet":  snippet,
		"status":   status,
		"mediaUrl": payload.VideoURL,
	}

	var out struct {
		ID string `json:"id"`
	}
	endpoint := a.config.APIBaseURL + "/videos?part=snippet,status"
	if err := doJSON(ctx, a.client, PlatformYouTube, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &PlatformError{Platform: PlatformYouTube, Class: ClassRejected, Message: "publish response missing video id"}
	}

	return TerminalResult(out.ID, "https://www.youtube.com/watch?v="+out.ID), nil
}

// RefreshCredential exchanges the refresh token at the Google token endpoint.
// Google does not rotate refresh tokens, so the old one is carried forward.
func (a *YouTubeAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := doForm(ctx, a.client, PlatformYouTube, a.config.TokenURL, form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &PlatformError{Platform: PlatformYouTube, Class: ClassAuthRevoked, Message: "token response missing access_token"}
	}

	return &credentials.Credential{
		AccountID:    account.ID,
		AccessToken:  out.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// youtubeCommentThread is the wire shape of one commentThreads item
type youtubeCommentThread struct {
	ID      string `json:"id"`
	Snippet struct {
		TotalReplyCount int `json:"totalReplyCount"`
		TopLevelComment struct {
			ID      string `json:"id"`
			Snippet youtubeCommentSnippet `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type youtubeCommentSnippet struct {
	TextDisplay           string    `json:"textDisplay"`
	AuthorDisplayName     string    `json:"authorDisplayName"`
	AuthorProfileImageURL string    `json:"authorProfileImageUrl"`
	AuthorChannelID       struct {
		Value string `json:"value"`
	} `json:"authorChannelId"`
	PublishedAt time.Time `json:"publishedAt"`
}

// FetchComments lists top-level comment threads on a video
func (a *YouTubeAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	q := url.Values{
		"part":       {"snippet"},
		"videoId":    {targetID},
		"maxResults": {"50"},
		"order":      {"time"},
	}
	if cursor.After != "" {
		q.Set("pageToken", cursor.After)
	}

	var out struct {
		NextPageToken string                 `json:"nextPageToken"`
		Items         []youtubeCommentThread `json:"items"`
	}
	endpoint := a.config.APIBaseURL + "/commentThreads?" + q.Encode()
	if err := doJSON(ctx, a.client, PlatformYouTube, http.MethodGet, endpoint, a.authHeader(cred), nil, &out); err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: make([]Comment, 0, len(out.Items))}
	for _, item := range out.Items {
		top := item.Snippet.TopLevelComment
		page.Comments = append(page.Comments, Comment{
			ID:      top.ID,
			Message: top.Snippet.TextDisplay,
			Author: CommentAuthor{
				ID:     top.Snippet.AuthorChannelID.Value,
				Name:   top.Snippet.AuthorDisplayName,
				Avatar: top.Snippet.AuthorProfileImageURL,
			},
			CreatedAt:  top.Snippet.PublishedAt,
			HasReplies: item.Snippet.TotalReplyCount > 0,
		})
	}
	if out.NextPageToken != "" {
		next := KeysetCursor("", out.NextPageToken)
		page.Next = &next
	}
	return page, nil
}

// FetchReplies lists replies under a top-level comment
func (a *YouTubeAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	q := url.Values{
		"part":       {"snippet"},
		"parentId":   {commentID},
		"maxResults": {"50"},
	}
	if cursor.After != "" {
		q.Set("pageToken", cursor.After)
	}

	var out struct {
		NextPageToken string `json:"nextPageToken"`
		Items         []struct {
			ID      string                `json:"id"`
			Snippet youtubeCommentSnippet `json:"snippet"`
		} `json:"items"`
	}
	endpoint := a.config.APIBaseURL + "/comments?" + q.Encode()
	if err := doJSON(ctx, a.client, PlatformYouTube, http.MethodGet, endpoint, a.authHeader(cred), nil, &out); err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: make([]Comment, 0, len(out.Items))}
	for _, item := range out.Items {
		page.Comments = append(page.Comments, Comment{
			ID:      item.ID,
			Message: item.Snippet.TextDisplay,
			Author: CommentAuthor{
				ID:     item.Snippet.AuthorChannelID.Value,
				Name:   item.Snippet.AuthorDisplayName,
				Avatar: item.Snippet.AuthorProfileImageURL,
			},
			CreatedAt: item.Snippet.PublishedAt,
		})
	}
	if out.NextPageToken != "" {
		next := KeysetCursor("", out.NextPageToken)
		page.Next = &next
	}
	return page, nil
}

// PostComment creates a top-level comment thread on a video
func (a *YouTubeAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	body := map[string]interface{}{
		"snippet": map[string]interface{}{
			"videoId": targetID,
			"topLevelComment": map[string]interface{}{
				"snippet": map[string]string{"textOriginal": message},
			},
		},
	}
	var out struct {
		Snippet struct {
			TopLevelComment struct {
				ID string `json:"id"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	}
	endpoint := a.config.APIBaseURL + "/commentThreads?part=snippet"
	if err := doJSON(ctx, a.client, PlatformYouTube, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return "", err
	}
	return out.Snippet.TopLevelComment.ID, nil
}

// ReplyToComment creates a reply under an existing comment
func (a *YouTubeAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	body := map[string]interface{}{
		"snippet": map[string]string{
			"parentId":     commentID,
			"textOriginal": message,
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	endpoint := a.config.APIBaseURL + "/comments?part=snippet"
	if err := doJSON(ctx, a.client, PlatformYouTube, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("youtube reply response missing id")
	}
	return out.ID, nil
}
