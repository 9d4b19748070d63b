package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
)

// TikTokConfig holds Open API settings for the TikTok adapter
type TikTokConfig struct {
	APIBaseURL   string
	ClientKey    string
	ClientSecret string
}

// DefaultTikTokConfig returns production endpoints
func DefaultTikTokConfig() TikTokConfig {
	return TikTokConfig{APIBaseURL: "https://open.tiktokapis.com/v2"}
}

// TikTokAdapter publishes via the Content Posting API (PULL_FROM_URL mode)
// and reads comments with TikTok's opaque integer cursors, surfaced as
// keyset cursors.
type TikTokAdapter struct {
	config TikTokConfig
	client *http.Client
}

// NewTikTokAdapter creates the TikTok adapter
func NewTikTokAdapter(config TikTokConfig, client *http.Client) *TikTokAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TikTokAdapter{config: config, client: client}
}

func (a *TikTokAdapter) Platform() Platform         { return PlatformTikTok }
func (a *TikTokAdapter) Pagination() PaginationType { return PaginationKeyset }
func (a *TikTokAdapter) AsyncPublish() bool         { return false }

func (a *TikTokAdapter) authHeader(cred *credentials.Credential) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cred.AccessToken}
}

// tiktokEnvelope wraps every Open API response
type tiktokEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// checkEnvelope maps TikTok's in-body error codes; the HTTP status is 200
// even for content policy rejections
func (a *TikTokAdapter) checkEnvelope(env tiktokEnvelope) error {
	switch env.Error.Code {
	case "", "ok":
		return nil
	case "access_token_invalid", "access_token_expired":
		return &PlatformError{Platform: PlatformTikTok, Class: ClassAuthExpired, Code: env.Error.Code, Message: env.Error.Message}
	case "rate_limit_exceeded", "internal_error":
		return &PlatformError{Platform: PlatformTikTok, Class: ClassTransient, Code: env.Error.Code, Message: env.Error.Message}
	default:
		return &PlatformError{Platform: PlatformTikTok, Class: ClassRejected, Code: env.Error.Code, Message: env.Error.Message}
	}
}

// tiktokPublishOptions is the caller-supplied option blob for TikTok posts
type tiktokPublishOptions struct {
	PrivacyLevel   string `json:"privacyLevel"`
	DisableComment bool   `json:"disableComment"`
	DisableDuet    bool   `json:"disableDuet"`
	DisableStitch  bool   `json:"disableStitch"`
}

// Publish initiates a direct post pulling media from the payload URL
func (a *TikTokAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := tiktokPublishOptions{PrivacyLevel: "PUBLIC_TO_EVERYONE"}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           payload.Title,
			"privacy_level":   opts.PrivacyLevel,
			"disable_comment": opts.DisableComment,
			"disable_duet":    opts.DisableDuet,
			"disable_stitch":  opts.DisableStitch,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": payload.VideoURL,
		},
	}

	var out struct {
		tiktokEnvelope
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
	}
	endpoint := a.config.APIBaseURL + "/post/publish/video/init/"
	if err := doJSON(ctx, a.client, PlatformTikTok, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.tiktokEnvelope); err != nil {
		return nil, err
	}
	if out.Data.PublishID == "" {
		return nil, &PlatformError{Platform: PlatformTikTok, Class: ClassRejected, Message: "publish response missing publish_id"}
	}

	return TerminalResult(out.Data.PublishID, ""), nil
}

// RefreshCredential exchanges the rotating refresh token. TikTok refresh
// tokens are single-use; the response always carries a new one.
func (a *TikTokAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_key":    {a.config.ClientKey},
		"client_secret": {a.config.ClientSecret},
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := doForm(ctx, a.client, PlatformTikTok, a.config.APIBaseURL+"/oauth/token/", form, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, &PlatformError{Platform: PlatformTikTok, Class: ClassAuthRevoked, Message: "token response missing rotated tokens"}
	}

	return &credentials.Credential{
		AccountID:    account.ID,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

type tiktokComment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	CreateTime int64  `json:"create_time"`
	ReplyCount int    `json:"reply_count"`
	User       struct {
		OpenID    string `json:"open_id"`
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user"`
}

type tiktokCommentData struct {
	Comments []tiktokComment `json:"comments"`
	Cursor   int64           `json:"cursor"`
	HasMore  bool            `json:"has_more"`
}

func (a *TikTokAdapter) listComments(ctx context.Context, cred *credentials.Credential, endpoint string, body map[string]interface{}, cursor Cursor) (*CommentPage, error) {
	if cursor.After != "" {
		after, err := strconv.ParseInt(cursor.After, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed tiktok cursor %q: %w", cursor.After, err)
		}
		body["cursor"] = after
	}
	body["count"] = 50

	var out struct {
		tiktokEnvelope
		Data tiktokCommentData `json:"data"`
	}
	if err := doJSON(ctx, a.client, PlatformTikTok, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.tiktokEnvelope); err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: make([]Comment, 0, len(out.Data.Comments))}
	for _, c := range out.Data.Comments {
		page.Comments = append(page.Comments, Comment{
			ID:      c.ID,
			Message: c.Text,
			Author: CommentAuthor{
				ID:     c.User.OpenID,
				Name:   c.User.Nickname,
				Avatar: c.User.AvatarURL,
			},
			CreatedAt:  time.Unix(c.CreateTime, 0).UTC(),
			HasReplies: c.ReplyCount > 0,
		})
	}
	if out.Data.HasMore {
		next := KeysetCursor("", strconv.FormatInt(out.Data.Cursor, 10))
		page.Next = &next
	}
	return page, nil
}

// FetchComments lists comments on a video
func (a *TikTokAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	return a.listComments(ctx, cred, a.config.APIBaseURL+"/comment/list/", map[string]interface{}{
		"video_id": targetID,
	}, cursor)
}

// FetchReplies lists replies under a comment
func (a *TikTokAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	return a.listComments(ctx, cred, a.config.APIBaseURL+"/comment/reply/list/", map[string]interface{}{
		"comment_id": commentID,
	}, cursor)
}

func (a *TikTokAdapter) createComment(ctx context.Context, cred *credentials.Credential, body map[string]string) (string, error) {
	var out struct {
		tiktokEnvelope
		Data struct {
			CommentID string `json:"comment_id"`
		} `json:"data"`
	}
	endpoint := a.config.APIBaseURL + "/comment/create/"
	if err := doJSON(ctx, a.client, PlatformTikTok, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return "", err
	}
	if err := a.checkEnvelope(out.tiktokEnvelope); err != nil {
		return "", err
	}
	return out.Data.CommentID, nil
}

// PostComment publishes a comment on a video
func (a *TikTokAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return a.createComment(ctx, cred, map[string]string{
		"video_id": targetID,
		"text":     message,
	})
}

// ReplyToComment publishes a reply under an existing comment
func (a *TikTokAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	return a.createComment(ctx, cred, map[string]string{
		"comment_id": commentID,
		"text":       message,
	})
}
