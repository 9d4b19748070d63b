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

// BilibiliConfig holds endpoint settings for the Bilibili adapter
type BilibiliConfig struct {
	APIBaseURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// DefaultBilibiliConfig returns production endpoints
func DefaultBilibiliConfig() BilibiliConfig {
	return BilibiliConfig{
		APIBaseURL: "https://member.bilibili.com/arcopen/fn",
		TokenURL:   "https://api.bilibili.com/x/account-oauth2/v1/refresh_token",
	}
}

// BilibiliAdapter publishes archives and reads replies. Bilibili's reply
// API pages numerically (pn/ps), so this is the offset-paginated adapter.
type BilibiliAdapter struct {
	config BilibiliConfig
	client *http.Client
}

// NewBilibiliAdapter creates the Bilibili adapter
func NewBilibiliAdapter(config BilibiliConfig, client *http.Client) *BilibiliAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &BilibiliAdapter{config: config, client: client}
}

func (a *BilibiliAdapter) Platform() Platform         { return PlatformBilibili }
func (a *BilibiliAdapter) Pagination() PaginationType { return PaginationOffset }
func (a *BilibiliAdapter) AsyncPublish() bool         { return false }

// biliEnvelope wraps every Bilibili response; code 0 is success
type biliEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *BilibiliAdapter) checkEnvelope(env biliEnvelope) error {
	switch env.Code {
	case 0:
		return nil
	case -101, -111: // not logged in / csrf failure
		return &PlatformError{Platform: PlatformBilibili, Class: ClassAuthExpired, Code: strconv.Itoa(env.Code), Message: env.Message}
	case -412, -509: // request blocked / rate limited
		return &PlatformError{Platform: PlatformBilibili, Class: ClassTransient, Code: strconv.Itoa(env.Code), Message: env.Message}
	default:
		return &PlatformError{Platform: PlatformBilibili, Class: ClassRejected, Code: strconv.Itoa(env.Code), Message: env.Message}
	}
}

func (a *BilibiliAdapter) authHeader(cred *credentials.Credential) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cred.AccessToken}
}

// bilibiliPublishOptions is the caller-supplied option blob for archives
type bilibiliPublishOptions struct {
	TID       int    `json:"tid"`
	Copyright int    `json:"copyright"`
	Source    string `json:"source"`
}

// Publish submits an archive referencing already-uploaded media
func (a *BilibiliAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := bilibiliPublishOptions{Copyright: 1}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"title":     payload.Title,
		"desc":      payload.Description,
		"cover":     payload.CoverURL,
		"video_url": payload.VideoURL,
		"tag":       payload.Topics,
		"copyright": opts.Copyright,
	}
	if opts.TID != 0 {
		body["tid"] = opts.TID
	}
	if opts.Source != "" {
		body["source"] = opts.Source
	}

	var out struct {
		biliEnvelope
		Data struct {
			ResourceID string `json:"resource_id"`
		} `json:"data"`
	}
	endpoint := a.config.APIBaseURL + "/archive/add"
	if err := doJSON(ctx, a.client, PlatformBilibili, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.biliEnvelope); err != nil {
		return nil, err
	}
	if out.Data.ResourceID == "" {
		return nil, &PlatformError{Platform: PlatformBilibili, Class: ClassRejected, Message: "archive response missing resource id"}
	}

	return TerminalResult(out.Data.ResourceID, "https://www.bilibili.com/video/"+out.Data.ResourceID), nil
}

// RefreshCredential exchanges the rotating refresh token
func (a *BilibiliAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	}

	var out struct {
		biliEnvelope
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int    `json:"expires_in"`
		} `json:"data"`
	}
	if err := doForm(ctx, a.client, PlatformBilibili, a.config.TokenURL, form, &out); err != nil {
		return nil, err
	}
	if out.Code != 0 || out.Data.AccessToken == "" {
		return nil, &PlatformError{Platform: PlatformBilibili, Class: ClassAuthRevoked, Code: strconv.Itoa(out.Code), Message: out.Message}
	}

	return &credentials.Credential{
		AccountID:    account.ID,
		AccessToken:  out.Data.AccessToken,
		RefreshToken: out.Data.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.Data.ExpiresIn) * time.Second),
	}, nil
}

type biliReply struct {
	RpID    int64  `json:"rpid"`
	Content struct {
		Message string `json:"message"`
	} `json:"content"`
	Member struct {
		Mid    int64  `json:"mid"`
		Uname  string `json:"uname"`
		Avatar string `json:"avatar"`
	} `json:"member"`
	Ctime  int64 `json:"ctime"`
	RCount int   `json:"rcount"`
}

func (a *BilibiliAdapter) listReplies(ctx context.Context, cred *credentials.Credential, q url.Values, cursor Cursor) (*CommentPage, error) {
	page := cursor.Page
	if page < 1 {
		page = 1
	}
	size := cursor.PageSize
	if size <= 0 || size > 49 {
		size = 20
	}
	q.Set("pn", strconv.Itoa(page))
	q.Set("ps", strconv.Itoa(size))

	var out struct {
		biliEnvelope
		Data struct {
			Replies []biliReply `json:"replies"`
			Page    struct {
				Num   int `json:"num"`
				Size  int `json:"size"`
				Count int `json:"count"`
			} `json:"page"`
		} `json:"data"`
	}
	endpoint := a.config.APIBaseURL + "/reply/list?" + q.Encode()
	if err := doJSON(ctx, a.client, PlatformBilibili, http.MethodGet, endpoint, a.authHeader(cred), nil, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.biliEnvelope); err != nil {
		return nil, err
	}

	result := &CommentPage{Comments: make([]Comment, 0, len(out.Data.Replies))}
	for _, r := range out.Data.Replies {
		result.Comments = append(result.Comments, Comment{
			ID:      strconv.FormatInt(r.RpID, 10),
			Message: r.Content.Message,
			Author: CommentAuthor{
				ID:     strconv.FormatInt(r.Member.Mid, 10),
				Name:   r.Member.Uname,
				Avatar: r.Member.Avatar,
			},
			CreatedAt:  time.Unix(r.Ctime, 0).UTC(),
			HasReplies: r.RCount > 0,
		})
	}
	if out.Data.Page.Num*out.Data.Page.Size < out.Data.Page.Count {
		next := OffsetCursor(page+1, size)
		result.Next = &next
	}
	return result, nil
}

// FetchComments lists replies on an archive, numerically paged
func (a *BilibiliAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	return a.listReplies(ctx, cred, url.Values{"oid": {targetID}, "type": {"1"}}, cursor)
}

// FetchReplies lists the sub-reply tree under one reply
func (a *BilibiliAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	return a.listReplies(ctx, cred, url.Values{"root": {commentID}, "type": {"1"}}, cursor)
}

func (a *BilibiliAdapter) addReply(ctx context.Context, cred *credentials.Credential, body map[string]string) (string, error) {
	var out struct {
		biliEnvelope
		Data struct {
			RpID int64 `json:"rpid"`
		} `json:"data"`
	}
	endpoint := a.config.APIBaseURL + "/reply/add"
	if err := doJSON(ctx, a.client, PlatformBilibili, http.MethodPost, endpoint, a.authHeader(cred), body, &out); err != nil {
		return "", err
	}
	if err := a.checkEnvelope(out.biliEnvelope); err != nil {
		return "", err
	}
	if out.Data.RpID == 0 {
		return "", fmt.Errorf("bilibili reply response missing rpid")
	}
	return strconv.FormatInt(out.Data.RpID, 10), nil
}

// PostComment publishes a reply on an archive
func (a *BilibiliAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return a.addReply(ctx, cred, map[string]string{
		"oid":     targetID,
		"type":    "1",
		"message": message,
	})
}

// ReplyToComment publishes a sub-reply under an existing reply
func (a *BilibiliAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	return a.addReply(ctx, cred, map[string]string{
		"root":    commentID,
		"type":    "1",
		"message": message,
	})
}
