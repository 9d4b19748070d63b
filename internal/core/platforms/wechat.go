package platforms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
)

// WeChatConfig holds Official Account platform settings
type WeChatConfig struct {
	APIBaseURL     string
	ComponentAppID string
	ComponentToken string
}

// DefaultWeChatConfig returns production endpoints
func DefaultWeChatConfig() WeChatConfig {
	return WeChatConfig{APIBaseURL: "https://api.weixin.qq.com"}
}

// WeChatAdapter publishes articles to a WeChat Official Account. Publishing
// is asynchronous: the submit call returns a publish_id immediately and the
// platform reports the real outcome minutes later through the
// PUBLISHJOBFINISH webhook event. Comment listing pages numerically.
type WeChatAdapter struct {
	config WeChatConfig
	client *http.Client
}

// NewWeChatAdapter creates the WeChat adapter
func NewWeChatAdapter(config WeChatConfig, client *http.Client) *WeChatAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WeChatAdapter{config: config, client: client}
}

// WeChatCorrelationToken builds the token stored with an awaiting job and
// reconstructed by the webhook handler from its route appid and the event's
// publish_id
func WeChatCorrelationToken(appID, publishID string) string {
	return appID + ":" + publishID
}

func (a *WeChatAdapter) Platform() Platform         { return PlatformWeChat }
func (a *WeChatAdapter) Pagination() PaginationType { return PaginationOffset }
func (a *WeChatAdapter) AsyncPublish() bool         { return true }

// wxEnvelope is the errcode/errmsg pair WeChat returns inside a 200 body
type wxEnvelope struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (a *WeChatAdapter) checkEnvelope(env wxEnvelope) error {
	switch env.ErrCode {
	case 0:
		return nil
	case 40001, 42001: // invalid or expired access token
		return &PlatformError{Platform: PlatformWeChat, Class: ClassAuthExpired, Code: strconv.Itoa(env.ErrCode), Message: env.ErrMsg}
	case 61023, 40030: // invalid refresh token: authorization revoked
		return &PlatformError{Platform: PlatformWeChat, Class: ClassAuthRevoked, Code: strconv.Itoa(env.ErrCode), Message: env.ErrMsg}
	case 45009, -1: // quota exhausted / system busy
		return &PlatformError{Platform: PlatformWeChat, Class: ClassTransient, Code: strconv.Itoa(env.ErrCode), Message: env.ErrMsg}
	default:
		return &PlatformError{Platform: PlatformWeChat, Class: ClassRejected, Code: strconv.Itoa(env.ErrCode), Message: env.ErrMsg}
	}
}

func (a *WeChatAdapter) tokenQuery(cred *credentials.Credential) string {
	return "access_token=" + url.QueryEscape(cred.AccessToken)
}

// wechatPublishOptions is the caller-supplied option blob for articles
type wechatPublishOptions struct {
	NeedOpenComment    bool `json:"needOpenComment"`
	OnlyFansCanComment bool `json:"onlyFansCanComment"`
}

// boolFlag renders a bool as the 0/1 integer WeChat's article fields expect
func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Publish adds a draft article and submits it for publication. The returned
// publish_id is the correlation token echoed back by PUBLISHJOBFINISH.
func (a *WeChatAdapter) Publish(ctx context.Context, account *accounts.Account, cred *credentials.Credential, payload *PublishPayload) (*PublishResult, error) {
	opts := wechatPublishOptions{}
	if err := decodeOptions(payload.Options, &opts); err != nil {
		return nil, err
	}

	draft := map[string]interface{}{
		"articles": []map[string]interface{}{{
			"title":                 payload.Title,
			"digest":                payload.Description,
			"content":               payload.Description,
			"thumb_url":             payload.CoverURL,
			"need_open_comment":     boolFlag(opts.NeedOpenComment),
			"only_fans_can_comment": boolFlag(opts.OnlyFansCanComment),
		}},
	}

	var added struct {
		wxEnvelope
		MediaID string `json:"media_id"`
	}
	addURL := a.config.APIBaseURL + "/cgi-bin/draft/add?" + a.tokenQuery(cred)
	if err := doJSON(ctx, a.client, PlatformWeChat, http.MethodPost, addURL, nil, draft, &added); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(added.wxEnvelope); err != nil {
		return nil, err
	}

	var submitted struct {
		wxEnvelope
		PublishID string `json:"publish_id"`
	}
	submitURL := a.config.APIBaseURL + "/cgi-bin/freepublish/submit?" + a.tokenQuery(cred)
	if err := doJSON(ctx, a.client, PlatformWeChat, http.MethodPost, submitURL, nil, map[string]string{"media_id": added.MediaID}, &submitted); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(submitted.wxEnvelope); err != nil {
		return nil, err
	}
	if submitted.PublishID == "" {
		return nil, &PlatformError{Platform: PlatformWeChat, Class: ClassRejected, Message: "submit response missing publish_id"}
	}

	// No terminal result yet; the webhook settles the job. The token is
	// scoped by the authorizer appid because publish_id is only unique per
	// official account.
	return PendingResult(WeChatCorrelationToken(account.ExternalUID, submitted.PublishID)), nil
}

// RefreshCredential exchanges the authorizer refresh token via the
// third-party platform endpoint
func (a *WeChatAdapter) RefreshCredential(ctx context.Context, account *accounts.Account, cred *credentials.Credential) (*credentials.Credential, error) {
	body := map[string]string{
		"component_appid":          a.config.ComponentAppID,
		"authorizer_appid":         account.ExternalUID,
		"authorizer_refresh_token": cred.RefreshToken,
	}

	var out struct {
		wxEnvelope
		AuthorizerAccessToken  string `json:"authorizer_access_token"`
		AuthorizerRefreshToken string `json:"authorizer_refresh_token"`
		ExpiresIn              int    `json:"expires_in"`
	}
	endpoint := a.config.APIBaseURL + "/cgi-bin/component/api_authorizer_token"
	if err := doJSON(ctx, a.client, PlatformWeChat, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.wxEnvelope); err != nil {
		return nil, err
	}

	return &credentials.Credential{
		AccountID:    account.ID,
		AccessToken:  out.AuthorizerAccessToken,
		RefreshToken: out.AuthorizerRefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

type wxComment struct {
	UserCommentID int64  `json:"user_comment_id"`
	OpenID        string `json:"openid"`
	CreateTime    int64  `json:"create_time"`
	Content       string `json:"content"`
	Reply         *struct {
		Content    string `json:"content"`
		CreateTime int64  `json:"create_time"`
	} `json:"reply"`
}

// FetchComments lists comments on a published article, numerically paged
// via begin/count
func (a *WeChatAdapter) FetchComments(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID string, targetType TargetType, cursor Cursor) (*CommentPage, error) {
	page := cursor.Page
	if page < 1 {
		page = 1
	}
	size := cursor.PageSize
	if size <= 0 || size > 50 {
		size = 20
	}

	body := map[string]interface{}{
		"msg_data_id": targetID,
		"index":       0,
		"begin":       (page - 1) * size,
		"count":       size,
		"type":        0,
	}

	var out struct {
		wxEnvelope
		Total   int         `json:"total"`
		Comment []wxComment `json:"comment"`
	}
	endpoint := a.config.APIBaseURL + "/cgi-bin/comment/list?" + a.tokenQuery(cred)
	if err := doJSON(ctx, a.client, PlatformWeChat, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return nil, err
	}
	if err := a.checkEnvelope(out.wxEnvelope); err != nil {
		return nil, err
	}

	result := &CommentPage{Comments: make([]Comment, 0, len(out.Comment))}
	for _, c := range out.Comment {
		result.Comments = append(result.Comments, Comment{
			ID:      strconv.FormatInt(c.UserCommentID, 10),
			Message: c.Content,
			Author: CommentAuthor{
				ID:   c.OpenID,
				Name: c.OpenID,
			},
			CreatedAt:  time.Unix(c.CreateTime, 0).UTC(),
			HasReplies: c.Reply != nil,
		})
	}
	if page*size < out.Total {
		next := OffsetCursor(page+1, size)
		result.Next = &next
	}
	return result, nil
}

// FetchReplies returns an empty page: WeChat has no reply-list endpoint.
// The single operator reply per comment rides along on the comment listing
// (surfaced there as HasReplies).
func (a *WeChatAdapter) FetchReplies(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID string, cursor Cursor) (*CommentPage, error) {
	return &CommentPage{Comments: []Comment{}}, nil
}

// PostComment is not supported: an Official Account cannot start a comment
// thread on its own article, only reply to readers
func (a *WeChatAdapter) PostComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, targetID, message string) (string, error) {
	return "", &PlatformError{
		Platform: PlatformWeChat,
		Class:    ClassRejected,
		Code:     "unsupported_operation",
		Message:  "wechat official accounts cannot create top-level comments",
	}
}

// ReplyToComment posts the operator reply under a reader's comment
func (a *WeChatAdapter) ReplyToComment(ctx context.Context, account *accounts.Account, cred *credentials.Credential, commentID, message string) (string, error) {
	body := map[string]interface{}{
		"user_comment_id": commentID,
		"content":         message,
	}

	var out wxEnvelope
	endpoint := a.config.APIBaseURL + "/cgi-bin/comment/reply/add?" + a.tokenQuery(cred)
	if err := doJSON(ctx, a.client, PlatformWeChat, http.MethodPost, endpoint, nil, body, &out); err != nil {
		return "", err
	}
	if err := a.checkEnvelope(out); err != nil {
		return "", err
	}

	// WeChat does not assign ids to operator replies; the comment id
	// identifies the thread.
	return commentID, nil
}
