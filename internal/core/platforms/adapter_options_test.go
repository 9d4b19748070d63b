package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/credentials"
)

// captureServer records the JSON body of every request by path and answers
// each path with a canned response
type captureServer struct {
	mu     sync.Mutex
	bodies map[string]map[string]interface{}
	*httptest.Server
}

func newCaptureServer(t *testing.T, responses map[string]string) *captureServer {
	t.Helper()
	cs := &captureServer{bodies: make(map[string]map[string]interface{})}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil {
			// ignore decode errors: GET requests have no body
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		cs.mu.Lock()
		cs.bodies[r.URL.Path] = body
		cs.mu.Unlock()

		resp, ok := responses[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) body(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	body, ok := cs.bodies[path]
	require.True(t, ok, "no request captured for %s", path)
	return body
}

func optionsPayload(t *testing.T, platform Platform, options string) *PublishPayload {
	t.Helper()
	payload := &PublishPayload{
		Title:       "title",
		Description: "description",
		VideoURL:    "https://cdn.example.com/v.mp4",
	}
	if options != "" {
		payload.Options = json.RawMessage(options)
		require.NoError(t, ValidateOptions(platform, payload))
	}
	return payload
}

func testAccount() *accounts.Account {
	return &accounts.Account{ID: "acc-1", ExternalUID: "ext-1"}
}

func testCredential() *credentials.Credential {
	return &credentials.Credential{AccountID: "acc-1", AccessToken: "token", ExpiresAt: time.Now().Add(time.Hour)}
}

func TestTikTokPublish_CarriesValidatedOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/post/publish/video/init/": `{"data": {"publish_id": "pub-1"}}`,
	})
	adapter := NewTikTokAdapter(TikTokConfig{APIBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformTikTok, `{"privacyLevel": "SELF_ONLY", "disableComment": true}`)
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)

	postInfo := server.body(t, "/post/publish/video/init/")["post_info"].(map[string]interface{})
	assert.Equal(t, "SELF_ONLY", postInfo["privacy_level"])
	assert.Equal(t, true, postInfo["disable_comment"])
	assert.Equal(t, false, postInfo["disable_duet"])
}

func TestTikTokPublish_DefaultsWithoutOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/post/publish/video/init/": `{"data": {"publish_id": "pub-1"}}`,
	})
	adapter := NewTikTokAdapter(TikTokConfig{APIBaseURL: server.URL}, server.Client())

	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), optionsPayload(t, PlatformTikTok, ""))
	require.NoError(t, err)

	postInfo := server.body(t, "/post/publish/video/init/")["post_info"].(map[string]interface{})
	assert.Equal(t, "PUBLIC_TO_EVERYONE", postInfo["privacy_level"])
}

func TestYouTubePublish_CarriesValidatedOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/videos": `{"id": "vid-1"}`,
	})
	adapter := NewYouTubeAdapter(YouTubeConfig{APIBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformYouTube, `{"privacyStatus": "unlisted", "categoryId": "22", "madeForKids": false}`)
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)

	body := server.body(t, "/videos")
	status := body["status"].(map[string]interface{})
	assert.Equal(t, "unlisted", status["privacyStatus"])
	assert.Equal(t, false, status["selfDeclaredMadeForKids"])
	snippet := body["snippet"].(map[string]interface{})
	assert.Equal(t, "22", snippet["categoryId"])
}

func TestYouTubePublish_DefaultsWithoutOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/videos": `{"id": "vid-1"}`,
	})
	adapter := NewYouTubeAdapter(YouTubeConfig{APIBaseURL: server.URL}, server.Client())

	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), optionsPayload(t, PlatformYouTube, ""))
	require.NoError(t, err)

	status := server.body(t, "/videos")["status"].(map[string]interface{})
	assert.Equal(t, "public", status["privacyStatus"])
	assert.NotContains(t, status, "selfDeclaredMadeForKids")
}

func TestFacebookPublish_PageIDAndPublishedOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/page-42/videos": `{"id": "post-1"}`,
	})
	adapter := NewFacebookAdapter(FacebookConfig{GraphBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformFacebook, `{"pageId": "page-42", "published": false}`)
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)

	// the page id option overrides the account's external uid in the path
	body := server.body(t, "/page-42/videos")
	assert.Equal(t, false, body["published"])
}

func TestThreadsPublish_ReplyControlOption(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/ext-1/threads":         `{"id": "container-1"}`,
		"/ext-1/threads_publish": `{"id": "media-1"}`,
	})
	adapter := NewThreadsAdapter(ThreadsConfig{GraphBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformThreads, `{"replyControl": "mentioned_only"}`)
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)

	container := server.body(t, "/ext-1/threads")
	assert.Equal(t, "mentioned_only", container["reply_control"])
}

func TestBilibiliPublish_CarriesValidatedOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/archive/add": `{"code": 0, "data": {"resource_id": "BV1"}}`,
	})
	adapter := NewBilibiliAdapter(BilibiliConfig{APIBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformBilibili, `{"tid": 21, "copyright": 2, "source": "https://example.com/origin"}`)
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)

	body := server.body(t, "/archive/add")
	assert.Equal(t, float64(21), body["tid"])
	assert.Equal(t, float64(2), body["copyright"])
	assert.Equal(t, "https://example.com/origin", body["source"])
}

func TestWeChatPublish_CommentOptions(t *testing.T) {
	server := newCaptureServer(t, map[string]string{
		"/cgi-bin/draft/add":          `{"errcode": 0, "media_id": "m-1"}`,
		"/cgi-bin/freepublish/submit": `{"errcode": 0, "publish_id": "100"}`,
	})
	adapter := NewWeChatAdapter(WeChatConfig{APIBaseURL: server.URL}, server.Client())

	payload := optionsPayload(t, PlatformWeChat, `{"needOpenComment": true, "onlyFansCanComment": true}`)
	result, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	require.NoError(t, err)
	assert.True(t, result.Pending)

	articles := server.body(t, "/cgi-bin/draft/add")["articles"].([]interface{})
	article := articles[0].(map[string]interface{})
	assert.Equal(t, float64(1), article["need_open_comment"])
	assert.Equal(t, float64(1), article["only_fans_can_comment"])
}

func TestPublish_MalformedOptionsRejected(t *testing.T) {
	server := newCaptureServer(t, map[string]string{})
	adapter := NewTikTokAdapter(TikTokConfig{APIBaseURL: server.URL}, server.Client())

	payload := &PublishPayload{
		Title:    "title",
		VideoURL: "https://cdn.example.com/v.mp4",
		Options:  json.RawMessage(`{"privacyLevel": 5}`),
	}
	_, err := adapter.Publish(context.Background(), testAccount(), testCredential(), payload)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
