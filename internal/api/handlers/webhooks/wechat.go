package webhooks

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/core/platforms"
	"Omnipost/internal/core/publishing"
)

// WeChatWebhookHandler receives WeChat Official Account event pushes.
// The only event acted on is PUBLISHJOBFINISH, which settles the awaiting
// publish job matching the echoed publish_id. Everything else is
// acknowledged and dropped.
type WeChatWebhookHandler struct {
	correlator *publishing.Correlator
	token      string
}

// NewWeChatWebhookHandler creates the WeChat event handler. token is the
// callback verification token configured on the WeChat platform console.
func NewWeChatWebhookHandler(correlator *publishing.Correlator, token string) *WeChatWebhookHandler {
	return &WeChatWebhookHandler{correlator: correlator, token: token}
}

// HandleVerify answers WeChat's endpoint ownership challenge
// GET /webhooks/wechat/{appID}?signature=..&timestamp=..&nonce=..&echostr=..
func (h *WeChatWebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !h.validSignature(query.Get("signature"), query.Get("timestamp"), query.Get("nonce")) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	fmt.Fprint(w, query.Get("echostr"))
}

// wxPublishEvent is the PUBLISHJOBFINISH push payload. publish_status 0 is
// success; every other code is a platform-side failure.
type wxPublishEvent struct {
	ToUserName string `xml:"ToUserName"`
	MsgType    string `xml:"MsgType"`
	Event      string `xml:"Event"`
	PublishInfo struct {
		PublishID     string `xml:"publish_id"`
		PublishStatus int    `xml:"publish_status"`
		ArticleID     string `xml:"article_id"`
		ArticleDetail struct {
			Items []struct {
				ArticleURL string `xml:"article_url"`
			} `xml:"item"`
		} `xml:"article_detail"`
	} `xml:"PublishEventInfo"`
}

// HandleEvent receives an event push and settles the matching publish job
// POST /webhooks/wechat/{appID}
//
// WeChat retries deliveries that don't get a 200 "success" within five
// seconds, so the response is positive even for events we ignore; only a
// bad signature is refused.
func (h *WeChatWebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !h.validSignature(query.Get("signature"), query.Get("timestamp"), query.Get("nonce")) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	appID := chi.URLParam(r, "appID")

	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	var event wxPublishEvent
	if err := xml.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Printf("Failed to decode wechat event for %s: %v", appID, err)
		acknowledge(w)
		return
	}

	if event.Event != "PUBLISHJOBFINISH" || event.PublishInfo.PublishID == "" {
		acknowledge(w)
		return
	}

	outcome := publishing.CallbackOutcome{
		Success: event.PublishInfo.PublishStatus == 0,
		PostID:  event.PublishInfo.ArticleID,
	}
	if outcome.Success {
		if items := event.PublishInfo.ArticleDetail.Items; len(items) > 0 {
			outcome.Permalink = items[0].ArticleURL
		}
	} else {
		outcome.Reason = fmt.Sprintf("wechat publish failed with status %d", event.PublishInfo.PublishStatus)
	}

	token := platforms.WeChatCorrelationToken(appID, event.PublishInfo.PublishID)
	if err := h.correlator.Resolve(r.Context(), token, outcome); err != nil {
		// Acknowledge anyway: WeChat redelivers on non-200 and the retry
		// would hit the same storage error.
		log.Printf("Failed to resolve wechat publish %s: %v", token, err)
	}

	acknowledge(w)
}

// validSignature checks the sha1-of-sorted-params signature WeChat sends
// with every call
func (h *WeChatWebhookHandler) validSignature(signature, timestamp, nonce string) bool {
	if signature == "" {
		return false
	}
	parts := []string{h.token, timestamp, nonce}
	sort.Strings(parts)

	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func acknowledge(w http.ResponseWriter) {
	fmt.Fprint(w, "success")
}
