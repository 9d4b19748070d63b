package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"Omnipost/internal/core/publishing"
)

// TikTokWebhookHandler receives TikTok post status events. Most publishes
// settle inline through the adapter, so these events usually land as
// idempotent no-ops; they matter when the platform flips a verdict after
// the API call returned.
type TikTokWebhookHandler struct {
	correlator   *publishing.Correlator
	clientSecret string
}

// NewTikTokWebhookHandler creates the TikTok event handler
func NewTikTokWebhookHandler(correlator *publishing.Correlator, clientSecret string) *TikTokWebhookHandler {
	return &TikTokWebhookHandler{correlator: correlator, clientSecret: clientSecret}
}

// tiktokEvent is the webhook envelope. Content is a JSON string, not an
// embedded object.
type tiktokEvent struct {
	Event      string `json:"event"`
	UserOpenID string `json:"user_openid"`
	Content    string `json:"content"`
}

type tiktokEventContent struct {
	PublishID  string `json:"publish_id"`
	PostID     string `json:"post_id"`
	ShareURL   string `json:"share_url"`
	FailReason string `json:"fail_reason"`
}

// HandleEvent verifies and processes one TikTok event push
// POST /webhooks/tiktok
//
// Returns 2xx for every structurally valid delivery so TikTok doesn't
// retry events we simply don't act on.
func (h *TikTokWebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !h.validSignature(r.Header.Get("TikTok-Signature"), body) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var event tiktokEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	var content tiktokEventContent
	if event.Content != "" {
		if err := json.Unmarshal([]byte(event.Content), &content); err != nil {
			log.Printf("Failed to decode tiktok event content: %v", err)
		}
	}

	if content.PublishID != "" {
		var outcome publishing.CallbackOutcome
		switch event.Event {
		case "post.publish.complete":
			outcome = publishing.CallbackOutcome{
				Success:   true,
				PostID:    content.PostID,
				Permalink: content.ShareURL,
			}
		case "post.publish.failed":
			outcome = publishing.CallbackOutcome{Success: false, Reason: content.FailReason}
		default:
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := h.correlator.Resolve(r.Context(), content.PublishID, outcome); err != nil {
			log.Printf("Failed to resolve tiktok publish %s: %v", content.PublishID, err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// validSignature checks the t=timestamp,s=hex header: the signature is
// HMAC-SHA256 of "<timestamp>.<body>" keyed with the client secret
func (h *TikTokWebhookHandler) validSignature(header string, body []byte) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "s":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.clientSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
