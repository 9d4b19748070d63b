package routes

import (
	"Omnipost/internal/api/handlers/webhooks"
	"Omnipost/internal/core/publishing"

	"github.com/go-chi/chi/v5"
)

// WebhookConfig holds the per-platform secrets used to authenticate
// inbound event pushes
type WebhookConfig struct {
	WeChatToken        string
	TikTokClientSecret string
}

// RegisterWebhookRoutes registers the platform callback endpoints.
// These are called by the platforms themselves, so they authenticate by
// signature instead of bearer token and sit outside the auth middleware.
func RegisterWebhookRoutes(r chi.Router, correlator *publishing.Correlator, config WebhookConfig) {
	wechatHandler := webhooks.NewWeChatWebhookHandler(correlator, config.WeChatToken)
	tiktokHandler := webhooks.NewTikTokWebhookHandler(correlator, config.TikTokClientSecret)

	r.Route("/webhooks", func(r chi.Router) {
		// WeChat pushes per authorizer appid; the GET is the console's
		// endpoint ownership challenge
		r.Get("/wechat/{appID}", wechatHandler.HandleVerify)
		r.Post("/wechat/{appID}", wechatHandler.HandleEvent)

		r.Post("/tiktok", tiktokHandler.HandleEvent)
	})
}
