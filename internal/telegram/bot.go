package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phuslu/log"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

func NewBot(token, webhookURL string, charts Charts, insights Insights) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Msg("telegram: webhook set")

	return &Bot{api: api, h: NewHandlers(api, charts, insights)}, nil
}

// Handlers exposes the command handlers, e.g. for scheduled posts.
func (b *Bot) Handlers() *Handlers { return b.h }

// WebhookHandler decodes updates and handles messages in the background.
// It is registered at /telegram/webhook.
func WebhookHandler(h *Handlers) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		if m := update.Message; m != nil && m.Chat != nil {
			entry := log.Info().Int64("chat_id", m.Chat.ID).Str("text", m.Text)
			if m.From != nil {
				entry = entry.Int64("from", m.From.ID)
			}
			entry.Msg("webhook: message")
			go h.HandleMessage(m)
		} else {
			log.Debug().Int("update_id", update.UpdateID).Msg("webhook: non-message update received")
		}
		w.WriteHeader(http.StatusOK)
	})
}
