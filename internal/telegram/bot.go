package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Bot struct {
	h   *Handlers
	log zerolog.Logger
	wg  sync.WaitGroup
}

// NewBot connects to the Bot API and points its webhook at webhookURL.
func NewBot(token, webhookURL string, deps Deps, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("component", "telegram").Str("bot", api.Self.UserName).Str("webhook", webhookURL).Msg("webhook set")

	return newBot(NewHandlers(api, deps, log), log), nil
}

func newBot(h *Handlers, log zerolog.Logger) *Bot {
	return &Bot{h: h, log: log.With().Str("component", "telegram").Logger()}
}

// WebhookHandler acknowledges an update at once and handles it in the background.
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		b.log.Debug().Int("update_id", update.UpdateID).Msg("non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}
	b.log.Debug().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text).Msg("webhook message")

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.Error().Interface("panic", rec).Msg("handler panicked")
			}
		}()
		b.h.HandleMessage(update.Message)
	}()
	w.WriteHeader(http.StatusOK)
}

// Wait blocks until in-flight updates finish or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
