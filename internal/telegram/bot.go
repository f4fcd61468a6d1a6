package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/pkg/config"
	"kiomedine-order-bot/internal/pkg/metrics"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/media"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Bot is the Telegram transport. It turns updates into router events and
// implements the outbound side the handlers talk to.
type Bot struct {
	api    *bot.Bot
	cfg    *config.TelegramCfg
	router *fsm.Router
}

func NewBot(cfg *config.TelegramCfg, httpClient *http.Client) (*Bot, error) {
	b := &Bot{cfg: cfg}
	b.router = fsm.NewRouter(b)

	opts := []bot.Option{
		bot.WithDefaultHandler(b.handleUpdate),
		bot.WithHTTPClient(cfg.PollTimeout, httpClient),
	}
	if cfg.Mode == config.ModeWebhook && cfg.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}

	api, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot instance: %w", err)
	}
	b.api = api
	return b, nil
}

// Setup registers every handler against s.
func (b *Bot) Setup(s *Services) {
	Setup(b.router, s)
}

// Start receives updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if b.cfg.Mode == config.ModeWebhook {
		if _, err := b.api.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         b.cfg.WebhookURL,
			SecretToken: b.cfg.WebhookSecret,
		}); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		zap.S().Infow("Started Telegram bot", "mode", config.ModeWebhook)
		b.api.StartWebhook(ctx)
		return nil
	}

	if _, err := b.api.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		zap.S().Warnw("Failed to delete webhook before polling", "error", err)
	}
	zap.S().Infow("Started Telegram bot", "mode", config.ModePolling)
	b.api.Start(ctx)
	return nil
}

// WebhookHandler serves webhook deliveries when the bot runs in webhook mode.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.api.WebhookHandler()
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	ev, kind, ok := eventFromUpdate(update)
	if !ok {
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
		return
	}
	metrics.UpdatesTotal.WithLabelValues(kind).Inc()

	if err := b.router.Dispatch(ctx, ev); err != nil {
		zap.S().Errorw("Failed to handle update", "error", err, "chatID", ev.ChatID, "kind", kind)
		if _, sendErr := b.Send(ctx, ev.ChatID, presentation.GenericErrorMsg(), nil); sendErr != nil {
			zap.S().Errorw("Failed to report error to chat", "error", sendErr, "chatID", ev.ChatID)
		}
	}
}

func eventFromUpdate(update *models.Update) (fsm.Event, string, bool) {
	if cq := update.CallbackQuery; cq != nil {
		ev := fsm.Event{
			ChatID: cq.From.ID,
			Callback: &fsm.Callback{
				ID:   cq.ID,
				Data: cq.Data,
			},
			Sender: model.Sender{ID: cq.From.ID, FirstName: cq.From.FirstName, Username: cq.From.Username},
		}
		if msg := cq.Message.Message; msg != nil {
			ev.ChatID = msg.Chat.ID
			ev.MessageID = msg.ID
			ev.Callback.MessageID = msg.ID
		}
		return ev, "callback", true
	}

	msg := update.Message
	if msg == nil {
		return fsm.Event{}, "", false
	}
	ev := fsm.Event{
		ChatID:         msg.Chat.ID,
		MessageID:      msg.ID,
		Text:           msg.Text,
		Caption:        msg.Caption,
		PhotoFileID:    media.PhotoFileID(msg),
		DocumentFileID: media.DocumentFileID(msg),
	}
	if msg.From != nil {
		ev.Sender = model.Sender{ID: msg.From.ID, FirstName: msg.From.FirstName, Username: msg.From.Username}
	}

	switch {
	case strings.HasPrefix(msg.Text, "/"):
		return ev, "command", true
	case media.HasMedia(msg):
		return ev, "media", true
	case msg.Text != "":
		return ev, "text", true
	default:
		return fsm.Event{}, "", false
	}
}

func (b *Bot) Send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	disabled := true
	msg, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		ReplyMarkup:        markup,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (b *Bot) SendMedia(ctx context.Context, chatID int64, m fsm.Media) (string, error) {
	var file models.InputFile = &models.InputFileString{Data: m.FileID}
	if m.FileID == "" {
		file = &models.InputFileUpload{Filename: m.Filename, Data: m.Reader}
	}

	var (
		msg *models.Message
		err error
	)
	switch m.Kind {
	case fsm.MediaPhoto:
		msg, err = b.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       file,
			Caption:     m.Caption,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: m.Markup,
		})
	case fsm.MediaDocument:
		msg, err = b.api.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:      chatID,
			Document:    file,
			Caption:     m.Caption,
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: m.Markup,
		})
	default:
		return "", fmt.Errorf("unsupported media kind %d", m.Kind)
	}
	if err != nil {
		return "", err
	}
	return media.UploadedFileID(msg), nil
}

// EditKeyboard replaces the inline keyboard of a sent message. A nil kbd
// removes it.
func (b *Bot) EditKeyboard(ctx context.Context, chatID int64, messageID int, kbd *models.InlineKeyboardMarkup) error {
	if kbd == nil {
		kbd = &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}}
	}
	_, err := b.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: kbd,
	})
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return err
}

func (b *Bot) SendContact(ctx context.Context, chatID int64, phone, name string) error {
	_, err := b.api.SendContact(ctx, &bot.SendContactParams{
		ChatID:      chatID,
		PhoneNumber: phone,
		FirstName:   name,
	})
	return err
}

// BroadcastSender delivers broadcast payloads through a messenger.
type BroadcastSender struct {
	msg fsm.Messenger
}

func NewBroadcastSender(m fsm.Messenger) *BroadcastSender {
	return &BroadcastSender{msg: m}
}

func (s *BroadcastSender) Deliver(ctx context.Context, chatID int64, p conversation.BroadcastPayload) error {
	var caption string
	if p.Text != "" {
		caption = presentation.BroadcastTextMsg(p.Text)
	}

	switch {
	case p.PhotoFileID != "":
		_, err := s.msg.SendMedia(ctx, chatID, fsm.Media{Kind: fsm.MediaPhoto, FileID: p.PhotoFileID, Caption: caption})
		return err
	case p.DocumentFileID != "":
		_, err := s.msg.SendMedia(ctx, chatID, fsm.Media{Kind: fsm.MediaDocument, FileID: p.DocumentFileID, Caption: caption})
		return err
	default:
		_, err := s.msg.Send(ctx, chatID, caption, nil)
		return err
	}
}
