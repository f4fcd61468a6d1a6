package fsm

import (
	"context"
	"io"

	"github.com/go-telegram/bot/models"
)

type MediaKind int

const (
	MediaPhoto MediaKind = iota + 1
	MediaDocument
)

// Media is an outbound photo or document. FileID re-sends a file Telegram
// already has; otherwise Reader is uploaded under Filename.
type Media struct {
	Kind     MediaKind
	FileID   string
	Reader   io.Reader
	Filename string
	Caption  string
	Markup   models.ReplyMarkup
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	// Send returns the id of the sent message.
	Send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error)
	// SendMedia returns the Telegram file id of the delivered file.
	SendMedia(ctx context.Context, chatID int64, media Media) (string, error)
	EditKeyboard(ctx context.Context, chatID int64, messageID int, kbd *models.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	SendContact(ctx context.Context, chatID int64, phone, name string) error
}
