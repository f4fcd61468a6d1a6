package fsm

import (
	"strconv"
	"strings"

	"kiomedine-order-bot/internal/pkg/model"
)

// ChatIDArg parses the callback suffix after prefix as a chat id, as in
// "verify_<chatId>".
func ChatIDArg(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// OrderIDArg parses "<prefix><chatId>_<timestamp>".
func OrderIDArg(data, prefix string) (model.OrderID, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return model.OrderID{}, false
	}
	id, err := model.ParseOrderID(rest)
	if err != nil {
		return model.OrderID{}, false
	}
	return id, true
}

// Reply returns a text handler that only answers with text and keeps the
// conversation where it is.
func Reply[T any](text string) TextHandler[T] {
	return func(ctx *ConversationContext[T], _ string) error {
		return ctx.SendMessage(text, nil)
	}
}
