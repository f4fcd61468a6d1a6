package fsm

import (
	"context"

	"github.com/go-telegram/bot/models"
)

type ConversationContext[T any] struct {
	Ctx       context.Context
	Messenger Messenger
	Event     Event
	ChatID    int64
	Data      T
	save      func(T)
	drop      func(chatID int64)
}

func (c *ConversationContext[T]) SendMessage(text string, markup models.ReplyMarkup) error {
	_, err := c.Messenger.Send(c.Ctx, c.ChatID, text, markup)
	return err
}

// Answer acknowledges the callback that produced the event, if any.
func (c *ConversationContext[T]) Answer(text string, alert bool) error {
	if c.Event.Callback == nil {
		return nil
	}
	return c.Messenger.AnswerCallback(c.Ctx, c.Event.Callback.ID, text, alert)
}

func (c *ConversationContext[T]) Transition(data T) {
	c.Data = data
	c.save(data)
}

func (c *ConversationContext[T]) Complete() {
	c.drop(c.ChatID)
}
