package telegram

import (
	"context"
	"strings"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"
)

const questionAwaitingText = "awaiting_text"

type questionState struct {
	ChatID int64
}

type QuestionCtx = fsm.ConversationContext[questionState]

func SetupQuestionFlow(h *handlers) {
	store := h.Conversations
	binding := fsm.Binding[questionState, string]{
		Load: func(chatID int64) (questionState, bool) {
			return questionState{ChatID: chatID}, store.InQuestionMode(chatID)
		},
		Save: func(s questionState) { store.EnterQuestionMode(s.ChatID) },
		Drop: store.LeaveQuestionMode,
		Step: func(questionState) string { return questionAwaitingText },
	}

	h.router.HandleText(presentation.BtnAskQuestion, h.handleAskQuestion)

	fsm.Chain(h.router, "question", fsm.PriorityRelaxed, binding).
		Then(questionAwaitingText).
		OnText(func(ctx *QuestionCtx, text string) error {
			text = strings.TrimSpace(text)
			if text == "" {
				return ctx.SendMessage(presentation.AskQuestionMsg(), nil)
			}
			ctx.Complete()

			q := conversation.Question{
				ChatID:   ctx.ChatID,
				Username: ctx.Event.Sender.Username,
				Name:     ctx.Event.Sender.FirstName,
				Text:     text,
			}
			if u, ok := h.Users.Get(ctx.ChatID); ok {
				if u.Name != "" {
					q.Name = u.Name
				}
				q.Town = u.Town
			}
			store.PushQuestion(q)

			if err := ctx.SendMessage(presentation.QuestionSentMsg(), presentation.MainMenuKbd()); err != nil {
				return err
			}
			h.notifyAdmins(ctx.Ctx, presentation.AdminQuestionMsg(q), presentation.ReplyKbd(ctx.ChatID))
			return nil
		})
}

func (h *handlers) handleAskQuestion(ctx context.Context, ev fsm.Event) error {
	h.Conversations.DropOrder(ev.ChatID)
	h.Conversations.EnterQuestionMode(ev.ChatID)
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.AskQuestionMsg(), presentation.MainMenuKbd())
	return err
}
