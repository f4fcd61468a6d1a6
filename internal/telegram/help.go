package telegram

import (
	"context"

	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"github.com/go-telegram/bot/models"
)

// SetupHelp registers /start, the main menu buttons that need no
// conversation, and the fallbacks.
func SetupHelp(h *handlers) {
	h.router.HandleCommand("start", h.handleStartCmd)
	h.router.HandleText(presentation.BtnHistory, h.handleHistory)
	h.router.HandleText(presentation.BtnContactOperator, h.handleContactOperator)
	h.router.HandleText(presentation.BtnCancel, h.handleCancel)
	h.router.HandleText(presentation.BtnBackToUser, h.handleBackToMenu)

	h.router.Fallback(func(ctx context.Context, ev fsm.Event) error {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.MainMenuMsg(), presentation.MainMenuKbd())
		return err
	})
	h.router.UnknownCommand(func(ctx context.Context, ev fsm.Event) error {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UnknownCommandMsg(), presentation.MainMenuKbd())
		return err
	})
	h.router.UnknownCallback(func(ctx context.Context, ev fsm.Event) error {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.UnknownActionMsg(), false)
	})
}

func (h *handlers) handleStartCmd(ctx context.Context, ev fsm.Event) error {
	if h.Users.IsAdmin(ev.ChatID) || h.Users.IsVerified(ev.ChatID) {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.WelcomeMsg(ev.Sender.FirstName), presentation.MainMenuKbd())
		return err
	}

	h.Users.Remember(ev.ChatID, ev.Sender)

	v, resumed := h.Conversations.StartVerification(ev.ChatID, ev.Sender.Username)
	if resumed {
		_, err := h.msg.Send(ctx, ev.ChatID, verificationPrompt(v.Step), &models.ReplyKeyboardRemove{RemoveKeyboard: true})
		return err
	}
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.AskFullNameMsg(), &models.ReplyKeyboardRemove{RemoveKeyboard: true})
	return err
}

func (h *handlers) handleHistory(ctx context.Context, ev fsm.Event) error {
	orders := h.Orders.History(ctx, ev.ChatID)
	if len(orders) == 0 {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.EmptyHistoryMsg(), nil)
		return err
	}
	return h.sendLong(ctx, ev.ChatID, presentation.HistoryMsg(orders), nil)
}

func (h *handlers) handleContactOperator(ctx context.Context, ev fsm.Event) error {
	if _, err := h.msg.Send(ctx, ev.ChatID, presentation.ContactOperatorMsg(), nil); err != nil {
		return err
	}
	return h.msg.SendContact(ctx, ev.ChatID, h.Shop.OperatorPhone, h.Shop.OperatorName)
}

// handleCancel drops whatever the chat was in the middle of.
func (h *handlers) handleCancel(ctx context.Context, ev fsm.Event) error {
	cancelled := false
	if _, ok := h.Conversations.TakeOrder(ev.ChatID); ok {
		cancelled = true
	}
	if h.Conversations.InQuestionMode(ev.ChatID) {
		h.Conversations.LeaveQuestionMode(ev.ChatID)
		cancelled = true
	}
	if h.Users.IsAdmin(ev.ChatID) {
		if _, ok := h.Conversations.AdminTask(ev.ChatID); ok {
			h.Conversations.ClearAdminTask(ev.ChatID)
			cancelled = true
		}
	}

	text := presentation.NothingToCancelMsg()
	if cancelled {
		text = presentation.CancelledMsg()
	}
	_, err := h.msg.Send(ctx, ev.ChatID, text, presentation.MainMenuKbd())
	return err
}

func (h *handlers) handleBackToMenu(ctx context.Context, ev fsm.Event) error {
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.BackToMainMsg(), presentation.MainMenuKbd())
	return err
}
