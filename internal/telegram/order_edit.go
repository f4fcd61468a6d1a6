package telegram

import (
	"context"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"go.uber.org/zap"
)

// transition applies one admin action to an order.
type transition func(ctx context.Context, id model.OrderID, operatorID int64) (model.Order, error)

// transitionReplies builds the texts sent after a successful transition.
type transitionReplies struct {
	callback string
	user     func() string
	admin    func(summary string) string
}

func SetupOrderEdit(h *handlers) {
	h.router.HandleCallback(presentation.CallbackAccept, h.adminOnly(h.orderAction(
		presentation.CallbackAccept,
		h.Orders.Accept,
		transitionReplies{
			user:  presentation.OrderAcceptedUserMsg,
			admin: presentation.OrderAcceptedAdminMsg,
		},
	)))
	h.router.HandleCallback(presentation.CallbackCancel, h.adminOnly(h.orderAction(
		presentation.CallbackCancel,
		h.Orders.Cancel,
		transitionReplies{
			callback: presentation.CanceledCallbackMsg(),
			user:     presentation.OrderCanceledUserMsg,
			admin:    presentation.OrderCanceledAdminMsg,
		},
	)))
	h.router.HandleCallback(presentation.CallbackPaid, h.adminOnly(h.orderAction(
		presentation.CallbackPaid,
		func(ctx context.Context, id model.OrderID, _ int64) (model.Order, error) {
			return h.Orders.MarkPaid(ctx, id)
		},
		transitionReplies{
			user:  presentation.OrderPaidUserMsg,
			admin: presentation.OrderPaidAdminMsg,
		},
	)))
	h.router.HandleCallback(presentation.CallbackTTN, h.adminOnly(h.handleTTNCallback))
	h.router.HandleCommand("send", h.adminOnly(h.handleSendCmd))
}

// orderAction wraps a status transition into a callback handler. A refused
// transition is reported to the admin only. A transition whose mirror write
// failed stays applied, but only the admins hear about it.
func (h *handlers) orderAction(prefix string, apply transition, replies transitionReplies) fsm.HandlerFunc {
	return func(ctx context.Context, ev fsm.Event) error {
		id, ok := fsm.OrderIDArg(ev.Callback.Data, prefix)
		if !ok {
			return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.UnknownActionMsg(), true)
		}

		o, err := apply(ctx, id, ev.ChatID)
		if err != nil && !order.IsStoreFailure(err) {
			return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.OrderErrorMsg(err), true)
		}

		h.answer(ctx, ev, replies.callback, false)
		summary := h.summary(o)
		h.refreshKeyboards(ctx, o)
		if err != nil {
			h.warnStoreFailure(ctx, summary, err)
			return nil
		}

		if _, err := h.msg.Send(ctx, o.ID.ChatID, replies.user(), nil); err != nil {
			zap.S().Errorw("Failed to notify customer", "error", err, "orderID", o.ID.String())
		}
		h.notifyAdmins(ctx, replies.admin(summary), nil)
		return nil
	}
}

// handleTTNCallback arms the admin's next text as the tracking number.
func (h *handlers) handleTTNCallback(ctx context.Context, ev fsm.Event) error {
	id, ok := fsm.OrderIDArg(ev.Callback.Data, presentation.CallbackTTN)
	if !ok {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.UnknownActionMsg(), true)
	}

	o, err := h.Orders.CheckTTNAllowed(id)
	if err != nil {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.OrderErrorMsg(err), true)
	}

	h.answer(ctx, ev, "", false)
	h.Conversations.SetAdminTask(ev.ChatID, conversation.TTNTask{Order: o.ID})
	_, err = h.msg.Send(ctx, ev.ChatID, presentation.AskTTNMsg(h.summary(o)), nil)
	return err
}

// handleSendCmd confirms delivery of the latest order of a chat, accepting
// it first when it is still pending.
func (h *handlers) handleSendCmd(ctx context.Context, ev fsm.Event) error {
	_, args, _ := ev.Command()
	targetID, ok := parseChatID(args)
	if !ok {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UsageMsg("/send <chatId>"), nil)
		return err
	}

	history := h.Orders.History(ctx, targetID)
	if len(history) == 0 {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.DeliveryNotFoundMsg(), nil)
		return err
	}
	latest := history[len(history)-1]

	switch latest.Status {
	case model.StatusCanceled:
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.DeliveryCanceledMsg(), nil)
		return err

	case model.StatusPending:
		o, err := h.Orders.Accept(ctx, latest.ID, ev.ChatID)
		if err != nil && !order.IsStoreFailure(err) {
			_, sendErr := h.msg.Send(ctx, ev.ChatID, presentation.OrderErrorMsg(err), nil)
			return sendErr
		}
		h.refreshKeyboards(ctx, o)
		if err != nil {
			h.warnStoreFailure(ctx, h.summary(o), err)
			return nil
		}

		if _, err := h.msg.Send(ctx, targetID, presentation.DeliveryAcceptedUserMsg(), nil); err != nil {
			zap.S().Errorw("Failed to notify customer", "error", err, "chatID", targetID)
		}
		customer, _ := h.Users.Get(targetID)
		h.notifyAdmins(ctx, presentation.DeliveryAcceptedAdminMsg(customer.Username), nil)
		return nil

	default:
		if _, err := h.msg.Send(ctx, targetID, presentation.DeliveryConfirmedUserMsg(), nil); err != nil {
			zap.S().Errorw("Failed to notify customer", "error", err, "chatID", targetID)
		}
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.DeliveryConfirmedAdminMsg(), nil)
		return err
	}
}
