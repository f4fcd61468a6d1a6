package telegram

import (
	"context"
	"strings"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"go.uber.org/zap"
)

type OrderCtx = fsm.ConversationContext[conversation.OrderDraft]

func SetupOrderCreationFlow(h *handlers) {
	store := h.Conversations
	binding := fsm.Binding[conversation.OrderDraft, conversation.OrderStep]{
		Load: store.Order,
		Save: func(d conversation.OrderDraft) { store.SaveOrder(d) },
		Drop: store.DropOrder,
		Step: func(d conversation.OrderDraft) conversation.OrderStep { return d.Step },
	}

	h.router.HandleText(presentation.BtnMakeOrder, h.handleMakeOrder)

	fsm.Chain(h.router, "order", fsm.PriorityRelaxed, binding).
		Then(conversation.OrderAwaitingQuantity).
		OnText(func(ctx *OrderCtx, text string) error {
			qty, ok := parseQuantity(text)
			if !ok {
				return ctx.SendMessage(presentation.InvalidQuantityMsg(), nil)
			}
			ctx.Data.Quantity = qty
			ctx.Data.Step = conversation.OrderAwaitingCity
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskCityMsg(), nil)
		}).
		Then(conversation.OrderAwaitingCity).
		OnText(func(ctx *OrderCtx, text string) error {
			ctx.Data.City = strings.TrimSpace(text)
			ctx.Data.Step = conversation.OrderAwaitingRecipient
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskRecipientMsg(), nil)
		}).
		Then(conversation.OrderAwaitingRecipient).
		OnText(func(ctx *OrderCtx, text string) error {
			ctx.Data.RecipientName = strings.TrimSpace(text)
			ctx.Data.Step = conversation.OrderAwaitingBranch
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskBranchMsg(), nil)
		}).
		Then(conversation.OrderAwaitingBranch).
		OnText(func(ctx *OrderCtx, text string) error {
			ctx.Data.Branch = strings.TrimSpace(text)
			ctx.Data.Step = conversation.OrderAwaitingPhone
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskOrderPhoneMsg(), nil)
		}).
		Then(conversation.OrderAwaitingPhone).
		OnText(func(ctx *OrderCtx, text string) error {
			if !validPhone(text) {
				return ctx.SendMessage(presentation.InvalidOrderPhoneMsg(), nil)
			}
			ctx.Data.Phone = strings.TrimSpace(text)
			ctx.Data.Step = conversation.OrderAwaitingPayment
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskPaymentMethodMsg(), presentation.PaymentMethodKbd())
		}).
		Then(conversation.OrderAwaitingPayment).
		OnCallback(func(ctx *OrderCtx, data string) error {
			switch data {
			case presentation.CallbackPaymentCOD:
				return h.submitOrder(ctx, model.PaymentCashOnDelivery)
			case presentation.CallbackPaymentPrepaid:
				return h.submitOrder(ctx, model.PaymentPrepaid)
			default:
				return fsm.ErrIncompatibleHandler
			}
		}).
		OnText(func(ctx *OrderCtx, _ string) error {
			return ctx.SendMessage(presentation.AskPaymentMethodMsg(), presentation.PaymentMethodKbd())
		})

	// A payment button pressed after the draft is gone.
	h.router.HandleCallback("payment_", func(ctx context.Context, ev fsm.Event) error {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.OrderExpiredMsg(), true)
	})
}

func (h *handlers) handleMakeOrder(ctx context.Context, ev fsm.Event) error {
	h.Conversations.LeaveQuestionMode(ev.ChatID)
	h.Conversations.StartOrder(ev.ChatID)
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.AskQuantityMsg(), presentation.MainMenuKbd())
	return err
}

// submitOrder turns the draft into a pending order. The order is kept and
// announced to admins even when the store rejects it.
func (h *handlers) submitOrder(ctx *OrderCtx, method model.PaymentMethod) error {
	ctx.Complete()

	d := ctx.Data
	now := h.Conversations.Now()
	o := model.Order{
		ID:            model.OrderID{ChatID: ctx.ChatID, Timestamp: now.UnixMilli()},
		Quantity:      d.Quantity,
		City:          d.City,
		RecipientName: d.RecipientName,
		Branch:        d.Branch,
		Phone:         d.Phone,
		PaymentMethod: method,
		CreatedAt:     now,
	}

	customer := h.Users.AppendOrder(o.ID, ctx.Event.Sender)
	o, err := h.Orders.Submit(ctx.Ctx, o, customer)

	if answerErr := ctx.Answer("", false); answerErr != nil {
		zap.S().Errorw("Failed to answer callback", "error", answerErr, "chatID", ctx.ChatID)
	}
	if cb := ctx.Event.Callback; cb != nil {
		if editErr := h.msg.EditKeyboard(ctx.Ctx, ctx.ChatID, cb.MessageID, nil); editErr != nil {
			zap.S().Warnw("Failed to remove payment keyboard", "error", editErr, "chatID", ctx.ChatID)
		}
	}

	if sendErr := ctx.SendMessage(presentation.OrderSubmittedMsg(o, h.Shop.PaymentDetails), presentation.MainMenuKbd()); sendErr != nil {
		zap.S().Errorw("Failed to confirm order", "error", sendErr, "orderID", o.ID.String())
	}

	if err != nil {
		if !order.IsStoreFailure(err) {
			return err
		}
		h.notifyAdmins(ctx.Ctx, presentation.OrderStoreFailedMsg(customer.Username, err), nil)
	}

	sent := h.notifyAdmins(ctx.Ctx,
		presentation.AdminNewOrderMsg(o, customer, h.Shop.PaymentDetails),
		presentation.OrderActionsKbd(o))
	h.Orders.SetAdminMessages(o.ID, sent)
	return nil
}
