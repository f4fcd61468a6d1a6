package telegram

import (
	"context"
	"fmt"
	"runtime/debug"

	"kiomedine-order-bot/internal/broadcast"
	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/file"
	"kiomedine-order-bot/internal/info"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/metrics"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"
	"kiomedine-order-bot/internal/user"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Shop holds the commercial settings shown to customers.
type Shop struct {
	UnitPrice      decimal.Decimal
	Currency       string
	PaymentDetails string
	OperatorPhone  string
	OperatorName   string
}

// Services are the collaborators the update handlers act on.
type Services struct {
	Users         *user.Directory
	Orders        order.Service
	Conversations *conversation.Store
	Broadcasts    *broadcast.Service
	Catalogue     *info.Catalogue
	Files         file.Service
	UsersSource   user.Source
	Shop          Shop
}

type handlers struct {
	*Services
	router *fsm.Router
	msg    fsm.Messenger
}

// Setup registers every command, menu button, callback and conversation
// flow on router.
func Setup(router *fsm.Router, s *Services) {
	h := &handlers{
		Services: s,
		router:   router,
		msg:      router.Messenger(),
	}

	router.Use(recoverMiddleware(), h.accessGate())

	SetupHelp(h)
	SetupVerificationFlow(h)
	SetupOrderCreationFlow(h)
	SetupOrderEdit(h)
	SetupAdminTasks(h)
	SetupQuestionFlow(h)
	SetupOrderViewer(h)
	SetupInfoMenu(h)
}

// accessGate lets admins and verified chats through. Everyone else may only
// send /start and answer an open verification.
func (h *handlers) accessGate() fsm.Middleware {
	return func(next fsm.HandlerFunc) fsm.HandlerFunc {
		return func(ctx context.Context, ev fsm.Event) error {
			if h.Users.IsAdmin(ev.ChatID) || h.Users.IsVerified(ev.ChatID) {
				return next(ctx, ev)
			}
			if name, _, ok := ev.Command(); ok && name == "start" {
				return next(ctx, ev)
			}

			_, _, isCommand := ev.Command()
			v, open := h.Conversations.Verification(ev.ChatID)
			if open && !isCommand {
				if handled, err := h.router.DispatchFlows(ctx, ev); handled {
					return err
				}
				v, open = h.Conversations.Verification(ev.ChatID)
			}

			if ev.IsCallback() {
				return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.NotVerifiedMsg(), true)
			}
			if open {
				_, err := h.msg.Send(ctx, ev.ChatID, verificationPrompt(v.Step), nil)
				return err
			}
			_, err := h.msg.Send(ctx, ev.ChatID, presentation.NotVerifiedMsg(), nil)
			return err
		}
	}
}

func recoverMiddleware() fsm.Middleware {
	return func(next fsm.HandlerFunc) fsm.HandlerFunc {
		return func(ctx context.Context, ev fsm.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					metrics.HandlerPanicsTotal.Inc()
					zap.S().Errorw("Recovered from panic in update handler",
						"panic", r, "chatID", ev.ChatID, "stack", string(debug.Stack()))
					err = fmt.Errorf("panic while handling update: %v", r)
				}
			}()
			return next(ctx, ev)
		}
	}
}

// adminOnly refuses non-admin senders without touching any state.
func (h *handlers) adminOnly(next fsm.HandlerFunc) fsm.HandlerFunc {
	return func(ctx context.Context, ev fsm.Event) error {
		if h.Users.IsAdmin(ev.ChatID) {
			return next(ctx, ev)
		}
		if ev.IsCallback() {
			return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.AdminOnlyMsg(), true)
		}
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.NoAdminAccessMsg(), nil)
		return err
	}
}
