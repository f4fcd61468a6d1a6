package telegram

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"kiomedine-order-bot/internal/broadcast"
	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"go.uber.org/zap"
)

const (
	taskReply     = "reply"
	taskTTN       = "ttn"
	taskBroadcast = "broadcast"
)

// adminTaskState is the pending task of one admin chat.
type adminTaskState struct {
	AdminID int64
	Task    conversation.AdminTask
}

type AdminTaskCtx = fsm.ConversationContext[adminTaskState]

func taskKind(t conversation.AdminTask) string {
	switch t.(type) {
	case conversation.ReplyTask:
		return taskReply
	case conversation.TTNTask:
		return taskTTN
	case conversation.BroadcastTask:
		return taskBroadcast
	default:
		return ""
	}
}

func SetupAdminTasks(h *handlers) {
	store := h.Conversations
	binding := fsm.Binding[adminTaskState, string]{
		Load: func(chatID int64) (adminTaskState, bool) {
			if !h.Users.IsAdmin(chatID) {
				return adminTaskState{}, false
			}
			task, ok := store.AdminTask(chatID)
			return adminTaskState{AdminID: chatID, Task: task}, ok
		},
		Save: func(s adminTaskState) { store.SetAdminTask(s.AdminID, s.Task) },
		Drop: store.ClearAdminTask,
		Step: func(s adminTaskState) string { return taskKind(s.Task) },
	}

	fsm.Chain(h.router, "admin_task", fsm.PriorityStrict, binding).
		Then(taskReply).
		OnText(func(ctx *AdminTaskCtx, text string) error {
			task := ctx.Data.Task.(conversation.ReplyTask)
			ctx.Complete()
			return h.sendOperatorReply(ctx.Ctx, ctx.ChatID, task.TargetChatID, text)
		}).
		Then(taskTTN).
		OnText(h.handleTTNText).
		Then(taskBroadcast).
		On(func(ctx *AdminTaskCtx) error {
			ev := ctx.Event
			if ev.IsCallback() {
				return fsm.ErrIncompatibleHandler
			}
			task := ctx.Data.Task.(conversation.BroadcastTask)

			var reply string
			switch {
			case ev.PhotoFileID != "":
				task.Payload.PhotoFileID = ev.PhotoFileID
				task.Payload.DocumentFileID = ""
				reply = presentation.BroadcastPhotoSavedMsg()
			case ev.DocumentFileID != "":
				task.Payload.DocumentFileID = ev.DocumentFileID
				task.Payload.PhotoFileID = ""
				reply = presentation.BroadcastDocumentSavedMsg()
			case strings.TrimSpace(ev.Text) != "":
				task.Payload.Text = ev.Text
				reply = presentation.BroadcastTextSavedMsg()
			default:
				return fsm.ErrIncompatibleHandler
			}
			if ev.HasMedia() && ev.Caption != "" {
				task.Payload.Text = ev.Caption
			}
			if limit, ok := broadcastFits(task.Payload); !ok {
				return ctx.SendMessage(presentation.BroadcastTooLongMsg(limit), nil)
			}

			ctx.Transition(adminTaskState{AdminID: ctx.ChatID, Task: task})
			return ctx.SendMessage(reply, nil)
		})

	h.router.HandleCallback(presentation.CallbackReply, h.adminOnly(h.armReply(presentation.CallbackReply)))
	h.router.HandleCallback(presentation.CallbackMessage, h.adminOnly(h.armReply(presentation.CallbackMessage)))
	h.router.HandleCommand("reply", h.adminOnly(h.handleReplyCmd))
	h.router.HandleCommand("broadcast", h.adminOnly(h.handleBroadcastCmd))
	h.router.HandleText(presentation.BtnBroadcast, h.adminOnly(h.handleBroadcastCmd))
	h.router.HandleCommand("sendbroadcast", h.adminOnly(h.handleSendBroadcastCmd))
}

// broadcastFits reports whether p can go out as one message. Media caps the
// text at the caption limit.
func broadcastFits(p conversation.BroadcastPayload) (int, bool) {
	limit := presentation.BroadcastTextLimit(p.PhotoFileID != "" || p.DocumentFileID != "")
	return limit, utf8.RuneCountInString(p.Text) <= limit
}

// handleTTNText attaches the admin's text to the order the task points at.
// An empty number keeps the task open for another try.
func (h *handlers) handleTTNText(ctx *AdminTaskCtx, text string) error {
	task := ctx.Data.Task.(conversation.TTNTask)

	o, err := h.Orders.AttachTTN(ctx.Ctx, task.Order, strings.TrimSpace(text))
	if errors.Is(err, order.ErrEmptyTTN) {
		return ctx.SendMessage(presentation.OrderErrorMsg(err), nil)
	}
	ctx.Complete()

	if err != nil && !order.IsStoreFailure(err) {
		return ctx.SendMessage(presentation.OrderErrorMsg(err), nil)
	}
	h.refreshKeyboards(ctx.Ctx, o)
	if err != nil {
		h.warnStoreFailure(ctx.Ctx, h.summary(o), err)
		return nil
	}

	name := "Користувач"
	if customer, ok := h.Users.Get(o.ID.ChatID); ok && customer.Name != "" {
		name = customer.Name
	}
	if _, err := h.msg.Send(ctx.Ctx, o.ID.ChatID, presentation.TTNUserMsg(name, o, h.amount(o.Quantity)), nil); err != nil {
		zap.S().Errorw("Failed to send tracking number", "error", err, "orderID", o.ID.String())
	}
	h.notifyAdmins(ctx.Ctx, presentation.TTNAdminMsg(name, o), nil)
	return nil
}

func (h *handlers) armReply(prefix string) fsm.HandlerFunc {
	return func(ctx context.Context, ev fsm.Event) error {
		targetID, ok := fsm.ChatIDArg(ev.Callback.Data, prefix)
		if !ok {
			return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.UnknownActionMsg(), true)
		}
		h.answer(ctx, ev, "", false)
		h.Conversations.SetAdminTask(ev.ChatID, conversation.ReplyTask{TargetChatID: targetID})
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.AskReplyMsg(targetID), nil)
		return err
	}
}

func (h *handlers) handleReplyCmd(ctx context.Context, ev fsm.Event) error {
	_, args, _ := ev.Command()
	idStr, text, _ := strings.Cut(args, " ")
	targetID, ok := parseChatID(idStr)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UsageMsg("/reply <chatId> <text>"), nil)
		return err
	}
	return h.sendOperatorReply(ctx, ev.ChatID, targetID, text)
}

func (h *handlers) sendOperatorReply(ctx context.Context, adminID, targetID int64, text string) error {
	if _, err := h.msg.Send(ctx, targetID, presentation.OperatorMessageMsg(text), nil); err != nil {
		return err
	}
	h.Conversations.ResolveQuestion(targetID)
	_, err := h.msg.Send(ctx, adminID, presentation.ReplySentMsg(), nil)
	return err
}

func (h *handlers) handleBroadcastCmd(ctx context.Context, ev fsm.Event) error {
	h.Conversations.SetAdminTask(ev.ChatID, conversation.BroadcastTask{})
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.BroadcastStartMsg(), nil)
	return err
}

func (h *handlers) handleSendBroadcastCmd(ctx context.Context, ev fsm.Event) error {
	if p, running := h.Broadcasts.Running(ev.ChatID); running {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.BroadcastRunningMsg(p.Delivered, p.Failed, p.Total), nil)
		return err
	}

	t, _ := h.Conversations.AdminTask(ev.ChatID)
	task, ok := t.(conversation.BroadcastTask)
	if !ok {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.BroadcastNotStartedMsg(), nil)
		return err
	}
	if task.Payload.Empty() {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.BroadcastEmptyMsg(), nil)
		return err
	}

	var recipients []int64
	for _, u := range h.Users.All() {
		if u.ChatID != 0 {
			recipients = append(recipients, u.ChatID)
		}
	}
	h.Conversations.ClearAdminTask(ev.ChatID)

	adminID := ev.ChatID
	h.Broadcasts.Start(ctx, adminID, recipients, task.Payload, func(r broadcast.Report) {
		if _, err := h.msg.Send(ctx, adminID, presentation.BroadcastReportMsg(r.Delivered, r.Failed), nil); err != nil {
			zap.S().Errorw("Failed to report broadcast", "error", err, "adminID", adminID)
		}
	})

	_, err := h.msg.Send(ctx, ev.ChatID, presentation.BroadcastStartedMsg(len(recipients)), nil)
	return err
}
