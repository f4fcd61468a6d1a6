package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/pkg/metrics"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"
	"kiomedine-order-bot/internal/user"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type VerificationCtx = fsm.ConversationContext[conversation.Verification]

func SetupVerificationFlow(h *handlers) {
	store := h.Conversations
	binding := fsm.Binding[conversation.Verification, conversation.VerificationStep]{
		Load: func(chatID int64) (conversation.Verification, bool) {
			if h.Users.IsAdmin(chatID) || h.Users.IsVerified(chatID) {
				return conversation.Verification{}, false
			}
			return store.Verification(chatID)
		},
		Save: func(v conversation.Verification) { store.SaveVerification(v) },
		Drop: store.DropVerification,
		Step: func(v conversation.Verification) conversation.VerificationStep { return v.Step },
	}

	fsm.Chain(h.router, "verification", fsm.PriorityStrict, binding).
		Before(func(ctx *VerificationCtx) (bool, error) {
			if !ctx.Data.Expired(store.Now()) {
				return false, nil
			}
			ctx.Complete()
			return true, ctx.SendMessage(presentation.VerificationExpiredMsg(), nil)
		}).
		Then(conversation.VerifyAwaitingName).
		OnText(func(ctx *VerificationCtx, text string) error {
			ctx.Data.Name = strings.TrimSpace(text)
			ctx.Data.Step = conversation.VerifyAwaitingPhone
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskVerificationPhoneMsg(), nil)
		}).
		Then(conversation.VerifyAwaitingPhone).
		OnText(func(ctx *VerificationCtx, text string) error {
			if !validPhone(text) {
				return ctx.SendMessage(presentation.InvalidPhoneMsg(), nil)
			}
			ctx.Data.Phone = strings.TrimSpace(text)
			ctx.Data.Step = conversation.VerifyAwaitingTown
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskTownMsg(), nil)
		}).
		Then(conversation.VerifyAwaitingTown).
		OnText(func(ctx *VerificationCtx, text string) error {
			ctx.Data.Town = strings.TrimSpace(text)
			ctx.Data.Step = conversation.VerifyAwaitingWorkplace
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskWorkplaceMsg(), nil)
		}).
		Then(conversation.VerifyAwaitingWorkplace).
		OnText(func(ctx *VerificationCtx, text string) error {
			ctx.Data.Workplace = strings.TrimSpace(text)
			ctx.Data.Step = conversation.VerifyAwaitingVerifierName
			ctx.Transition(ctx.Data)
			return ctx.SendMessage(presentation.AskVerifierNameMsg(), nil)
		}).
		Then(conversation.VerifyAwaitingVerifierName).
		OnText(func(ctx *VerificationCtx, text string) error {
			ctx.Data.VerifierName = strings.TrimSpace(text)
			ctx.Data.Step = conversation.VerifyPendingApproval
			ctx.Transition(ctx.Data)
			if err := ctx.SendMessage(presentation.VerificationSubmittedMsg(), nil); err != nil {
				return err
			}
			h.notifyAdmins(ctx.Ctx, presentation.VerificationRequestMsg(ctx.Data), presentation.VerifyKbd(ctx.ChatID))
			return nil
		}).
		Then(conversation.VerifyPendingApproval).
		OnText(fsm.Reply[conversation.Verification](presentation.VerificationPendingMsg()))

	h.router.HandleCallback(presentation.CallbackVerify, h.adminOnly(h.handleVerifyCallback))
	h.router.HandleCommand("verify", h.adminOnly(h.handleVerifyCmd))
	h.router.HandleCommand("unverify", h.adminOnly(h.handleUnverifyCmd))
}

// handleVerifyCallback grants access to a chat whose request waits for an
// admin. The grant is kept even when saving the user fails.
func (h *handlers) handleVerifyCallback(ctx context.Context, ev fsm.Event) error {
	targetID, ok := fsm.ChatIDArg(ev.Callback.Data, presentation.CallbackVerify)
	if !ok {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.UnknownActionMsg(), false)
	}

	v, open := h.Conversations.Verification(targetID)
	if !open || v.Step != conversation.VerifyPendingApproval || h.Users.IsVerified(targetID) {
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.VerificationNotFoundMsg(), true)
	}
	if v.Expired(h.Conversations.Now()) {
		h.Conversations.DropVerification(targetID)
		return h.msg.AnswerCallback(ctx, ev.Callback.ID, presentation.VerificationNotFoundMsg(), true)
	}
	h.answer(ctx, ev, presentation.VerificationStartedMsg(), false)

	_, err := h.Users.Upsert(ctx, targetID, user.Patch{
		Name:         user.Ptr(v.Name),
		Username:     user.Ptr(v.Username),
		Town:         user.Ptr(v.Town),
		Phone:        user.Ptr(v.Phone),
		Workplace:    user.Ptr(v.Workplace),
		VerifierName: user.Ptr(v.VerifierName),
		Verified:     user.Ptr(true),
	})
	h.Conversations.DropVerification(targetID)
	metrics.VerificationsGrantedTotal.Inc()

	if err != nil {
		h.warnStoreFailure(ctx, v.Name, err)
	}
	if _, err := h.msg.Send(ctx, targetID, presentation.UserVerifiedMsg(), presentation.MainMenuKbd()); err != nil {
		zap.S().Errorw("Failed to notify verified user", "error", err, "chatID", targetID)
	}
	_, err = h.msg.Send(ctx, ev.ChatID, presentation.UserAddedMsg(v.Name), nil)
	return err
}

func (h *handlers) handleVerifyCmd(ctx context.Context, ev fsm.Event) error {
	_, args, _ := ev.Command()
	targetID, ok := parseChatID(args)
	if !ok {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UsageMsg("/verify <chatId>"), nil)
		return err
	}

	patch := user.Patch{Verified: user.Ptr(true)}
	if v, open := h.Conversations.Verification(targetID); open {
		patch.Username = user.Ptr(v.Username)
		if v.Name != "" {
			patch.Name = user.Ptr(v.Name)
		}
	}
	_, err := h.Users.Upsert(ctx, targetID, patch)
	h.Conversations.DropVerification(targetID)
	metrics.VerificationsGrantedTotal.Inc()
	if err != nil {
		h.warnStoreFailure(ctx, strconv.FormatInt(targetID, 10), err)
	}

	if _, err := h.msg.Send(ctx, targetID, presentation.AccessGrantedMsg(), presentation.MainMenuKbd()); err != nil {
		zap.S().Errorw("Failed to notify verified user", "error", err, "chatID", targetID)
	}
	h.notifyAdmins(ctx, presentation.AdminUserVerifiedMsg(targetID), nil)
	return nil
}

// handleUnverifyCmd revokes access and closes every conversation the chat
// had open. The user record is kept.
func (h *handlers) handleUnverifyCmd(ctx context.Context, ev fsm.Event) error {
	_, args, _ := ev.Command()
	targetID, ok := parseChatID(args)
	if !ok {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UsageMsg("/unverify <chatId>"), nil)
		return err
	}

	_, err := h.Users.Unverify(ctx, targetID)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrUserNotFound):
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UserNotFoundMsg(), nil)
		return err
	default:
		h.warnStoreFailure(ctx, strconv.FormatInt(targetID, 10), err)
	}

	h.Conversations.DropVerification(targetID)
	h.Conversations.DropOrder(targetID)
	h.Conversations.LeaveQuestionMode(targetID)

	if _, err := h.msg.Send(ctx, targetID, presentation.AccessRevokedMsg(), &models.ReplyKeyboardRemove{RemoveKeyboard: true}); err != nil {
		zap.S().Errorw("Failed to notify unverified user", "error", err, "chatID", targetID)
	}
	h.notifyAdmins(ctx, presentation.AdminUserUnverifiedMsg(targetID), nil)
	return nil
}
