package telegram

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"
	"kiomedine-order-bot/pkg"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	phonePattern    = regexp.MustCompile(`^(\+380|0)\d{9}$`)
	quantityPattern = regexp.MustCompile(`^\d+$`)
)

func validPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// parseQuantity accepts one or more digits forming a positive number.
func parseQuantity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !quantityPattern.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseChatID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func verificationPrompt(step conversation.VerificationStep) string {
	switch step {
	case conversation.VerifyAwaitingName:
		return presentation.AskFullNameMsg()
	case conversation.VerifyAwaitingPhone:
		return presentation.AskVerificationPhoneMsg()
	case conversation.VerifyAwaitingTown:
		return presentation.AskTownMsg()
	case conversation.VerifyAwaitingWorkplace:
		return presentation.AskWorkplaceMsg()
	case conversation.VerifyAwaitingVerifierName:
		return presentation.AskVerifierNameMsg()
	default:
		return presentation.VerificationPendingMsg()
	}
}

// notifyAdmins sends text to every admin chat and returns the messages that
// were delivered. A failed send is logged and skipped.
func (h *handlers) notifyAdmins(ctx context.Context, text string, markup models.ReplyMarkup) []model.AdminMessage {
	var sent []model.AdminMessage
	for _, adminID := range h.Users.Admins() {
		msgID, err := h.msg.Send(ctx, adminID, text, markup)
		if err != nil {
			zap.S().Errorw("Failed to notify admin", "error", err, "adminID", adminID)
			continue
		}
		sent = append(sent, model.AdminMessage{ChatID: adminID, MessageID: msgID})
	}
	return sent
}

// warnStoreFailure tells every admin that a change is only held in memory.
func (h *handlers) warnStoreFailure(ctx context.Context, subject string, err error) {
	cause := err
	var storeErr *pkg.ErrStoreCall
	if errors.As(err, &storeErr) {
		cause = storeErr.Err
	}
	h.notifyAdmins(ctx, presentation.StoreWarningMsg(subject, cause), nil)
}

// refreshKeyboards edits every admin copy of the order card so it offers
// only the actions still valid.
func (h *handlers) refreshKeyboards(ctx context.Context, o model.Order) {
	for _, m := range o.AdminMessages {
		if err := h.msg.EditKeyboard(ctx, m.ChatID, m.MessageID, presentation.OrderActionsKbd(o)); err != nil {
			zap.S().Errorw("Failed to edit order keyboard", "error", err,
				"orderID", o.ID.String(), "adminID", m.ChatID)
		}
	}
}

func (h *handlers) summary(o model.Order) string {
	customer, _ := h.Users.Get(o.ID.ChatID)
	return presentation.CustomerSummary(customer, o)
}

func (h *handlers) amount(quantity int) string {
	total := h.Shop.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return presentation.FormatMoney(total, h.Shop.Currency)
}

// answer acknowledges the callback behind ev, if any. Failures are only logged.
func (h *handlers) answer(ctx context.Context, ev fsm.Event, text string, alert bool) {
	if ev.Callback == nil {
		return
	}
	if err := h.msg.AnswerCallback(ctx, ev.Callback.ID, text, alert); err != nil {
		zap.S().Errorw("Failed to answer callback", "error", err, "chatID", ev.ChatID)
	}
}

// sendLong splits text at blank lines so each part fits one message.
func (h *handlers) sendLong(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	for _, part := range splitMessage(text, presentation.MessageLimit) {
		if _, err := h.msg.Send(ctx, chatID, part, markup); err != nil {
			return err
		}
	}
	return nil
}

func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		blocks = append(blocks, cutBlock(block, limit)...)
	}

	var parts []string
	var current strings.Builder
	for _, block := range blocks {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+2+utf8.RuneCountInString(block) > limit {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// cutBlock breaks a block longer than limit, at the last line break that
// fits when there is one and mid-line otherwise.
func cutBlock(block string, limit int) []string {
	var pieces []string
	runes := []rune(block)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		if cut == limit {
			cut = entityStart(runes, cut)
		}
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	return append(pieces, string(runes))
}

// entityStart moves a mid-line cut back to the start of an HTML entity the
// cut would split, such as "&amp;".
func entityStart(runes []rune, cut int) int {
	for i := cut - 1; i > 0 && i >= cut-8; i-- {
		switch runes[i] {
		case ';':
			return cut
		case '&':
			return i
		}
	}
	return cut
}
