package telegram

import (
	"cmp"
	"context"
	"errors"
	"html"
	"slices"
	"strings"
	"unicode/utf8"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
)

// statsButtonLimit keeps the per-user keyboard well under Telegram's cap.
const statsButtonLimit = 50

var errNoUsersSource = errors.New("users source is not configured")

func SetupOrderViewer(h *handlers) {
	h.router.HandleCommand("adminpanel", h.adminOnly(h.handleAdminPanel))
	h.router.HandleText(presentation.BtnReplyToUser, h.adminOnly(h.handleNextQuestion))
	h.router.HandleText(presentation.BtnStats, h.adminOnly(h.handleStats))
	h.router.HandleText(presentation.BtnAllOrders, h.adminOnly(h.handleAllOrders))
	h.router.HandleCommand("reloadusers", h.adminOnly(h.handleReloadUsers))
}

func (h *handlers) handleAdminPanel(ctx context.Context, ev fsm.Event) error {
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.AdminPanelMsg(), presentation.AdminPanelKbd())
	return err
}

// handleNextQuestion shows the oldest unanswered question and arms a reply
// to its author.
func (h *handlers) handleNextQuestion(ctx context.Context, ev fsm.Event) error {
	q, ok := h.Conversations.NextQuestion()
	if !ok {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.NoQuestionsMsg(), nil)
		return err
	}
	h.Conversations.SetAdminTask(ev.ChatID, conversation.ReplyTask{TargetChatID: q.ChatID})
	_, err := h.msg.Send(ctx, ev.ChatID, presentation.ReplyingToMsg(q), nil)
	return err
}

func (h *handlers) handleStats(ctx context.Context, ev fsm.Event) error {
	stats := h.Orders.Stats()
	revenue := h.Shop.UnitPrice.Mul(decimal.NewFromInt(int64(stats.Units)))

	lines, userStats := h.customerLines(h.Orders.All())
	if len(lines) > statsButtonLimit {
		lines = lines[:statsButtonLimit]
	}

	text := presentation.StatsMsg(stats, presentation.FormatMoney(revenue, h.Shop.Currency), userStats)
	var markup models.ReplyMarkup
	if len(lines) > 0 {
		markup = presentation.StatsUsersKbd(lines)
	}
	_, err := h.msg.Send(ctx, ev.ChatID, text, markup)
	return err
}

// customerLines summarises every known user, most recent customer first.
func (h *handlers) customerLines(orders []model.Order) ([]presentation.CustomerLine, presentation.UserStats) {
	byChat := make(map[int64][]model.Order)
	for _, o := range orders {
		byChat[o.ID.ChatID] = append(byChat[o.ID.ChatID], o)
	}

	users := h.Users.All()
	stats := presentation.UserStats{Total: len(users)}
	lines := make([]presentation.CustomerLine, 0, len(users))
	latest := make(map[int64]int64, len(users))

	for _, u := range users {
		own := byChat[u.ChatID]
		line := presentation.CustomerLine{ChatID: u.ChatID, Name: u.Name, Town: u.Town}
		if len(own) == 0 && len(u.Orders) == 0 {
			stats.WithoutOrders++
		} else {
			stats.WithOrders++
		}
		for _, o := range own {
			if o.Status != model.StatusCanceled {
				line.Units += o.Quantity
			}
			if o.ID.Timestamp > latest[u.ChatID] {
				latest[u.ChatID] = o.ID.Timestamp
				line.LastOrder = o.Date()
			}
		}
		lines = append(lines, line)
	}

	slices.SortStableFunc(lines, func(a, b presentation.CustomerLine) int {
		return cmp.Compare(latest[b.ChatID], latest[a.ChatID])
	})
	return lines, stats
}

// handleAllOrders sends every order grouped by customer. A report longer
// than one message goes out as a text file.
func (h *handlers) handleAllOrders(ctx context.Context, ev fsm.Event) error {
	orders := h.Orders.All()
	if len(orders) == 0 {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.NoOrdersMsg(), nil)
		return err
	}

	report := presentation.AllOrdersReport(h.groupByCustomer(orders))
	escaped := html.EscapeString(report)
	if utf8.RuneCountInString(escaped) <= presentation.MessageLimit {
		_, err := h.msg.Send(ctx, ev.ChatID, escaped, nil)
		return err
	}

	_, err := h.msg.SendMedia(ctx, ev.ChatID, fsm.Media{
		Kind:     fsm.MediaDocument,
		Reader:   strings.NewReader(report),
		Filename: order.ReportFilename("All orders", h.Conversations.Now()),
		Caption:  presentation.ReportCaptionMsg(len(orders)),
	})
	return err
}

func (h *handlers) groupByCustomer(orders []model.Order) []presentation.CustomerGroup {
	index := make(map[int64]int)
	var groups []presentation.CustomerGroup
	for _, o := range orders {
		i, ok := index[o.ID.ChatID]
		if !ok {
			customer, known := h.Users.Get(o.ID.ChatID)
			if !known {
				customer = model.User{ChatID: o.ID.ChatID}
			}
			i = len(groups)
			index[o.ID.ChatID] = i
			groups = append(groups, presentation.CustomerGroup{Customer: customer})
		}
		groups[i].Orders = append(groups[i].Orders, o)
	}
	return groups
}

func (h *handlers) handleReloadUsers(ctx context.Context, ev fsm.Event) error {
	if h.UsersSource == nil {
		_, err := h.msg.Send(ctx, ev.ChatID, presentation.UsersReloadFailedMsg(errNoUsersSource), nil)
		return err
	}
	n, err := h.Users.Reload(ctx, h.UsersSource)
	if err != nil {
		_, sendErr := h.msg.Send(ctx, ev.ChatID, presentation.UsersReloadFailedMsg(err), nil)
		return sendErr
	}
	_, err = h.msg.Send(ctx, ev.ChatID, presentation.UsersReloadedMsg(n), nil)
	return err
}
