package presentation

import (
	"fmt"
	"html"
	"strings"

	"kiomedine-order-bot/internal/pkg/model"

	"github.com/shopspring/decimal"
)

func StatusLabel(status model.OrderStatus) string {
	switch status {
	case model.StatusPending:
		return "⏳ очікує"
	case model.StatusAccepted:
		return "✅ прийнято"
	case model.StatusCanceled:
		return "❌ скасовано"
	case model.StatusShipped:
		return "📦 відправлено"
	default:
		return "❔ невідомо"
	}
}

func PaymentMethodLabel(method model.PaymentMethod) string {
	switch method {
	case model.PaymentCashOnDelivery:
		return "оплата при отриманні"
	case model.PaymentPrepaid:
		return "передплата"
	default:
		return "не вказано"
	}
}

func PaymentStatusLabel(status model.PaymentStatus) string {
	if status == model.PaymentPaid {
		return "оплачено"
	}
	return "неоплачено"
}

// FormatMoney groups thousands with spaces, as in "17 000 грн".
func FormatMoney(amount decimal.Decimal, currency string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	whole := amount.Truncate(0)
	digits := whole.String()
	var sb strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
	}

	result := sign + sb.String()
	if frac := amount.Sub(whole); !frac.IsZero() {
		result += "," + frac.StringFixed(2)[2:]
	}
	if currency == "" {
		return result
	}
	return result + " " + currency
}

// CustomerSummary renders "name, town (date time)" for admin confirmations.
// The customer's own name wins over the order's recipient.
func CustomerSummary(customer model.User, o model.Order) string {
	name := customer.Name
	if name == "" {
		name = o.RecipientName
	}
	summary := fmt.Sprintf("%s, %s", orUnknown(name), orUnknown(customer.Town))
	if !o.CreatedAt.IsZero() {
		summary += fmt.Sprintf(" (%s %s)", o.Date(), o.Time())
	}
	return summary
}

func esc(s string) string {
	return html.EscapeString(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Невідомо"
	}
	return s
}

func orUnknownLower(s string) string {
	if strings.TrimSpace(s) == "" {
		return "невідомо"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
