package presentation

import (
	"fmt"

	"kiomedine-order-bot/internal/info"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"

	"github.com/go-telegram/bot/models"
)

// Main menu buttons.
const (
	BtnMakeOrder       = "🛒 Зробити замовлення"
	BtnInfo            = "ℹ️ Інформація"
	BtnHistory         = "📜 Історія замовлень"
	BtnContactOperator = "📞 Зв’язатися з оператором"
	BtnAskQuestion     = "❓ Задати запитання"
	BtnCancel          = "❌ Скасувати"
)

// Admin panel buttons.
const (
	BtnReplyToUser = "📩 Відповісти користувачу"
	BtnStats       = "📊 Статистика"
	BtnBroadcast   = "📢 Зробити розсилку"
	BtnAllOrders   = "📋 Переглянути всі замовлення"
	BtnBackToUser  = "🔙 Назад до користувацького меню"
)

// Callback data. Prefixed values carry a chat id or an order id after the prefix.
const (
	CallbackVerify         = "verify_"
	CallbackAccept         = "accept_"
	CallbackCancel         = "cancel_"
	CallbackPaid           = "paid_"
	CallbackTTN            = "ttn_"
	CallbackReply          = "reply_"
	CallbackMessage        = "msg_"
	CallbackPaymentCOD     = "payment_cod"
	CallbackPaymentPrepaid = "payment_prepaid"
)

func MainMenuKbd() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnMakeOrder}, {Text: BtnInfo}},
			{{Text: BtnHistory}, {Text: BtnContactOperator}},
			{{Text: BtnAskQuestion}, {Text: BtnCancel}},
		},
		ResizeKeyboard: true,
	}
}

func AdminPanelKbd() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnReplyToUser}, {Text: BtnStats}},
			{{Text: BtnBroadcast}, {Text: BtnAllOrders}},
			{{Text: BtnBackToUser}},
		},
		ResizeKeyboard: true,
	}
}

// InfoMenuKbd lays the catalogue sections out two per row, then the
// document, the price and the back button on rows of their own.
func InfoMenuKbd(c *info.Catalogue) *models.ReplyKeyboardMarkup {
	var rows [][]models.KeyboardButton
	var row []models.KeyboardButton
	for _, s := range c.Sections {
		row = append(row, models.KeyboardButton{Text: s.Button})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if c.Document.Button != "" {
		rows = append(rows, []models.KeyboardButton{{Text: c.Document.Button}})
	}
	rows = append(rows,
		[]models.KeyboardButton{{Text: c.PriceButton}},
		[]models.KeyboardButton{{Text: c.BackButton}},
	)
	return &models.ReplyKeyboardMarkup{
		Keyboard:       rows,
		ResizeKeyboard: true,
	}
}

func PaymentMethodKbd() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "💵 Оплата при отриманні", CallbackData: CallbackPaymentCOD}},
			{{Text: "💳 Передплата", CallbackData: CallbackPaymentPrepaid}},
		},
	}
}

func VerifyKbd(chatID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✅ Надати доступ", CallbackData: fmt.Sprintf("%s%d", CallbackVerify, chatID)}},
		},
	}
}

func ReplyKbd(chatID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✍️ Відповісти", CallbackData: fmt.Sprintf("%s%d", CallbackReply, chatID)}},
		},
	}
}

// OrderActionsKbd shows only the admin actions still valid for o. An order
// with none left gets an empty keyboard, which removes the buttons.
func OrderActionsKbd(o model.Order) *models.InlineKeyboardMarkup {
	var row []models.InlineKeyboardButton
	for _, action := range order.AvailableActions(o) {
		row = append(row, actionButton(action, o.ID))
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{},
	}
	if len(row) > 0 {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, row)
	}
	return keyboard
}

func StatsUsersKbd(lines []CustomerLine) *models.InlineKeyboardMarkup {
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{},
	}
	for _, l := range lines {
		lastOrder := l.LastOrder
		if lastOrder == "" {
			lastOrder = "—"
		}
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%s) — %s, %d уп.", orUnknown(l.Name), orUnknown(l.Town), lastOrder, l.Units),
			CallbackData: fmt.Sprintf("%s%d", CallbackMessage, l.ChatID),
		}})
	}
	return keyboard
}

func actionButton(action order.Action, id model.OrderID) models.InlineKeyboardButton {
	switch action {
	case order.ActionAccept:
		return models.InlineKeyboardButton{Text: "✅ Прийняти", CallbackData: CallbackAccept + id.String()}
	case order.ActionCancel:
		return models.InlineKeyboardButton{Text: "❌ Скасувати", CallbackData: CallbackCancel + id.String()}
	case order.ActionPaid:
		return models.InlineKeyboardButton{Text: "💳 Оплачено", CallbackData: CallbackPaid + id.String()}
	default:
		return models.InlineKeyboardButton{Text: "📦 Надіслати ТТН", CallbackData: CallbackTTN + id.String()}
	}
}
