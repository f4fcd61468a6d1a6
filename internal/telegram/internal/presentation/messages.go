package presentation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"
)

// MessageLimit is the Telegram limit for one text message, in characters.
const MessageLimit = 4096

// CaptionLimit is the Telegram limit for a photo or document caption.
const CaptionLimit = 1024

func GenericErrorMsg() string {
	return "⚠️ Виникла помилка. Спробуйте пізніше."
}

func WelcomeMsg(firstName string) string {
	if firstName == "" {
		firstName = "користувачу"
	}
	return fmt.Sprintf("👋 Вітаю, %s! Оберіть опцію з меню нижче:", esc(firstName))
}

func MainMenuMsg() string {
	return "📲 Головне меню доступне:"
}

func BackToMainMsg() string {
	return "🔙 Повертаємось до головного меню."
}

func UnknownCommandMsg() string {
	return "🤖 Не впізнаю команду. Оберіть опцію з меню нижче:"
}

func UnknownActionMsg() string {
	return "❓ Невідома дія."
}

func AskFullNameMsg() string {
	return "🔐 Для доступу до бота, будь ласка, введіть Ваше ПІБ:"
}

func AskVerificationPhoneMsg() string {
	return "📞 Введіть Ваш номер телефону:"
}

func InvalidPhoneMsg() string {
	return "❗ Введіть коректний номер телефону."
}

func AskTownMsg() string {
	return "🏙️ Введіть місто:"
}

func AskWorkplaceMsg() string {
	return "🏢 Введіть місце роботи:"
}

func AskVerifierNameMsg() string {
	return "👤 Введіть ПІБ співробітника, який проводить верифікацію:"
}

func VerificationSubmittedMsg() string {
	return "⏳ Дані надіслані оператору. Очікуйте підтвердження."
}

func VerificationPendingMsg() string {
	return "⏳ Ваш запит ще розглядається оператором. Очікуйте підтвердження."
}

func VerificationExpiredMsg() string {
	return "⛔️ Ваш запит анульовано через неактивність. Надішліть /start, щоб почати знову."
}

func NotVerifiedMsg() string {
	return "🔒 Ви ще не верифіковані. Натисніть /start або зверніться до оператора."
}

func VerificationRequestMsg(v conversation.Verification) string {
	var sb strings.Builder
	sb.WriteString("<b>🔐 Запит на верифікацію:</b>")
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("👤 %s", esc(v.Name)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📞 %s", esc(v.Phone)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🏙️ %s", esc(v.Town)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🏢 %s", esc(v.Workplace)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("👤 Співробітник: %s", esc(v.VerifierName)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🆔 chatId: <code>%d</code>", v.ChatID))
	return sb.String()
}

func VerificationStartedMsg() string {
	return "⏳ Верифікація..."
}

func VerificationNotFoundMsg() string {
	return "❌ Запит не знайдено або вже оброблено"
}

func UserVerifiedMsg() string {
	return "✅ Вас верифіковано! Доступ надано."
}

func UserAddedMsg(name string) string {
	return fmt.Sprintf("✅ Користувача %s додано до таблиці.", esc(name))
}

func AccessGrantedMsg() string {
	return "🔓 Вам надано доступ до бота. Можете почати користування."
}

func AdminUserVerifiedMsg(chatID int64) string {
	return fmt.Sprintf("✅ Користувач <code>%d</code> верифікований.", chatID)
}

func AccessRevokedMsg() string {
	return "🔒 Ваш доступ до бота було відкликано оператором."
}

func AdminUserUnverifiedMsg(chatID int64) string {
	return fmt.Sprintf("🚫 Користувач <code>%d</code> більше не має доступу.", chatID)
}

func UserNotFoundMsg() string {
	return "⛔️ Користувача не знайдено."
}

func AlreadyVerifiedMsg() string {
	return "👋 Ви вже верифіковані."
}

func AskQuantityMsg() string {
	return "📦 Скільки одиниць товару бажаєте замовити?"
}

func InvalidQuantityMsg() string {
	return "❗ Введіть кількість у вигляді числа (наприклад: 1, 2, 3...)"
}

func AskCityMsg() string {
	return "🏙 Вкажіть місто доставки:"
}

func AskRecipientMsg() string {
	return "👤 Вкажіть ПІБ отримувача:"
}

func AskBranchMsg() string {
	return "📮 Вкажіть номер відділення Нової Пошти:"
}

func AskOrderPhoneMsg() string {
	return "📞 Вкажіть ваш номер телефону для зв’язку:"
}

func InvalidOrderPhoneMsg() string {
	return "❗ Будь ласка, введіть коректний номер телефону."
}

func AskPaymentMethodMsg() string {
	return "💰 Оберіть спосіб оплати:"
}

func OrderExpiredMsg() string {
	return "⌛ Замовлення вже оброблено або скасовано."
}

func OrderSubmittedMsg(o model.Order, paymentDetails string) string {
	var sb strings.Builder
	sb.WriteString("<b>✅ Замовлення надіслано оператору!</b>")
	sb.WriteString(breakLine(2))
	sb.WriteString(orderLines(o))
	if o.PaymentMethod == model.PaymentPrepaid && paymentDetails != "" {
		sb.WriteString(breakLine(2))
		sb.WriteString(PaymentDetailsMsg(paymentDetails, o))
	}
	return sb.String()
}

func AdminNewOrderMsg(o model.Order, customer model.User, paymentDetails string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>📬 НОВЕ ЗАМОВЛЕННЯ від %s, %s</b>",
		esc(orUnknown(customer.Name)), esc(orUnknown(customer.Town))))
	sb.WriteString(breakLine(2))
	sb.WriteString(fmt.Sprintf("📦 %d шт", o.Quantity))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🏙 %s", esc(o.City)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("👤 %s", esc(o.RecipientName)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📮 НП: %s", esc(o.Branch)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📞 Телефон: %s", esc(o.Phone)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("💰 Оплата: %s", PaymentMethodLabel(o.PaymentMethod)))
	if o.PaymentMethod == model.PaymentPrepaid && paymentDetails != "" {
		sb.WriteString(breakLine(2))
		sb.WriteString(PaymentDetailsMsg(paymentDetails, o))
	}
	return sb.String()
}

// PaymentDetailsMsg renders the bank details followed by the transfer purpose.
func PaymentDetailsMsg(details string, o model.Order) string {
	var sb strings.Builder
	sb.WriteString("<b>💳 Реквізити для оплати:</b>")
	sb.WriteString(breakLine(1))
	sb.WriteString(esc(strings.TrimSpace(details)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("Призначення: Передплата за замовлення від %s, %s %s",
		esc(o.RecipientName), o.Date(), o.Time()))
	return sb.String()
}

func OrderStoreFailedMsg(username string, err error) string {
	return fmt.Sprintf("⚠️ Не вдалося записати замовлення від @%s: %s",
		esc(orUnknownLower(username)), esc(err.Error()))
}

// StoreWarningMsg tells admins that a change was applied but not saved.
func StoreWarningMsg(subject string, err error) string {
	return fmt.Sprintf("⚠️ Зміни для %s застосовано, але не збережено в таблиці: %s",
		esc(subject), esc(err.Error()))
}

// OrderErrorMsg explains why an admin action was refused.
func OrderErrorMsg(err error) string {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return "❌ Замовлення не знайдено."
	case errors.Is(err, order.ErrCannotCancelAccepted):
		return "⛔️ Не можна скасувати прийняте замовлення."
	case errors.Is(err, order.ErrOrderCanceled):
		return "⛔️ Це замовлення вже скасовано."
	case errors.Is(err, order.ErrAlreadyAccepted):
		return "ℹ️ Замовлення вже прийнято."
	case errors.Is(err, order.ErrNotAccepted):
		return "⛔️ Спочатку прийміть замовлення."
	case errors.Is(err, order.ErrAlreadyPaid):
		return "ℹ️ Замовлення вже позначено як оплачене."
	case errors.Is(err, order.ErrAlreadyShipped):
		return "ℹ️ ТТН для цього замовлення вже надіслано."
	case errors.Is(err, order.ErrEmptyTTN):
		return "❗ Введіть номер ТТН."
	default:
		return GenericErrorMsg()
	}
}

func OrderAcceptedUserMsg() string {
	return "✅ Ваше замовлення прийнято та обробляється!"
}

func OrderAcceptedAdminMsg(summary string) string {
	return fmt.Sprintf("📦 Статус оновлено: прийнято для %s", esc(summary))
}

func OrderCanceledUserMsg() string {
	return "❌ Ваше замовлення було скасовано оператором."
}

func OrderCanceledAdminMsg(summary string) string {
	return fmt.Sprintf("❌ Замовлення %s було скасовано.", esc(summary))
}

func CanceledCallbackMsg() string {
	return "❌ Скасовано"
}

func OrderPaidUserMsg() string {
	return "💳 Ваше замовлення позначено як <b>оплачене</b>. Дякуємо!"
}

func OrderPaidAdminMsg(summary string) string {
	return fmt.Sprintf("✅ Статус оновлено: <b>оплачено</b> для %s", esc(summary))
}

func AskTTNMsg(summary string) string {
	return fmt.Sprintf("✍️ Введіть номер ТТН для користувача %s:", esc(summary))
}

func TTNUserMsg(customerName string, o model.Order, amount string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Шановний(а) %s, ваше замовлення для %s підтверджено та вже відправилось в дорогу:",
		esc(customerName), esc(o.RecipientName)))
	sb.WriteString(breakLine(2))
	sb.WriteString("<b>📦 Ваше замовлення:</b>")
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("• Кількість: %d уп.", o.Quantity))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("• Місто: %s", esc(o.City)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("• Сума: %s", amount))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("• ТТН: <code>%s</code>", esc(o.TTN)))
	sb.WriteString(breakLine(2))
	sb.WriteString("Дякуємо за замовлення! Сподіваємось на подальшу співпрацю")
	return sb.String()
}

func TTNAdminMsg(customerName string, o model.Order) string {
	return fmt.Sprintf("📤 ТТН на замовлення %s для %s %s %s відправлено",
		esc(customerName), esc(o.RecipientName), o.Date(), o.Time())
}

func DeliveryNotFoundMsg() string {
	return "⛔️ Замовлення не знайдено."
}

func DeliveryCanceledMsg() string {
	return "⛔️ Це замовлення вже скасовано."
}

func DeliveryAcceptedUserMsg() string {
	return "🚚 Ваше замовлення прийнято і вже в дорозі!"
}

func DeliveryAcceptedAdminMsg(username string) string {
	return fmt.Sprintf("✅ Замовлення від @%s позначено як \"прийнято\".", esc(orUnknownLower(username)))
}

func DeliveryConfirmedUserMsg() string {
	return "🚚 Ваше замовлення вже в дорозі! Дякуємо за довіру ❤️"
}

func DeliveryConfirmedAdminMsg() string {
	return "✅ Доставку підтверджено."
}

func AskQuestionMsg() string {
	return "✍️ Напишіть своє запитання, і оператор відповість найближчим часом."
}

func QuestionSentMsg() string {
	return "✅ Ваше запитання надіслано оператору."
}

func AdminQuestionMsg(q conversation.Question) string {
	return fmt.Sprintf("<b>❓ Запитання від @%s:</b>\n%s", esc(orUnknownLower(q.Username)), esc(q.Text))
}

func NoQuestionsMsg() string {
	return "📭 Немає нових запитань від користувачів."
}

func ReplyingToMsg(q conversation.Question) string {
	return fmt.Sprintf("✍️ Відповідаєте користувачу %s, %s (@%s):\n\n\"%s\"",
		esc(orUnknown(q.Name)), esc(orUnknown(q.Town)), esc(orUnknownLower(q.Username)), esc(q.Text))
}

func AskReplyMsg(chatID int64) string {
	return fmt.Sprintf("✍️ Введіть повідомлення для користувача <code>%d</code>:", chatID)
}

func OperatorMessageMsg(text string) string {
	return fmt.Sprintf("<b>📩 Повідомлення від оператора:</b>\n%s", esc(text))
}

func ReplySentMsg() string {
	return "✅ Відповідь надіслано."
}

func ContactOperatorMsg() string {
	return "📞 Ви можете зв’язатися з оператором напряму:"
}

func CancelledMsg() string {
	return "❌ Дію скасовано."
}

func NothingToCancelMsg() string {
	return "ℹ️ Немає активних дій для скасування."
}

func EmptyHistoryMsg() string {
	return "ℹ️ У вас поки немає замовлень."
}

func HistoryMsg(orders []model.Order) string {
	var sb strings.Builder
	sb.WriteString("<b>📜 Ваша історія замовлень:</b>")
	for i, o := range orders {
		sb.WriteString(breakLine(2))
		sb.WriteString(fmt.Sprintf("<b>#%d</b> %s %s", i+1, o.Date(), o.Time()))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("📦 %d шт", o.Quantity))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("🏙 %s", esc(o.City)))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("📮 %s", esc(o.Branch)))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("📞 %s", esc(o.Phone)))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("📌 Статус: %s", StatusLabel(o.Status)))
		sb.WriteString(breakLine(1))
		sb.WriteString(fmt.Sprintf("📦 ТТН: %s", esc(orDash(o.TTN))))
	}
	return sb.String()
}

func PriceMsg(price string) string {
	return fmt.Sprintf("💰 Ціна за 1 упаковку (3 мл): %s.", price)
}

func AdminPanelMsg() string {
	return "<b>👨‍💼 Панель оператора активна. Оберіть дію:</b>"
}

func NoAdminAccessMsg() string {
	return "⛔️ У вас немає доступу до панелі оператора."
}

func AdminOnlyMsg() string {
	return "⛔️ Доступ лише для адміністраторів."
}

// CustomerLine is one row of the per-user statistics.
type CustomerLine struct {
	ChatID    int64
	Name      string
	Town      string
	LastOrder string
	Units     int
}

// UserStats summarises the user directory for the statistics screen.
type UserStats struct {
	Total         int
	WithOrders    int
	WithoutOrders int
}

func StatsMsg(s order.Stats, revenue string, u UserStats) string {
	var sb strings.Builder
	sb.WriteString("<b>📊 Статистика замовлень:</b>")
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🔢 Всього: %d", s.Total))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("✅ Прийнято: %d", s.Accepted))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("❌ Скасовано: %d", s.Canceled))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("⏳ Очікує: %d", s.Pending))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📦 Відправлено: %d", s.Shipped))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("💳 Оплачено: %d", s.Paid))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("💰 Заробіток: %s", revenue))
	sb.WriteString(breakLine(2))
	sb.WriteString("<b>👥 Статистика користувачів:</b>")
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🔢 Всього: %d", u.Total))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📦 З замовленнями: %d", u.WithOrders))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🚫 Без замовлень: %d", u.WithoutOrders))
	sb.WriteString(breakLine(2))
	sb.WriteString("📋 Користувачі:")
	return sb.String()
}

// CustomerGroup is one customer block of the all-orders report.
type CustomerGroup struct {
	Customer model.User
	Orders   []model.Order
}

func NoOrdersMsg() string {
	return "📭 Немає замовлень."
}

// AllOrdersReport renders plain text, since it may be sent as a file.
func AllOrdersReport(groups []CustomerGroup) string {
	var sb strings.Builder
	sb.WriteString("📋 Усі замовлення:")
	for _, g := range groups {
		sb.WriteString(breakLine(2))
		sb.WriteString(fmt.Sprintf("👤 %s, %s (@%s)",
			orUnknown(g.Customer.Name), orUnknown(g.Customer.Town), orUnknownLower(g.Customer.Username)))
		for i, o := range g.Orders {
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  #%d 📦 %d шт", i+1, o.Quantity))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  🏙 %s", o.City))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  👤 %s", o.RecipientName))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  📮 НП: %s", o.Branch))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  📞 %s", o.Phone))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  💰 Оплата: %s, %s", PaymentMethodLabel(o.PaymentMethod), PaymentStatusLabel(o.PaymentStatus)))
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  📌 Статус: %s", StatusLabel(o.Status)))
			if o.TTN != "" {
				sb.WriteString(breakLine(1))
				sb.WriteString(fmt.Sprintf("  📦 ТТН: %s", o.TTN))
			}
			sb.WriteString(breakLine(1))
			sb.WriteString(fmt.Sprintf("  🕒 %s %s", o.Date(), o.Time()))
		}
	}
	return sb.String()
}

func ReportCaptionMsg(total int) string {
	return fmt.Sprintf("📋 Усі замовлення: %d", total)
}

func BroadcastStartMsg() string {
	return "📢 Введіть текст повідомлення або надішліть фото чи документ. Коли будете готові, напишіть /sendbroadcast"
}

func BroadcastTextSavedMsg() string {
	return "✉️ Текст збережено. Якщо хочете, додайте фото або напишіть /sendbroadcast для запуску."
}

func BroadcastPhotoSavedMsg() string {
	return "🖼 Фото додано. Тепер надішліть текст або /sendbroadcast для запуску."
}

func BroadcastDocumentSavedMsg() string {
	return "📎 Документ додано. Тепер надішліть текст або /sendbroadcast для запуску."
}

func BroadcastNotStartedMsg() string {
	return "⚠️ Спочатку увімкніть режим розсилки командою /broadcast."
}

func BroadcastEmptyMsg() string {
	return "⚠️ Спочатку надішліть текст повідомлення."
}

func BroadcastStartedMsg(recipients int) string {
	return fmt.Sprintf("🚀 Розсилку запущено. Отримувачів: %d", recipients)
}

func BroadcastRunningMsg(delivered, failed int64, total int) string {
	return fmt.Sprintf("⏳ Розсилка ще триває: %d з %d, помилок %d.", delivered+failed, total, failed)
}

func BroadcastReportMsg(delivered, failed int) string {
	return fmt.Sprintf("✅ Розсилка завершена.\n📬 Успішно: %d\n⚠️ Помилки: %d", delivered, failed)
}

const broadcastPrefix = "📢 "

func BroadcastTextMsg(text string) string {
	return broadcastPrefix + esc(text)
}

// BroadcastTextLimit is the longest broadcast text that still fits one
// message, or one caption when media is attached.
func BroadcastTextLimit(withMedia bool) int {
	limit := MessageLimit
	if withMedia {
		limit = CaptionLimit
	}
	return limit - utf8.RuneCountInString(broadcastPrefix)
}

func BroadcastTooLongMsg(limit int) string {
	return fmt.Sprintf("⚠️ Текст задовгий для розсилки: не більше %d символів. Надішліть коротший варіант.", limit)
}

func UsersReloadedMsg(n int) string {
	return fmt.Sprintf("🔄 Кеш користувачів оновлено. Завантажено %d записів.", n)
}

func UsersReloadFailedMsg(err error) string {
	return fmt.Sprintf("❌ Не вдалося завантажити користувачів: %s", esc(err.Error()))
}

func UsageMsg(usage string) string {
	return fmt.Sprintf("ℹ️ Використання: <code>%s</code>", esc(usage))
}

func orderLines(o model.Order) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 Кількість: %d", o.Quantity))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("🏙 Місто: %s", esc(o.City)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("👤 ПІБ: %s", esc(o.RecipientName)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📮 НП: %s", esc(o.Branch)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("📞 Телефон: %s", esc(o.Phone)))
	sb.WriteString(breakLine(1))
	sb.WriteString(fmt.Sprintf("💰 Оплата: %s", PaymentMethodLabel(o.PaymentMethod)))
	return sb.String()
}

func breakLine(n int) string {
	return strings.Repeat("\n", n)
}
