package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"kiomedine-order-bot/internal/broadcast"
	"kiomedine-order-bot/internal/conversation"
	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/internal/telegram/internal/fsm"
	"kiomedine-order-bot/internal/telegram/internal/presentation"
	"kiomedine-order-bot/internal/user"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

const (
	adminA   int64 = 100
	adminB   int64 = 101
	customer int64 = 7
)

var errStoreDown = errors.New("store is down")

type sentMessage struct {
	chatID int64
	text   string
	markup models.ReplyMarkup
}

type answer struct {
	text  string
	alert bool
}

type edit struct {
	chatID    int64
	messageID int
	kbd       *models.InlineKeyboardMarkup
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	media    []fsm.Media
	answers  []answer
	edits    []edit
	contacts []string
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return len(f.sent), nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, _ int64, m fsm.Media) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, m)
	return "uploaded-file", nil
}

func (f *fakeMessenger) EditKeyboard(_ context.Context, chatID int64, messageID int, kbd *models.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{chatID: chatID, messageID: messageID, kbd: kbd})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{text: text, alert: alert})
	return nil
}

func (f *fakeMessenger) SendContact(_ context.Context, _ int64, phone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, phone)
	return nil
}

// textsTo lists the texts sent to chatID in order.
func (f *fakeMessenger) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func (f *fakeMessenger) lastTo(chatID int64) string {
	texts := f.textsTo(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeMessenger) lastAnswer() answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return answer{}
	}
	return f.answers[len(f.answers)-1]
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.media = nil
	f.answers = nil
	f.edits = nil
}

type fakeOrderRepo struct {
	mu    sync.Mutex
	added []model.Order
	err   error
}

func (f *fakeOrderRepo) AddOrder(_ context.Context, o model.Order, _ model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, o)
	return nil
}

func (f *fakeOrderRepo) UpdateStatus(context.Context, model.OrderID, model.OrderStatus, int64) error {
	return f.failure()
}

func (f *fakeOrderRepo) UpdatePayment(context.Context, model.OrderID, model.PaymentStatus) error {
	return f.failure()
}

func (f *fakeOrderRepo) UpdateTTN(context.Context, model.OrderID, string) error {
	return f.failure()
}

func (f *fakeOrderRepo) GetOrders(context.Context) ([]model.Order, error) {
	return nil, f.failure()
}

func (f *fakeOrderRepo) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeOrderRepo) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeUserRepo struct {
	mu    sync.Mutex
	saved map[int64]model.User
}

func (f *fakeUserRepo) SaveUser(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[u.ChatID] = u
	return nil
}

func (f *fakeUserRepo) GetUsers(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]model.User, 0, len(f.saved))
	for _, u := range f.saved {
		users = append(users, u)
	}
	return users, nil
}

type harness struct {
	t          *testing.T
	ctx        context.Context
	msg        *fakeMessenger
	router     *fsm.Router
	users      *user.Directory
	orders     *order.DefaultService
	store      *conversation.Store
	broadcasts *broadcast.Service
	orderRepo  *fakeOrderRepo
	userRepo   *fakeUserRepo
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		ctx:       context.Background(),
		msg:       &fakeMessenger{},
		orderRepo: &fakeOrderRepo{},
		userRepo:  &fakeUserRepo{saved: make(map[int64]model.User)},
		now:       time.Date(2026, 10, 19, 11, 30, 0, 0, time.UTC),
	}
	h.router = fsm.NewRouter(h.msg)
	h.users = user.NewDirectory(h.userRepo, []int64{adminA, adminB})
	h.orders = order.NewDefaultService(h.orderRepo)
	h.store = conversation.NewStore(conversation.WithClock(func() time.Time { return h.now }))
	h.broadcasts = broadcast.NewService(NewBroadcastSender(h.msg), ratelimit.NewUnlimited())

	Setup(h.router, &Services{
		Users:         h.users,
		Orders:        h.orders,
		Conversations: h.store,
		Broadcasts:    h.broadcasts,
		UsersSource:   h.userRepo,
		Shop: Shop{
			UnitPrice:      decimal.NewFromInt(8500),
			Currency:       "грн",
			PaymentDetails: "UA000000000000000000000000000",
			OperatorPhone:  "+380501112233",
			OperatorName:   "Оператор",
		},
	})
	return h
}

func (h *harness) send(chatID int64, text string) {
	h.t.Helper()
	ev := fsm.Event{
		ChatID: chatID,
		Text:   text,
		Sender: model.Sender{ID: chatID, FirstName: "Олена", Username: "olena"},
	}
	require.NoError(h.t, h.router.Dispatch(h.ctx, ev))
}

func (h *harness) press(chatID int64, data string) {
	h.t.Helper()
	ev := fsm.Event{
		ChatID:   chatID,
		Callback: &fsm.Callback{ID: "cb", Data: data, MessageID: 555},
		Sender:   model.Sender{ID: chatID, FirstName: "Олена", Username: "olena"},
	}
	require.NoError(h.t, h.router.Dispatch(h.ctx, ev))
}

func (h *harness) verify(chatID int64) {
	h.t.Helper()
	_, err := h.users.Upsert(h.ctx, chatID, user.Patch{
		Name:     user.Ptr("Олена"),
		Username: user.Ptr("olena"),
		Town:     user.Ptr("Львів"),
		Verified: user.Ptr(true),
	})
	require.NoError(h.t, err)
}

// placeOrder walks a verified chat through the whole intake.
func (h *harness) placeOrder(chatID int64, payment string) model.Order {
	h.t.Helper()
	h.send(chatID, presentation.BtnMakeOrder)
	h.send(chatID, "2")
	h.send(chatID, "Київ")
	h.send(chatID, "Іван Петренко")
	h.send(chatID, "12")
	h.send(chatID, "0501234567")
	h.press(chatID, payment)

	history := h.orders.History(h.ctx, chatID)
	require.NotEmpty(h.t, history)
	return history[len(history)-1]
}

func TestVerificationFlowAndGrant(t *testing.T) {
	h := newHarness(t)

	h.send(customer, "/start")
	assert.Equal(t, presentation.AskFullNameMsg(), h.msg.lastTo(customer))

	h.send(customer, "Олена Коваль")
	assert.Equal(t, presentation.AskVerificationPhoneMsg(), h.msg.lastTo(customer))

	h.send(customer, "12345")
	assert.Equal(t, presentation.InvalidPhoneMsg(), h.msg.lastTo(customer))

	h.send(customer, "+380501234567")
	assert.Equal(t, presentation.AskTownMsg(), h.msg.lastTo(customer))
	h.send(customer, "Львів")
	assert.Equal(t, presentation.AskWorkplaceMsg(), h.msg.lastTo(customer))
	h.send(customer, "Лікарня №1")
	assert.Equal(t, presentation.AskVerifierNameMsg(), h.msg.lastTo(customer))
	h.send(customer, "Др. Шевченко")
	assert.Equal(t, presentation.VerificationSubmittedMsg(), h.msg.lastTo(customer))

	v, ok := h.store.Verification(customer)
	require.True(t, ok)
	assert.Equal(t, conversation.VerifyPendingApproval, v.Step)
	assert.Equal(t, presentation.VerificationRequestMsg(v), h.msg.lastTo(adminA))
	assert.Equal(t, presentation.VerificationRequestMsg(v), h.msg.lastTo(adminB))

	h.send(customer, "ну що там?")
	assert.Equal(t, presentation.VerificationPendingMsg(), h.msg.lastTo(customer))
	assert.False(t, h.users.IsVerified(customer))

	h.press(adminA, presentation.CallbackVerify+"7")

	assert.True(t, h.users.IsVerified(customer))
	assert.Equal(t, presentation.UserVerifiedMsg(), h.msg.lastTo(customer))
	assert.Equal(t, presentation.UserAddedMsg("Олена Коваль"), h.msg.lastTo(adminA))
	_, open := h.store.Verification(customer)
	assert.False(t, open)

	saved := h.userRepo.saved[customer]
	assert.True(t, saved.Verified)
	assert.Equal(t, "+380501234567", saved.Phone)
	assert.Equal(t, "Лікарня №1", saved.Workplace)
	assert.Equal(t, "Др. Шевченко", saved.VerifierName)

	// A second press finds nothing to approve.
	h.press(adminB, presentation.CallbackVerify+"7")
	assert.Equal(t, answer{text: presentation.VerificationNotFoundMsg(), alert: true}, h.msg.lastAnswer())
}

func TestVerificationExpires(t *testing.T) {
	h := newHarness(t)

	h.send(customer, "/start")
	h.now = h.now.Add(conversation.VerificationTTL + time.Minute)
	h.send(customer, "Олена Коваль")

	assert.Equal(t, presentation.VerificationExpiredMsg(), h.msg.lastTo(customer))
	_, open := h.store.Verification(customer)
	assert.False(t, open)

	h.send(customer, "/start")
	assert.Equal(t, presentation.AskFullNameMsg(), h.msg.lastTo(customer))
}

func TestVerificationPhoneForms(t *testing.T) {
	h := newHarness(t)

	h.send(customer, "/start")
	h.send(customer, "Олена Коваль")

	h.send(customer, "+38050123456")
	assert.Equal(t, presentation.InvalidPhoneMsg(), h.msg.lastTo(customer))
	v, ok := h.store.Verification(customer)
	require.True(t, ok)
	assert.Equal(t, conversation.VerifyAwaitingPhone, v.Step)

	h.send(customer, "0501234567")
	assert.Equal(t, presentation.AskTownMsg(), h.msg.lastTo(customer))
	v, _ = h.store.Verification(customer)
	assert.Equal(t, "0501234567", v.Phone)
}

func TestStartKeepsUnapprovedChatOutOfStore(t *testing.T) {
	h := newHarness(t)

	h.send(customer, "/start")
	h.send(customer, "Олена Коваль")

	known, ok := h.users.Get(customer)
	require.True(t, ok)
	assert.Equal(t, "Олена", known.Name)
	assert.Empty(t, h.userRepo.saved)

	// Stores that list only approved chats treat every row as a grant.
	_, err := h.users.Reload(h.ctx, h.userRepo)
	require.NoError(t, err)
	assert.False(t, h.users.IsVerified(customer))
}

func TestUnverifiedChatIsRefused(t *testing.T) {
	h := newHarness(t)

	h.send(customer, presentation.BtnMakeOrder)
	assert.Equal(t, presentation.NotVerifiedMsg(), h.msg.lastTo(customer))
	_, drafting := h.store.Order(customer)
	assert.False(t, drafting)

	h.press(customer, presentation.CallbackPaymentCOD)
	assert.Equal(t, answer{text: presentation.NotVerifiedMsg(), alert: true}, h.msg.lastAnswer())
}

func TestOrderIntake(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)

	h.send(customer, presentation.BtnMakeOrder)
	assert.Equal(t, presentation.AskQuantityMsg(), h.msg.lastTo(customer))
	h.send(customer, "0")
	assert.Equal(t, presentation.InvalidQuantityMsg(), h.msg.lastTo(customer))
	h.send(customer, "два")
	assert.Equal(t, presentation.InvalidQuantityMsg(), h.msg.lastTo(customer))

	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)

	all := h.orders.All()
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusPending, o.Status)
	assert.Equal(t, model.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, model.PaymentUnpaid, o.PaymentStatus)
	assert.Equal(t, 2, o.Quantity)
	assert.Equal(t, "Київ", o.City)
	assert.Equal(t, "Іван Петренко", o.RecipientName)
	assert.Equal(t, "12", o.Branch)
	assert.Equal(t, "0501234567", o.Phone)
	assert.Equal(t, h.now.UnixMilli(), o.ID.Timestamp)
	require.Len(t, h.orderRepo.added, 1)

	require.Len(t, o.AdminMessages, 2)
	customerRecord, _ := h.users.Get(customer)
	card := presentation.AdminNewOrderMsg(o, customerRecord, "UA000000000000000000000000000")
	assert.Equal(t, []string{card}, h.msg.textsTo(adminA))
	assert.Equal(t, []string{card}, h.msg.textsTo(adminB))
	assert.Equal(t, presentation.OrderSubmittedMsg(o, "UA000000000000000000000000000"), h.msg.lastTo(customer))
	assert.Contains(t, customerRecord.Orders, o.ID)

	_, drafting := h.store.Order(customer)
	assert.False(t, drafting)

	// The payment keyboard is gone once the draft is submitted.
	h.press(customer, presentation.CallbackPaymentCOD)
	assert.Equal(t, answer{text: presentation.OrderExpiredMsg(), alert: true}, h.msg.lastAnswer())
	assert.Len(t, h.orders.All(), 1)
}

func TestOrderIntakeKeepsOrderWhenStoreFails(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	h.orderRepo.fail(errStoreDown)

	o := h.placeOrder(customer, presentation.CallbackPaymentPrepaid)

	assert.Equal(t, model.PaymentPrepaid, o.PaymentMethod)
	assert.Len(t, h.orders.History(h.ctx, customer), 1)

	// One warning and one order card per admin.
	for _, admin := range []int64{adminA, adminB} {
		texts := h.msg.textsTo(admin)
		require.Len(t, texts, 2)
		assert.Contains(t, texts[0], "olena")
		assert.Contains(t, texts[0], errStoreDown.Error())
		assert.Equal(t, presentation.AdminNewOrderMsg(o, h.customerRecord(), "UA000000000000000000000000000"), texts[1])
	}

	h.msg.reset()
	h.send(customer, presentation.BtnHistory)
	assert.Equal(t, presentation.HistoryMsg([]model.Order{o}), h.msg.lastTo(customer))
}

func TestAdminActionsRequireAdmin(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)

	h.press(customer, presentation.CallbackAccept+o.ID.String())
	assert.Equal(t, answer{text: presentation.AdminOnlyMsg(), alert: true}, h.msg.lastAnswer())

	got, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusPending, got.Status)

	h.send(customer, "/verify 9")
	assert.Equal(t, presentation.NoAdminAccessMsg(), h.msg.lastTo(customer))
	assert.False(t, h.users.IsVerified(9))
}

func TestAcceptThenCancelIsRefused(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)
	h.msg.reset()

	h.press(adminA, presentation.CallbackAccept+o.ID.String())

	got, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.Equal(t, presentation.OrderAcceptedUserMsg(), h.msg.lastTo(customer))
	assert.Len(t, h.msg.edits, 2)
	for _, e := range h.msg.edits {
		assert.Equal(t, "paid_"+o.ID.String(), e.kbd.InlineKeyboard[0][0].CallbackData)
	}

	h.msg.reset()
	h.press(adminB, presentation.CallbackCancel+o.ID.String())

	assert.Equal(t, answer{text: presentation.OrderErrorMsg(order.ErrCannotCancelAccepted), alert: true}, h.msg.lastAnswer())
	got, _ = h.orders.Get(o.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.Empty(t, h.msg.textsTo(customer))
	assert.Empty(t, h.msg.edits)
}

func TestCancelPendingOrder(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)
	h.msg.reset()

	h.press(adminA, presentation.CallbackCancel+o.ID.String())

	got, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusCanceled, got.Status)
	assert.Equal(t, presentation.OrderCanceledUserMsg(), h.msg.lastTo(customer))
	assert.Equal(t, answer{text: presentation.CanceledCallbackMsg()}, h.msg.lastAnswer())
	for _, e := range h.msg.edits {
		assert.Empty(t, e.kbd.InlineKeyboard)
	}

	h.press(adminA, presentation.CallbackAccept+o.ID.String())
	assert.Equal(t, answer{text: presentation.OrderErrorMsg(order.ErrOrderCanceled), alert: true}, h.msg.lastAnswer())
}

func TestAdminActionStoreFailureWarnsAdminsOnly(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)
	h.orderRepo.fail(errStoreDown)
	h.msg.reset()

	h.press(adminA, presentation.CallbackAccept+o.ID.String())

	got, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.Empty(t, h.msg.textsTo(customer))

	// The cards move on to the actions an accepted order allows.
	require.Len(t, h.msg.edits, 2)
	for _, e := range h.msg.edits {
		assert.Equal(t, presentation.OrderActionsKbd(got), e.kbd)
	}

	warning := presentation.StoreWarningMsg(h.summaryOf(got), errStoreDown)
	assert.Equal(t, []string{warning}, h.msg.textsTo(adminA))
	assert.Equal(t, []string{warning}, h.msg.textsTo(adminB))
}

func (h *harness) customerRecord() model.User {
	u, _ := h.users.Get(customer)
	return u
}

func (h *harness) summaryOf(o model.Order) string {
	u, _ := h.users.Get(o.ID.ChatID)
	return presentation.CustomerSummary(u, o)
}

func TestTTNShipsOrder(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)

	h.press(adminA, presentation.CallbackTTN+o.ID.String())
	assert.Equal(t, answer{text: presentation.OrderErrorMsg(order.ErrNotAccepted), alert: true}, h.msg.lastAnswer())

	h.press(adminA, presentation.CallbackAccept+o.ID.String())
	h.press(adminA, presentation.CallbackTTN+o.ID.String())
	accepted, _ := h.orders.Get(o.ID)
	assert.Equal(t, presentation.AskTTNMsg(h.summaryOf(accepted)), h.msg.lastTo(adminA))

	h.send(adminA, "   ")
	assert.Equal(t, presentation.OrderErrorMsg(order.ErrEmptyTTN), h.msg.lastTo(adminA))

	h.msg.reset()
	h.send(adminA, "20450000123456")

	shipped, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusShipped, shipped.Status)
	assert.Equal(t, "20450000123456", shipped.TTN)
	assert.Equal(t, presentation.TTNUserMsg("Олена", shipped, "17 000 грн"), h.msg.lastTo(customer))
	assert.Equal(t, presentation.TTNAdminMsg("Олена", shipped), h.msg.lastTo(adminB))

	_, pending := h.store.AdminTask(adminA)
	assert.False(t, pending)
}

func TestSendCommandAcceptsPendingOrder(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)

	h.send(adminA, "/send 7")
	assert.Equal(t, presentation.DeliveryNotFoundMsg(), h.msg.lastTo(adminA))

	o := h.placeOrder(customer, presentation.CallbackPaymentCOD)
	h.send(adminA, "/send 7")

	got, _ := h.orders.Get(o.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.Equal(t, presentation.DeliveryAcceptedUserMsg(), h.msg.lastTo(customer))
	assert.Equal(t, presentation.DeliveryAcceptedAdminMsg("olena"), h.msg.lastTo(adminB))

	h.send(adminA, "/send 7")
	assert.Equal(t, presentation.DeliveryConfirmedUserMsg(), h.msg.lastTo(customer))
	assert.Equal(t, presentation.DeliveryConfirmedAdminMsg(), h.msg.lastTo(adminA))
}

func TestQuestionAndReply(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)

	h.send(customer, presentation.BtnAskQuestion)
	assert.Equal(t, presentation.AskQuestionMsg(), h.msg.lastTo(customer))
	h.send(customer, "Коли буде доставка?")
	assert.Equal(t, presentation.QuestionSentMsg(), h.msg.lastTo(customer))
	assert.Equal(t, 1, h.store.PendingQuestions())
	assert.False(t, h.store.InQuestionMode(customer))

	q, ok := h.store.NextQuestion()
	require.True(t, ok)
	assert.Equal(t, presentation.AdminQuestionMsg(q), h.msg.lastTo(adminB))

	h.send(adminA, presentation.BtnReplyToUser)
	assert.Equal(t, presentation.ReplyingToMsg(q), h.msg.lastTo(adminA))

	h.send(adminA, "Завтра")
	assert.Equal(t, presentation.OperatorMessageMsg("Завтра"), h.msg.lastTo(customer))
	assert.Equal(t, presentation.ReplySentMsg(), h.msg.lastTo(adminA))
	assert.Equal(t, 0, h.store.PendingQuestions())

	h.send(adminA, presentation.BtnReplyToUser)
	assert.Equal(t, presentation.NoQuestionsMsg(), h.msg.lastTo(adminA))
}

func TestUnverifyRevokesAccess(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	h.send(customer, presentation.BtnMakeOrder)

	h.send(adminA, "/unverify 7")

	assert.False(t, h.users.IsVerified(customer))
	assert.Equal(t, presentation.AccessRevokedMsg(), h.msg.lastTo(customer))
	assert.Equal(t, presentation.AdminUserUnverifiedMsg(customer), h.msg.lastTo(adminB))
	_, drafting := h.store.Order(customer)
	assert.False(t, drafting)

	h.send(adminA, "/unverify 404")
	assert.Equal(t, presentation.UserNotFoundMsg(), h.msg.lastTo(adminA))
}

func TestBroadcast(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)
	h.verify(8)

	h.send(adminA, "/sendbroadcast")
	assert.Equal(t, presentation.BroadcastNotStartedMsg(), h.msg.lastTo(adminA))

	h.send(adminA, "/broadcast")
	assert.Equal(t, presentation.BroadcastStartMsg(), h.msg.lastTo(adminA))
	h.send(adminA, "/sendbroadcast")
	assert.Equal(t, presentation.BroadcastEmptyMsg(), h.msg.lastTo(adminA))

	h.send(adminA, "Нова партія вже на складі")
	assert.Equal(t, presentation.BroadcastTextSavedMsg(), h.msg.lastTo(adminA))
	h.send(adminA, "/sendbroadcast")

	require.NoError(t, h.broadcasts.Stop(h.ctx))

	want := presentation.BroadcastTextMsg("Нова партія вже на складі")
	assert.Equal(t, []string{want}, h.msg.textsTo(customer))
	assert.Equal(t, []string{want}, h.msg.textsTo(8))
	assert.Contains(t, h.msg.textsTo(adminA), presentation.BroadcastStartedMsg(2))
	assert.Contains(t, h.msg.textsTo(adminA), presentation.BroadcastReportMsg(2, 0))

	_, armed := h.store.AdminTask(adminA)
	assert.False(t, armed)
}

func TestBroadcastTextMustFit(t *testing.T) {
	h := newHarness(t)
	photo := func(caption string) {
		t.Helper()
		require.NoError(t, h.router.Dispatch(h.ctx, fsm.Event{
			ChatID:      adminA,
			PhotoFileID: "photo-1",
			Caption:     caption,
			Sender:      model.Sender{ID: adminA},
		}))
	}
	captionLimit := presentation.BroadcastTextLimit(true)

	h.send(adminA, "/broadcast")

	photo(strings.Repeat("а", captionLimit+1))
	assert.Equal(t, presentation.BroadcastTooLongMsg(captionLimit), h.msg.lastTo(adminA))
	task, ok := h.store.AdminTask(adminA)
	require.True(t, ok)
	assert.Equal(t, conversation.BroadcastTask{}, task)

	// Long text is fine on its own but not as a caption.
	long := strings.Repeat("б", captionLimit+10)
	h.send(adminA, long)
	assert.Equal(t, presentation.BroadcastTextSavedMsg(), h.msg.lastTo(adminA))
	photo("")
	assert.Equal(t, presentation.BroadcastTooLongMsg(captionLimit), h.msg.lastTo(adminA))

	photo("Нова партія")
	assert.Equal(t, presentation.BroadcastPhotoSavedMsg(), h.msg.lastTo(adminA))
	task, _ = h.store.AdminTask(adminA)
	assert.Equal(t, conversation.BroadcastTask{Payload: conversation.BroadcastPayload{
		Text:        "Нова партія",
		PhotoFileID: "photo-1",
	}}, task)

	h.send(adminA, strings.Repeat("в", presentation.BroadcastTextLimit(false)+1))
	assert.Equal(t, presentation.BroadcastTooLongMsg(captionLimit), h.msg.lastTo(adminA))
}

func TestCancelButtonDropsDraft(t *testing.T) {
	h := newHarness(t)
	h.verify(customer)

	h.send(customer, presentation.BtnMakeOrder)
	h.send(customer, "3")
	h.send(customer, presentation.BtnCancel)

	assert.Equal(t, presentation.CancelledMsg(), h.msg.lastTo(customer))
	_, drafting := h.store.Order(customer)
	assert.False(t, drafting)

	h.send(customer, presentation.BtnCancel)
	assert.Equal(t, presentation.NothingToCancelMsg(), h.msg.lastTo(customer))
}

func TestSplitMessage(t *testing.T) {
	parts := splitMessage("aaaa\n\nbbbb\n\ncccc", 10)
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, parts)
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	// A single block over the limit is cut too.
	assert.Equal(t, []string{"abcde", "fghij", "klmno", "p"}, splitMessage("abcdefghijklmnop", 5))
	assert.Equal(t, []string{"aaa\nbbb", "ccc"}, splitMessage("aaa\nbbb\nccc", 8))
	assert.Equal(t, []string{"ab", "&amp;c", "d"}, splitMessage("ab&amp;cd", 6))

	for _, part := range splitMessage(strings.Repeat("й", 3*presentation.MessageLimit+7), presentation.MessageLimit) {
		assert.LessOrEqual(t, utf8.RuneCountInString(part), presentation.MessageLimit)
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+380501234567", true},
		{"0501234567", true},
		{" 0501234567 ", true},
		{"12345", false},
		{"+38050123456", false},
		{"05012345678", false},
		{"+380 50 123 4567", false},
		{"050１２３４５６７", false},
		{"٠٥٠١٢٣٤٥٦٧", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, validPhone(tt.in))
		})
	}
}

func TestParseQuantity(t *testing.T) {
	n, ok := parseQuantity(" 12 ")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	for _, in := range []string{"0", "-1", "1.5", "", "abc"} {
		_, ok := parseQuantity(in)
		assert.False(t, ok, in)
	}
}
