package conversation

import (
	"slices"
	"sync"
	"time"

	"kiomedine-order-bot/internal/pkg/metrics"
)

// Store holds every transient per-chat conversation. Each map admits at most
// one entry per chat, so a chat never has two open conversations of a kind.
type Store struct {
	verifications map[int64]Verification
	orders        map[int64]OrderDraft
	adminTasks    map[int64]AdminTask
	questionMode  map[int64]struct{}
	inbox         []Question
	now           func() time.Time
	mu            sync.Mutex
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		verifications: make(map[int64]Verification),
		orders:        make(map[int64]OrderDraft),
		adminTasks:    make(map[int64]AdminTask),
		questionMode:  make(map[int64]struct{}),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Now() time.Time {
	return s.now()
}

// StartVerification opens a verification for chatID. A live request is
// resumed and reported with resumed=true; an expired one is replaced.
func (s *Store) StartVerification(chatID int64, username string) (v Verification, resumed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.verifications[chatID]; ok && !existing.Expired(now) {
		return existing, true
	}

	v = Verification{
		ChatID:    chatID,
		Step:      VerifyAwaitingName,
		CreatedAt: now,
		Username:  username,
	}
	s.verifications[chatID] = v
	s.track()
	return v, false
}

func (s *Store) Verification(chatID int64) (Verification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.verifications[chatID]
	return v, ok
}

// SaveVerification stores v only while a request for the chat is open.
func (s *Store) SaveVerification(v Verification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verifications[v.ChatID]; !ok {
		return false
	}
	s.verifications[v.ChatID] = v
	return true
}

func (s *Store) DropVerification(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.verifications, chatID)
	s.track()
}

// SweepExpired drops verifications past VerificationTTL that are already
// waiting for an admin and returns how many were removed. Requests still in
// intake are left for the next message to expire, so the user is told.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, v := range s.verifications {
		if v.Step == VerifyPendingApproval && v.Expired(now) {
			delete(s.verifications, id)
			removed++
		}
	}
	s.track()
	return removed
}

// StartOrder opens a fresh draft, discarding any draft already open.
func (s *Store) StartOrder(chatID int64) OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := OrderDraft{
		ChatID:    chatID,
		Step:      OrderAwaitingQuantity,
		StartedAt: s.now(),
	}
	s.orders[chatID] = d
	s.track()
	return d
}

func (s *Store) Order(chatID int64) (OrderDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.orders[chatID]
	return d, ok
}

// SaveOrder stores d only while a draft for the chat is open.
func (s *Store) SaveOrder(d OrderDraft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[d.ChatID]; !ok {
		return false
	}
	s.orders[d.ChatID] = d
	return true
}

// TakeOrder removes the draft and returns it.
func (s *Store) TakeOrder(chatID int64) (OrderDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.orders[chatID]
	delete(s.orders, chatID)
	s.track()
	return d, ok
}

func (s *Store) DropOrder(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, chatID)
	s.track()
}

// SetAdminTask replaces whatever task adminID had.
func (s *Store) SetAdminTask(adminID int64, task AdminTask) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adminTasks[adminID] = task
	s.track()
}

func (s *Store) AdminTask(adminID int64) (AdminTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.adminTasks[adminID]
	return t, ok
}

func (s *Store) ClearAdminTask(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.adminTasks, adminID)
	s.track()
}

func (s *Store) EnterQuestionMode(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questionMode[chatID] = struct{}{}
	s.track()
}

func (s *Store) InQuestionMode(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.questionMode[chatID]
	return ok
}

func (s *Store) LeaveQuestionMode(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.questionMode, chatID)
	s.track()
}

// PushQuestion queues q for an operator reply.
func (s *Store) PushQuestion(q Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.AskedAt.IsZero() {
		q.AskedAt = s.now()
	}
	s.inbox = append(s.inbox, q)
}

// NextQuestion returns the oldest unanswered question without removing it.
func (s *Store) NextQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inbox) == 0 {
		return Question{}, false
	}
	return s.inbox[0], true
}

// ResolveQuestion removes the oldest question asked from chatID.
func (s *Store) ResolveQuestion(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.inbox, func(q Question) bool {
		return q.ChatID == chatID
	})
	if idx < 0 {
		return false
	}
	s.inbox = slices.Delete(s.inbox, idx, idx+1)
	return true
}

func (s *Store) PendingQuestions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.inbox)
}

func (s *Store) track() {
	metrics.OpenConversations.WithLabelValues("verification").Set(float64(len(s.verifications)))
	metrics.OpenConversations.WithLabelValues("order").Set(float64(len(s.orders)))
	metrics.OpenConversations.WithLabelValues("admin_task").Set(float64(len(s.adminTasks)))
	metrics.OpenConversations.WithLabelValues("question").Set(float64(len(s.questionMode)))
}
