package user

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"kiomedine-order-bot/internal/pkg/metrics"
	"kiomedine-order-bot/internal/pkg/model"
	"kiomedine-order-bot/pkg"

	"go.uber.org/zap"
)

// Repo persists user records.
type Repo interface {
	SaveUser(ctx context.Context, u model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
}

// Source is anything users can be reloaded from: the repo itself or the
// spreadsheet read directly.
type Source interface {
	GetUsers(ctx context.Context) ([]model.User, error)
}

// Directory is the in-memory user table plus the static admin set.
// Mutations are mirrored to the repo; a failed mirror call keeps the
// in-memory change and is reported as *pkg.ErrStoreCall.
type Directory struct {
	repo     Repo
	admins   []int64
	adminSet map[int64]struct{}
	users    map[int64]*model.User
	verified map[int64]struct{}
	// unsynced holds chats whose last mirror call failed. Reload does not
	// touch their verified flag until a later write succeeds.
	unsynced map[int64]struct{}
	mu       sync.RWMutex
}

func NewDirectory(repo Repo, adminIDs []int64) *Directory {
	adminSet := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		adminSet[id] = struct{}{}
	}
	return &Directory{
		repo:     repo,
		admins:   slices.Clone(adminIDs),
		adminSet: adminSet,
		users:    make(map[int64]*model.User),
		verified: make(map[int64]struct{}),
		unsynced: make(map[int64]struct{}),
	}
}

func (d *Directory) Get(chatID int64) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[chatID]
	if !ok {
		return model.User{}, false
	}
	return clone(u), true
}

// Upsert merges p into the record for chatID, creating it when absent.
func (d *Directory) Upsert(ctx context.Context, chatID int64, p Patch) (model.User, error) {
	d.mu.Lock()
	u, ok := d.users[chatID]
	if !ok {
		u = &model.User{ChatID: chatID}
		d.users[chatID] = u
	}
	apply(u, p)
	d.index(u)
	updated := clone(u)
	d.mu.Unlock()

	err := d.repo.SaveUser(ctx, updated)

	d.mu.Lock()
	if err != nil {
		d.unsynced[chatID] = struct{}{}
	} else {
		delete(d.unsynced, chatID)
	}
	d.mu.Unlock()

	if err != nil {
		zap.S().Errorw("Failed to mirror user", "error", err, "chatID", chatID)
		metrics.StoreErrorsTotal.WithLabelValues("addUser").Inc()
		return updated, &pkg.ErrStoreCall{Action: "addUser", Info: "user " + formatID(chatID), Err: err}
	}
	return updated, nil
}

// Remember creates an unverified record for a chat that has not been
// approved yet. Nothing is written to the repo: a stored row counts as a
// grant, so rows are only written once an admin approves.
func (d *Directory) Remember(chatID int64, sender model.Sender) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[chatID]
	if !ok {
		u = &model.User{ChatID: chatID, Name: sender.FirstName, Username: sender.Username}
		d.users[chatID] = u
	}
	return clone(u)
}

// Unverify revokes access. The record itself is kept.
func (d *Directory) Unverify(ctx context.Context, chatID int64) (model.User, error) {
	d.mu.RLock()
	_, ok := d.users[chatID]
	d.mu.RUnlock()
	if !ok {
		return model.User{}, ErrUserNotFound
	}

	verified := false
	return d.Upsert(ctx, chatID, Patch{Verified: &verified})
}

func (d *Directory) IsVerified(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.verified[chatID]
	return ok
}

func (d *Directory) IsAdmin(chatID int64) bool {
	_, ok := d.adminSet[chatID]
	return ok
}

// Admins returns the configured admin chats in configuration order.
func (d *Directory) Admins() []int64 {
	return slices.Clone(d.admins)
}

// AppendOrder records id on the owner's order list, creating a bare record
// from sender when the chat is unknown. The order itself carries the
// customer fields to the store, so nothing is mirrored here.
func (d *Directory) AppendOrder(id model.OrderID, sender model.Sender) model.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id.ChatID]
	if !ok {
		u = &model.User{
			ChatID:   id.ChatID,
			Name:     sender.FirstName,
			Username: sender.Username,
		}
		d.users[id.ChatID] = u
	}
	if !slices.Contains(u.Orders, id) {
		u.Orders = append(u.Orders, id)
		slices.SortFunc(u.Orders, func(a, b model.OrderID) int {
			return cmp.Compare(a.Timestamp, b.Timestamp)
		})
	}
	return clone(u)
}

// All returns every known user ordered by chat id.
func (d *Directory) All() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]model.User, 0, len(d.users))
	for _, u := range d.users {
		result = append(result, clone(u))
	}
	slices.SortFunc(result, func(a, b model.User) int {
		return cmp.Compare(a.ChatID, b.ChatID)
	})
	return result
}

// Reload merges users from src. Remote identity fields and the verified flag
// win, except the flag of chats whose last write never reached the store.
// Local order lists are kept.
func (d *Directory) Reload(ctx context.Context, src Source) (int, error) {
	remote, err := src.GetUsers(ctx)
	if err != nil {
		zap.S().Errorw("Failed to load users", "error", err)
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range remote {
		if r.ChatID == 0 {
			continue
		}
		u, ok := d.users[r.ChatID]
		if !ok {
			u = &model.User{ChatID: r.ChatID}
			d.users[r.ChatID] = u
		}
		_, pending := d.unsynced[r.ChatID]
		merge(u, r, !pending)
		d.index(u)
	}
	return len(remote), nil
}

func (d *Directory) index(u *model.User) {
	if u.Verified {
		d.verified[u.ChatID] = struct{}{}
		return
	}
	delete(d.verified, u.ChatID)
}
