package order

import (
	"errors"

	"kiomedine-order-bot/internal/pkg/model"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrCannotCancelAccepted = errors.New("cannot cancel an accepted order")
	ErrOrderCanceled        = errors.New("order is canceled")
	ErrAlreadyAccepted      = errors.New("order is already accepted")
	ErrNotAccepted          = errors.New("order is not accepted")
	ErrAlreadyPaid          = errors.New("order is already paid")
	ErrAlreadyShipped       = errors.New("order is already shipped")
	ErrEmptyTTN             = errors.New("tracking number is empty")
)

// Action is an admin operation on a submitted order.
type Action string

const (
	ActionAccept Action = "accept"
	ActionCancel Action = "cancel"
	ActionPaid   Action = "paid"
	ActionTTN    Action = "ttn"
)

// AvailableActions lists the admin actions still valid for o, in keyboard order.
func AvailableActions(o model.Order) []Action {
	switch o.Status {
	case model.StatusPending:
		return []Action{ActionAccept, ActionCancel}
	case model.StatusAccepted:
		if o.PaymentStatus == model.PaymentPaid {
			return []Action{ActionTTN}
		}
		return []Action{ActionPaid, ActionTTN}
	default:
		return nil
	}
}

// Stats is a snapshot over the whole order table.
type Stats struct {
	Total    int
	Pending  int
	Accepted int
	Canceled int
	Shipped  int
	Paid     int
	// Units counts accepted and shipped packs.
	Units int
}

// DBOrder is the row shape of the orders table.
type DBOrder struct {
	ChatID        int64  `db:"chat_id"`
	CreatedMs     int64  `db:"created_ms"`
	Quantity      int    `db:"quantity"`
	City          string `db:"city"`
	RecipientName string `db:"recipient_name"`
	Branch        string `db:"branch"`
	Phone         string `db:"phone"`
	PaymentMethod string `db:"payment_method"`
	PaymentStatus string `db:"payment_status"`
	Status        string `db:"status"`
	TTN           string `db:"ttn"`
}
