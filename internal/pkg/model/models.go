package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusAccepted OrderStatus = "accepted"
	StatusCanceled OrderStatus = "canceled"
	StatusShipped  OrderStatus = "shipped"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
	PaymentPrepaid        PaymentMethod = "prepaid"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// OrderID identifies an order by its owner chat and creation instant in
// Unix milliseconds.
type OrderID struct {
	ChatID    int64
	Timestamp int64
}

func (id OrderID) String() string {
	return fmt.Sprintf("%d_%d", id.ChatID, id.Timestamp)
}

func ParseOrderID(s string) (OrderID, error) {
	chatStr, tsStr, ok := strings.Cut(s, "_")
	if !ok {
		return OrderID{}, fmt.Errorf("malformed order id %q", s)
	}
	chatID, err := strconv.ParseInt(chatStr, 10, 64)
	if err != nil {
		return OrderID{}, fmt.Errorf("malformed chat id in order id %q: %w", s, err)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return OrderID{}, fmt.Errorf("malformed timestamp in order id %q: %w", s, err)
	}
	return OrderID{ChatID: chatID, Timestamp: ts}, nil
}

// AdminMessage points at an order card sent to an admin chat, so its
// inline keyboard can be edited later.
type AdminMessage struct {
	ChatID    int64
	MessageID int
}

type Order struct {
	ID            OrderID
	Quantity      int
	City          string
	RecipientName string
	Branch        string
	Phone         string
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        OrderStatus
	TTN           string
	CreatedAt     time.Time
	AdminMessages []AdminMessage
}

// Kyiv is the zone order dates are shown and stored in.
var Kyiv = loadKyiv()

func loadKyiv() *time.Location {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

func (o Order) Date() string {
	return o.CreatedAt.In(Kyiv).Format("02.01.2006")
}

func (o Order) Time() string {
	return o.CreatedAt.In(Kyiv).Format("15:04")
}

type User struct {
	ChatID       int64
	Name         string
	Username     string
	Town         string
	Phone        string
	Workplace    string
	VerifierName string
	Verified     bool
	Orders       []OrderID
}

// Sender describes who produced an inbound update.
type Sender struct {
	ID        int64
	FirstName string
	Username  string
}
