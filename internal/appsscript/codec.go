package appsscript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kiomedine-order-bot/internal/pkg/model"
)

// Sheet labels. The spreadsheet is read by people, so values are stored in
// Ukrainian.
const (
	labelPending  = "очікує"
	labelAccepted = "прийнято"
	labelCanceled = "скасовано"
	labelShipped  = "відправлено"

	labelCashOnDelivery = "оплата при отриманні"
	labelPrepaid        = "передплата"

	labelUnpaid = "неоплачено"
	labelPaid   = "оплачено"
)

func statusLabel(s model.OrderStatus) string {
	switch s {
	case model.StatusAccepted:
		return labelAccepted
	case model.StatusCanceled:
		return labelCanceled
	case model.StatusShipped:
		return labelShipped
	default:
		return labelPending
	}
}

func parseStatus(label string) model.OrderStatus {
	switch normalize(label) {
	case labelAccepted, string(model.StatusAccepted):
		return model.StatusAccepted
	case labelCanceled, string(model.StatusCanceled):
		return model.StatusCanceled
	case labelShipped, string(model.StatusShipped):
		return model.StatusShipped
	default:
		return model.StatusPending
	}
}

func paymentMethodLabel(m model.PaymentMethod) string {
	if m == model.PaymentPrepaid {
		return labelPrepaid
	}
	return labelCashOnDelivery
}

func parsePaymentMethod(label string) model.PaymentMethod {
	switch normalize(label) {
	case labelPrepaid, string(model.PaymentPrepaid):
		return model.PaymentPrepaid
	default:
		return model.PaymentCashOnDelivery
	}
}

func paymentStatusLabel(s model.PaymentStatus) string {
	if s == model.PaymentPaid {
		return labelPaid
	}
	return labelUnpaid
}

func parsePaymentStatus(label string) model.PaymentStatus {
	switch normalize(label) {
	case labelPaid, string(model.PaymentPaid):
		return model.PaymentPaid
	default:
		return model.PaymentUnpaid
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// flexInt accepts a JSON number or a numeric string, the way spreadsheet
// cells come back.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", data)
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or number. Cells such as phone or branch
// numbers are often typed as numbers by the sheet.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

type addOrderRequest struct {
	Action        string `json:"action"`
	Timestamp     int64  `json:"timestamp"`
	ChatID        int64  `json:"chatId"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Town          string `json:"town"`
	Quantity      int    `json:"quantity"`
	City          string `json:"city"`
	Address       string `json:"address"`
	NP            string `json:"np"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CustomerName  string `json:"customerName"`
}

type updateStatusRequest struct {
	Action     string `json:"action"`
	Timestamp  int64  `json:"timestamp"`
	ChatID     int64  `json:"chatId"`
	Status     string `json:"status"`
	OperatorID int64  `json:"operatorId,omitempty"`
}

type updatePaymentRequest struct {
	Action        string `json:"action"`
	Timestamp     int64  `json:"timestamp"`
	ChatID        int64  `json:"chatId"`
	PaymentStatus string `json:"paymentStatus"`
}

type updateTTNRequest struct {
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
	ChatID    int64  `json:"chatId"`
	TTN       string `json:"ttn"`
	Status    string `json:"status"`
}

type addUserRequest struct {
	Action       string `json:"action"`
	ChatID       int64  `json:"chatId"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	Town         string `json:"town"`
	Workplace    string `json:"workplace"`
	VerifierName string `json:"verifierName"`
	Verified     bool   `json:"verified"`
}

type historyRequest struct {
	Action string `json:"action"`
	ChatID int64  `json:"chatId"`
}

type ack struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type orderRow struct {
	ChatID        flexInt    `json:"chatId"`
	Timestamp     flexInt    `json:"timestamp"`
	Quantity      flexInt    `json:"quantity"`
	City          flexString `json:"city"`
	Name          flexString `json:"name"`
	NP            flexString `json:"np"`
	Phone         flexString `json:"phone"`
	PaymentMethod string     `json:"paymentMethod"`
	PaymentStatus string     `json:"paymentStatus"`
	Status        string     `json:"status"`
	TTN           flexString `json:"ttn"`
}

type ordersResponse struct {
	Orders []orderRow `json:"orders"`
	Error  string     `json:"error"`
}

type userRow struct {
	ChatID       flexInt    `json:"chatId"`
	Name         flexString `json:"name"`
	Username     flexString `json:"username"`
	Town         flexString `json:"town"`
	Phone        flexString `json:"phone"`
	Workplace    flexString `json:"workplace"`
	VerifierName flexString `json:"verifierName"`
	Verified     *bool      `json:"verified"`
}

type usersResponse struct {
	Users []userRow `json:"users"`
	Error string    `json:"error"`
}

type statsResponse struct {
	Total    flexInt `json:"total"`
	Accepted flexInt `json:"accepted"`
	Canceled flexInt `json:"canceled"`
	Pending  flexInt `json:"pending"`
	Sent     flexInt `json:"sent"`
	Paid     flexInt `json:"paid"`
	Error    string  `json:"error"`
}

func toAddOrder(o model.Order, customer model.User) addOrderRequest {
	return addOrderRequest{
		Action:        "add",
		Timestamp:     o.ID.Timestamp,
		ChatID:        o.ID.ChatID,
		Name:          o.RecipientName,
		Username:      customer.Username,
		Town:          customer.Town,
		Quantity:      o.Quantity,
		City:          o.City,
		Address:       fmt.Sprintf("%s, НП %s", o.City, o.Branch),
		NP:            o.Branch,
		Phone:         o.Phone,
		PaymentMethod: paymentMethodLabel(o.PaymentMethod),
		PaymentStatus: paymentStatusLabel(o.PaymentStatus),
		Status:        statusLabel(o.Status),
		Date:          o.Date(),
		Time:          o.Time(),
		CustomerName:  customer.Name,
	}
}

func fromOrderRow(r orderRow) model.Order {
	ts := int64(r.Timestamp)
	return model.Order{
		ID:            model.OrderID{ChatID: int64(r.ChatID), Timestamp: ts},
		Quantity:      int(r.Quantity),
		City:          string(r.City),
		RecipientName: string(r.Name),
		Branch:        string(r.NP),
		Phone:         string(r.Phone),
		PaymentMethod: parsePaymentMethod(r.PaymentMethod),
		PaymentStatus: parsePaymentStatus(r.PaymentStatus),
		Status:        parseStatus(r.Status),
		TTN:           string(r.TTN),
		CreatedAt:     time.UnixMilli(ts),
	}
}

func fromUserRow(r userRow) model.User {
	verified := true
	if r.Verified != nil {
		verified = *r.Verified
	}
	return model.User{
		ChatID:       int64(r.ChatID),
		Name:         string(r.Name),
		Username:     string(r.Username),
		Town:         string(r.Town),
		Phone:        string(r.Phone),
		Workplace:    string(r.Workplace),
		VerifierName: string(r.VerifierName),
		Verified:     verified,
	}
}
