package appsscript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kiomedine-order-bot/internal/order"
	"kiomedine-order-bot/internal/pkg/model"

	"github.com/go-resty/resty/v2"
)

var ErrBadResponse = errors.New("unexpected apps script response")

// ErrRemote is an error reported by the script itself in a 2xx response.
type ErrRemote struct {
	Action  string
	Message string
}

func (e *ErrRemote) Error() string {
	return fmt.Sprintf("apps script action %q: %s", e.Action, e.Message)
}

// Client talks to the spreadsheet web app. Every call is a single request
// with an action discriminator; nothing is retried, since add is not
// idempotent on the sheet side.
type Client struct {
	rc  *resty.Client
	url string
}

func NewClient(url string, httpClient *http.Client) *Client {
	rc := resty.NewWithClient(httpClient).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{rc: rc, url: url}
}

func (c *Client) AddOrder(ctx context.Context, o model.Order, customer model.User) error {
	return c.post(ctx, "add", toAddOrder(o, customer))
}

func (c *Client) UpdateStatus(ctx context.Context, id model.OrderID, status model.OrderStatus, operatorID int64) error {
	return c.post(ctx, "updateStatus", updateStatusRequest{
		Action:     "updateStatus",
		Timestamp:  id.Timestamp,
		ChatID:     id.ChatID,
		Status:     statusLabel(status),
		OperatorID: operatorID,
	})
}

func (c *Client) UpdatePayment(ctx context.Context, id model.OrderID, status model.PaymentStatus) error {
	return c.post(ctx, "updatePayment", updatePaymentRequest{
		Action:        "updatePayment",
		Timestamp:     id.Timestamp,
		ChatID:        id.ChatID,
		PaymentStatus: paymentStatusLabel(status),
	})
}

func (c *Client) UpdateTTN(ctx context.Context, id model.OrderID, ttn string) error {
	return c.post(ctx, "updateTTN", updateTTNRequest{
		Action:    "updateTTN",
		Timestamp: id.Timestamp,
		ChatID:    id.ChatID,
		TTN:       ttn,
		Status:    labelShipped,
	})
}

func (c *Client) SaveUser(ctx context.Context, u model.User) error {
	return c.post(ctx, "addUser", addUserRequest{
		Action:       "addUser",
		ChatID:       u.ChatID,
		Name:         u.Name,
		Username:     u.Username,
		Phone:        u.Phone,
		Town:         u.Town,
		Workplace:    u.Workplace,
		VerifierName: u.VerifierName,
		Verified:     u.Verified,
	})
}

func (c *Client) GetOrders(ctx context.Context) ([]model.Order, error) {
	var out ordersResponse
	if err := c.get(ctx, "getOrders", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ErrRemote{Action: "getOrders", Message: out.Error}
	}

	orders := make([]model.Order, 0, len(out.Orders))
	for _, row := range out.Orders {
		if row.ChatID == 0 || row.Timestamp == 0 {
			continue
		}
		orders = append(orders, fromOrderRow(row))
	}
	return orders, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]model.User, error) {
	var out usersResponse
	if err := c.get(ctx, "getUsers", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ErrRemote{Action: "getUsers", Message: out.Error}
	}

	users := make([]model.User, 0, len(out.Users))
	for _, row := range out.Users {
		if row.ChatID == 0 {
			continue
		}
		users = append(users, fromUserRow(row))
	}
	return users, nil
}

// GetHistory returns the orders the sheet holds for one chat.
func (c *Client) GetHistory(ctx context.Context, chatID int64) ([]model.Order, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(historyRequest{Action: "getHistory", ChatID: chatID}).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("getHistory request failed: %w", err)
	}
	if err := checkStatus("getHistory", resp); err != nil {
		return nil, err
	}

	var rows []orderRow
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("%w: getHistory: %v", ErrBadResponse, err)
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o := fromOrderRow(row)
		if o.ID.ChatID == 0 {
			o.ID.ChatID = chatID
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) GetStats(ctx context.Context) (order.Stats, error) {
	var out statsResponse
	if err := c.get(ctx, "getStats", &out); err != nil {
		return order.Stats{}, err
	}
	if out.Error != "" {
		return order.Stats{}, &ErrRemote{Action: "getStats", Message: out.Error}
	}
	return order.Stats{
		Total:    int(out.Total),
		Pending:  int(out.Pending),
		Accepted: int(out.Accepted),
		Canceled: int(out.Canceled),
		Shipped:  int(out.Sent),
		Paid:     int(out.Paid),
	}, nil
}

func (c *Client) post(ctx context.Context, action string, body any) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	if err := checkStatus(action, resp); err != nil {
		return err
	}

	raw := bytes.TrimSpace(resp.Body())
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var a ack
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, action, err)
	}
	if a.Error != "" {
		return &ErrRemote{Action: action, Message: a.Error}
	}
	if a.Status == "error" {
		return &ErrRemote{Action: action, Message: "status error"}
	}
	return nil
}

func (c *Client) get(ctx context.Context, action string, out any) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("action", action).
		Get(c.url)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	if err := checkStatus(action, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, action, err)
	}
	return nil
}

func checkStatus(action string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%w: %s: status %d", ErrBadResponse, action, resp.StatusCode())
}
