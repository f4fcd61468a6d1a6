package appsscript

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kiomedine-order-bot/internal/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	action string
	body   map[string]any
}

func newServer(t *testing.T, reply func(r recorded) (int, string)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, action: r.URL.Query().Get("action")}
		if r.Method == http.MethodPost {
			raw, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.NoError(t, json.Unmarshal(raw, &rec.body))
			rec.action, _ = rec.body["action"].(string)
		}
		calls = append(calls, rec)

		status, body := reply(rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client()), &calls
}

func ok(recorded) (int, string) {
	return http.StatusOK, `{"status":"ok"}`
}

func TestClient_AddOrder(t *testing.T) {
	client, calls := newServer(t, ok)

	o := model.Order{
		ID:            model.OrderID{ChatID: 42, Timestamp: 1767225600000},
		Quantity:      2,
		City:          "Kyiv",
		RecipientName: "Ivan Petrenko",
		Branch:        "5",
		Phone:         "0501234567",
		PaymentMethod: model.PaymentPrepaid,
		PaymentStatus: model.PaymentUnpaid,
		Status:        model.StatusPending,
		CreatedAt:     time.UnixMilli(1767225600000),
	}
	err := client.AddOrder(context.Background(), o, model.User{Name: "Olena", Username: "olena", Town: "Lviv"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	body := (*calls)[0].body
	assert.Equal(t, "add", body["action"])
	assert.Equal(t, float64(42), body["chatId"])
	assert.Equal(t, float64(1767225600000), body["timestamp"])
	assert.Equal(t, "Kyiv, НП 5", body["address"])
	assert.Equal(t, "передплата", body["paymentMethod"])
	assert.Equal(t, "неоплачено", body["paymentStatus"])
	assert.Equal(t, "очікує", body["status"])
	assert.Equal(t, "01.01.2026", body["date"])
	assert.Equal(t, "02:00", body["time"])
	assert.Equal(t, "Lviv", body["town"])
}

func TestClient_Updates(t *testing.T) {
	ctx := context.Background()
	client, calls := newServer(t, ok)
	id := model.OrderID{ChatID: 7, Timestamp: 99}

	require.NoError(t, client.UpdateStatus(ctx, id, model.StatusAccepted, 555))
	require.NoError(t, client.UpdatePayment(ctx, id, model.PaymentPaid))
	require.NoError(t, client.UpdateTTN(ctx, id, "20450000000000"))
	require.NoError(t, client.SaveUser(ctx, model.User{ChatID: 7, Name: "Ivan", Verified: true}))

	require.Len(t, *calls, 4)
	assert.Equal(t, "прийнято", (*calls)[0].body["status"])
	assert.Equal(t, float64(555), (*calls)[0].body["operatorId"])
	assert.Equal(t, "оплачено", (*calls)[1].body["paymentStatus"])
	assert.Equal(t, "відправлено", (*calls)[2].body["status"])
	assert.Equal(t, "20450000000000", (*calls)[2].body["ttn"])
	assert.Equal(t, "addUser", (*calls)[3].action)
	assert.Equal(t, true, (*calls)[3].body["verified"])
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("http status", func(t *testing.T) {
		client, _ := newServer(t, func(recorded) (int, string) {
			return http.StatusInternalServerError, "boom"
		})
		err := client.UpdatePayment(ctx, model.OrderID{ChatID: 1, Timestamp: 1}, model.PaymentPaid)
		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("script error", func(t *testing.T) {
		client, _ := newServer(t, func(recorded) (int, string) {
			return http.StatusOK, `{"error":"row not found"}`
		})
		err := client.UpdateTTN(ctx, model.OrderID{ChatID: 1, Timestamp: 1}, "1")

		var remote *ErrRemote
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, "updateTTN", remote.Action)
		assert.Equal(t, "row not found", remote.Message)
	})

	t.Run("plain text ack", func(t *testing.T) {
		client, _ := newServer(t, func(recorded) (int, string) {
			return http.StatusOK, "OK"
		})
		assert.NoError(t, client.SaveUser(ctx, model.User{ChatID: 1}))
	})
}

func TestClient_GetOrders(t *testing.T) {
	client, calls := newServer(t, func(r recorded) (int, string) {
		return http.StatusOK, `{"orders":[
			{"chatId":"42","timestamp":1700000000000,"quantity":"3","city":"Kyiv","name":"Ivan","np":12,
			 "phone":"0501234567","paymentMethod":"передплата","paymentStatus":"оплачено","status":"відправлено","ttn":"2045"},
			{"chatId":7,"timestamp":"1700000000001","quantity":1,"status":"скасовано"},
			{"chatId":"","timestamp":"","quantity":""}
		]}`
	})

	orders, err := client.GetOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Equal(t, "getOrders", (*calls)[0].action)

	first := orders[0]
	assert.Equal(t, model.OrderID{ChatID: 42, Timestamp: 1700000000000}, first.ID)
	assert.Equal(t, 3, first.Quantity)
	assert.Equal(t, "12", first.Branch)
	assert.Equal(t, model.PaymentPrepaid, first.PaymentMethod)
	assert.Equal(t, model.PaymentPaid, first.PaymentStatus)
	assert.Equal(t, model.StatusShipped, first.Status)
	assert.Equal(t, model.StatusCanceled, orders[1].Status)
	assert.Equal(t, model.PaymentCashOnDelivery, orders[1].PaymentMethod)
}

func TestClient_GetUsers(t *testing.T) {
	client, _ := newServer(t, func(recorded) (int, string) {
		return http.StatusOK, `{"users":[
			{"chatId":"11","name":"Olena","username":"olena","town":"Lviv","phone":380501234567},
			{"chatId":12,"name":"Revoked","verified":false},
			{"name":"no id"}
		]}`
	})

	users, err := client.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(11), users[0].ChatID)
	assert.Equal(t, "380501234567", users[0].Phone)
	assert.True(t, users[0].Verified)
	assert.False(t, users[1].Verified)
}

func TestClient_GetHistoryAndStats(t *testing.T) {
	client, _ := newServer(t, func(r recorded) (int, string) {
		switch r.action {
		case "getHistory":
			return http.StatusOK, `[{"timestamp":5,"quantity":2,"city":"Dnipro","status":"прийнято"}]`
		case "getStats":
			return http.StatusOK, `{"total":10,"accepted":4,"canceled":1,"pending":2,"sent":3,"paid":5,"profit":59500}`
		}
		return http.StatusNotFound, ""
	})
	ctx := context.Background()

	history, err := client.GetHistory(ctx, 77)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.OrderID{ChatID: 77, Timestamp: 5}, history[0].ID)
	assert.Equal(t, model.StatusAccepted, history[0].Status)

	stats, err := client.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 3, stats.Shipped)
	assert.Equal(t, 5, stats.Paid)
}
