package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_updates_total",
		Help: "Inbound Telegram updates by kind.",
	},
		[]string{"kind"},
	)

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbot_orders_submitted_total",
		Help: "Orders that completed the intake conversation.",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_order_transitions_total",
		Help: "Admin driven order changes by resulting state.",
	},
		[]string{"to"},
	)

	VerificationsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbot_verifications_granted_total",
		Help: "Chats granted access by an admin.",
	})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_store_errors_total",
		Help: "Failed persistence calls by action.",
	},
		[]string{"action"},
	)

	BroadcastDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbot_broadcast_deliveries_total",
		Help: "Broadcast sends by result.",
	},
		[]string{"result"},
	)

	HandlerPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbot_handler_panics_total",
		Help: "Panics recovered while handling an update.",
	})

	OpenConversations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orderbot_open_conversations",
		Help: "Conversations currently open by kind.",
	},
		[]string{"kind"},
	)
)
