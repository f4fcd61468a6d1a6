package conversation

import (
	"time"

	"kiomedine-order-bot/internal/pkg/model"
)

// VerificationTTL bounds how long an unfinished verification stays valid.
const VerificationTTL = 24 * time.Hour

type VerificationStep int

const (
	VerifyAwaitingName VerificationStep = iota + 1
	VerifyAwaitingPhone
	VerifyAwaitingTown
	VerifyAwaitingWorkplace
	VerifyAwaitingVerifierName
	VerifyPendingApproval
)

// Verification is an identity intake in progress for one chat.
type Verification struct {
	ChatID       int64
	Step         VerificationStep
	CreatedAt    time.Time
	Username     string
	Name         string
	Phone        string
	Town         string
	Workplace    string
	VerifierName string
}

func (v Verification) Expired(now time.Time) bool {
	return now.Sub(v.CreatedAt) > VerificationTTL
}

type OrderStep int

const (
	OrderAwaitingQuantity OrderStep = iota + 1
	OrderAwaitingCity
	OrderAwaitingRecipient
	OrderAwaitingBranch
	OrderAwaitingPhone
	OrderAwaitingPayment
)

// OrderDraft is an order intake in progress for one chat.
type OrderDraft struct {
	ChatID        int64
	Step          OrderStep
	StartedAt     time.Time
	Quantity      int
	City          string
	RecipientName string
	Branch        string
	Phone         string
}

// AdminTask says what the next plain message from an admin chat means.
type AdminTask interface {
	adminTask()
}

// ReplyTask forwards the next admin text to TargetChatID.
type ReplyTask struct {
	TargetChatID int64
}

// TTNTask attaches the next admin text as tracking number of Order.
type TTNTask struct {
	Order model.OrderID
}

// BroadcastTask collects a broadcast payload until it is sent.
type BroadcastTask struct {
	Payload BroadcastPayload
}

func (ReplyTask) adminTask()     {}
func (TTNTask) adminTask()       {}
func (BroadcastTask) adminTask() {}

type BroadcastPayload struct {
	Text           string
	PhotoFileID    string
	DocumentFileID string
}

func (p BroadcastPayload) Empty() bool {
	return p.Text == "" && p.PhotoFileID == "" && p.DocumentFileID == ""
}

// Question is a user question waiting for an operator reply.
type Question struct {
	ChatID   int64
	Username string
	Name     string
	Town     string
	Text     string
	AskedAt  time.Time
}
