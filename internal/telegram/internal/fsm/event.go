package fsm

import (
	"strings"

	"kiomedine-order-bot/internal/pkg/model"
)

// Callback is an inline button press.
type Callback struct {
	ID        string
	Data      string
	MessageID int
}

// Event is one inbound update reduced to what handlers need.
type Event struct {
	ChatID         int64
	MessageID      int
	Text           string
	Caption        string
	PhotoFileID    string
	DocumentFileID string
	Callback       *Callback
	Sender         model.Sender
}

func (e Event) IsCallback() bool {
	return e.Callback != nil
}

func (e Event) HasMedia() bool {
	return e.PhotoFileID != "" || e.DocumentFileID != ""
}

// Command splits "/name@bot args" into name and args.
func (e Event) Command() (name, args string, ok bool) {
	if e.Callback != nil || !strings.HasPrefix(e.Text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(strings.TrimSpace(e.Text[1:]), " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return head, strings.TrimSpace(rest), true
}
