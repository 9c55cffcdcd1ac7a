package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

// Notification is one recorded delivery.
type Notification struct {
	UserID   string
	Title    string
	Body     string
	Metadata map[string]string
}

// Notifier records notifications instead of delivering them. FailFor marks
// user ids whose sends should error, which lets tests exercise the
// best-effort delivery path.
type Notifier struct {
	mu      sync.Mutex
	sent    []Notification
	FailFor map[string]error
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Send(
	_ context.Context,
	userID string,
	title string,
	body string,
	metadata map[string]string,
) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	userID = strings.TrimSpace(userID)
	if err, ok := n.FailFor[userID]; ok {
		return err
	}
	copied := make(map[string]string, len(metadata))
	for key, value := range metadata {
		copied[key] = value
	}
	n.sent = append(n.sent, Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Metadata: copied,
	})
	return nil
}

// Sent returns a copy of the recorded notifications in delivery order.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	items := make([]Notification, len(n.sent))
	copy(items, n.sent)
	return items
}

var _ ports.NotificationSender = (*Notifier)(nil)
