package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/cartdesk/cartdesk/internal/models"
)

// Notifier announces request events to the admin channel. All sends are
// best-effort: a delivery failure is logged and never propagated, so a flaky
// chat platform cannot fail a committed request.
type Notifier struct {
	adapter   Adapter
	channelID string
}

// NewNotifier creates a Notifier. An empty channelID disables announcements.
func NewNotifier(adapter Adapter, channelID string) *Notifier {
	return &Notifier{adapter: adapter, channelID: channelID}
}

// RequestCreated announces a freshly committed request.
func (n *Notifier) RequestCreated(ctx context.Context, req *models.Request, userName string) {
	n.send(ctx, fmt.Sprintf("New request %s (%s priority) from %s.", req.Code, req.Priority, userName))
}

// StatusChanged announces a lifecycle move.
func (n *Notifier) StatusChanged(ctx context.Context, req *models.Request, actorName string) {
	n.send(ctx, fmt.Sprintf("Request %s is now %s (by %s).", req.Code, req.Status, actorName))
}

// SLABreach announces a high-priority request that nobody picked up in time.
func (n *Notifier) SLABreach(ctx context.Context, req *models.Request) {
	n.send(ctx, fmt.Sprintf("SLA: high-priority request %s has been waiting %s with no executor.",
		req.Code, FormatAge(req.CreatedAt)))
}

func (n *Notifier) send(ctx context.Context, text string) {
	if n.channelID == "" {
		return
	}
	err := n.adapter.Send(ctx, OutboundMessage{ChannelID: n.channelID, Text: text})
	if err != nil {
		log.Printf("bot: notify: %v", err)
	}
}
