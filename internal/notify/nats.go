package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used for delivery.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each event as JSON on <prefix>.<kind>.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewNATSNotifier creates a notifier publishing through pub.
func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "focusflow.notify"
	}
	return &NATSNotifier{
		pub:    pub,
		prefix: prefix,
		logger: slog.Default().With("component", "nats_notifier"),
	}
}

// ConnectNATS dials url with unlimited reconnects.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("focusflow"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// Subject returns the subject an event of kind k is published on.
func (n *NATSNotifier) Subject(k Kind) string {
	return n.prefix + "." + string(k)
}

func (n *NATSNotifier) Notify(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal notification", "kind", e.Kind, "error", err)
		return
	}
	if err := n.pub.Publish(n.Subject(e.Kind), data); err != nil {
		n.logger.WarnContext(ctx, "failed to publish notification", "kind", e.Kind, "error", err)
		return
	}
	n.logger.DebugContext(ctx, "notification published", "kind", e.Kind)
}
