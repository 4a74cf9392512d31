package events

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix namespaces every published audit event.
const SubjectPrefix = "gradebook."

type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSPublisher publishes core NATS messages; delivery is at-most-once and
// the event_log table stays the record of truth.
type NATSPublisher struct{ nc *nats.Conn }

func ConnectNATS(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gradebook"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() {
	_ = p.nc.Drain()
}
