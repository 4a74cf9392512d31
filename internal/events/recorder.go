package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Recorder writes audit events to the event log and, when a publisher is
// configured, fans them out on NATS.
type Recorder struct {
	repo   *EventRepo
	pub    Publisher
	siteID string
	log    *slog.Logger
}

func NewRecorder(repo *EventRepo, pub Publisher, siteID string, log *slog.Logger) *Recorder {
	if siteID == "" {
		siteID = "local"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, pub: pub, siteID: siteID, log: log}
}

func (r *Recorder) Emit(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	e, err := r.repo.Append(ctx, Event{SiteID: r.siteID, Type: typ, Key: key, Data: data})
	if err != nil {
		return fmt.Errorf("append %s event: %w", typ, err)
	}
	if r.pub == nil {
		return nil
	}
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(ctx, SubjectPrefix+typ, msg); err != nil {
		// the row is already durable; a missed publish is only logged
		r.log.WarnContext(ctx, "event publish failed", "type", typ, "seq", e.Seq, "err", err)
	}
	return nil
}

func (r *Recorder) List(ctx context.Context, key string, limit int) ([]Event, error) {
	return r.repo.List(ctx, key, limit)
}
