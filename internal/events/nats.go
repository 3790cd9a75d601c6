package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"siteflow/internal/domain"
)

// NATS publishes each event as JSON on <Prefix>.<type>, for example
// siteflow.events.context.saved.
type NATS struct {
	Conn   *nats.Conn
	Prefix string
	Now    func() time.Time
}

func (n NATS) Append(_ context.Context, evtType, projectName, requestID string, payload Payload) error {
	if n.Now == nil {
		n.Now = time.Now
	}
	data, err := marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(domain.Event{
		TS:          n.Now().UTC(),
		Type:        evtType,
		ProjectName: projectName,
		RequestID:   requestID,
		Payload:     string(data),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.Conn.Publish(n.Prefix+"."+evtType, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evtType, err)
	}
	return nil
}
