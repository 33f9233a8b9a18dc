package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
)

// Bridge forwards broadcast events onto a NATS subject so external
// consumers can follow run progress. The bridge is optional: a daemon
// without a NATS URL simply never constructs one.
type Bridge struct {
	conn    *nats.Conn
	subject string
	log     *logging.Logger
}

// NewBridge connects to the NATS server at url.
func NewBridge(url, subject string, log *logging.Logger) (*Bridge, error) {
	if log == nil {
		log = logging.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("openclaw"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return &Bridge{conn: conn, subject: subject, log: log.Named("nats")}, nil
}

// Observer returns the broadcaster observer that forwards events. Publish
// failures are logged and dropped; event delivery is best effort.
func (b *Bridge) Observer() Observer {
	ctx := context.Background()
	return func(e Event) {
		data, err := json.Marshal(e)
		if err != nil {
			b.log.Warn(ctx, "marshaling event", zap.Error(err))
			return
		}
		if err := b.conn.Publish(b.subject, data); err != nil {
			b.log.Warn(ctx, "forwarding event", zap.Error(err))
		}
	}
}

// Close drains the connection.
func (b *Bridge) Close() {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}
