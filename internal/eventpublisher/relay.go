package eventpublisher

import (
	"context"
	"encoding/json"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/metrics"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/websocket"
)

// Relay subscribes to the shared Redis channel and feeds events published by
// other instances into the local hub.
type Relay struct {
	pubsub *goredis.PubSub
	hub    *websocket.Hub
	origin string
	done   chan struct{}
}

// StartRelay subscribes to the relay channel and starts forwarding. The
// publisher's origin is used to drop our own messages.
func StartRelay(ctx context.Context, redisClient *goredis.Client, hub *websocket.Hub, publisher *Publisher) *Relay {
	r := &Relay{
		pubsub: redisClient.Subscribe(ctx, relayChannel),
		hub:    hub,
		origin: publisher.origin,
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Relay) run() {
	defer close(r.done)
	for msg := range r.pubsub.Channel() {
		var envelope relayEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			slog.Warn("Dropping malformed relay message", "error", err)
			continue
		}
		if envelope.Origin == r.origin {
			metrics.RelayMessagesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		r.hub.Broadcast(envelope.Event)
		metrics.RelayMessagesTotal.WithLabelValues("received").Inc()
	}
}

// Stop closes the subscription and waits for the forwarding loop to exit.
func (r *Relay) Stop() {
	if err := r.pubsub.Close(); err != nil {
		slog.Error("Failed to close relay subscription", "error", err)
	}
	<-r.done
}
