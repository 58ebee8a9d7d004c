// Package eventpublisher implements domain.EventPublisher on top of the
// WebSocket hub, with an optional Redis pub/sub relay so events reach
// clients connected to other instances.
package eventpublisher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/metrics"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/websocket"
)

// relayChannel is the Redis pub/sub channel shared by all instances.
const relayChannel = "jobboard:events"

// relayEnvelope wraps an event for the cross-instance relay. Origin lets an
// instance skip messages it published itself.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

// Publisher broadcasts domain events to the local hub and, when Redis is
// configured, republishes them for other instances. Publishing is
// fire-and-forget after the triggering transaction commits.
type Publisher struct {
	hub    *websocket.Hub
	redis  *goredis.Client
	origin string
}

// New creates a Publisher. redisClient may be nil for single-instance
// deployments.
func New(hub *websocket.Hub, redisClient *goredis.Client) *Publisher {
	return &Publisher{
		hub:    hub,
		redis:  redisClient,
		origin: uuid.NewString(),
	}
}

// Publish implements domain.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "event", event.Name, "error", err)
		return
	}

	p.hub.Broadcast(data)
	metrics.EventsPublishedTotal.WithLabelValues(event.Name).Inc()

	if p.redis == nil {
		return
	}

	envelope, err := json.Marshal(relayEnvelope{Origin: p.origin, Event: data})
	if err != nil {
		slog.Error("Failed to marshal relay envelope", "event", event.Name, "error", err)
		return
	}
	if err := p.redis.Publish(ctx, relayChannel, envelope).Err(); err != nil {
		slog.Warn("Failed to relay event", "event", event.Name, "error", err)
		return
	}
	metrics.RelayMessagesTotal.WithLabelValues("published").Inc()
}
