package redisstore

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

// DefaultChannel canal de eventos de préstamo.
const DefaultChannel = "borrowing.events"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PubSubSink publica cada evento como JSON en un canal de Redis.
type PubSubSink struct {
	client  *redis.Client
	channel string
}

// NewPubSubSink construye el sink. channel vacío usa DefaultChannel.
func NewPubSubSink(client *redis.Client, channel string) *PubSubSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PubSubSink{client: client, channel: channel}
}

// Deliver serializa y publica.
func (s *PubSubSink) Deliver(ctx context.Context, evt entity.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", evt.ID, err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publicar evento %s: %w", evt.ID, err)
	}
	return nil
}

// DecodeEvent inverso de Deliver para consumidores del canal.
func DecodeEvent(payload []byte) (entity.DomainEvent, error) {
	var evt entity.DomainEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return evt, fmt.Errorf("decodificar evento: %w", err)
	}
	return evt, nil
}
