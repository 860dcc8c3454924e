package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tablebook/models"

	"github.com/redis/go-redis/v9"
)

// Channel carries reservation events between instances.
const Channel = "reservation-events"

// Broadcaster delivers a payload to the live subscribers of a restaurant.
type Broadcaster interface {
	Broadcast(restaurantID string, payload []byte)
}

// Emitter publishes committed reservation transitions. With a redis
// connection every instance relays the event to its own subscribers;
// without one it is delivered locally.
type Emitter struct {
	conn  *redis.Client
	local Broadcaster
}

func NewEmitter(conn *redis.Client, local Broadcaster) *Emitter {
	return &Emitter{conn: conn, local: local}
}

func (e *Emitter) Publish(ctx context.Context, ev models.ReservationEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}

	if e.conn == nil {
		e.deliverLocal(ev.RestaurantID, data)
		return
	}

	// the request context may already be done once the response is written
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.conn.Publish(pubCtx, Channel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s to redis, delivering locally: %v", ev.Type, err)
		e.deliverLocal(ev.RestaurantID, data)
		return
	}
	log.Printf("[Emit] %s reservation=%s published to %q", ev.Type, ev.ReservationID, Channel)
}

func (e *Emitter) deliverLocal(restaurantID string, data []byte) {
	if e.local != nil {
		e.local.Broadcast(restaurantID, data)
	}
}

// StartRelay forwards events from the redis channel to b until ctx is done.
func StartRelay(ctx context.Context, conn *redis.Client, b Broadcaster) {
	sub := conn.Subscribe(ctx, Channel)
	defer sub.Close()
	ch := sub.Channel()

	log.Println("[Relay] Listening for reservation events...")
	for {
		select {
		case <-ctx.Done():
			log.Println("[Relay] stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			relay(b, []byte(msg.Payload))
		}
	}
}

func relay(b Broadcaster, payload []byte) {
	var ev models.ReservationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("[Relay] Failed to parse event: %v", err)
		return
	}
	if ev.RestaurantID == "" {
		log.Printf("[Relay] Dropping event without restaurant: %s", payload)
		return
	}
	b.Broadcast(ev.RestaurantID, payload)
}
