package ws

import (
	"context"
	"log"

	cache "github.com/playmatatu/tombola/internal/redis"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays session events published by other instances
// to the local viewers. Events from this instance are skipped since the hub
// already received them from the controller.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, instance string, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, cache.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()
	go func() {
		log.Printf("[WS] %s subscriber started", cache.EventsChannel)
		for msg := range ch {
			relayEvent(hub, instance, msg.Payload)
		}
		log.Printf("[WS] %s subscriber stopped", cache.EventsChannel)
	}()
}

func relayEvent(hub *Hub, instance, payload string) bool {
	ev, err := cache.DecodeEvent(payload)
	if err != nil {
		log.Printf("[WS] %v", err)
		return false
	}
	if ev.Instance == instance {
		return false
	}

	switch ev.Type {
	case "session":
		if ev.Session == nil {
			log.Printf("[WS] session event from %s without snapshot", ev.Instance)
			return false
		}
		hub.Broadcast("session", ev.Session)
		return true
	default:
		log.Printf("[WS] unknown event type: %s", ev.Type)
		return false
	}
}
