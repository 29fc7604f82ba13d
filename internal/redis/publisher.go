package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/playmatatu/tombola/internal/tombola"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionKey holds the latest session snapshot.
	SessionKey = "tombola:session"
	// EventsChannel carries session events between instances.
	EventsChannel = "tombola_events"

	sessionTTL = time.Hour
)

// Event is the payload published on EventsChannel.
type Event struct {
	Type     string           `json:"type"`
	Instance string           `json:"instance"`
	Session  *tombola.Session `json:"session,omitempty"`
	SentAt   int64            `json:"sent_at"`
}

// EncodeSessionEvent builds the published payload for a session snapshot.
func EncodeSessionEvent(instance string, s tombola.Session) ([]byte, error) {
	return json.Marshal(Event{
		Type:     "session",
		Instance: instance,
		Session:  &s,
		SentAt:   time.Now().Unix(),
	})
}

// DecodeEvent parses a payload received on EventsChannel.
func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("invalid event payload: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return ev, nil
}

// Publisher caches session snapshots and fans them out to other instances.
// It implements tombola.Observer; frames are not published.
type Publisher struct {
	rdb      *redis.Client
	instance string
	queue    chan tombola.Session
}

// NewPublisher creates a publisher. Call Run to start delivering.
func NewPublisher(rdb *redis.Client, instance string) *Publisher {
	return &Publisher{
		rdb:      rdb,
		instance: instance,
		queue:    make(chan tombola.Session, 64),
	}
}

// OnSession queues a snapshot without blocking the controller.
func (p *Publisher) OnSession(s tombola.Session) {
	select {
	case p.queue <- s:
	default:
		log.Printf("[REDIS] Publish queue full, dropping session version %d", s.Version)
	}
}

func (p *Publisher) OnFrame(tombola.Frame) {}

// Run delivers queued snapshots until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	log.Printf("[REDIS] Session publisher started (instance=%s)", p.instance)
	for {
		select {
		case <-ctx.Done():
			log.Println("[REDIS] Session publisher stopped")
			return
		case s := <-p.queue:
			if err := p.publish(ctx, s); err != nil {
				log.Printf("[REDIS] Failed to publish session version %d: %v", s.Version, err)
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, s tombola.Session) error {
	data, err := EncodeSessionEvent(p.instance, s)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := p.rdb.SetEx(ctx, SessionKey, snapshot, sessionTTL).Err(); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return fmt.Errorf("publish session: %w", err)
	}
	return nil
}

// LoadSession returns the last cached snapshot, or nil when none exists.
func LoadSession(ctx context.Context, rdb *redis.Client) (*tombola.Session, error) {
	raw, err := rdb.Get(ctx, SessionKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s tombola.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid cached session: %w", err)
	}
	return &s, nil
}
