// Package events fans live updates out to websocket clients and, when
// configured, mirrors them onto a Redis pub/sub channel.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	PassIssued       = "pass_issued"
	PassCalled       = "pass_called"
	PassesCancelled  = "passes_cancelled"
	PriorityGranted  = "priority_granted"
	SurgeChanged     = "surge_changed"
	AlertRaised      = "alert_raised"
	AlertsDispatched = "alerts_dispatched"
	DensityScanned   = "density_scanned"
)

type Event struct {
	Type   string    `json:"type"`
	SiteID string    `json:"site_id,omitempty"`
	At     time.Time `json:"at"`
	Data   any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Hub delivers events to in-process subscribers. Slow subscribers lose
// events rather than block publishers.
type Hub struct {
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[chan Event]struct{}

	redis   *redis.Client
	channel string
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{logger: logger, subs: map[chan Event]struct{}{}}
}

// MirrorTo publishes every event to channel on client as JSON.
func (h *Hub) MirrorTo(client *redis.Client, channel string) {
	h.redis = client
	h.channel = channel
}

func (h *Hub) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn().Str("type", e.Type).Msg("subscriber buffer full, event dropped")
		}
	}
	h.mu.RUnlock()

	if h.redis == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error().Err(err).Str("type", e.Type).Msg("event marshal failed")
		return
	}
	if err := h.redis.Publish(ctx, h.channel, data).Err(); err != nil {
		h.logger.Error().Err(err).Str("type", e.Type).Msg("redis publish failed")
	}
}

// Subscribe registers a buffered subscriber. The returned func unsubscribes
// and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ConnectRedis parses url and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
