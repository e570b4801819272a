package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// Subjects. Itinerary events and intents are durable on JetStream; render
// plans are fire-and-forget on core NATS since a newer plan supersedes them.
const (
	itinerarySubjectPrefix = "wayfarer.itinerary."
	intentSubjectPrefix    = "wayfarer.intent."
	mapViewSubjectPrefix   = "wayfarer.mapview."
)

// ItinerarySubject is where change events for one itinerary are published.
func ItinerarySubject(itineraryID string) string { return itinerarySubjectPrefix + itineraryID }

// IntentSubject is where map-surface intents for one itinerary are published.
func IntentSubject(itineraryID string) string { return intentSubjectPrefix + itineraryID }

// MapViewSubject is where render plans for one itinerary are fanned out.
func MapViewSubject(itineraryID string) string { return mapViewSubjectPrefix + itineraryID }

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "ITINERARY_EVENTS",
			Subjects:  []string{itinerarySubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "MAP_INTENTS",
			Subjects:  []string{intentSubjectPrefix + ">"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishItineraryEvent(ctx context.Context, event *domain.ItineraryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ItinerarySubject(event.ItineraryID), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishIntent(ctx context.Context, intent *domain.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(IntentSubject(intent.ItineraryID), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishRenderPlan(ctx context.Context, plan *domain.RenderPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return p.conn.Publish(MapViewSubject(plan.ItineraryID), data)
}

// Conn exposes the underlying connection for core subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("wayfarer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
