package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/wayfarer/internal/adapters/nats"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to an itinerary.
type wsMessage struct {
	Action    string `json:"action"`    // "subscribe" | "unsubscribe"
	Itinerary string `json:"itinerary"` // itinerary ID
	Channel   string `json:"channel"`   // "mapview" | "intents" (default: mapview)
}

// WebSocketHandler relays render plans and intents for the itineraries a
// client subscribes to. Clients send:
//
//	{"action":"subscribe","itinerary":"<id>","channel":"mapview"}
//
// A mapview subscription is answered with the current plan before any
// updates are relayed.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := slog.Default().With("remote", c.RemoteAddr().String())
		if deps.NATS == nil {
			_ = c.WriteJSON(map[string]string{"error": "live updates are not available"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.Itinerary == "" {
				_ = writeJSON(map[string]string{"error": "itinerary is required"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "mapview"
			}

			var subject string
			switch channel {
			case "mapview":
				subject = natsadapter.MapViewSubject(m.Itinerary)
			case "intents":
				subject = natsadapter.IntentSubject(m.Itinerary)
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

				if channel == "mapview" && deps.MapView != nil {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					plan, err := deps.MapView.Sync(ctx, m.Itinerary, usecases.SyncOptions{})
					cancel()
					if err != nil {
						_ = writeJSON(map[string]string{"error": err.Error(), "itinerary": m.Itinerary})
						continue
					}
					_ = writeJSON(plan)
				}

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}
