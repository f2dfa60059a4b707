// Package realtime pushes change events to connected dashboards over
// websockets. Each connection is bound to the topics its principal may see.
package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

// sendBuffer is how many events a slow connection may lag before events are
// dropped for it.
const sendBuffer = 64

// Client is one websocket connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func NewClient(topics ...string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Topics: topics,
		Send:   make(chan []byte, sendBuffer),
	}
}

// TopicsFor returns the topics a principal is subscribed to: a pharmacy sees
// its own topic, a client sees its own topic and its pharmacy's banners.
func TopicsFor(p *model.Principal) []string {
	if p.IsClient() {
		return []string{model.ClientTopic(*p.ClientID), model.AdsTopic(p.PharmacyID)}
	}
	return []string{model.PharmacyTopic(p.PharmacyID)}
}

// Hub tracks connections by topic.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		metrics: m,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*Client]struct{})
		}
		h.topics[topic][client] = struct{}{}
	}
	h.metrics.WebsocketConnections.Inc()
}

// Unregister removes the client and closes its Send channel. It is safe to
// call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.topics[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
	h.metrics.WebsocketConnections.Dec()
}

// Broadcast sends an encoded event to every subscriber of topic. Subscribers
// whose buffer is full miss the event; dashboards refetch on the next one.
func (h *Hub) Broadcast(topic string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.topics[topic] {
		select {
		case client.Send <- data:
			sent++
		default:
		}
	}
	return sent
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
