package socket

import (
	"encoding/json"
	"recordstore/internal/record/model"
	"recordstore/pkg/logger"
	"sync"
)

const eventBuffer = 256

// Hub fans record store notifications out to websocket subscribers.
// It implements store.EventSink.
type Hub struct {
	clients    map[*Client]bool
	events     chan model.Event
	Register   chan *Client
	Unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		events:     make(chan model.Event, eventBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Emit queues an event for broadcast without ever blocking the caller.
func (h *Hub) Emit(event model.Event) {
	select {
	case h.events <- event:
	default:
		logger.Sugar.Warnf("Event buffer full, dropping %s notification for doc %s", event.Type, event.DocumentID)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Sugar.Infof("Subscriber %s joined (caller=%s, doc filter=%q)", client.ID, client.Caller, client.DocID)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling %s event: %v", event.Type, err)
				continue
			}

			// Collect recipients under the lock, send outside it.
			h.mu.Lock()
			recipients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.wants(event) {
					recipients = append(recipients, client)
				}
			}
			h.mu.Unlock()

			for _, client := range recipients {
				select {
				case client.Send <- payload:
				default:
					// Slow subscriber: drop it rather than stall the feed.
					logger.Sugar.Warnf("Subscriber %s's send buffer is full. Unregistering.", client.ID)
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.Send)
					}
					h.mu.Unlock()
				}
			}
		}
	}
}
