package communication

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/agora-sim/agora/core"
)

// WSEvent is the envelope pushed to websocket clients.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventPhaseChange    = "PHASE_CHANGE"
	EventAuctionResult  = "AUCTION_RESULT"
	EventIntervention   = "INTERVENTION"
	EventTallyResult    = "TALLY_RESULT"
	EventRoundCompleted = "ROUND_COMPLETED"
)

// WebSocketManager fans round events out to connected clients.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

var (
	wsManager *WebSocketManager
	once      sync.Once
)

// GetWSManager returns the process-wide manager, starting it on first use.
func GetWSManager() *WebSocketManager {
	once.Do(func() {
		wsManager = &WebSocketManager{
			clients:    make(map[*websocket.Conn]bool),
			broadcast:  make(chan WSEvent, 16),
			register:   make(chan *websocket.Conn),
			unregister: make(chan *websocket.Conn),
		}
		go wsManager.run()
	})
	return wsManager
}

func (manager *WebSocketManager) run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = true
			manager.mu.Unlock()

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				client.Close()
			}
			manager.mu.Unlock()

		case event := <-manager.broadcast:
			manager.mu.Lock()
			for client := range manager.clients {
				if err := client.WriteJSON(event); err != nil {
					log.Printf("WebSocket error: %v", err)
					client.Close()
					delete(manager.clients, client)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// BroadcastEvent pushes an event to every connected client.
func BroadcastEvent(eventType string, payload interface{}) {
	GetWSManager().broadcast <- WSEvent{Type: eventType, Payload: payload}
}

func (w *WebSocketManager) Register() chan<- *websocket.Conn {
	return w.register
}

func (w *WebSocketManager) Unregister() chan<- *websocket.Conn {
	return w.unregister
}

// BridgeBus relays round events from NATS onto the websocket fan-out,
// so API clients see the same stream the broker carries.
func BridgeBus(bus *Bus) error {
	relay := func(subject, eventType string) error {
		return bus.Subscribe(subject, func(m *nats.Msg) {
			var payload map[string]interface{}
			if err := core.DecodeJSON(m.Data, &payload); err != nil {
				log.Printf("bridge: bad payload on %s: %v", subject, err)
				return
			}
			BroadcastEvent(eventType, payload)
		})
	}

	pairs := []struct{ subject, event string }{
		{SubjectPhase, EventPhaseChange},
		{SubjectAuction, EventAuctionResult},
		{SubjectIntervention, EventIntervention},
		{SubjectTally, EventTallyResult},
		{SubjectRecord, EventRoundCompleted},
	}
	for _, p := range pairs {
		if err := relay(p.subject, p.event); err != nil {
			return err
		}
	}
	return nil
}
