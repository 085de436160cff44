package brackets

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/gorilla/websocket"
)

// Client is one websocket subscriber, bound to a tournament room.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// EventMessage is the wire envelope for engine events pushed to rooms.
type EventMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub fans engine events out to websocket clients grouped into per-tournament
// rooms. Notification and analytics collaborators subscribe here instead of
// registering in-process callbacks.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// RoomForTournament names the room every event of one tournament lands in.
func RoomForTournament(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

// Publish broadcasts an engine event to its tournament room. Satisfies the
// services.EventPublisher interface.
func (h *Hub) Publish(event models.EngineEvent) {
	room := RoomForTournament(event.TournamentID)
	h.BroadcastToRoom(room, EventMessage{
		Type:    string(event.Type),
		Payload: event.Payload,
		RoomID:  room,
	})
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok {
				if _, okClient := roomClients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a message to every client in the room. Clients with
// a full send buffer are skipped rather than blocked on.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("error marshalling message for room %s: %v", roomID, err)
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("client send channel full for room %s, skipping", roomID)
		}
		client.Mu.Unlock()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Inbound messages are ignored: the event stream is one-way.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error in room %s: %v", c.Room, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain whatever queued up behind this message.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
