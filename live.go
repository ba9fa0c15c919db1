package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

type liveHub struct {
	clients    map[*liveClient]bool
	register   chan *liveClient
	unregister chan *liveClient
	broadcast  chan []byte
	stop       chan struct{}

	mu sync.RWMutex
}

func newLiveHub() *liveHub {
	return &liveHub{
		clients:    make(map[*liveClient]bool),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		broadcast:  make(chan []byte, 16),
		stop:       make(chan struct{}),
	}
}

func (h *liveHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()

			return
		}
	}
}

func (h *liveHub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Broadcaster fans game snapshots out to websocket subscribers, one
// hub per game.
type Broadcaster struct {
	mu   sync.Mutex
	hubs map[string]*liveHub
}

func newBroadcaster() *Broadcaster {
	return &Broadcaster{
		hubs: make(map[string]*liveHub),
	}
}

func (b *Broadcaster) hubFor(gameID string, create bool) *liveHub {
	b.mu.Lock()
	defer b.mu.Unlock()

	hub, ok := b.hubs[gameID]
	if !ok && create {
		hub = newLiveHub()
		b.hubs[gameID] = hub
		go hub.run()
	}

	return hub
}

func (b *Broadcaster) HasSubscribers(gameID string) bool {
	hub := b.hubFor(gameID, false)
	if hub == nil {
		return false
	}

	return hub.subscriberCount() > 0
}

func (b *Broadcaster) Publish(gameID string, payload any) {
	hub := b.hubFor(gameID, false)
	if hub == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	select {
	case hub.broadcast <- data:
	default:
	}
}

// CloseGame tears down a game's hub and disconnects its subscribers.
func (b *Broadcaster) CloseGame(gameID string) {
	b.mu.Lock()
	hub := b.hubs[gameID]
	delete(b.hubs, gameID)
	b.mu.Unlock()

	if hub != nil {
		close(hub.stop)
	}
}

func (c *liveClient) readPump(h *liveHub) {
	// After teardown nothing receives on unregister, so a plain send
	// would strand this goroutine forever.
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *liveClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// serveLive upgrades the connection and subscribes it to the game's
// hub. The current snapshot is sent immediately so a client does not
// have to wait for the next mutation.
func (a *apiServer) serveLive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	snapshot, err := a.snapshot(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	initial, err := json.Marshal(snapshot)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	hub := a.live.hubFor(id, true)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade error:", err)

		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan []byte, 8),
	}

	// Queue the snapshot before registering; once registered the hub
	// owns the send channel and may close it.
	client.send <- initial

	select {
	case hub.register <- client:
	case <-hub.stop:
		_ = conn.Close()

		return
	}

	go client.writePump()
	client.readPump(hub)
}
