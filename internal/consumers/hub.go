package consumers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/head_tracker/internal/calibration"
	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

const (
	clientSendDepth = 16
	writeWait       = time.Second
)

// CommandSink accepts calibration commands; *pipeline.Pipeline satisfies it.
type CommandSink interface {
	Submit(calibration.Command)
}

// WSMessage is what browser clients send.
type WSMessage struct {
	Action string `json:"action"` // recalibrate, clear
}

// WSResponse is what the hub sends.
type WSResponse struct {
	Type        string              `json:"type"` // orientation, status, ack, error
	Orientation *OrientationMessage `json:"orientation,omitempty"`
	Status      *pipeline.Status    `json:"status,omitempty"`
	Message     string              `json:"message,omitempty"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams orientations to websocket clients and turns their actions into
// calibration commands. A client too slow to keep up misses samples.
type Hub struct {
	commands CommandSink
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	status  *pipeline.Status
}

func NewHub(commands CommandSink) *Hub {
	return &Hub{
		commands: commands,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local network UI
			},
		},
		now:     time.Now,
		clients: make(map[*hubClient]struct{}),
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ReceiveOrientation(t orientation.Transform) {
	msg := NewOrientationMessage(t, h.now())
	h.broadcast(WSResponse{Type: "orientation", Orientation: &msg})
}

func (h *Hub) StatusChanged(s pipeline.Status) {
	h.mu.Lock()
	h.status = &s
	h.mu.Unlock()
	h.broadcast(WSResponse{Type: "status", Status: &s})
}

func (h *Hub) broadcast(resp WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		Logf("hub: marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logf("hub: websocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientSendDepth)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.status != nil {
		if b, err := json.Marshal(WSResponse{Type: "status", Status: h.status}); err == nil {
			c.send <- b
		}
	}
	h.mu.Unlock()
	Logf("hub: client connected from %s", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
	conn.Close()
	Logf("hub: client %s disconnected", r.RemoteAddr)
}

func (h *Hub) readLoop(c *hubClient) {
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Logf("hub: websocket read error: %v", err)
			}
			return
		}

		cmd, err := calibration.ParseCommand(msg.Action)
		if err != nil {
			h.reply(c, WSResponse{Type: "error", Message: err.Error()})
			continue
		}
		h.commands.Submit(cmd)
		h.reply(c, WSResponse{Type: "ack", Message: cmd.String()})
	}
}

func (h *Hub) reply(c *hubClient, resp WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case c.send <- b:
	default:
	}
}

func (c *hubClient) writeLoop() {
	for b := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			Logf("hub: websocket write error: %v", err)
			c.conn.Close()
			return
		}
	}
}
