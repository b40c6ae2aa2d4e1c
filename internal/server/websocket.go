package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msto63/dolmetscher/internal/session"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 120 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// WSMessage is a command sent by a client
type WSMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// WSResponse is a message sent to a client
type WSResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// CommandResult is the payload of a "result" response
type CommandResult struct {
	Command string        `json:"command"`
	Changed bool          `json:"changed"`
	State   session.State `json:"state"`
	Error   string        `json:"error,omitempty"`
	Code    string        `json:"code,omitempty"`
}

// Hub upgrades observer connections and relays session events to them
type Hub struct {
	ctl      Controller
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub creates a websocket hub
func NewHub(ctl Controller, allowedOrigins []string, logger *logging.Logger) *Hub {
	h := &Hub{
		ctl:     ctl,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return checkOrigin(r, allowedOrigins)
		},
	}
	return h
}

// checkOrigin accepts requests without an origin, from localhost, from
// the same host, from private networks and from configured origins.
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}

	reqHost := r.Host
	if h, _, err := net.SplitHostPort(reqHost); err == nil {
		reqHost = h
	}
	if strings.EqualFold(host, reqHost) {
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// Clients returns the number of connected observers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all observers
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.Close()
	}
}

func (h *Hub) register(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// ServeHTTP upgrades the connection and runs the client until it leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	if !h.register(conn) {
		conn.Close()
		return
	}
	defer h.unregister(conn)

	h.logger.Info("Observer connected", "remote", r.RemoteAddr)
	defer h.logger.Info("Observer disconnected", "remote", r.RemoteAddr)

	sub := h.ctl.Subscribe()
	defer sub.Close()

	send := make(chan WSResponse, sendBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sole writer
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, send)
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		h.readLoop(ctx, conn, send, writerDone)
	}()

	trySend := func(msg WSResponse) bool {
		select {
		case send <- msg:
			return true
		case <-readerDone:
			return false
		case <-writerDone:
			return false
		}
	}

	if trySend(WSResponse{Type: "state", Payload: stateSnapshot(h.ctl)}) {
		h.relay(sub, readerDone, writerDone, trySend)
	}

	// The reader must be gone before send is closed.
	cancel()
	conn.Close()
	<-readerDone
	close(send)
	<-writerDone
}

// relay forwards session events until the client or the session goes away
func (h *Hub) relay(sub *session.Subscription, readerDone, writerDone <-chan struct{}, trySend func(WSResponse) bool) {
	for {
		select {
		case <-readerDone:
			return
		case <-writerDone:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if !trySend(WSResponse{Type: "event", Payload: ev}) {
				return
			}
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan WSResponse) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, send chan<- WSResponse, writerDone <-chan struct{}) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = WSMessage{Type: "invalid"}
		}
		resp := h.handleMessage(ctx, msg)
		select {
		case send <- resp:
		case <-writerDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, msg WSMessage) WSResponse {
	switch msg.Type {
	case "ping":
		return WSResponse{Type: "pong", ID: msg.ID}
	case "state":
		return WSResponse{Type: "state", ID: msg.ID, Payload: stateSnapshot(h.ctl)}
	case "invalid":
		return WSResponse{Type: "error", Payload: map[string]string{"error": "invalid message"}}
	}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	changed, err := runCommand(cctx, h.ctl, msg.Type)
	result := CommandResult{Command: msg.Type, Changed: changed, State: h.ctl.State()}
	if err != nil {
		result.Error = err.Error()
		result.Code = errorCode(err)
		h.logger.Debug("Observer command failed", "command", msg.Type, "error", err)
	}
	return WSResponse{Type: "result", ID: msg.ID, Payload: result}
}

func stateSnapshot(ctl Controller) StateResponse {
	state := ctl.State()
	return StateResponse{
		State:    state,
		Label:    state.String(),
		Level:    ctl.Level(),
		Settings: ctl.Settings(),
		Messages: ctl.Conversation().Len(),
	}
}
