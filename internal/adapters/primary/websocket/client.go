package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/taskhive/taskhive-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Capacity of the per-connection outbound buffer.
	sendBufferSize = 256
)

// SessionState tracks a connection through its lifecycle.
type SessionState int32

const (
	// StateConnecting is the initial state before the handshake credential
	// has been verified.
	StateConnecting SessionState = iota

	// StateAuthenticated means the credential was verified but the
	// connection has not been admitted to the registry yet.
	StateAuthenticated

	// StateActive is the only state in which join/leave/push apply.
	StateActive

	// StateClosed is terminal. A closed connection is never reachable
	// from the registry or any room again.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is one live transport session. It holds the authenticated
// identity, the set of joined rooms and the outbound send path.
type Client struct {
	// ID is the process-unique connection id, generated at accept time.
	ID uuid.UUID

	// UserID is the identity that owns this connection. Set once on
	// authentication, read-only afterwards.
	UserID uuid.UUID

	// Conn is the underlying websocket connection. Nil in unit tests
	// that never run the pumps.
	Conn *websocket.Conn

	// Send is the buffered channel of outbound events.
	Send chan domain.Event

	// CreatedAt is the accept timestamp.
	CreatedAt time.Time

	hub *Hub

	state atomic.Int32

	// mu protects rooms and serializes TrySend against CloseSend.
	mu    sync.RWMutex
	rooms map[uuid.UUID]bool

	closeOnce sync.Once

	logger *slog.Logger
}

// NewClient creates a connection session in the Connecting state.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	c := &Client{
		ID:        uuid.New(),
		Conn:      conn,
		Send:      make(chan domain.Event, sendBufferSize),
		CreatedAt: time.Now().UTC(),
		hub:       hub,
		rooms:     make(map[uuid.UUID]bool),
		logger:    logger.With("component", "websocket_client"),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// State returns the session's current lifecycle state.
func (c *Client) State() SessionState {
	return SessionState(c.state.Load())
}

func (c *Client) transition(from, to SessionState) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Authenticate binds the verified identity to the session and moves it
// to the Authenticated state. It fails if the session is not Connecting.
func (c *Client) Authenticate(userID uuid.UUID) bool {
	if !c.transition(StateConnecting, StateAuthenticated) {
		return false
	}
	c.UserID = userID
	c.logger = c.logger.With("user_id", userID.String(), "connection_id", c.ID.String())
	return true
}

// markActive is called by the registry during admission.
func (c *Client) markActive() bool {
	return c.transition(StateAuthenticated, StateActive)
}

// markClosed moves the session to the terminal Closed state from
// whichever state it is in. Returns false if it was already closed.
func (c *Client) markClosed() bool {
	for {
		cur := c.state.Load()
		if SessionState(cur) == StateClosed {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(StateClosed)) {
			return true
		}
	}
}

// TrySend attempts a bounded, non-blocking enqueue onto the outbound
// path. It returns false when the session is not Active or the buffer
// is saturated. A saturated buffer drops the event but does not evict
// the connection; backpressure is not proof of disconnection.
func (c *Client) TrySend(event domain.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.State() != StateActive {
		return false
	}

	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

// CloseSend closes the Send channel exactly once. Callers must have
// moved the session to Closed first so concurrent TrySend calls bail
// out on the state check.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// addRoom records a joined room on the session side of the membership.
func (c *Client) addRoom(projectID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[projectID] = true
}

// removeRoom removes a room from the session side of the membership.
func (c *Client) removeRoom(projectID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, projectID)
}

// HasRoom checks if the session has joined the given room.
func (c *Client) HasRoom(projectID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[projectID]
}

// Rooms returns a copy of the session's joined room ids.
func (c *Client) Rooms() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// ReadPump pumps control messages from the websocket connection.
// It runs in its own goroutine; returning triggers eviction.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Registry().Evict(c.ID)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the Send channel to the websocket
// connection. It runs in its own goroutine. Events are written in
// enqueue order, so delivered events preserve dispatch order per
// connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The registry closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RoomPayload is the payload for join/leave messages.
type RoomPayload struct {
	ProjectID string `json:"projectId"`
}

// handleIncomingMessage processes control messages received from the
// client. Join/leave before the session is Active is a protocol
// violation: logged and ignored, never fatal to other connections.
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "join_project":
		c.handleJoin(msg.Payload)

	case "leave_project":
		c.handleLeave(msg.Payload)

	case "ping":
		// Client-side keep-alive, respond with pong
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) parseRoomID(payload json.RawMessage) (uuid.UUID, bool) {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal room payload", "error", err)
		return uuid.Nil, false
	}

	projectID, err := uuid.Parse(p.ProjectID)
	if err != nil {
		c.logger.Warn("invalid project id in room request", "project_id", p.ProjectID)
		return uuid.Nil, false
	}
	return projectID, true
}

func (c *Client) handleJoin(payload json.RawMessage) {
	if c.State() != StateActive {
		c.logger.Warn("join before session active, ignoring")
		return
	}

	projectID, ok := c.parseRoomID(payload)
	if !ok {
		return
	}

	// Room membership is authorization-agnostic here; project access
	// checks belong to the HTTP tier before it hands out project ids.
	c.hub.Rooms().Join(c, projectID)
}

func (c *Client) handleLeave(payload json.RawMessage) {
	if c.State() != StateActive {
		c.logger.Warn("leave before session active, ignoring")
		return
	}

	projectID, ok := c.parseRoomID(payload)
	if !ok {
		return
	}

	c.hub.Rooms().Leave(c, projectID)
}

func (c *Client) sendPong() {
	if !c.TrySend(domain.Event{Type: "pong"}) {
		c.logger.Debug("pong dropped, send buffer full")
	}
}
