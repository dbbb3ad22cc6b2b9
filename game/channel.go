package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Channel is one connected client's named-event pipe. The Registry only ever
// talks to clients through this interface.
type Channel interface {
	ID() string
	Emit(event string, payload any) error
}

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NetworkSession abstracts the raw socket so the channel and its tests don't
// depend on gorilla directly.
type NetworkSession interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
	Close(reason string)
}

type websocketConnection struct {
	socket *websocket.Conn
}

func NewWebsocketConnection(conn *websocket.Conn) *websocketConnection {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(time.Minute))
		return nil
	})
	return &websocketConnection{socket: conn}
}

func (wc *websocketConnection) Write(data []byte) error {
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Ping() error {
	return wc.socket.WriteMessage(websocket.PingMessage, nil)
}

func (wc *websocketConnection) Close(reason string) {
	wc.socket.SetWriteDeadline(time.Now().Add(time.Second * 20))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	wc.socket.Close()
}

// wsChannel is the production Channel: a buffered outbox drained by a write
// pump, so a slow client never blocks a room operation.
type wsChannel struct {
	id        string
	session   NetworkSession
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSChannel(session NetworkSession) *wsChannel {
	return &wsChannel{
		id:      uuid.NewString(),
		session: session,
		outbox:  make(chan []byte, 256),
		done:    make(chan struct{}),
	}
}

func (c *wsChannel) ID() string { return c.id }

func (c *wsChannel) Emit(event string, payload any) error {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.outbox <- frame:
		return nil
	case <-c.done:
		return ErrChannelClosed
	}
}

func (c *wsChannel) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump owns all writes to the socket: outbox frames and periodic pings.
func (c *wsChannel) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.outbox:
			if err := c.session.Write(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.session.Ping(); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
