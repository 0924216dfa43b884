package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"parking-gate/ticket-kiosk/pkg/msg"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Screens only listen.
	maxMessageSize = 512

	// Send pings to peer with this period.
	pingPeriod = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = pingPeriod * 5 / 2

	sendBufferSize = 64
)

// Client is a middleman between the websocket connection of a gate
// screen and the hub.
type Client struct {
	id string
	ip string

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	sendWsMessage chan *msg.WsMessage

	// Closed when the client should stop writing and close the connection.
	done      chan struct{}
	closeOnce sync.Once

	hub *Hub
}

func NewClient(conn *websocket.Conn, ip string, hub *Hub) *Client {
	return &Client{
		id:            uuid.NewString(),
		ip:            ip,
		conn:          conn,
		sendWsMessage: make(chan *msg.WsMessage, sendBufferSize),
		done:          make(chan struct{}),
		hub:           hub,
	}
}

func (c *Client) Id() string {
	return c.id
}

// Run registers the client and starts both pumps. Messages queued with
// Send before Run are written first.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// Send queues m without blocking. It returns false when the buffer is
// full, the client is then assumed to be stuck.
func (c *Client) Send(m *msg.WsMessage) bool {
	select {
	case c.sendWsMessage <- m:
		return true
	default:
		return false
	}
}

// TryClose tells the write pump to close the connection. Safe to call
// more than once.
func (c *Client) TryClose() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.TryClose()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// Heartbeat. Close connection if client does not respond to ping for too long.
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.hub.logger.Debugf("pong id[%v]", c.id)
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorf("read failed id[%v] %v", c.id, err)
			} else {
				c.hub.logger.Debugf("read closing id[%v] %v", c.id, err)
			}
			return
		}
		// Screens have nothing to say, anything they send is dropped.
	}
}

func (c *Client) writePump() {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case wsMessage := <-c.sendWsMessage:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(wsMessage); err != nil {
				c.hub.logger.Errorf("write failed id[%v] %v", c.id, err)
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debugf("ping failed id[%v] %v", c.id, err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
