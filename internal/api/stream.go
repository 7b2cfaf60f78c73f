package api

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/driveloop/driveloop/internal/alerting"
)

const (
	// clientSendBuffer is the per-connection event buffer; slow dashboards
	// drop events rather than backing up the bus.
	clientSendBuffer = 32
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsClient is one connected dashboard.
type wsClient struct {
	conn *websocket.Conn
	send chan alerting.Event
}

// broadcast is the manager event subscriber: it fans each lifecycle event
// out to every connected client without blocking the bus worker.
func (c *Controller) broadcast(event alerting.Event) {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()
	for client := range c.clients {
		select {
		case client.send <- event:
		default:
			// Client too slow, drop the event for this connection.
		}
	}
}

// StreamEvents upgrades the connection to a websocket and streams lifecycle
// events until the client disconnects.
func (c *Controller) StreamEvents(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}
	client := &wsClient{conn: conn, send: make(chan alerting.Event, clientSendBuffer)}

	c.clientsMu.Lock()
	c.clients[client] = struct{}{}
	c.clientsMu.Unlock()
	c.log.Debug("dashboard stream connected")

	go c.writeLoop(client)
	c.readLoop(client)
	return nil
}

// writeLoop pushes events and keep-alive pings to the client.
func (c *Controller) writeLoop(client *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteJSON(event); err != nil {
				c.drop(client)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drop(client)
				return
			}
		}
	}
}

// readLoop discards inbound messages and detects disconnects.
func (c *Controller) readLoop(client *wsClient) {
	defer c.drop(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop unregisters a client and closes its connection. Safe to call twice.
func (c *Controller) drop(client *wsClient) {
	c.clientsMu.Lock()
	_, registered := c.clients[client]
	delete(c.clients, client)
	c.clientsMu.Unlock()
	if registered {
		close(client.send)
		_ = client.conn.Close()
		c.log.Debug("dashboard stream disconnected")
	}
}
