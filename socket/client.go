package socket

import (
	"net/http"
	"recordstore/internal/record/model"
	"recordstore/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are done by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	ID     string
	Hub    *Hub
	Conn   *websocket.Conn
	Caller model.Principal
	DocID  string // empty subscribes to every event
	Send   chan []byte
}

// wants reports whether the event passes the client's document filter.
func (c *Client) wants(event model.Event) bool {
	return c.DocID == "" || c.DocID == event.DocumentID
}

// ServeWs upgrades the request and subscribes the connection to the notification feed.
// The optional documentId query parameter limits the feed to one document.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, caller model.Principal) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		Hub:    hub,
		Conn:   conn,
		Caller: caller,
		DocID:  r.URL.Query().Get("documentId"),
		Send:   make(chan []byte, 256),
	}
	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the connection closing; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Send ping every 30s
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
