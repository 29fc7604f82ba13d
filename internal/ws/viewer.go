package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/tombola/internal/tombola"
)

// SessionSource is the read side of the controller a viewer needs.
type SessionSource interface {
	Session() tombola.Session
	Balls() tombola.Frame
}

var viewerSeq atomic.Uint64

// HandleWebSocket upgrades a viewer connection, sends the current session
// and ball positions, then streams broadcasts.
func HandleWebSocket(hub *Hub, src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:  hub,
			conn: conn,
			id:   fmt.Sprintf("v%d@%s", viewerSeq.Add(1), c.ClientIP()),
			send: make(chan []byte, sendBuffer),
		}

		for _, m := range []Message{
			{Type: "session", Data: src.Session()},
			{Type: "frame", Data: src.Balls()},
		} {
			if data, err := json.Marshal(m); err == nil {
				client.send <- data
			}
		}

		select {
		case hub.register <- client:
		case <-hub.stopped:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
