package sync

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

// WSHandler upgrades to a websocket subscribed to the `topic` query
// parameters (repeatable). No topic means every event.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		topics := c.QueryArray("topic")

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		b, _ := json.Marshal(SubscribeMessage{Type: "welcome", Topics: NewFilter(topics...).Topics()})
		if err := ws.WriteMessage(websocket.TextMessage, append(b, '\n')); err != nil {
			_ = ws.Close()
			return
		}

		hub.AddWS(ws, topics...)
		hub.logger.Info("ws client connected", slog.Int("topics", len(topics)))

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				break
			}
			var msg SubscribeMessage
			if json.Unmarshal(data, &msg) == nil && msg.Type == SubscribeMessageType {
				hub.SubscribeWS(ws, msg.Topics)
			}
		}

		hub.RemoveWS(ws)
		hub.logger.Info("ws client disconnected")
	}
}
