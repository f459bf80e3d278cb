package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"signserver/internal/logger"
	"signserver/internal/services"
	ws "signserver/internal/services/websocket"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler upgrades the connection and streams analysis
// events to the history view until the client disconnects. History pages
// never send application messages, so the read loop only services control
// frames and surfaces connection errors.
func EventsWebsocketHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(ws.PongWait))
		connection.SetPongHandler(func(string) error {
			return connection.SetReadDeadline(time.Now().Add(ws.PongWait))
		})
		defer connection.Close()

		manager.GetWebsocketService().Register(connection)
		defer manager.GetWebsocketService().Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				break
			}
		}
	}
}
