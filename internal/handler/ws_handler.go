package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is checked by the reverse proxy in production.
	},
}

// ServeWS godoc
// @Summary      Open a realtime connection
// @Description  Upgrades to a websocket carrying the event protocol. The socket starts unauthenticated; identity binds on the first user-connected event.
// @Tags         realtime
// @Security     BearerAuth
// @Success      101  {string}  string  "Switching Protocols"
// @Router       /ws [get]
func ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := Chat.NewClient(conn)
	go client.WritePump()
	go client.ReadPump()
}
