package relay

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Origin checks belong to the deployment's reverse proxy.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Options configures the relay's HTTP layer.
type Options struct {
	// JWTSecret enables token auth on the websocket endpoint when non-empty.
	JWTSecret string
}

// NewRouter builds the gin router: a health endpoint and the websocket
// signaling endpoint.
func NewRouter(hub *Hub, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Signaling server is healthy.")
	})

	router.GET("/ws", AuthMiddleware(opts.JWTSecret), ServeWs(hub))

	return router
}

// ServeWs upgrades the request and hands the connection to the hub.
func ServeWs(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("upgrade failed", "err", err)
			return
		}

		client := &Client{
			Hub:    hub,
			Conn:   conn,
			ID:     uuid.New().String(),
			UserID: c.GetString("userId"),
			Send:   make(chan *signaling.Envelope, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
