// Package stream exposes the shell session's raw output over a websocket so
// observers can watch command output live without disturbing the execution
// protocol.
package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/termbridge/termbridge/internal/common/logger"
	"github.com/termbridge/termbridge/internal/shell"
)

// subscriberBuffer is the per-connection line buffer; slow clients drop
// lines beyond it instead of stalling the session reader.
const subscriberBuffer = 256

// Handler upgrades HTTP requests to websocket connections fed from the shell
// output broadcaster.
type Handler struct {
	bcast    *shell.Broadcaster
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler attached to the given broadcaster.
func NewHandler(bcast *shell.Broadcaster, log *logger.Logger) *Handler {
	return &Handler{
		bcast: bcast,
		log:   log.WithComponent("output-stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws/output: each raw output line is forwarded as one
// text message until the client disconnects.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	lines := make(chan string, subscriberBuffer)
	h.bcast.Subscribe(lines)
	defer h.bcast.Unsubscribe(lines)

	h.log.Debug("output stream client connected", zap.String("remote", conn.RemoteAddr().String()))

	// Read pump: we never expect client messages; reading detects disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line := <-lines:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
