package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadsntrends_back_end/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type cartMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Cart  any    `json:"cart,omitempty"`
}

// NewUpgrader n'accepte que les origines autorisées par la configuration CORS.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), u.Scheme+"://"+u.Host) {
					return true
				}
			}
			return false
		},
	}
}

// CartWebSocket pousse le panier à jour à chaque modification publiée sur Redis.
func (h *CartHandler) CartWebSocket(upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.FromContext(c).UserID

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("❌ Erreur upgrade WebSocket")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		pubsub := h.carts.Subscribe(ctx, userID)
		defer pubsub.Close()

		// lecture pour détecter la fermeture côté client
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := h.pushCart(ctx, conn, userID, "connected", ""); err != nil {
			return
		}

		ch := pubsub.Channel()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := h.pushCart(ctx, conn, userID, "cart_updated", msg.Payload); err != nil {
					log.Debug().Err(err).Str("user_id", userID).Msg("🔌 WebSocket panier fermé")
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}
}

func (h *CartHandler) pushCart(ctx context.Context, conn *websocket.Conn, userID, kind, event string) error {
	readCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	cart, err := h.carts.Get(readCtx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("❌ Lecture du panier impossible")
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(cartMessage{Type: kind, Event: event, Cart: cart})
}
