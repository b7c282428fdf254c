package handlers

import (
	"context"
	"log"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/realtime"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Gateway wires the realtime layer together: the session registry, the
// broadcaster and the services every socket event needs. It is built once in
// app wiring and injected, never kept as a package global, so tests can run
// against an isolated instance.
type Gateway struct {
	Registry     *realtime.Registry
	Broadcaster  *realtime.Broadcaster
	Users        *services.UserService
	Membership   *services.MembershipService
	Chat         *services.ChatService
	HistoryLimit int
}

func NewGateway(registry *realtime.Registry, broadcaster *realtime.Broadcaster, users *services.UserService, membership *services.MembershipService, chat *services.ChatService) *Gateway {
	return &Gateway{
		Registry:     registry,
		Broadcaster:  broadcaster,
		Users:        users,
		Membership:   membership,
		Chat:         chat,
		HistoryLimit: utils.GetEnvInt("HISTORY_LIMIT", 50),
	}
}

// session is one live connection's state. Room subscriptions live only in
// the registry; the session carries just identity and the write side.
type session struct {
	connID string
	user   *models.User
	conn   realtime.Conn
}

// WebSocketHandler runs the per-connection lifecycle: authenticate, register,
// serve events, deregister. The JWT is checked by AuthMiddleware before the
// upgrade; here the identity is re-resolved so a stale token for a deleted
// account refuses the connection.
func (g *Gateway) WebSocketHandler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID := c.Locals("user_id").(string)

		user, err := g.Users.GetByID(context.Background(), userID)
		if err != nil {
			_ = utils.SendJSON(c, models.WSMessage{Event: models.EventError, Error: "unknown user"})
			c.Close()
			return
		}

		sess := &session{
			connID: uuid.New().String(),
			user:   user,
			conn:   realtime.NewSyncConn(c),
		}

		g.handleConnect(sess)
		defer g.handleDisconnect(sess)

		_ = utils.SendJSON(sess.conn, models.WSMessage{
			Event:   models.EventConnected,
			UserID:  user.ID,
			Content: "Welcome to the chat server",
		})

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error: %v", err)
				}
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}
			g.dispatch(sess, msg)
		}
	})
}

// handleConnect registers the connection. The user's presence flips to
// active only on their first connection, but the change is broadcast either
// way so every client sees the refreshed state.
func (g *Gateway) handleConnect(sess *session) {
	first := g.Registry.RegisterConnection(sess.user.ID, sess.connID, sess.conn)
	if first {
		if updated, err := g.Users.SetStatus(context.Background(), sess.user.ID, models.StatusActive); err == nil {
			sess.user = updated
		} else {
			utils.LogError(err, "handleConnect SetStatus")
		}
	}
	g.Broadcaster.Global(models.WSMessage{
		Event:    models.EventPresenceChanged,
		UserID:   sess.user.ID,
		Username: sess.user.Username,
		Status:   sess.user.Status,
	})
}

// handleDisconnect deregisters the connection. If it was the user's last
// one, presence flips to offline and the change is broadcast exactly once.
func (g *Gateway) handleDisconnect(sess *session) {
	last := g.Registry.DeregisterConnection(sess.connID)
	if !last {
		return
	}
	if _, err := g.Users.SetStatus(context.Background(), sess.user.ID, models.StatusOffline); err != nil {
		utils.LogError(err, "handleDisconnect SetStatus")
	}
	g.Broadcaster.Global(models.WSMessage{
		Event:    models.EventPresenceChanged,
		UserID:   sess.user.ID,
		Username: sess.user.Username,
		Status:   models.StatusOffline,
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AuthMiddleware verifies the JWT token before upgrading
func AuthMiddleware(c *fiber.Ctx) error {
	// Get token from query param `access_token` or Authorization header
	token := c.Query("access_token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		c.Locals("user_id", uid)
	} else {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	if u, ok := claims["username"].(string); ok {
		c.Locals("username", u)
	}

	return c.Next()
}
