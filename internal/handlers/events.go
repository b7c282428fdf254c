package handlers

import (
	"context"
	"errors"
	"time"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/utils"
)

// dispatch routes one inbound frame to its event handler. Handlers fail
// soft: any error is reported back on this connection as a scoped error
// event, and the connection stays active. Only transport errors end the
// session, and those are handled by the read loop.
func (g *Gateway) dispatch(sess *session, raw []byte) {
	var msg models.WSMessage
	if err := utils.SafeJSONParse(raw, &msg); err != nil {
		utils.LogError(err, "JSON Parse")
		g.sendError(sess, "malformed payload")
		return
	}

	switch msg.Event {
	case models.EventRoomJoin:
		g.handleJoin(sess, &msg)
	case models.EventRoomLeave:
		g.handleLeave(sess, &msg)
	case models.EventMessageSend:
		g.handleSend(sess, &msg)
	case models.EventPresenceUpdate:
		g.handlePresence(sess, &msg)
	case models.EventTyping:
		g.handleTyping(sess, &msg)
	default:
		g.sendError(sess, "unknown event: "+msg.Event)
	}
}

func (g *Gateway) sendError(sess *session, message string) {
	if err := utils.SendJSON(sess.conn, models.WSMessage{
		Event: models.EventError,
		Error: message,
	}); err != nil {
		utils.LogError(err, "sendError")
	}
}

// handleJoin subscribes the connection to a room after the membership engine
// confirms the user may view it, then delivers a recent-history snapshot to
// this connection only. A denial never closes the connection.
func (g *Gateway) handleJoin(sess *session, msg *models.WSMessage) {
	if msg.ContainerID == "" {
		g.sendError(sess, "container_id is required")
		return
	}

	ctx := context.Background()
	ok, err := g.Membership.IsAuthorizedViewer(ctx, msg.ContainerID, sess.user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			g.sendError(sess, "room not found")
		} else {
			utils.LogError(err, "handleJoin")
			g.sendError(sess, "could not join room")
		}
		return
	}
	if !ok {
		g.sendError(sess, "access denied")
		return
	}

	g.Registry.Subscribe(sess.connID, msg.ContainerID)

	history, err := g.Chat.History(ctx, msg.ContainerID, sess.user.ID, g.HistoryLimit, "")
	if err != nil {
		utils.LogError(err, "handleJoin history")
		return
	}
	if err := utils.SendJSON(sess.conn, models.WSMessage{
		Event:       models.EventHistory,
		ContainerID: msg.ContainerID,
		Messages:    history,
		Timestamp:   time.Now().UnixMilli(),
	}); err != nil {
		utils.LogError(err, "handleJoin history send")
	}
}

// handleLeave drops the subscription. Leaving a room the connection never
// joined is a no-op; no authorization check is needed to unsubscribe.
func (g *Gateway) handleLeave(sess *session, msg *models.WSMessage) {
	if msg.ContainerID == "" {
		return
	}
	g.Registry.Unsubscribe(sess.connID, msg.ContainerID)
}

// handleSend persists the message and broadcasts it to every subscriber of
// the room, the sender included, so all of the sender's devices stay in
// sync. The broadcast runs inside the container's critical section, so
// subscribers see messages in the order the store accepted them. Direct
// threads additionally notify the other participants.
func (g *Gateway) handleSend(sess *session, msg *models.WSMessage) {
	ctx := context.Background()

	message, container, err := g.Chat.SendMessage(ctx, msg.ContainerID, sess.user.ID, msg.Content, msg.FileIDs,
		func(m *models.Message, _ *models.Container) {
			g.Broadcaster.ToRoom(msg.ContainerID, models.WSMessage{
				Event:       models.EventMessageNew,
				ContainerID: msg.ContainerID,
				Message:     m,
				Timestamp:   m.CreatedAt.UnixMilli(),
			}, "")
		})
	if err != nil {
		g.sendError(sess, err.Error())
		return
	}

	if container.Kind == models.KindDM || container.Kind == models.KindGroupDM {
		for _, memberID := range container.MemberIDs() {
			if memberID == sess.user.ID {
				continue
			}
			n := g.Chat.NotifyDirectMessage(ctx, memberID, message)
			if n == nil {
				continue
			}
			g.Broadcaster.ToUser(memberID, models.WSMessage{
				Event:        models.EventNotification,
				ContainerID:  msg.ContainerID,
				Notification: n,
			})
		}
	}
}

// handlePresence persists an explicit presence change and broadcasts it
// globally.
func (g *Gateway) handlePresence(sess *session, msg *models.WSMessage) {
	updated, err := g.Users.SetStatus(context.Background(), sess.user.ID, msg.Status)
	if err != nil {
		g.sendError(sess, err.Error())
		return
	}
	sess.user = updated
	g.Broadcaster.Global(models.WSMessage{
		Event:    models.EventPresenceChanged,
		UserID:   updated.ID,
		Username: updated.Username,
		Status:   updated.Status,
	})
}

// handleTyping relays a typing indicator to the room, excluding the sender.
// Nothing is persisted; clients expire the indicator themselves.
func (g *Gateway) handleTyping(sess *session, msg *models.WSMessage) {
	if msg.ContainerID == "" || !g.Registry.IsSubscribed(sess.connID, msg.ContainerID) {
		return
	}
	g.Broadcaster.ToRoom(msg.ContainerID, models.WSMessage{
		Event:       models.EventTyping,
		ContainerID: msg.ContainerID,
		UserID:      sess.user.ID,
		Username:    sess.user.Username,
		Timestamp:   time.Now().UnixMilli(),
	}, sess.connID)
}
