package ws

import (
	"context"
	"encoding/json"

	"github.com/campushub/gateway/internal/interfaces"
	"github.com/campushub/gateway/internal/metrics"
)

// ChatService persists chat messages through the backend messaging service
type ChatService interface {
	Persist(ctx context.Context, msg ChatMessage) (ChatMessage, error)
}

// Router dispatches inbound frames by type. Errors are only ever reported
// to the originating connection; a bad frame from one user never reaches
// anyone else and never tears down other connections.
type Router struct {
	manager   *Manager
	chat      ChatService
	logger    interfaces.Logger
	collector *metrics.Collector
}

// NewRouter creates a message router
func NewRouter(manager *Manager, chat ChatService, logger interfaces.Logger, collector *metrics.Collector) *Router {
	return &Router{
		manager:   manager,
		chat:      chat,
		logger:    logger,
		collector: collector,
	}
}

// conversationRoom names the implicit room for a conversation's members
func conversationRoom(conversationID string) string {
	return "conversation_" + conversationID
}

// HandleFrame processes one inbound frame for a connection. Frames on a
// single connection are handled in arrival order by the read loop.
func (r *Router) HandleFrame(ctx context.Context, conn *Connection, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		_ = conn.Send(errorFrame("malformed message"))
		return
	}

	r.collector.WSMessage(frame.Type)

	switch frame.Type {
	case TypeChat:
		r.handleChat(ctx, conn, frame)
	case TypeJoinRoom:
		r.handleJoinRoom(conn, frame)
	case TypeLeaveRoom:
		r.handleLeaveRoom(conn, frame)
	case TypeTyping:
		r.handleTyping(conn, frame)
	case TypePresence:
		r.handlePresence(conn, frame)
	case TypeFileShare:
		r.handleFileShare(conn, frame)
	default:
		if r.logger != nil {
			r.logger.Warn("Unknown message type", map[string]any{
				"type":    frame.Type,
				"user_id": conn.UserID(),
			})
		}
	}
}

// handleChat persists the message, then relays it to the conversation room
// (excluding the sender) and confirms to the sender. A persistence failure
// is local to the sender: no one else hears about it.
func (r *Router) handleChat(ctx context.Context, conn *Connection, frame Frame) {
	if frame.ConversationID == "" || frame.Content == "" {
		_ = conn.Send(errorFrame("chat requires conversation_id and content"))
		return
	}

	msg, err := r.chat.Persist(ctx, ChatMessage{
		SenderID:       conn.UserID(),
		ConversationID: frame.ConversationID,
		Content:        frame.Content,
	})
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("Chat persistence failed", map[string]any{
				"user_id":         conn.UserID(),
				"conversation_id": frame.ConversationID,
				"error":           err.Error(),
			})
		}
		_ = conn.Send(errorFrame("message could not be delivered"))
		return
	}

	r.manager.SendToRoom(conversationRoom(frame.ConversationID), messageReceived(msg), conn.UserID())
	_ = conn.Send(messageSent(msg))
}

// handleJoinRoom notifies existing members first, then confirms to the
// actor with the current member list
func (r *Router) handleJoinRoom(conn *Connection, frame Frame) {
	if frame.RoomID == "" {
		_ = conn.Send(errorFrame("join_room requires room_id"))
		return
	}

	members := r.manager.JoinRoom(frame.RoomID, conn.UserID())
	r.manager.SendToRoom(frame.RoomID, userJoined(frame.RoomID, conn.UserID()), conn.UserID())
	_ = conn.Send(roomJoined(frame.RoomID, members))
}

func (r *Router) handleLeaveRoom(conn *Connection, frame Frame) {
	if frame.RoomID == "" {
		_ = conn.Send(errorFrame("leave_room requires room_id"))
		return
	}

	if r.manager.LeaveRoom(frame.RoomID, conn.UserID()) {
		r.manager.SendToRoom(frame.RoomID, userLeft(frame.RoomID, conn.UserID()), conn.UserID())
	}
	_ = conn.Send(roomLeft(frame.RoomID))
}

// handleTyping is a pure relay: no persistence, no backend call
func (r *Router) handleTyping(conn *Connection, frame Frame) {
	if frame.RoomID == "" {
		return
	}

	isTyping := false
	if frame.IsTyping != nil {
		isTyping = *frame.IsTyping
	}
	r.manager.SendToRoom(frame.RoomID, typingFrame(frame.RoomID, conn.UserID(), isTyping), conn.UserID())
}

// handlePresence relays a status change; without an explicit room it fans
// out to every room the user belongs to
func (r *Router) handlePresence(conn *Connection, frame Frame) {
	rooms := []string{frame.RoomID}
	if frame.RoomID == "" {
		rooms = r.manager.UserRooms(conn.UserID())
	}

	for _, roomID := range rooms {
		r.manager.SendToRoom(roomID, presenceFrame(roomID, conn.UserID(), frame.Status), conn.UserID())
	}
}

// handleFileShare relays only complete frames; incomplete ones are dropped
// without a reply
func (r *Router) handleFileShare(conn *Connection, frame Frame) {
	if frame.RoomID == "" || len(frame.FileInfo) == 0 {
		if r.logger != nil {
			r.logger.Debug("Dropping incomplete file_share frame", map[string]any{
				"user_id": conn.UserID(),
			})
		}
		return
	}

	r.manager.SendToRoom(frame.RoomID, fileShared(frame.RoomID, conn.UserID(), frame.FileInfo), conn.UserID())
}
