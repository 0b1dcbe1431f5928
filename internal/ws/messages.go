package ws

import "time"

// Inbound frame types
const (
	TypeChat      = "chat"
	TypeJoinRoom  = "join_room"
	TypeLeaveRoom = "leave_room"
	TypeTyping    = "typing"
	TypePresence  = "presence"
	TypeFileShare = "file_share"
)

// Outbound frame types
const (
	TypeConnectionEstablished = "connection_established"
	TypeMessageSent           = "message_sent"
	TypeMessageReceived       = "message_received"
	TypeRoomJoined            = "room_joined"
	TypeRoomLeft              = "room_left"
	TypeUserJoined            = "user_joined"
	TypeUserLeft              = "user_left"
	TypeFileShared            = "file_shared"
	TypeError                 = "error"
)

// Frame is an inbound socket message; fields beyond Type are type-specific
type Frame struct {
	Type           string         `json:"type"`
	RoomID         string         `json:"room_id,omitempty"`
	Content        string         `json:"content,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	IsTyping       *bool          `json:"is_typing,omitempty"`
	Status         string         `json:"status,omitempty"`
	FileInfo       map[string]any `json:"file_info,omitempty"`
}

// ChatMessage is the persisted form of a chat frame
type ChatMessage struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func connectionEstablished(connectionID string) map[string]any {
	return map[string]any{
		"type":          TypeConnectionEstablished,
		"connection_id": connectionID,
	}
}

func messageSent(msg ChatMessage) map[string]any {
	return map[string]any{
		"type":    TypeMessageSent,
		"message": msg,
	}
}

func messageReceived(msg ChatMessage) map[string]any {
	return map[string]any{
		"type":    TypeMessageReceived,
		"message": msg,
	}
}

func roomJoined(roomID string, members []string) map[string]any {
	return map[string]any{
		"type":    TypeRoomJoined,
		"room_id": roomID,
		"members": members,
	}
}

func roomLeft(roomID string) map[string]any {
	return map[string]any{
		"type":    TypeRoomLeft,
		"room_id": roomID,
	}
}

func userJoined(roomID, userID string) map[string]any {
	return map[string]any{
		"type":    TypeUserJoined,
		"room_id": roomID,
		"user_id": userID,
	}
}

func userLeft(roomID, userID string) map[string]any {
	return map[string]any{
		"type":    TypeUserLeft,
		"room_id": roomID,
		"user_id": userID,
	}
}

func typingFrame(roomID, userID string, isTyping bool) map[string]any {
	return map[string]any{
		"type":      TypeTyping,
		"room_id":   roomID,
		"user_id":   userID,
		"is_typing": isTyping,
	}
}

func presenceFrame(roomID, userID, status string) map[string]any {
	return map[string]any{
		"type":    TypePresence,
		"room_id": roomID,
		"user_id": userID,
		"status":  status,
	}
}

func fileShared(roomID, userID string, fileInfo map[string]any) map[string]any {
	return map[string]any{
		"type":      TypeFileShared,
		"room_id":   roomID,
		"user_id":   userID,
		"file_info": fileInfo,
	}
}

func errorFrame(detail string) map[string]any {
	return map[string]any{
		"type":   TypeError,
		"detail": detail,
	}
}
