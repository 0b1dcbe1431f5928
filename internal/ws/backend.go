package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/campushub/gateway/internal/breaker"
)

const messagesPath = "/api/v1/messages"

// ChatClient persists chat messages by calling the messaging service
// through the breaker client, so a flapping backend sheds socket traffic
// the same way it sheds proxied requests.
type ChatClient struct {
	client  *breaker.Client
	service string
}

// NewChatClient creates a chat backend bound to the named service
func NewChatClient(client *breaker.Client, service string) *ChatClient {
	return &ChatClient{client: client, service: service}
}

// Persist stores the message and returns the stored form, which carries
// the server-assigned id and timestamp
func (c *ChatClient) Persist(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	payload, err := json.Marshal(map[string]string{
		"sender_id":       msg.SenderID,
		"conversation_id": msg.ConversationID,
		"content":         msg.Content,
	})
	if err != nil {
		return ChatMessage{}, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(ctx, c.service, http.MethodPost, messagesPath, nil, header, bytes.NewReader(payload))
	if err != nil {
		return ChatMessage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ChatMessage{}, fmt.Errorf("messaging service returned %d", resp.StatusCode)
	}

	var stored ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return ChatMessage{}, fmt.Errorf("decoding stored message: %w", err)
	}
	return stored, nil
}
