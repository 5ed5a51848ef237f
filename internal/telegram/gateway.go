package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrInvalidResponse is returned when the gateway answers with something that
// is not a TDLib object.
var ErrInvalidResponse = errors.New("invalid response from TDLib gateway")

const maxResponseBytes = 32 << 20

type tdRequest map[string]any

// GatewayClient talks to a TDLib JSON gateway: every call is one
// POST {baseURL}/td/send with a TDLib function object, answered by one TDLib
// object (or a TDLib "error" object). The gateway owns the account session.
type GatewayClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewGatewayClient creates a new gateway client. Timeouts come from the
// caller's context.
func NewGatewayClient(baseURL, token string) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (c *GatewayClient) GetMe(ctx context.Context) (*User, error) {
	var w wireUser
	if err := c.send(ctx, tdRequest{"@type": "getMe"}, &w); err != nil {
		return nil, err
	}
	return &User{ID: w.ID, FirstName: w.FirstName, LastName: w.LastName}, nil
}

func (c *GatewayClient) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var w wireChat
	if err := c.send(ctx, tdRequest{"@type": "getChat", "chat_id": chatID}, &w); err != nil {
		return nil, err
	}
	return w.toChat(), nil
}

func (c *GatewayClient) SearchPublicChat(ctx context.Context, username string) (*Chat, error) {
	var w wireChat
	req := tdRequest{"@type": "searchPublicChat", "username": strings.TrimPrefix(username, "@")}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	return w.toChat(), nil
}

func (c *GatewayClient) GetChats(ctx context.Context, list ChatList, limit int32) ([]int64, error) {
	var w wireChats
	req := tdRequest{
		"@type":     "getChats",
		"chat_list": tdRequest{"@type": string(list)},
		"limit":     limit,
	}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	return w.ChatIDs, nil
}

func (c *GatewayClient) GetSupergroup(ctx context.Context, supergroupID int64) (*Supergroup, error) {
	var w wireSupergroup
	if err := c.send(ctx, tdRequest{"@type": "getSupergroup", "supergroup_id": supergroupID}, &w); err != nil {
		return nil, err
	}
	return w.toSupergroup(), nil
}

func (c *GatewayClient) GetForumTopics(ctx context.Context, chatID int64, query string, limit int32) ([]ForumTopic, error) {
	var w wireForumTopics
	req := tdRequest{
		"@type":                    "getForumTopics",
		"chat_id":                  chatID,
		"query":                    query,
		"offset_date":              0,
		"offset_message_id":        0,
		"offset_message_thread_id": 0,
		"limit":                    limit,
	}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	topics := make([]ForumTopic, 0, len(w.Topics))
	for i := range w.Topics {
		topics = append(topics, w.Topics[i].toForumTopic())
	}
	return topics, nil
}

func (c *GatewayClient) GetForumTopic(ctx context.Context, chatID, messageThreadID int64) (*ForumTopic, error) {
	var w wireForumTopic
	req := tdRequest{"@type": "getForumTopic", "chat_id": chatID, "message_thread_id": messageThreadID}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	topic := w.toForumTopic()
	return &topic, nil
}

func (c *GatewayClient) GetChatHistory(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*Messages, error) {
	var w wireMessages
	req := tdRequest{
		"@type":           "getChatHistory",
		"chat_id":         chatID,
		"from_message_id": fromMessageID,
		"offset":          offset,
		"limit":           limit,
		"only_local":      onlyLocal,
	}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	return w.toMessages(), nil
}

func (c *GatewayClient) GetMessageThreadHistory(ctx context.Context, chatID, messageID, fromMessageID int64, offset, limit int32) (*Messages, error) {
	var w wireMessages
	req := tdRequest{
		"@type":           "getMessageThreadHistory",
		"chat_id":         chatID,
		"message_id":      messageID,
		"from_message_id": fromMessageID,
		"offset":          offset,
		"limit":           limit,
	}
	if err := c.send(ctx, req, &w); err != nil {
		return nil, err
	}
	return w.toMessages(), nil
}

func (c *GatewayClient) GetMessage(ctx context.Context, chatID, messageID int64) (*Message, error) {
	var w wireMessage
	if err := c.send(ctx, tdRequest{"@type": "getMessage", "chat_id": chatID, "message_id": messageID}, &w); err != nil {
		return nil, err
	}
	return w.toMessage(), nil
}

func (c *GatewayClient) OpenChat(ctx context.Context, chatID int64) error {
	return c.send(ctx, tdRequest{"@type": "openChat", "chat_id": chatID}, nil)
}

func (c *GatewayClient) CloseChat(ctx context.Context, chatID int64) error {
	return c.send(ctx, tdRequest{"@type": "closeChat", "chat_id": chatID}, nil)
}

// send posts one TDLib function and decodes the answer into out (nil for
// functions answered with "ok").
func (c *GatewayClient) send(ctx context.Context, req tdRequest, out any) error {
	method, _ := req["@type"].(string)

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/td/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", method, err)
	}

	return decodeResponse(method, resp.StatusCode, data, out)
}

func decodeResponse(method string, status int, data []byte, out any) error {
	var head wireObject
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		if status != http.StatusOK {
			return fmt.Errorf("%s: unexpected status code: %d", method, status)
		}
		return fmt.Errorf("%s: %w", method, ErrInvalidResponse)
	}

	if head.Type == "error" {
		var tdErr wireError
		if err := json.Unmarshal(data, &tdErr); err != nil {
			return fmt.Errorf("%s: %w", method, ErrInvalidResponse)
		}
		return fmt.Errorf("%s: %w", method, &Error{Code: tdErr.Code, Message: tdErr.Message})
	}

	if status != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code: %d", method, status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to decode %s: %w", method, head.Type, err)
	}
	return nil
}
