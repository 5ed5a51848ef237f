package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/service"
)

// localDateTime is the zone-less form dates may be sent in; it is read as UTC.
const localDateTime = "2006-01-02T15:04:05"

// HistoryProvider runs the chat history use cases.
type HistoryProvider interface {
	SearchHistory(ctx context.Context, req service.SearchHistoryRequest) (*service.SearchHistoryResult, error)
	ChatHistory(ctx context.Context, req service.ChatHistoryRequest) (*service.ChatHistoryResult, error)
	StoredHistory(ctx context.Context, chatID, topicID int64, from time.Time) ([]*domain.StoredMessage, error)
}

// JobEnqueuer queues chat history collections for a worker.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req service.ChatHistoryRequest) (*domain.CollectJob, error)
}

// HistoryHandler handles chat history endpoints
type HistoryHandler struct {
	history HistoryProvider
	jobs    JobEnqueuer
}

// NewHistoryHandler creates a new history handler. jobs may be nil when no
// queue is configured.
func NewHistoryHandler(history HistoryProvider, jobs JobEnqueuer) *HistoryHandler {
	return &HistoryHandler{history: history, jobs: jobs}
}

// SearchHistoryRequest represents a search over one chat's history
type SearchHistoryRequest struct {
	ChatID   int64  `json:"chatId"`
	TopicID  int64  `json:"topicId"`
	DateFrom string `json:"dateFrom"`
}

// ChatHistoryJobRequest represents a queued chat history collection
type ChatHistoryJobRequest struct {
	PublicChatName      string `json:"publicChatName"`
	PrivateChatNamePart string `json:"privateChatNamePart"`
	TopicNamePart       string `json:"topicNamePart"`
	Limit               int    `json:"limit"`
	DateFrom            string `json:"dateFrom"`
	DateTo              string `json:"dateTo"`
}

// StoredHistoryResponse lists persisted messages.
type StoredHistoryResponse struct {
	ChatID     int64                   `json:"chat_id"`
	TopicID    int64                   `json:"topic_id"`
	TotalCount int                     `json:"total_count"`
	Messages   []*domain.StoredMessage `json:"messages"`
}

// Search collects every message of a chat sent since dateFrom
func (h *HistoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchHistoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var invalid []FieldValidation
	if req.ChatID == 0 {
		invalid = append(invalid, FieldValidation{Path: "chatId", Message: "must not be null"})
	}
	dateFrom, err := ParseDateTime(req.DateFrom)
	if err != nil || dateFrom == nil {
		invalid = append(invalid, FieldValidation{Path: "dateFrom", Message: "must be a date time"})
	}
	if len(invalid) > 0 {
		writeValidation(w, invalid...)
		return
	}

	result, err := h.history.SearchHistory(r.Context(), service.SearchHistoryRequest{
		ChatID:   req.ChatID,
		TopicID:  req.TopicID,
		DateFrom: *dateFrom,
	})
	if err != nil {
		writeError(w, r, "chat-history.search", err)
		return
	}

	writeData(w, http.StatusOK, result)
}

// ChatHistory collects a chat identified by name into size-bounded batches
func (h *HistoryHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, invalid := chatHistoryRequest(ChatHistoryJobRequest{
		PublicChatName:      q.Get("publicChatName"),
		PrivateChatNamePart: q.Get("privateChatNamePart"),
		TopicNamePart:       q.Get("topicNamePart"),
		DateFrom:            q.Get("dateFrom"),
		DateTo:              q.Get("dateTo"),
	})
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			invalid = append(invalid, FieldValidation{Path: "limit", Message: "must be a non-negative integer"})
		}
		req.Limit = limit
	}
	if len(invalid) > 0 {
		writeValidation(w, invalid...)
		return
	}

	result, err := h.history.ChatHistory(r.Context(), req)
	if err != nil {
		writeError(w, r, "chat-history.get", err)
		return
	}

	writeData(w, http.StatusOK, result)
}

// Stored returns persisted messages of a chat sent since the from parameter
func (h *HistoryHandler) Stored(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var invalid []FieldValidation
	chatID, err := strconv.ParseInt(q.Get("chatId"), 10, 64)
	if err != nil || chatID == 0 {
		invalid = append(invalid, FieldValidation{Path: "chatId", Message: "must be a chat id"})
	}
	var topicID int64
	if raw := q.Get("topicId"); raw != "" {
		if topicID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			invalid = append(invalid, FieldValidation{Path: "topicId", Message: "must be a topic id"})
		}
	}
	from, err := ParseDateTime(q.Get("dateFrom"))
	if err != nil {
		invalid = append(invalid, FieldValidation{Path: "dateFrom", Message: "must be a date time"})
	}
	if len(invalid) > 0 {
		writeValidation(w, invalid...)
		return
	}

	var since time.Time
	if from != nil {
		since = *from
	}
	messages, err := h.history.StoredHistory(r.Context(), chatID, topicID, since)
	if err != nil {
		writeError(w, r, "chat-history.stored", err)
		return
	}

	writeData(w, http.StatusOK, StoredHistoryResponse{
		ChatID:     chatID,
		TopicID:    topicID,
		TotalCount: len(messages),
		Messages:   messages,
	})
}

// EnqueueJob queues a chat history collection and answers with the job
func (h *HistoryHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, r, "chat-history.jobs", domain.ErrQueueUnavailable)
		return
	}

	var body ChatHistoryJobRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req, invalid := chatHistoryRequest(body)
	if body.Limit < 0 {
		invalid = append(invalid, FieldValidation{Path: "limit", Message: "must not be negative"})
	}
	if len(invalid) > 0 {
		writeValidation(w, invalid...)
		return
	}
	req.Limit = body.Limit

	job, err := h.jobs.Enqueue(r.Context(), req)
	if err != nil {
		writeError(w, r, "chat-history.jobs", err)
		return
	}

	writeData(w, http.StatusAccepted, job)
}

func chatHistoryRequest(in ChatHistoryJobRequest) (service.ChatHistoryRequest, []FieldValidation) {
	req := service.ChatHistoryRequest{
		PublicChatName:      in.PublicChatName,
		PrivateChatNamePart: in.PrivateChatNamePart,
		TopicNamePart:       in.TopicNamePart,
	}

	var invalid []FieldValidation
	var err error
	if req.DateFrom, err = ParseDateTime(in.DateFrom); err != nil {
		invalid = append(invalid, FieldValidation{Path: "dateFrom", Message: "must be a date time"})
	}
	if req.DateTo, err = ParseDateTime(in.DateTo); err != nil {
		invalid = append(invalid, FieldValidation{Path: "dateTo", Message: "must be a date time"})
	}
	return req, invalid
}

// ParseDateTime accepts RFC 3339 or a zone-less date time in UTC. An empty
// string yields nil.
func ParseDateTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.ParseInLocation(localDateTime, raw, time.UTC); err != nil {
			return nil, err
		}
	}
	t = t.UTC()
	return &t, nil
}
