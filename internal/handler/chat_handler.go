package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"tg-chats-collector/internal/domain"
)

const defaultLastChatsCount = 10

// ChatFinder looks chats up on the Telegram backend.
type ChatFinder interface {
	Search(ctx context.Context, ref domain.ChatReference, topicNamePart string) ([]domain.ChatMatch, error)
	LastChats(ctx context.Context, count int) ([]domain.ChatSummary, error)
}

// ChatHandler handles chat search endpoints
type ChatHandler struct {
	chats ChatFinder
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chats ChatFinder) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// SearchPrivateChatRequest represents a private chat search
type SearchPrivateChatRequest struct {
	PrivateChatNamePart string `json:"privateChatNamePart"`
	TopicNamePart       string `json:"topicNamePart"`
}

// SearchPublicChannelRequest represents a public chat lookup
type SearchPublicChannelRequest struct {
	PublicChatName string `json:"publicChatName"`
}

// SearchChatsResponse lists the chats a search matched.
type SearchChatsResponse struct {
	Chats []domain.ChatMatch `json:"chats"`
}

// LastChatsResponse lists the most recent chats.
type LastChatsResponse struct {
	Chats []domain.ChatSummary `json:"chats"`
}

// SearchPrivate finds chats whose title contains the requested name part
func (h *ChatHandler) SearchPrivate(w http.ResponseWriter, r *http.Request) {
	var req SearchPrivateChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PrivateChatNamePart) == "" {
		writeValidation(w, FieldValidation{Path: "privateChatNamePart", Message: "must not be empty"})
		return
	}

	matches, err := h.chats.Search(r.Context(), domain.ChatReference{PrivateChatNamePart: req.PrivateChatNamePart}, req.TopicNamePart)
	if err != nil {
		writeError(w, r, "chats.search-private", err)
		return
	}

	writeData(w, http.StatusOK, SearchChatsResponse{Chats: matches})
}

// SearchPublic looks a public chat up by its name
func (h *ChatHandler) SearchPublic(w http.ResponseWriter, r *http.Request) {
	var req SearchPublicChannelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PublicChatName) == "" {
		writeValidation(w, FieldValidation{Path: "publicChatName", Message: "must not be empty"})
		return
	}

	matches, err := h.chats.Search(r.Context(), domain.ChatReference{PublicName: req.PublicChatName}, "")
	if err != nil {
		writeError(w, r, "chats.search-public", err)
		return
	}

	writeData(w, http.StatusOK, SearchChatsResponse{Chats: matches})
}

// LastChats returns the most recent chats of the main list
func (h *ChatHandler) LastChats(w http.ResponseWriter, r *http.Request) {
	count := defaultLastChatsCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeValidation(w, FieldValidation{Path: "count", Message: "must be a positive integer"})
			return
		}
		count = parsed
	}

	chats, err := h.chats.LastChats(r.Context(), count)
	if err != nil {
		writeError(w, r, "chats.last", err)
		return
	}

	writeData(w, http.StatusOK, LastChatsResponse{Chats: chats})
}
