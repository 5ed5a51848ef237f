package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/telegram"
)

// Topic resolves ref within a chat. An empty ref yields nil, which means
// chat wide.
func (r *ChatResolver) Topic(ctx context.Context, chatID int64, ref domain.TopicReference) (*domain.TopicInfo, error) {
	switch {
	case ref.ID != 0:
		return r.TopicByID(ctx, chatID, ref.ID)
	case ref.NamePart != "":
		return r.TopicByName(ctx, chatID, ref.NamePart)
	default:
		return nil, nil
	}
}

// TopicByID resolves a forum topic by its message thread id.
func (r *ChatResolver) TopicByID(ctx context.Context, chatID, topicID int64) (*domain.TopicInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	topic, err := r.client.GetForumTopic(callCtx, chatID, topicID)
	if err != nil {
		if errors.Is(err, telegram.ErrNotFound) {
			return nil, &domain.TopicNotFoundError{ChatID: chatID, Query: topicQuery(topicID)}
		}
		return nil, remoteError(chatID, "getForumTopic", err)
	}
	info := topicInfo(*topic)
	return &info, nil
}

// TopicByName returns the first topic whose name contains namePart, ignoring
// case. A chat without topics yields nil; a chat with topics where nothing
// matches yields a *domain.TopicNotFoundError.
func (r *ChatResolver) TopicByName(ctx context.Context, chatID int64, namePart string) (*domain.TopicInfo, error) {
	all, err := r.forumTopics(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	matches := filterTopics(all, namePart)
	if len(matches) == 0 {
		return nil, &domain.TopicNotFoundError{ChatID: chatID, Query: namePart}
	}
	return &matches[0], nil
}

// TopicsByName returns every topic of the chat whose name contains namePart.
func (r *ChatResolver) TopicsByName(ctx context.Context, chatID int64, namePart string) ([]domain.TopicInfo, error) {
	all, err := r.forumTopics(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return filterTopics(all, namePart), nil
}

// forumTopics lists all topics unfiltered so an empty list tells a chat
// without topics apart from a query that matched nothing.
func (r *ChatResolver) forumTopics(ctx context.Context, chatID int64) ([]telegram.ForumTopic, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	topics, err := r.client.GetForumTopics(callCtx, chatID, "", forumTopicsLimit)
	if err != nil {
		return nil, remoteError(chatID, "getForumTopics", err)
	}
	return topics, nil
}

func filterTopics(topics []telegram.ForumTopic, namePart string) []domain.TopicInfo {
	needle := strings.ToLower(namePart)
	out := make([]domain.TopicInfo, 0)
	for _, t := range topics {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			out = append(out, topicInfo(t))
		}
	}
	return out
}

func topicInfo(t telegram.ForumTopic) domain.TopicInfo {
	return domain.TopicInfo{
		IsGeneral:     t.IsGeneral,
		TopicID:       t.MessageThreadID,
		Title:         t.Name,
		LastMessageID: t.LastMessageID,
	}
}

func topicQuery(topicID int64) string {
	return "#" + strconv.FormatInt(topicID, 10)
}
