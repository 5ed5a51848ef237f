package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/telegram"
)

const (
	// lookupConcurrency bounds the GetChat calls of a private name search.
	lookupConcurrency = 8
	forumTopicsLimit  = 100
)

// ChatResolver turns chat and topic references into resolved chats and
// topics using the Telegram backend.
type ChatResolver struct {
	client      telegram.Client
	cache       domain.ChatCache
	callTimeout time.Duration
}

// NewChatResolver creates a resolver. cache may be nil.
func NewChatResolver(client telegram.Client, cache domain.ChatCache, callTimeout time.Duration) *ChatResolver {
	return &ChatResolver{
		client:      client,
		cache:       cache,
		callTimeout: callTimeout,
	}
}

// Resolve finds exactly one chat for ref. The id wins over the public name,
// which wins over the private name part.
func (r *ChatResolver) Resolve(ctx context.Context, ref domain.ChatReference) (*domain.ChatInfo, error) {
	switch {
	case ref.ID != 0:
		return r.ByID(ctx, ref.ID)
	case ref.PublicName != "":
		return r.ByPublicName(ctx, ref.PublicName)
	case ref.PrivateChatNamePart != "":
		matches, err := r.SearchPrivate(ctx, ref.PrivateChatNamePart)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: no chat title contains %q", domain.ErrChatNotFound, ref.PrivateChatNamePart)
		case 1:
			return &matches[0], nil
		default:
			return nil, &domain.ChatResolutionAmbiguousError{Query: ref.PrivateChatNamePart, Candidates: matches}
		}
	default:
		return nil, domain.ErrChatNotIdentified
	}
}

// ByID resolves a chat by its id.
func (r *ChatResolver) ByID(ctx context.Context, chatID int64) (*domain.ChatInfo, error) {
	return r.cached(ctx, fmt.Sprintf("id:%d", chatID), func(ctx context.Context) (*telegram.Chat, error) {
		chat, err := r.client.GetChat(ctx, chatID)
		if err != nil {
			if errors.Is(err, telegram.ErrNotFound) {
				return nil, fmt.Errorf("%w: no chat with id %d", domain.ErrChatNotFound, chatID)
			}
			return nil, remoteError(chatID, "getChat", err)
		}
		return chat, nil
	})
}

// ByPublicName resolves a chat by its public username, with or without the
// leading '@'.
func (r *ChatResolver) ByPublicName(ctx context.Context, name string) (*domain.ChatInfo, error) {
	username := strings.TrimPrefix(strings.TrimSpace(name), "@")
	if username == "" {
		return nil, domain.ErrChatNotIdentified
	}

	return r.cached(ctx, "public:"+strings.ToLower(username), func(ctx context.Context) (*telegram.Chat, error) {
		chat, err := r.client.SearchPublicChat(ctx, username)
		if err != nil {
			if errors.Is(err, telegram.ErrNotFound) {
				return nil, fmt.Errorf("%w: no public chat @%s", domain.ErrChatNotFound, username)
			}
			return nil, remoteError(0, "searchPublicChat", err)
		}
		return chat, nil
	})
}

func (r *ChatResolver) cached(ctx context.Context, key string, load func(context.Context) (*telegram.Chat, error)) (*domain.ChatInfo, error) {
	log := observability.FromContext(ctx)

	if r.cache != nil {
		info, err := r.cache.GetChat(ctx, key)
		if err != nil {
			log.Warn("chat cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		} else if info != nil {
			return info, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	chat, err := load(callCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	info := r.describe(ctx, chat)

	if r.cache != nil {
		if err := r.cache.SetChat(ctx, key, &info); err != nil {
			log.Warn("chat cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return &info, nil
}

// SearchPrivate returns every chat of the main and archive lists whose title
// contains namePart, ignoring case. Chats are looked up concurrently and the
// result keeps the list order.
func (r *ChatResolver) SearchPrivate(ctx context.Context, namePart string) ([]domain.ChatInfo, error) {
	ids, err := r.listChats(ctx, math.MaxInt32, telegram.ChatListMain, telegram.ChatListArchive)
	if err != nil {
		return nil, err
	}

	chats, err := r.lookupChats(ctx, ids)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(namePart)
	matches := make([]domain.ChatInfo, 0)
	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Title), needle) {
			matches = append(matches, r.describe(ctx, chat))
		}
	}

	observability.FromContext(ctx).Debug("private chat search finished",
		slog.String("query", namePart),
		slog.Int("scanned", len(chats)),
		slog.Int("matched", len(matches)))

	return matches, nil
}

// Search runs a chat search for the chat search endpoints. A public name
// returns at most one chat; a private name part returns every match. When
// topicNamePart is set each match carries its matching topics.
func (r *ChatResolver) Search(ctx context.Context, ref domain.ChatReference, topicNamePart string) ([]domain.ChatMatch, error) {
	var chats []domain.ChatInfo
	switch {
	case ref.ID != 0 || ref.PublicName != "":
		chat, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		chats = []domain.ChatInfo{*chat}
	case ref.PrivateChatNamePart != "":
		found, err := r.SearchPrivate(ctx, ref.PrivateChatNamePart)
		if err != nil {
			return nil, err
		}
		chats = found
	default:
		return nil, domain.ErrChatNotIdentified
	}

	matches := make([]domain.ChatMatch, 0, len(chats))
	for _, chat := range chats {
		match := domain.ChatMatch{Chat: chat, Topics: []domain.TopicInfo{}}
		if topicNamePart != "" {
			topics, err := r.TopicsByName(ctx, chat.ID, topicNamePart)
			if err != nil {
				observability.FromContext(ctx).Warn("failed to list chat topics",
					slog.Int64("chat_id", chat.ID),
					slog.String("error", err.Error()))
			} else {
				match.Topics = topics
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// LastChats returns up to count chats of the main list, most recent first.
func (r *ChatResolver) LastChats(ctx context.Context, count int) ([]domain.ChatSummary, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
	}

	ids, err := r.listChats(ctx, int32(min(count, math.MaxInt32)), telegram.ChatListMain)
	if err != nil {
		return nil, err
	}

	chats, err := r.lookupChats(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, domain.ChatSummary{
			ChatID: chat.ID,
			Type:   ChatTypeOf(chat),
			Title:  chat.Title,
		})
	}
	return summaries, nil
}

func (r *ChatResolver) listChats(ctx context.Context, limit int32, lists ...telegram.ChatList) ([]int64, error) {
	var ids []int64
	for _, list := range lists {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		listed, err := r.client.GetChats(callCtx, list, limit)
		cancel()
		if err != nil {
			return nil, remoteError(0, "getChats", err)
		}
		ids = append(ids, listed...)
	}
	return ids, nil
}

// lookupChats issues one GetChat per id with bounded concurrency and waits
// for all of them. Any failure fails the lookup.
func (r *ChatResolver) lookupChats(ctx context.Context, ids []int64) ([]*telegram.Chat, error) {
	chats := make([]*telegram.Chat, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, r.callTimeout)
			defer cancel()

			chat, err := r.client.GetChat(callCtx, id)
			if err != nil {
				return remoteError(id, "getChat", err)
			}
			chats[i] = chat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *ChatResolver) describe(ctx context.Context, chat *telegram.Chat) domain.ChatInfo {
	return domain.ChatInfo{
		ID:         chat.ID,
		PublicName: r.publicName(ctx, chat),
		Type:       ChatTypeOf(chat),
		Title:      chat.Title,
	}
}

// publicName returns the first active username of a supergroup or channel.
// Failures are logged and yield an empty name.
func (r *ChatResolver) publicName(ctx context.Context, chat *telegram.Chat) string {
	sg, ok := chat.Type.(telegram.ChatTypeSupergroup)
	if !ok {
		return ""
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	info, err := r.client.GetSupergroup(callCtx, sg.SupergroupID)
	if err != nil {
		observability.FromContext(ctx).Warn("failed to get supergroup info",
			slog.Int64("chat_id", chat.ID),
			slog.String("title", chat.Title),
			slog.String("error", err.Error()))
		return ""
	}
	if len(info.ActiveUsernames) == 0 {
		return ""
	}
	return info.ActiveUsernames[0]
}

// ChatTypeOf maps the backend chat type to its display kind.
func ChatTypeOf(chat *telegram.Chat) domain.ChatType {
	switch t := chat.Type.(type) {
	case telegram.ChatTypePrivate:
		return domain.ChatTypePrivate
	case telegram.ChatTypeBasicGroup:
		return domain.ChatTypeGroup
	case telegram.ChatTypeSupergroup:
		if t.IsChannel {
			return domain.ChatTypeChannel
		}
		return domain.ChatTypeSupergroup
	case telegram.ChatTypeSecret:
		return domain.ChatTypeSecret
	default:
		return domain.ChatTypeUndefined
	}
}

func remoteError(chatID int64, op string, err error) error {
	var fetchErr *domain.RemoteFetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	return &domain.RemoteFetchError{ChatID: chatID, Op: op, Err: err}
}
