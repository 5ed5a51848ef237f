package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/telegram"
	"tg-chats-collector/internal/testutil"
)

func TestFetchPage_CallShape(t *testing.T) {
	ctx := context.Background()

	t.Run("chat_wide", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		var gotFrom int64
		var gotLimit int32
		client.GetChatHistoryFunc = func(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*telegram.Messages, error) {
			gotFrom, gotLimit = fromMessageID, limit
			assert.False(t, onlyLocal)
			assert.Equal(t, int32(0), offset)
			return &telegram.Messages{Messages: []*telegram.Message{testutil.NewTelegramMessage()}}, nil
		}

		page, err := NewPageFetcher(client, testConfig()).FetchPage(ctx, 1, nil, 555)

		require.NoError(t, err)
		assert.Len(t, page.Messages, 1)
		assert.Equal(t, int64(555), gotFrom)
		assert.Equal(t, int32(100), gotLimit)
		assert.Equal(t, 0, client.CallCount("getMessageThreadHistory"))
	})

	t.Run("general_topic_reads_chat_history", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()

		_, err := NewPageFetcher(client, testConfig()).FetchPage(ctx, 1, &domain.TopicInfo{IsGeneral: true, LastMessageID: 9}, 0)

		require.NoError(t, err)
		assert.Equal(t, 1, client.CallCount("getChatHistory"))
		assert.Equal(t, 0, client.CallCount("getMessageThreadHistory"))
	})

	t.Run("specific_topic_reads_thread_anchored_at_last_message", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		var anchor int64
		client.GetMessageThreadHistoryFunc = func(ctx context.Context, chatID, messageID, fromMessageID int64, offset, limit int32) (*telegram.Messages, error) {
			anchor = messageID
			return &telegram.Messages{}, nil
		}

		page, err := NewPageFetcher(client, testConfig()).FetchPage(ctx, 1, &domain.TopicInfo{TopicID: 55, LastMessageID: 900}, 0)

		require.NoError(t, err)
		assert.True(t, page.Empty())
		assert.Nil(t, page.Oldest())
		assert.Equal(t, int64(900), anchor)
		assert.Equal(t, 0, client.CallCount("getChatHistory"))
	})

	t.Run("skips_nil_messages", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		last := testutil.NewTelegramMessage(testutil.WithID(1))
		client.GetChatHistoryFunc = func(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*telegram.Messages, error) {
			return &telegram.Messages{Messages: []*telegram.Message{testutil.NewTelegramMessage(testutil.WithID(2)), nil, last}}, nil
		}

		page, err := NewPageFetcher(client, testConfig()).FetchPage(ctx, 1, nil, 0)

		require.NoError(t, err)
		assert.Len(t, page.Messages, 2)
		assert.Same(t, last, page.Oldest())
	})
}

func TestFetchPage_Failure(t *testing.T) {
	client := testutil.NewFakeTelegramClient()
	cause := &telegram.Error{Code: 400, Message: "CHANNEL_PRIVATE"}
	client.GetChatHistoryFunc = func(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*telegram.Messages, error) {
		return nil, cause
	}

	_, err := NewPageFetcher(client, testConfig()).FetchPage(context.Background(), 42, nil, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRemoteFetch))

	var fetchErr *domain.RemoteFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, int64(42), fetchErr.ChatID)
	assert.Equal(t, "getChatHistory", fetchErr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestOpenChat(t *testing.T) {
	t.Run("release_closes_even_after_cancel", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		var closeCtxErr error
		client.CloseChatFunc = func(ctx context.Context, chatID int64) error {
			closeCtxErr = ctx.Err()
			client.ClosedChats = append(client.ClosedChats, chatID)
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())

		release, err := NewPageFetcher(client, testConfig()).OpenChat(ctx, 7)
		require.NoError(t, err)
		cancel()
		release()

		assert.Equal(t, []int64{7}, client.OpenedChats)
		assert.Equal(t, []int64{7}, client.ClosedChats)
		assert.NoError(t, closeCtxErr)
	})

	t.Run("open_failure", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		client.OpenChatFunc = func(ctx context.Context, chatID int64) error {
			return errors.New("connection reset")
		}

		release, err := NewPageFetcher(client, testConfig()).OpenChat(context.Background(), 7)

		assert.Nil(t, release)
		assert.ErrorIs(t, err, domain.ErrRemoteFetch)
		assert.Equal(t, 0, client.CallCount("closeChat"))
	})

	t.Run("close_failure_is_only_logged", func(t *testing.T) {
		client := testutil.NewFakeTelegramClient()
		client.CloseChatFunc = func(ctx context.Context, chatID int64) error {
			return errors.New("gone")
		}

		release, err := NewPageFetcher(client, testConfig()).OpenChat(context.Background(), 7)
		require.NoError(t, err)

		assert.NotPanics(t, release)
	})
}
