//go:build integration
// +build integration

package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tg-chats-collector/internal/cache"
	"tg-chats-collector/internal/domain"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections"),
				wait.ForListeningPort("6379/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestChatCache_Redis(t *testing.T) {
	ctx := context.Background()
	url := setupRedis(t)

	client, err := cache.NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	c := cache.NewChatCache(client, time.Second)
	chat := &domain.ChatInfo{ID: -1001, Type: domain.ChatTypeSupergroup, Title: "Team Alpha"}

	miss, err := c.GetChat(ctx, "id:-1001")
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.SetChat(ctx, "id:-1001", chat))

	hit, err := c.GetChat(ctx, "id:-1001")
	require.NoError(t, err)
	assert.Equal(t, chat, hit)

	require.Eventually(t, func() bool {
		got, err := c.GetChat(ctx, "id:-1001")
		return err == nil && got == nil
	}, 5*time.Second, 100*time.Millisecond, "entry should expire")
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), "redis://127.0.0.1:1/0")
	assert.ErrorContains(t, err, "failed to ping redis")
}
