package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoForTest(t *testing.T) (*RedisConversationRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisConversationRepository(rdb, time.Hour), mr
}

func TestAddAndLoadHistory(t *testing.T) {
	r, _ := newRepoForTest(t)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("average condo price?")))
	require.NoError(t, r.AddMessage(ctx, "c1", schema.AssistantMessage("4.5M THB on average.", nil)))

	history, err := r.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, schema.User, history.Messages[0].Role)
	assert.Equal(t, "average condo price?", history.Messages[0].Content)
	assert.Equal(t, schema.Assistant, history.Messages[1].Role)
}

func TestLoadRecentReturnsTail(t *testing.T) {
	r, _ := newRepoForTest(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}

	history, err := r.LoadRecent(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, "m5", history.Messages[0].Content)
	assert.Equal(t, "m7", history.Messages[2].Content)
}

func TestLoadRecentUnboundedWhenZero(t *testing.T) {
	r, _ := newRepoForTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}

	history, err := r.LoadRecent(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 5)
}

func TestLoadHistoryEmptyConversation(t *testing.T) {
	r, _ := newRepoForTest(t)

	history, err := r.LoadHistory(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}

func TestAddMessageRefreshesTTL(t *testing.T) {
	r, mr := newRepoForTest(t)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("hello")))
	assert.Equal(t, time.Hour, mr.TTL("conversation:c1:messages"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("again")))
	assert.Equal(t, time.Hour, mr.TTL("conversation:c1:messages"))
}

func TestClearHistory(t *testing.T) {
	r, _ := newRepoForTest(t)
	ctx := context.Background()

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("hello")))
	require.NoError(t, r.ClearHistory(ctx, "c1"))

	count, err := r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetMessageCount(t *testing.T) {
	r, _ := newRepoForTest(t)
	ctx := context.Background()

	count, err := r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, r.AddMessage(ctx, "c1", schema.UserMessage("hello")))
	count, err = r.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
