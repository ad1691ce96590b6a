package scan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

// fakeHistory 按频道提供固定的历史消息（从新到旧）。
type fakeHistory struct {
	channels []transport.Channel
	messages map[string][]transport.Message
	failing  map[string]bool
}

func (f *fakeHistory) Channels(ctx context.Context) ([]transport.Channel, error) {
	return f.channels, nil
}

func (f *fakeHistory) MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]transport.Message, error) {
	if f.failing[channelID] {
		return nil, fmt.Errorf("频道不可读")
	}

	msgs := f.messages[channelID]
	start := 0
	if beforeID != "" {
		for i, m := range msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[start:end], nil
}

func newScanFixture(t *testing.T, history transport.History) (*Scanner, *activity.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	db := &database.DB{Gorm: gdb, Path: dsn}

	act := activity.NewService(db, 0)
	require.NoError(t, act.PrimeModule(context.Background()))

	scanner := NewScanner(history, act)
	scanner.pace = 0
	return scanner, act
}

func TestScannerBackfillsUsers(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{
		channels: []transport.Channel{{ID: "chan-1", Name: "general", Viewable: true}},
		messages: map[string][]transport.Message{
			"chan-1": {
				{ID: "m3", AuthorID: "user-a", AuthorName: "Alice", Timestamp: now.Add(-1 * time.Hour)},
				{ID: "m2", AuthorID: "user-b", AuthorName: "Bob", AuthorBot: true, Timestamp: now.Add(-2 * time.Hour)},
				{ID: "m1", AuthorID: "user-a", AuthorName: "Alice", Timestamp: now.Add(-3 * time.Hour)},
			},
		},
	}
	scanner, act := newScanFixture(t, history)

	result, err := scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChannelsProcessed)
	assert.Equal(t, 2, result.MessagesIndexed, "机器人消息不参与回填")

	stats, err := act.GetUserStats(context.Background(), "user-a")
	require.NoError(t, err)
	// 回填用max-merge修正新近度，取最新一条消息的时间
	assert.Equal(t, now.Add(-1*time.Hour).UnixMilli(), stats.LastActive)
	assert.Equal(t, int64(0), stats.Count, "回填不伪造离散事件")

	botStats, err := act.GetUserStats(context.Background(), "user-b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), botStats.Count)
}

func TestScannerStopsAtCutoff(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{
		channels: []transport.Channel{{ID: "chan-1", Name: "general", Viewable: true}},
		messages: map[string][]transport.Message{
			"chan-1": {
				{ID: "m2", AuthorID: "user-a", AuthorName: "Alice", Timestamp: now.Add(-24 * time.Hour)},
				{ID: "m1", AuthorID: "user-b", AuthorName: "Bob", Timestamp: now.AddDate(0, 0, -60)},
			},
		},
	}
	scanner, act := newScanFixture(t, history)

	result, err := scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MessagesIndexed, "越过时间下界的消息不再处理")

	ids, err := act.AllUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a"}, ids)
}

func TestScannerSkipsFailingChannel(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{
		channels: []transport.Channel{
			{ID: "chan-bad", Name: "broken", Viewable: true},
			{ID: "chan-ok", Name: "general", Viewable: true},
			{ID: "chan-hidden", Name: "secret", Viewable: false},
		},
		messages: map[string][]transport.Message{
			"chan-ok": {
				{ID: "m1", AuthorID: "user-a", AuthorName: "Alice", Timestamp: now.Add(-time.Hour)},
			},
		},
		failing: map[string]bool{"chan-bad": true},
	}
	scanner, _ := newScanFixture(t, history)

	result, err := scanner.Run(context.Background(), 30)
	require.NoError(t, err, "单个频道失败不应中止整次扫描")
	assert.Equal(t, 3, result.ChannelsProcessed)
	assert.Equal(t, 1, result.MessagesIndexed)
}

func TestScannerPagination(t *testing.T) {
	now := time.Now()
	var msgs []transport.Message
	for i := 0; i < 250; i++ {
		msgs = append(msgs, transport.Message{
			ID:         fmt.Sprintf("m%d", 250-i),
			AuthorID:   "user-a",
			AuthorName: "Alice",
			Timestamp:  now.Add(-time.Duration(i) * time.Minute),
		})
	}
	history := &fakeHistory{
		channels: []transport.Channel{{ID: "chan-1", Name: "general", Viewable: true}},
		messages: map[string][]transport.Message{"chan-1": msgs},
	}
	scanner, _ := newScanFixture(t, history)

	result, err := scanner.Run(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 250, result.MessagesIndexed, "分页应覆盖全部历史")
}
