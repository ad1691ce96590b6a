package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDaily(t *testing.T) {
	loc := time.UTC

	// 当天的触发时刻尚未到达
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	next := nextDaily(now, 23, 30, loc)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 30, 0, 0, loc), next)

	// 已经过了今天的触发时刻，推到明天
	now = time.Date(2026, 3, 10, 23, 45, 0, 0, loc)
	next = nextDaily(now, 23, 30, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 23, 30, 0, 0, loc), next)

	// 恰好在触发时刻，推到明天而不是立即再触发
	now = time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	next = nextDaily(now, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, loc), next)
}

func TestNextWeekly(t *testing.T) {
	loc := time.UTC

	// 2026-03-10 是周二，下一个周日04:00是03-15
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)
	next := nextWeekly(now, time.Sunday, 4, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 15, 4, 0, 0, 0, loc), next)
	assert.Equal(t, time.Sunday, next.Weekday())

	// 周日05:00已过本周触发，推到下周日
	now = time.Date(2026, 3, 15, 5, 0, 0, 0, loc)
	next = nextWeekly(now, time.Sunday, 4, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 22, 4, 0, 0, 0, loc), next)
}

func TestNextMonthly(t *testing.T) {
	loc := time.UTC

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)
	next := nextMonthly(now, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, loc), next)

	// 年末跨年
	now = time.Date(2026, 12, 31, 23, 59, 0, 0, loc)
	next = nextMonthly(now, 0, 0, loc)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, loc), next)
}

func TestPreviousMonthWindow(t *testing.T) {
	loc := time.UTC

	now := time.Date(2026, 3, 1, 0, 0, 5, 0, loc)
	startMs, endMs := previousMonthWindow(now, loc)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, loc).UnixMilli(), startMs)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc).UnixMilli()-1, endMs)

	// 1月运行时窗口落在上一年的12月
	now = time.Date(2026, 1, 1, 0, 0, 5, 0, loc)
	startMs, endMs = previousMonthWindow(now, loc)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, loc).UnixMilli(), startMs)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, loc).UnixMilli()-1, endMs)

	// 月末最后一毫秒在窗内，下月第一毫秒在窗外
	assert.Less(t, endMs, time.Date(2026, 1, 1, 0, 0, 0, 0, loc).UnixMilli())
	assert.Equal(t, int64(999), endMs%1000)
}
