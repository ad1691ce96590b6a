package scheduler

import "time"

// 所有触发时刻都在配置的时区里用墙钟计算，
// 这样夏令时切换后任务仍然在当地的固定时刻运行。

// nextDaily 返回now之后下一个指定时分的墙钟时刻。
func nextDaily(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekly 返回now之后下一个指定星期、时分的墙钟时刻。
func nextWeekly(now time.Time, weekday time.Weekday, hour, minute int, loc *time.Location) time.Time {
	next := nextDaily(now, hour, minute, loc)
	for next.Weekday() != weekday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextMonthly 返回now之后下一个每月1日指定时分的墙钟时刻。
func nextMonthly(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), 1, hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

// previousMonthWindow 返回now所在月份的前一个自然月的双闭毫秒窗口。
// 上界取本月第一个瞬间减1毫秒，保证月末最后一秒的事件全部落入窗内。
func previousMonthWindow(now time.Time, loc *time.Location) (startMs, endMs int64) {
	local := now.In(loc)
	firstOfCurrent := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	firstOfPrevious := firstOfCurrent.AddDate(0, -1, 0)
	return firstOfPrevious.UnixMilli(), firstOfCurrent.UnixMilli() - 1
}
