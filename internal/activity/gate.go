package activity

import (
	"sync"
	"time"
)

// Gate 是坐在持久层之前的进程内冷却闸门。
// 它以每用户为粒度决定一个事件是否计数，使刷屏突发永远到不了磁盘。
// 条目只存在于内存中，生存期等于冷却窗口，重启后重建为空
// （冷启动后每个用户可立即通过一次，这是已接受的权衡）。
type Gate struct {
	mu      sync.Mutex
	entries map[string]*gateEntry
}

type gateEntry struct {
	last  time.Time
	timer *time.Timer
}

// NewGate 创建一个空的冷却闸门。
func NewGate() *Gate {
	return &Gate{entries: make(map[string]*gateEntry)}
}

// Admit 判定一次事件是否计数。
// 若该用户的上一次放行距now不足window则拒绝；否则放行并记录now，
// 条目在window之后自动过期（非扫描式，单条AfterFunc，O(1)）。
func (g *Gate) Admit(userID string, now time.Time, window time.Duration) bool {
	if window <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entries[userID]; ok {
		if now.Sub(e.last) < window {
			return false
		}
		// 旧条目尚未过期回收但窗口已过，直接替换
		e.timer.Stop()
	}

	e := &gateEntry{last: now}
	e.timer = time.AfterFunc(window, func() {
		g.expire(userID, now)
	})
	g.entries[userID] = e
	return true
}

// expire 删除一个到期条目。stamp校验保证不会误删同一用户更新的条目。
func (g *Gate) expire(userID string, stamp time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[userID]; ok && e.last.Equal(stamp) {
		delete(g.entries, userID)
	}
}

// Forget 立即清除一个用户的冷却状态，擦除路径会调用它。
func (g *Gate) Forget(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[userID]; ok {
		e.timer.Stop()
		delete(g.entries, userID)
	}
}

// Len 返回当前存活的条目数，仅用于测试与观测。
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
