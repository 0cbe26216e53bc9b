package lifecycle

import "sync"

// Gate 防重复提交闸门
// 同一键的操作进行期间再次触发直接拒绝，对应界面上禁用提交按钮。
type Gate struct {
	mu   sync.Mutex
	busy map[string]bool
}

// NewGate 创建闸门
func NewGate() *Gate {
	return &Gate{busy: make(map[string]bool)}
}

// Acquire 占用指定键。已被占用时返回ErrBusy
func (g *Gate) Acquire(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return ErrBusy
	}
	g.busy[key] = true
	return nil
}

// Release 释放指定键。无论操作成败都必须调用
func (g *Gate) Release(key string) {
	g.mu.Lock()
	delete(g.busy, key)
	g.mu.Unlock()
}
