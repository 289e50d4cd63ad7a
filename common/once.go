package common

import "sync"

// OnceWithReset 可重新武装的一次性触发器。
// websocket 连接池用它保证"关闭所有连接"只跑一次，
// 有新连接进来后 Reset 重新武装
type OnceWithReset struct {
	mu    sync.Mutex
	fired bool
}

func NewOnceWithReset() *OnceWithReset {
	return &OnceWithReset{}
}

// Do 自上次 Reset 以来首次调用时执行 fn，之后为空操作
func (o *OnceWithReset) Do(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fired {
		return
	}
	o.fired = true
	fn()
}

// Reset 重新武装触发器
func (o *OnceWithReset) Reset() {
	o.mu.Lock()
	o.fired = false
	o.mu.Unlock()
}

// IsTriggered 自上次 Reset 以来是否已触发
func (o *OnceWithReset) IsTriggered() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fired
}
