package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"
)

// applyState 应用会话的运行/取消状态
type applyState struct {
	running    atomic.Bool        // 会话是否在运行
	cancelling atomic.Bool        // 是否已请求取消
	cancelFunc context.CancelFunc // 会话的取消函数
	cancelMu   sync.Mutex         // 保护 cancelFunc
}

// Start 标记会话开始并登记取消函数
func (s *applyState) Start(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancelFunc = cancel
	s.cancelMu.Unlock()
	s.running.Store(true)
	s.cancelling.Store(false)
}

// End 标记会话结束
func (s *applyState) End() {
	s.running.Store(false)
	s.cancelling.Store(false)
}

// Cancel 请求取消当前会话；已在取消或未运行时返回 false
func (s *applyState) Cancel() bool {
	if !s.running.Load() {
		return false
	}
	if s.cancelling.Load() {
		return false
	}
	s.cancelling.Store(true)
	s.cancelMu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.cancelMu.Unlock()
	return true
}

// watchInterrupt 监听 SIGINT：第一次请求协作取消（hunk 之间生效），
// 第二次立即退出。返回停止监听的函数
func watchInterrupt(state *applyState) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			if state.Cancel() {
				pterm.Warning.Println("收到中断，正在取消会话（再次 Ctrl+C 立即退出）")
				continue
			}
			os.Exit(130)
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
