package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fkpatch/common"
	"fkpatch/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 本地报告浏览器，允许所有来源
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WS 连接池管理
var (
	wsConnsMu sync.Mutex
	wsConns   = make(map[*websocket.Conn]struct{})
	closeOnce = common.NewOnceWithReset()
)

func registerConn(conn *websocket.Conn) {
	wsConnsMu.Lock()
	wsConns[conn] = struct{}{}
	wsConnsMu.Unlock()
	closeOnce.Reset()
}

func unregisterConn(conn *websocket.Conn) {
	wsConnsMu.Lock()
	delete(wsConns, conn)
	wsConnsMu.Unlock()
}

// WebSocketHandler /ws 端点：向报告浏览器推送会话变更事件。
// 客户端不需要发消息，读循环只为感知断开
func WebSocketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logging.L().Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		registerConn(conn)
		defer func() {
			unregisterConn(conn)
			_ = conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// Broadcast 向所有在线的报告浏览器推送一个 JSON 事件
func Broadcast(event any) {
	wsConnsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(wsConns))
	for c := range wsConns {
		conns = append(conns, c)
	}
	wsConnsMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			logging.L().Debug("websocket push failed", zap.Error(err))
			unregisterConn(conn)
			_ = conn.Close()
		}
	}
}

// CloseAllWebSockets 服务退出时调用，主动关闭所有 WS 连接。
// 重复调用只生效一次，有新连接进来后重新武装
func CloseAllWebSockets() {
	closeOnce.Do(func() {
		wsConnsMu.Lock()
		conns := make([]*websocket.Conn, 0, len(wsConns))
		for c := range wsConns {
			conns = append(conns, c)
		}
		wsConns = make(map[*websocket.Conn]struct{})
		wsConnsMu.Unlock()

		for _, conn := range conns {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(500*time.Millisecond),
			)
			_ = conn.Close()
		}
	})
}
