package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fkpatch/server/handler"
	"fkpatch/server/middleware"
	"fkpatch/web"
)

func Init() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.Cors(),
	)

	webFS := web.GetFS()
	r.StaticFS("/static", http.FS(webFS))

	// 首页：会话列表
	serveIndex := func(c *gin.Context) {
		data, err := webFS.Open("index.html")
		if err != nil {
			c.String(http.StatusNotFound, "Page not found")
			return
		}
		defer data.Close()
		c.DataFromReader(http.StatusOK, -1, "text/html; charset=utf-8", data, nil)
	}
	r.GET("/", serveIndex)
	r.GET("/sessions", serveIndex)

	// 会话的 HTML 报告页
	r.GET("/reports/:id", handler.ReportPageHandler())

	r.GET("/ws", handler.WebSocketHandler())

	apiV1 := r.Group("/api/fkpatch")
	{
		apiV1.GET("/version", handler.VersionHandler())
		apiV1.GET("/sessions", handler.SessionsHandler())
		apiV1.GET("/sessions/:id", handler.SessionDetailHandler())
	}
	return r
}
