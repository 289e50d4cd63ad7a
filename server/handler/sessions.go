package handler

import (
	"net/http"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"fkpatch/report"
	"fkpatch/utils"
)

// 报告存储：以项目根为基准的沙盒文件系统
var (
	storeMu sync.RWMutex
	store   afero.Fs
)

// Init 绑定报告存储，必须在注册路由前调用
func Init(fsys afero.Fs) {
	storeMu.Lock()
	store = fsys
	storeMu.Unlock()
}

func reportFs() afero.Fs {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

// SessionsHandler 会话报告列表
func SessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := report.ListSessions(reportFs())
		if err != nil {
			Fail(c, err.Error())
			return
		}
		if entries == nil {
			entries = []report.Entry{}
		}
		OK(c, entries)
	}
}

// SessionDetailHandler 单个会话的完整结果
func SessionDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := utils.ParseSessionID(id); err != nil {
			Fail(c, "无效的会话标识")
			return
		}
		res, err := report.Load(reportFs(), id)
		if err != nil {
			Fail(c, err.Error())
			return
		}
		OK(c, res)
	}
}

// ReportPageHandler 会话的 HTML 报告页
func ReportPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := utils.ParseSessionID(id); err != nil {
			c.String(http.StatusBadRequest, "无效的会话标识")
			return
		}
		data, err := afero.ReadFile(reportFs(), path.Join(report.SessionDir(id), "apply-report.html"))
		if err != nil {
			c.String(http.StatusNotFound, "报告不存在")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}
