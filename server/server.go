// Package server 内置报告浏览器：会话列表 API、HTML 报告页与
// 会话变更的 WebSocket 推送；可选按保留策略定时清理备份
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"fkpatch/backup"
	"fkpatch/common"
	"fkpatch/config"
	"fkpatch/logging"
	"fkpatch/report"
	"fkpatch/server/handler"
	"fkpatch/server/router"
	"fkpatch/version"
)

// watchInterval 会话目录轮询间隔
const watchInterval = 2 * time.Second

// Run 启动报告浏览器，阻塞到收到退出信号
func Run(cfg *config.Config, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	sandbox := afero.NewBasePathFs(afero.NewOsFs(), absRoot)
	handler.Init(sandbox)

	port := cfg.ServerPort
	if port <= 0 {
		port = 23456
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router.Init(),
	}
	srv.RegisterOnShutdown(handler.CloseAllWebSockets)

	cleaner := common.NewResourceCleaner()

	if cfg.BackupRetentionDays > 0 {
		base := cfg.BackupBase
		if base == "" {
			base = filepath.Join(absRoot, backup.DefaultDirName)
		}
		sched := cron.New()
		if _, err := sched.AddFunc("@daily", func() {
			removed, perr := backup.Prune(afero.NewOsFs(), base, cfg.BackupRetentionDays, cfg.BackupKeepMin)
			if perr != nil {
				logging.L().Warn("scheduled backup prune failed", zap.Error(perr))
				return
			}
			if len(removed) > 0 {
				logging.L().Info("scheduled backup prune done", zap.Strings("removed", removed))
			}
		}); err != nil {
			return fmt.Errorf("schedule backup prune: %w", err)
		}
		sched.Start()
		cleaner.AddNamed("cron", func() error {
			sched.Stop()
			return nil
		})
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go watchSessions(watchCtx, sandbox)
	cleaner.AddNamed("watcher", func() error {
		stopWatch()
		return nil
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("server stopped unexpectedly", zap.Error(err))
			os.Exit(1)
		}
	}()

	fmt.Printf("fkpatch 报告浏览器 %s\n", version.Get())
	fmt.Printf("当前服务运行在端口 [%s]\n", srv.Addr)
	fmt.Printf("本机访问: http://localhost%s\n", srv.Addr)
	if lan := lanURL(port); lan != "" {
		fmt.Printf("局域网访问: %s\n", lan)
		printQRCode(lan)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	for _, cerr := range cleaner.Execute() {
		logging.L().Warn("cleanup error", zap.Error(cerr))
	}
	fmt.Printf("服务安全退出 %s\n", srv.Addr)
	return nil
}

// watchSessions 轮询报告目录，发现会话集合变化时广播事件
func watchSessions(ctx context.Context, fsys afero.Fs) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	last := sessionsFingerprint(fsys)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sessionsFingerprint(fsys)
			if cur != last {
				last = cur
				handler.Broadcast(map[string]string{"type": "sessions_changed"})
			}
		}
	}
}

// sessionsFingerprint 报告根目录下会话目录的指纹（目录名集合）
func sessionsFingerprint(fsys afero.Fs) string {
	infos, err := afero.ReadDir(fsys, report.DirName)
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, info := range infos {
		if info.IsDir() {
			sb.WriteString(info.Name())
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// lanURL 第一个非回环 IPv4 地址的访问链接
func lanURL(port int) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipn, ok := addr.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil {
			return fmt.Sprintf("http://%s:%d", ip4, port)
		}
	}
	return ""
}

// printQRCode 在终端打印访问链接的二维码
func printQRCode(url string) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return
	}
	fmt.Println(qr.ToSmallString(false))
}
