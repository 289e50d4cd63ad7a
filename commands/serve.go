package commands

import (
	"context"
	"fkpatch/server"

	ucli "github.com/urfave/cli/v3"
)

// serveCommand 创建 serve 子命令
func serveCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "serve",
		Usage: "启动报告浏览服务器",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Value:   ".",
				Usage:   "目标项目根目录",
			},
			&ucli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "监听端口，覆盖配置文件中的 server_port",
			},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			if cmd.IsSet("port") {
				cfg.ServerPort = cmd.Int("port")
			}
			return server.Run(cfg, cmd.String("root"))
		},
	}
}
