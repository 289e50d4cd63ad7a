package commands

import (
	"context"
	"fmt"

	"fkpatch/config"
	"fkpatch/version"

	ucli "github.com/urfave/cli/v3"
)

// Root 创建根命令
func Root() *ucli.Command {
	return &ucli.Command{
		Name:    "fkpatch",
		Usage:   "容忍行号漂移的 unified diff 补丁工具",
		Version: version.Get().String(),
		Commands: []*ucli.Command{
			applyCommand(),
			restoreCommand(),
			sessionsCommand(),
			configCommand(),
			serveCommand(),
			updateCommand(),
			generateCommand(),
			{
				Name:  "version",
				Usage: "显示版本信息",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					fmt.Printf("fkpatch: %s\n", version.Get())
					return nil
				},
			},
		},
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "配置文件路径",
			},
		},
	}
}
