package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	ucli "github.com/urfave/cli/v3"

	"fkpatch/config"
)

// configCommand 创建 config 子命令
func configCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "config",
		Usage: "查看与修改配置",
		Commands: []*ucli.Command{
			{
				Name:  "show",
				Usage: "显示生效配置（JSON）",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return ucli.Exit(err.Error(), 1)
					}
					out, err := cfg.PrettyJSON()
					if err != nil {
						return ucli.Exit(err.Error(), 1)
					}
					fmt.Println(out)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "设置单个配置项",
				ArgsUsage: "<键> <值>",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					args := cmd.Args().Slice()
					if len(args) != 2 {
						return ucli.Exit("用法: fkpatch config set <键> <值>", 1)
					}
					if err := config.Set(configPath(cmd), args[0], args[1]); err != nil {
						return ucli.Exit(err.Error(), 1)
					}
					pterm.Success.Printfln("%s = %s", args[0], args[1])
					return nil
				},
			},
			{
				Name:      "reset",
				Usage:     "恢复默认值（不带参数恢复全部）",
				ArgsUsage: "[键]",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					key := cmd.Args().First()
					if err := config.Reset(configPath(cmd), key); err != nil {
						return ucli.Exit(err.Error(), 1)
					}
					if key == "" {
						pterm.Success.Println("已恢复全部默认值")
					} else {
						pterm.Success.Printfln("已恢复 %s 的默认值", key)
					}
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "显示配置文件路径",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					p := configPath(cmd)
					if abs, err := filepath.Abs(p); err == nil {
						p = abs
					}
					fmt.Println(p)
					return nil
				},
			},
		},
	}
}

// configPath --config 指定的路径，缺省 config/config.toml
func configPath(cmd *ucli.Command) string {
	if p := cmd.String("config"); p != "" {
		return p
	}
	return config.DefaultPath
}
