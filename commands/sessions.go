package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	glamour "charm.land/glamour/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	ucli "github.com/urfave/cli/v3"

	"fkpatch/backup"
	"fkpatch/report"
	"fkpatch/resolve"
	"fkpatch/utils"
)

// sessionsCommand 创建 sessions 子命令
func sessionsCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "sessions",
		Usage: "查看与管理历史会话",
		Commands: []*ucli.Command{
			sessionsListCommand(),
			sessionsShowCommand(),
			sessionsExportCommand(),
			sessionsPruneCommand(),
		},
	}
}

func sessionsListCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "list",
		Usage: "列出已有的会话报告",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			entries, err := report.ListSessions(rootSandbox(cmd))
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			if len(entries) == 0 {
				pterm.Info.Println("还没有会话报告")
				return nil
			}

			rows := pterm.TableData{{"会话", "时间", "文件", "成功", "失败", "模式"}}
			for _, e := range entries {
				mode := "write"
				if e.DryRun {
					mode = "dry-run"
				}
				rows = append(rows, []string{
					e.ID,
					e.StartedAt.Format("2006-01-02 15:04:05"),
					fmt.Sprint(e.Files),
					fmt.Sprint(e.Applied),
					fmt.Sprint(e.Failed),
					mode,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

func sessionsShowCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "show",
		Usage:     "在终端渲染一个会话的报告",
		ArgsUsage: "<会话标识>",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return ucli.Exit("用法: fkpatch sessions show <会话标识>", 1)
			}
			md, err := report.LoadMarkdown(rootSandbox(cmd), id)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			if !resolve.IsTTY() {
				fmt.Print(md)
				return nil
			}
			r, err := glamour.NewTermRenderer(
				glamour.WithStylePath("dark"),
				glamour.WithWordWrap(utils.TermWidth()),
			)
			if err != nil {
				fmt.Print(md)
				return nil
			}
			out, err := r.Render(md)
			if err != nil {
				fmt.Print(md)
				return nil
			}
			fmt.Print(out)
			return nil
		},
	}
}

func sessionsExportCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "export",
		Usage:     "把一个会话的 hunk 决策导出为 xlsx",
		ArgsUsage: "<会话标识>",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
			&ucli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "输出文件，缺省 <会话标识>.xlsx"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return ucli.Exit("用法: fkpatch sessions export <会话标识> [--out x.xlsx]", 1)
			}
			res, err := report.Load(rootSandbox(cmd), id)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}

			out := cmd.String("out")
			if out == "" {
				out = id + ".xlsx"
			}
			f, err := os.Create(out)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			defer f.Close()
			if err := report.ExportExcel(res, f); err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			pterm.Success.Printfln("已导出 %s", out)
			return nil
		},
	}
}

func sessionsPruneCommand() *ucli.Command {
	return &ucli.Command{
		Name:  "prune",
		Usage: "按保留策略清理过期的备份会话",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
			&ucli.StringFlag{Name: "base", Usage: "备份根目录，缺省 <root>/.diff_backups"},
			&ucli.IntFlag{Name: "days", Usage: "保留天数，缺省取配置 backup_retention_days"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}

			days := cfg.BackupRetentionDays
			if cmd.IsSet("days") {
				days = cmd.Int("days")
			}
			if days <= 0 {
				pterm.Info.Println("保留天数为 0，未清理任何会话（backup_retention_days 或 --days 启用）")
				return nil
			}

			root, err := filepath.Abs(cmd.String("root"))
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			fsys := afero.NewOsFs()
			base := resolveBackupBase(fsys, cmd.String("base"), cfg.BackupBase, root)

			removed, err := backup.Prune(fsys, base, days, cfg.BackupKeepMin)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			for _, id := range removed {
				fmt.Printf("已删除备份会话 %s\n", id)
			}
			pterm.Success.Printfln("清理完成，删除 %d 个会话", len(removed))
			return nil
		},
	}
}

// rootSandbox 以 --root 为基准的沙盒文件系统
func rootSandbox(cmd *ucli.Command) afero.Fs {
	root := cmd.String("root")
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}
