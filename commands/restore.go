package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	ucli "github.com/urfave/cli/v3"

	"fkpatch/backup"
	"fkpatch/resolve"
)

// restoreCommand 创建 restore 子命令
func restoreCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "restore",
		Usage:     "从备份快照恢复文件",
		ArgsUsage: "[相对路径 ...]",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "base", Usage: "备份根目录，缺省 <root>/.diff_backups"},
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
			&ucli.StringFlag{Name: "timestamp", Aliases: []string{"t"}, Usage: "会话标识（非交互时必填）"},
			&ucli.StringFlag{Name: "dest", Usage: "恢复目标目录，缺省项目根"},
			&ucli.BoolFlag{Name: "dry-run", Usage: "只列出将恢复的文件"},
			&ucli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "跳过确认"},
		},
		Action: restoreAction,
	}
}

func restoreAction(ctx context.Context, cmd *ucli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}
	setupLogging(cfg)

	root, err := filepath.Abs(cmd.String("root"))
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}
	fsys := afero.NewOsFs()
	base := resolveBackupBase(fsys, cmd.String("base"), cfg.BackupBase, root)
	dest := cmd.String("dest")
	if dest == "" {
		dest = root
	}

	sessionID := cmd.String("timestamp")
	interactive := resolve.IsTTY()

	if sessionID == "" {
		if !interactive {
			return ucli.Exit("非交互模式必须指定 --timestamp", 1)
		}
		sessionID, err = pickSession(fsys, base)
		if err != nil {
			return ucli.Exit(err.Error(), 1)
		}
	}

	dryRun := cmd.Bool("dry-run")
	paths := cmd.Args().Slice()

	if !dryRun && !cmd.Bool("yes") {
		if !interactive {
			return ucli.Exit("非交互模式必须带 --yes 确认恢复", 1)
		}
		ok, cerr := pterm.DefaultInteractiveConfirm.
			Show(fmt.Sprintf("将用会话 %s 的快照覆盖 %s 下的文件，继续？", sessionID, dest))
		if cerr != nil || !ok {
			pterm.Info.Println("已取消")
			return nil
		}
	}

	restored, err := backup.Restore(fsys, base, sessionID, dest, backup.RestoreOptions{
		DryRun: dryRun,
		Paths:  paths,
	})
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}

	verb := "已恢复"
	if dryRun {
		verb = "将恢复"
	}
	for _, f := range restored {
		fmt.Printf("%s %s (%d bytes)\n", verb, f.Rel, f.Size)
	}
	pterm.Success.Printfln("%s %d 个文件", verb, len(restored))
	return nil
}

// resolveBackupBase 读取备份时的根目录解析：显式 --base 最优先，
// 其次项目根下已存在的默认备份目录，最后才是配置的 backup_base
func resolveBackupBase(fsys afero.Fs, flagBase, cfgBase, root string) string {
	if flagBase != "" {
		return flagBase
	}
	def := filepath.Join(root, backup.DefaultDirName)
	if ok, err := afero.DirExists(fsys, def); err == nil && ok {
		return def
	}
	if cfgBase != "" {
		return cfgBase
	}
	return def
}

// pickSession 交互式会话选择，最新在前，缺省选最新
func pickSession(fsys afero.Fs, base string) (string, error) {
	sessions, err := backup.ListSessions(fsys, base)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("备份目录 %s 下没有可恢复的会话", base)
	}

	options := make([]string, len(sessions))
	for i, s := range sessions {
		options[i] = fmt.Sprintf("[%d] %s  %d 个文件, %d bytes", i+1, s.ID, s.FileCount, s.TotalSize)
	}
	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultOption(options[0]).
		WithMaxHeight(10).
		Show("选择要恢复的备份会话")
	if err != nil {
		return "", err
	}
	for i, opt := range options {
		if opt == choice {
			return sessions[i].ID, nil
		}
	}
	return sessions[0].ID, nil
}
