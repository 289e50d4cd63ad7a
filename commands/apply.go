package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	ucli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fkpatch/assist"
	"fkpatch/backup"
	"fkpatch/config"
	"fkpatch/fileindex"
	"fkpatch/gitinfo"
	"fkpatch/logging"
	"fkpatch/mdiff"
	"fkpatch/patcher"
	"fkpatch/report"
	"fkpatch/resolve"
	"fkpatch/utils"
)

// applyCommand 创建 apply 子命令
func applyCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "apply",
		Usage:     "把补丁应用到项目（缺省演练模式，--write 落盘）",
		ArgsUsage: "[patch.diff ...]",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: ".", Usage: "项目根目录"},
			&ucli.BoolFlag{Name: "clipboard", Usage: "从系统剪贴板读取补丁"},
			&ucli.BoolFlag{Name: "stdin", Usage: "从标准输入读取补丁"},
			&ucli.BoolFlag{Name: "dry-run", Usage: "演练模式：报告结果但不写任何文件"},
			&ucli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "落盘写入（覆盖配置的 dry_run_default）"},
			&ucli.FloatFlag{Name: "threshold", Usage: "模糊匹配相似度下限 (0, 1]"},
			&ucli.BoolFlag{Name: "auto-accept", Usage: "过阈值的最优候选无需确认直接采信"},
			&ucli.BoolFlag{Name: "no-assist", Usage: "禁用外部建议服务"},
			&ucli.BoolFlag{Name: "non-interactive", Usage: "禁用交互式冲突解决"},
			&ucli.StringFlag{Name: "on-conflict", Value: "skip", Usage: "无人处理的冲突: skip|fail"},
			&ucli.StringSliceFlag{Name: "exclude", Usage: "文件索引额外排除模式（可重复）"},
			&ucli.BoolFlag{Name: "no-report", Usage: "不写报告工件"},
			&ucli.BoolFlag{Name: "no-backup-warn", Usage: "工作区脏时不提示"},
		},
		Action: applyAction,
	}
}

func applyAction(ctx context.Context, cmd *ucli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}
	setupLogging(cfg)
	defer logging.Sync()

	policy := resolve.Policy(cmd.String("on-conflict"))
	if policy != resolve.PolicySkip && policy != resolve.PolicyFail {
		return ucli.Exit(fmt.Sprintf("--on-conflict 只接受 skip 或 fail，收到 %q", cmd.String("on-conflict")), 1)
	}

	inputs, err := collectPatchInputs(cmd)
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}
	if len(inputs) == 0 {
		return ucli.Exit("没有补丁输入：请提供补丁文件，或使用 --stdin / --clipboard", 1)
	}

	mfd, err := parsePatchInputs(ctx, inputs)
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}
	pterm.Info.Printfln("待应用: %s", mdiff.Stat(mfd))

	index, err := fileindex.New(cmd.String("root"), append(cfg.ExcludeDirs, cmd.StringSlice("exclude")...))
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}

	threshold := cfg.Threshold
	if cmd.IsSet("threshold") {
		threshold = cmd.Float("threshold")
	}
	if threshold <= 0 || threshold > 1 {
		return ucli.Exit(fmt.Sprintf("--threshold 必须在 (0, 1]，收到 %v", threshold), 1)
	}

	dryRun := cfg.DryRunDefault
	if cmd.Bool("write") {
		dryRun = false
	}
	if cmd.Bool("dry-run") {
		dryRun = true
	}

	git := gitinfo.Collect(index.Root())
	if git.IsRepo && git.Dirty && !dryRun && !cmd.Bool("no-backup-warn") {
		pterm.Warning.Println("工作区有未提交改动，建议先提交或用 --dry-run 预览")
	}

	var assistClient *assist.Client
	if cfg.AssistEnabled && !cmd.Bool("no-assist") {
		assistClient = assist.NewFromEnv()
	}
	decider := resolve.New(resolve.Options{
		AutoAccept:  cmd.Bool("auto-accept"),
		Threshold:   threshold,
		Assist:      assistClient,
		AssistAuto:  cfg.AssistAutoApply,
		Interactive: !cmd.Bool("non-interactive") && resolve.IsTTY(),
		OnConflict:  policy,
	})

	sess := patcher.NewSession(index.Root(), dryRun, threshold)
	sess.Git = git

	exec := patcher.New(index, patcher.Config{
		Threshold:  threshold,
		UseAnchors: cfg.UseAnchors,
		TieBreak:   patcher.TieBreakerByName(cfg.MatchingStrategy),
	})
	exec.Decider = decider
	if !dryRun {
		base := cfg.BackupBase
		if base == "" {
			base = filepath.Join(index.Root(), backup.DefaultDirName)
		}
		exec.Backups = backup.NewManager(afero.NewOsFs(), base, sess.ID)
	}
	width := utils.TermWidth()
	exec.Progress = func(done, total int, path string) {
		pterm.Info.Printfln("[%d/%d] %s", done, total, utils.TruncateForWidth(path, width-16))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	state := &applyState{}
	state.Start(cancel)
	stop := watchInterrupt(state)
	res, applyErr := exec.Apply(runCtx, sess, mfd)
	state.End()
	stop()

	if errors.Is(applyErr, patcher.ErrAborted) {
		pterm.Warning.Println("会话已中止，未处理的文件记为跳过")
	}

	if cfg.WriteReports && !cmd.Bool("no-report") {
		sandbox := afero.NewBasePathFs(afero.NewOsFs(), index.Root())
		if dir, werr := report.Write(sandbox, res); werr != nil {
			logging.L().Warn("report not written", zap.Error(werr))
		} else {
			pterm.Info.Printfln("报告已写入 %s", filepath.Join(index.Root(), filepath.FromSlash(dir)))
		}
	}

	fmt.Print(report.RenderText(res))

	switch {
	case res.Totals.FilesFailed > 0:
		return ucli.Exit("", 3)
	case res.Totals.FilesPartial > 0 || res.Totals.FilesSkipped > 0:
		return ucli.Exit("", 2)
	}
	return nil
}

// patchInput 一份待解析的补丁文本及其来源标识
type patchInput struct {
	label string
	text  string
}

// collectPatchInputs 汇集补丁来源：文件参数、标准输入、剪贴板
func collectPatchInputs(cmd *ucli.Command) ([]patchInput, error) {
	var inputs []patchInput
	for _, p := range cmd.Args().Slice() {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("读取补丁文件失败: %w", err)
		}
		inputs = append(inputs, patchInput{label: p, text: string(data)})
	}
	if cmd.Bool("stdin") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		inputs = append(inputs, patchInput{label: "stdin", text: string(data)})
	}
	if cmd.Bool("clipboard") {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("读取剪贴板失败: %w", err)
		}
		inputs = append(inputs, patchInput{label: "clipboard", text: text})
	}
	return inputs, nil
}

// parsePatchInputs 并发解析全部补丁输入，合并后保持输入次序。
// 任一输入解析失败则整体失败（ParseError 为致命错误）
func parsePatchInputs(ctx context.Context, inputs []patchInput) (*mdiff.MultiFileDiff, error) {
	parsed := make([]*mdiff.MultiFileDiff, len(inputs))
	g, _ := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			text, err := mdiff.ExtractPatchText(inputs[i].text)
			if err != nil {
				return fmt.Errorf("%s: %w", inputs[i].label, err)
			}
			mfd, err := mdiff.ParsePatchText(text)
			if err != nil {
				return fmt.Errorf("%s: %w", inputs[i].label, err)
			}
			parsed[i] = mfd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &mdiff.MultiFileDiff{}
	for _, m := range parsed {
		merged.Files = append(merged.Files, m.Files...)
	}
	if len(merged.Files) == 0 {
		return nil, &mdiff.ParseError{Msg: "no file diffs in any input"}
	}
	return merged, nil
}

// loadConfig 按 --config 指定路径加载配置
func loadConfig(cmd *ucli.Command) (*config.Config, error) {
	return config.Load(configPath(cmd))
}

// setupLogging 按配置初始化日志
func setupLogging(cfg *config.Config) {
	logging.Setup(logging.Options{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		MaxBytes:    cfg.LogMaxBytes,
		BackupCount: cfg.LogBackupCount,
	})
}
