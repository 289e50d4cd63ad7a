package patcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fkpatch/binpatch"
	"fkpatch/fileindex"
	"fkpatch/filetypes"
	"fkpatch/logging"
	"fkpatch/mdiff"
	"fkpatch/utils"
)

// ErrAborted 决策源要求中止会话
var ErrAborted = errors.New("session aborted by decision source")

// Snapshotter 首次写入前为文件留底的备份端。
// 同一会话内对同一路径重复调用必须幂等
type Snapshotter interface {
	Snapshot(rel string, data []byte) error
}

// Executor 把解析好的多文件 diff 应用到项目根。
// 文件按补丁顺序串行处理；文件级错误只记录结果，不中断会话
type Executor struct {
	Cfg      Config
	Index    *fileindex.Index
	Decider  Decider      // 为空时歧义一律跳过
	Backups  Snapshotter  // 为空时不留底（干运行）
	Progress ProgressFunc // 为空时不上报进度
}

// New 创建执行器
func New(index *fileindex.Index, cfg Config) *Executor {
	return &Executor{Cfg: cfg.normalized(), Index: index}
}

// Apply 在会话中应用整个补丁集。
// 返回 ErrAborted 表示用户中止；其余错误都已折入各文件的结果。
// 取消（ctx）在 hunk 之间与文件之间生效，不会打断单个文件的写入
func (e *Executor) Apply(ctx context.Context, sess *Session, mfd *mdiff.MultiFileDiff) (*SessionResult, error) {
	total := len(mfd.Files)
	var abort error

	for i := range mfd.Files {
		fd := &mfd.Files[i]
		display := fileindex.NormalizePatchPath(fd.Target())
		if display == "" {
			display = fd.Target()
		}

		for _, w := range fd.Warnings {
			logging.L().Warn("patch parse warning",
				zap.String("path", display), zap.String("warning", w))
		}

		var fr *FileResult
		var aborted bool
		switch {
		case abort != nil:
			fr = &FileResult{Path: display, Status: StatusSkipped, Err: "session aborted"}
		case ctx.Err() != nil:
			fr = &FileResult{Path: display, Status: StatusSkipped, Err: "session cancelled"}
		case fd.IsBinary:
			fr = e.applyBinary(ctx, sess, fd, display)
		default:
			fr, aborted = e.applyText(ctx, sess, fd, display)
		}

		if aborted {
			abort = ErrAborted
		}
		sess.Record(fr)

		if e.Progress != nil {
			e.Progress(i+1, total, fr.Path)
		}
	}

	return sess.Result(), abort
}

// resolveTarget 解析文件 diff 的目标路径，歧义走文件级决策。
// ok=false 表示无法解析，fr 已填好跳过/失败原因
func (e *Executor) resolveTarget(ctx context.Context, fd *mdiff.FileDiff, display string) (string, *FileResult, bool) {
	name := fd.Target()
	if fd.IsNew {
		rel, err := e.Index.ResolveNewFile(name)
		if err != nil {
			return "", &FileResult{Path: display, Status: StatusFailed, Err: err.Error()}, false
		}
		return rel, nil, true
	}

	rel, err := e.Index.Resolve(name)
	if err == nil {
		return rel, nil, true
	}

	var fre *fileindex.FileResolutionError
	if errors.As(err, &fre) && e.Decider != nil {
		q := &FileQuery{Name: name, Candidates: fre.Candidates, Suggestions: fre.Suggestions}
		if picked, ok, derr := e.Decider.DecideFile(ctx, q); derr == nil && ok {
			return picked, nil, true
		}
	}
	logging.L().Warn("cannot resolve patch target", zap.String("path", name), zap.Error(err))
	return "", &FileResult{Path: display, Status: StatusSkipped, Err: err.Error()}, false
}

// applyBinary 二进制分支：整体解码替换，不经过模糊定位
func (e *Executor) applyBinary(ctx context.Context, sess *Session, fd *mdiff.FileDiff, display string) *FileResult {
	fr := &FileResult{Path: display, Binary: true}

	rel, res, ok := e.resolveTarget(ctx, fd, display)
	if !ok {
		res.Binary = true
		return res
	}
	fr.Path = rel

	var oldData []byte
	if !fd.IsNew {
		data, err := e.Index.ReadFile(rel)
		if err != nil {
			fr.Status = StatusFailed
			fr.Err = fmt.Sprintf("read %s: %v", rel, err)
			return fr
		}
		oldData = data
	}

	patch, err := binpatch.Parse(fd.BinaryPayload)
	if err != nil {
		fr.Status = StatusFailed
		fr.Err = err.Error()
		return fr
	}
	newData, err := patch.Apply(oldData)
	if err != nil {
		fr.Status = StatusFailed
		fr.Err = err.Error()
		return fr
	}

	if sess.DryRun {
		fr.Status = StatusApplied
		return fr
	}
	if err := e.snapshot(rel, oldData, fd.IsNew); err != nil {
		fr.Status = StatusFailed
		fr.Err = err.Error()
		return fr
	}
	if err := e.Index.WriteFile(rel, newData); err != nil {
		fr.Status = StatusFailed
		fr.Err = (&ApplyError{Kind: WriteFailure, Path: rel, Msg: "write binary result", Err: err}).Error()
		return fr
	}
	fr.Status = StatusApplied
	return fr
}

// applyText 文本分支。第二个返回值表示决策源要求中止会话
func (e *Executor) applyText(ctx context.Context, sess *Session, fd *mdiff.FileDiff, display string) (*FileResult, bool) {
	// 新建文件：内容即补丁新增行
	if fd.IsNew {
		return e.createFile(ctx, sess, fd, display), false
	}

	srcName := fd.Source()
	srcRel, res, ok := e.resolveSource(ctx, fd, srcName, display)
	if !ok {
		return res, false
	}

	data, err := e.Index.ReadFile(srcRel)
	if err != nil {
		return &FileResult{Path: display, Status: StatusFailed, Err: fmt.Sprintf("read %s: %v", srcRel, err)}, false
	}

	// 删除文件：留底后移除，无 hunk 处理
	if fd.IsDelete {
		return e.deleteFile(sess, srcRel, data), false
	}

	destRel := srcRel
	if fd.RenameFrom != "" || fd.CopyFrom != "" {
		destRel, err = e.Index.ResolveNewFile(fd.Target())
		if err != nil {
			return &FileResult{Path: display, Status: StatusFailed, Err: err.Error()}, false
		}
	}

	text := string(data)
	eol := utils.DetectEOL(text)
	rule := filetypes.Lookup(destRel)
	trailingNL := initialTrailingNL(utils.HasTrailingNewline(text), rule)

	fr := &FileResult{Path: destRel, Language: rule.Language}

	buf := utils.SplitLines(text)
	delta := 0
	failed := false
	aborted := false

	for i := range fd.Hunks {
		h := &fd.Hunks[i]
		idx := i + 1

		if failed || aborted || ctx.Err() != nil {
			fr.Hunks = append(fr.Hunks, HunkDecision{Index: idx, State: HunkSkipped, Note: skipReason(failed, aborted)})
			continue
		}

		dec, newBuf := e.applyHunk(ctx, fr.Path, idx, h, buf, delta, rule)
		fr.Hunks = append(fr.Hunks, dec)
		switch dec.State {
		case HunkApplied:
			// 行差按缓冲区实际变化累计，已打过的无操作块不产生偏移
			delta += len(newBuf) - len(buf)
			buf = newBuf
			if h.NoNewlineNew {
				trailingNL = false
			} else if h.NoNewlineOld {
				trailingNL = true
			}
		case HunkFailed:
			failed = true
		case HunkSkipped:
			if dec.Note == "abort" {
				aborted = true
			}
		}
	}

	applied, skipped := countStates(fr.Hunks)

	switch {
	case failed:
		// 任一 hunk 失败则整个文件不落盘
		fr.Status = StatusFailed
		if fr.Err == "" {
			fr.Err = (&ApplyError{Kind: ConflictUnresolved, Path: fr.Path, Msg: "one or more hunks failed"}).Error()
		}
		return fr, aborted
	case applied == 0:
		fr.Status = StatusSkipped
		return fr, aborted
	case skipped > 0:
		fr.Status = StatusPartial
	default:
		fr.Status = StatusApplied
	}

	if !sess.DryRun {
		if err := e.snapshot(srcRel, data, false); err != nil {
			fr.Status = StatusFailed
			fr.Err = err.Error()
			return fr, aborted
		}
		// rename/copy 先走索引访问层搬运源文件，再写入打好补丁的内容
		switch {
		case fd.RenameFrom != "":
			if err := e.Index.Rename(srcRel, destRel); err != nil {
				fr.Status = StatusFailed
				fr.Err = (&ApplyError{Kind: WriteFailure, Path: destRel, Msg: "rename source", Err: err}).Error()
				return fr, aborted
			}
		case fd.CopyFrom != "":
			if err := e.Index.Copy(srcRel, destRel); err != nil {
				fr.Status = StatusFailed
				fr.Err = (&ApplyError{Kind: WriteFailure, Path: destRel, Msg: "copy source", Err: err}).Error()
				return fr, aborted
			}
		}
		out := utils.JoinLines(buf, eol, trailingNL)
		if err := e.Index.WriteFile(destRel, []byte(out)); err != nil {
			fr.Status = StatusFailed
			fr.Err = (&ApplyError{Kind: WriteFailure, Path: destRel, Msg: "write result", Err: err}).Error()
			return fr, aborted
		}
		if destRel != srcRel {
			e.Index.Refresh()
		}
	}
	return fr, aborted
}

// initialTrailingNL 规则要求保留原状时沿用源文件的末尾换行，
// 否则缺失的末尾换行在写出时补齐。补丁侧的 NoNewline 标记仍然
// 优先于这里的初值
func initialTrailingNL(orig bool, rule filetypes.Rule) bool {
	if rule.PreserveFinalNewline {
		return orig
	}
	return true
}

// applyHunk 定位并应用单个 hunk，返回决策记录与更新后的缓冲区。
// 缓冲区只在 HunkApplied 时更新
func (e *Executor) applyHunk(ctx context.Context, path string, idx int, h *mdiff.Hunk, buf []string, delta int, rule filetypes.Rule) (HunkDecision, []string) {
	dec := HunkDecision{Index: idx}

	recorded := -1
	if h.OldStart > 0 {
		recorded = h.OldStart - 1 + delta
	}

	cands, merr := FindCandidates(buf, h.OldBody(), recorded, e.Cfg)

	var resolution Resolution
	switch {
	case merr == nil && (cands[0].Exact || Unambiguous(cands, e.Cfg)):
		resolution = Resolution{
			Action:     ActionPick,
			Index:      0,
			Confidence: cands[0].Score,
			Source:     SourceAuto,
		}
	default:
		// 歧义或无候选：进入冲突解决协议
		reason := "ambiguous candidates"
		var top []Candidate
		if merr != nil {
			reason = merr.Error()
		} else {
			top = TopCandidates(cands, e.Cfg)
		}
		q := &HunkQuery{
			Path:       path,
			Index:      idx,
			Hunk:       h,
			Recorded:   recorded,
			FileLines:  buf,
			Candidates: top,
			Reason:     reason,
		}
		dec.Candidates = len(top)
		if e.Decider == nil {
			dec.State = HunkSkipped
			dec.Note = reason
			return dec, buf
		}
		r, err := e.Decider.DecideHunk(ctx, q)
		if err != nil {
			dec.State = HunkFailed
			dec.Err = err.Error()
			return dec, buf
		}
		resolution = r
		cands = top
	}

	switch resolution.Action {
	case ActionPick:
		pos := resolution.Position
		score := resolution.Confidence
		exact := false
		if resolution.Index >= 0 {
			if resolution.Index >= len(cands) {
				dec.State = HunkFailed
				dec.Err = fmt.Sprintf("decision picked candidate %d of %d", resolution.Index, len(cands))
				return dec, buf
			}
			pos = cands[resolution.Index].Position
			score = cands[resolution.Index].Score
			exact = cands[resolution.Index].Exact
		}
		th := trimmedForRule(h, rule)
		// 模糊候选可能落在已经打过的块上，覆盖前识别为无操作
		if !exact && AlreadyApplied(buf, pos, th) {
			dec.State = HunkApplied
			dec.Source = resolution.Source
			dec.Position = pos + 1
			dec.Confidence = score
			dec.Note = "already applied"
			return dec, buf
		}
		newBuf, err := spliceHunk(buf, pos, th, exact)
		if err != nil {
			dec.State = HunkFailed
			dec.Err = (&ApplyError{Kind: WriteFailure, Path: path, Msg: "re-verify hunk", Err: err}).Error()
			return dec, buf
		}
		dec.State = HunkApplied
		dec.Source = resolution.Source
		dec.Position = pos + 1
		dec.Confidence = score
		dec.Note = resolution.Note
		return dec, newBuf
	case ActionSkipFile:
		dec.State = HunkSkipped
		dec.Note = "skip file"
		return dec, buf
	case ActionAbort:
		dec.State = HunkSkipped
		dec.Note = "abort"
		return dec, buf
	default:
		dec.State = HunkSkipped
		if resolution.Note != "" {
			dec.Note = resolution.Note
		} else {
			dec.Note = "unresolved"
		}
		return dec, buf
	}
}

// createFile 新建文件分支
func (e *Executor) createFile(ctx context.Context, sess *Session, fd *mdiff.FileDiff, display string) *FileResult {
	rel, res, ok := e.resolveTarget(ctx, fd, display)
	if !ok {
		return res
	}
	rule := filetypes.Lookup(rel)
	fr := &FileResult{Path: rel, Language: rule.Language}

	var lines []string
	trailingNL := true
	for i := range fd.Hunks {
		h := &fd.Hunks[i]
		for _, dl := range h.Lines {
			if dl.Kind == mdiff.OpInsert {
				lines = append(lines, dl.Text)
			}
		}
		if h.NoNewlineNew {
			trailingNL = false
		}
		fr.Hunks = append(fr.Hunks, HunkDecision{
			Index: i + 1, State: HunkApplied, Source: SourceAuto, Position: 1, Confidence: 1,
		})
	}

	if sess.DryRun {
		fr.Status = StatusApplied
		return fr
	}
	out := utils.JoinLines(lines, "\n", trailingNL)
	if err := e.Index.WriteFile(rel, []byte(out)); err != nil {
		fr.Status = StatusFailed
		fr.Err = (&ApplyError{Kind: WriteFailure, Path: rel, Msg: "create file", Err: err}).Error()
		return fr
	}
	e.Index.Refresh()
	fr.Status = StatusApplied
	return fr
}

// deleteFile 删除文件分支：留底后移除
func (e *Executor) deleteFile(sess *Session, rel string, data []byte) *FileResult {
	fr := &FileResult{Path: rel}
	if sess.DryRun {
		fr.Status = StatusApplied
		return fr
	}
	if err := e.snapshot(rel, data, false); err != nil {
		fr.Status = StatusFailed
		fr.Err = err.Error()
		return fr
	}
	if err := e.Index.Remove(rel); err != nil {
		fr.Status = StatusFailed
		fr.Err = (&ApplyError{Kind: WriteFailure, Path: rel, Msg: "delete file", Err: err}).Error()
		return fr
	}
	e.Index.Refresh()
	fr.Status = StatusApplied
	return fr
}

// resolveSource 解析读取内容的来源路径（重命名/复制时区别于目标）
func (e *Executor) resolveSource(ctx context.Context, fd *mdiff.FileDiff, srcName, display string) (string, *FileResult, bool) {
	rel, err := e.Index.Resolve(srcName)
	if err == nil {
		return rel, nil, true
	}
	var fre *fileindex.FileResolutionError
	if errors.As(err, &fre) && e.Decider != nil {
		q := &FileQuery{Name: srcName, Candidates: fre.Candidates, Suggestions: fre.Suggestions}
		if picked, ok, derr := e.Decider.DecideFile(ctx, q); derr == nil && ok {
			return picked, nil, true
		}
	}
	logging.L().Warn("cannot resolve patch source", zap.String("path", srcName), zap.Error(err))
	return "", &FileResult{Path: display, Status: StatusSkipped, Err: err.Error()}, false
}

// snapshot 留底；isNew 的文件没有旧内容可备份
func (e *Executor) snapshot(rel string, data []byte, isNew bool) error {
	if e.Backups == nil || isNew {
		return nil
	}
	return e.Backups.Snapshot(rel, data)
}

// trimmedForRule 按文件类型规则处理补丁侧新增行的行尾空白
func trimmedForRule(h *mdiff.Hunk, rule filetypes.Rule) *mdiff.Hunk {
	if rule.PreserveTrailingWhitespace {
		return h
	}
	out := *h
	out.Lines = make([]mdiff.DiffLine, len(h.Lines))
	for i, dl := range h.Lines {
		if dl.Kind == mdiff.OpInsert {
			dl.Text = normLine(dl.Text)
		}
		out.Lines[i] = dl
	}
	return &out
}

func countStates(decisions []HunkDecision) (applied, skipped int) {
	for _, d := range decisions {
		switch d.State {
		case HunkApplied:
			applied++
		case HunkSkipped:
			skipped++
		}
	}
	return applied, skipped
}

func skipReason(failed, aborted bool) string {
	if failed {
		return "earlier hunk failed"
	}
	if aborted {
		return "session aborted"
	}
	return "session cancelled"
}
