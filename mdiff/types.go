package mdiff

// DiffLine 表示 unified diff 中的一行
type DiffLine struct {
	Kind OpKind
	Text string
}

// Hunk 表示 unified diff 中的一个变更块
type Hunk struct {
	OldStart int        // 旧文件起始行号（从1开始；0 表示无行号，需按内容定位）
	OldLines int        // 旧文件中的行数
	NewStart int        // 新文件起始行号（从1开始）
	NewLines int        // 新文件中的行数
	Lines    []DiffLine // 变更行

	// NoNewlineOld/NoNewlineNew 记录 "\ No newline at end of file" 标记
	NoNewlineOld bool
	NoNewlineNew bool

	// ScopeLines 括号方言中 @@ 标记携带的定位上下文（标准 unified diff 为空）
	ScopeLines []string
}

// OldBody 返回 hunk 在旧文件中应存在的行（上下文 + 删除行）
func (h *Hunk) OldBody() []string {
	var body []string
	for _, dl := range h.Lines {
		if dl.Kind == OpEqual || dl.Kind == OpDelete {
			body = append(body, dl.Text)
		}
	}
	return body
}

// NewBody 返回 hunk 应用后在新文件中的行（上下文 + 新增行）
func (h *Hunk) NewBody() []string {
	var body []string
	for _, dl := range h.Lines {
		if dl.Kind == OpEqual || dl.Kind == OpInsert {
			body = append(body, dl.Text)
		}
	}
	return body
}

// FileDiff 表示单个文件的 diff 结果
type FileDiff struct {
	OldName string // 旧文件名（保留 a/ 前缀，由路径解析层处理）
	NewName string // 新文件名
	Hunks   []Hunk // 变更块列表

	IsNew    bool // 新建文件
	IsDelete bool // 删除文件

	RenameFrom string // 重命名来源（git "rename from"）
	CopyFrom   string // 复制来源（git "copy from"）

	OldMode string // git 扩展头中的旧文件模式
	NewMode string // 新文件模式

	// IsBinary 表示二进制补丁；BinaryPayload 为 "GIT binary patch"
	// 正向段的原始行（含 literal/delta 头），由 binpatch 包解码
	IsBinary      bool
	BinaryPayload []string

	// Warnings 记录解析阶段修复的非致命问题（如 hunk 行数与实际不符）
	Warnings []string
}

// Target 返回补丁作用的目标文件名（删除时为旧名）
func (fd *FileDiff) Target() string {
	if fd.IsDelete || fd.NewName == "" || fd.NewName == "/dev/null" {
		return fd.OldName
	}
	return fd.NewName
}

// Source 返回补丁读取内容的来源文件名（重命名/复制时为来源路径）
func (fd *FileDiff) Source() string {
	if fd.RenameFrom != "" {
		return fd.RenameFrom
	}
	if fd.CopyFrom != "" {
		return fd.CopyFrom
	}
	return fd.OldName
}

// MultiFileDiff 表示多个文件的 diff 结果
type MultiFileDiff struct {
	Files []FileDiff
}
