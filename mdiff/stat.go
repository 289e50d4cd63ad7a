package mdiff

import (
	"fmt"
	"strings"
)

// DiffStat 返回 diff 的统计信息
type DiffStat struct {
	FilesChanged int // 变更文件数
	Insertions   int // 新增行数
	Deletions    int // 删除行数
}

func (s DiffStat) String() string {
	var parts []string
	parts = append(parts, pluralize(s.FilesChanged, "file changed", "files changed"))
	if s.Insertions > 0 {
		parts = append(parts, pluralize(s.Insertions, "insertion(+)", "insertions(+)"))
	}
	if s.Deletions > 0 {
		parts = append(parts, pluralize(s.Deletions, "deletion(-)", "deletions(-)"))
	}
	return strings.Join(parts, ", ")
}

// Stat 计算多文件 diff 的统计信息
func Stat(mfd *MultiFileDiff) DiffStat {
	stat := DiffStat{
		FilesChanged: len(mfd.Files),
	}
	for _, fd := range mfd.Files {
		for _, h := range fd.Hunks {
			for _, dl := range h.Lines {
				switch dl.Kind {
				case OpInsert:
					stat.Insertions++
				case OpDelete:
					stat.Deletions++
				}
			}
		}
	}
	return stat
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}
