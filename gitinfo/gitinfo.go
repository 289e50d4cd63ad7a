// Package gitinfo 收集项目根目录的 git 上下文（分支、提交、脏状态），
// 用于会话报告与应用前的脏工作区提示。
// 非 git 仓库不是错误：返回零值，会话照常进行
package gitinfo

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// shortHashLen 报告中展示的提交哈希长度
const shortHashLen = 8

// Info 项目根的 git 上下文，零值表示不在仓库中
type Info struct {
	IsRepo bool   `json:"is_repo"`
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Dirty  bool   `json:"dirty,omitempty"`
}

// Collect 打开 root 处的仓库并采集信息。
// 打开失败（不在仓库中）或任何中间步骤失败都只降级为零值/部分信息
func Collect(root string) Info {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return Info{}
	}

	info := Info{IsRepo: true}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			info.Branch = head.Name().Short()
		}
		hash := head.Hash().String()
		if len(hash) > shortHashLen {
			hash = hash[:shortHashLen]
		}
		info.Commit = hash
	}

	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info
}

// String 返回 "branch@commit" 形式的摘要，脏工作区追加 (dirty)
func (i Info) String() string {
	if !i.IsRepo {
		return "not a git repository"
	}
	branch := i.Branch
	if branch == "" {
		branch = "(detached)"
	}
	s := branch
	if i.Commit != "" {
		s = fmt.Sprintf("%s@%s", branch, i.Commit)
	}
	if i.Dirty {
		s += " (dirty)"
	}
	return s
}
