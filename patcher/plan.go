package patcher

import (
	"fmt"

	"fkpatch/mdiff"
)

// Placement 一个已定位的 hunk：在原始文件行中的落点
type Placement struct {
	Hunk     *mdiff.Hunk
	Position int // 0 起始的行偏移，相对应用前的原始内容
}

// Delta 返回 hunk 应用后引起的行数变化
func Delta(h *mdiff.Hunk) int {
	ins, del := 0, 0
	for _, dl := range h.Lines {
		switch dl.Kind {
		case mdiff.OpInsert:
			ins++
		case mdiff.OpDelete:
			del++
		}
	}
	return ins - del
}

// ApplyPlan 按位置升序把一组定位好的 hunk 折叠进行序列。
// 每个落点相对原始内容，折叠过程用累计行差修正；应用前逐行复核
// 旧文块仍在落点处（忽略行尾空白），不符即整体失败，输入保持不变。
// 纯函数，不做任何 I/O
func ApplyPlan(lines []string, placements []Placement) ([]string, error) {
	out := append([]string(nil), lines...)

	// 调用方应已按位置升序传入；乱序视为编程错误
	for i := 1; i < len(placements); i++ {
		if placements[i].Position < placements[i-1].Position {
			return nil, fmt.Errorf("placements out of order at index %d", i)
		}
	}

	delta := 0
	for _, p := range placements {
		pos := p.Position + delta
		next, err := spliceHunk(out, pos, p.Hunk, true)
		if err != nil {
			return nil, err
		}
		out = next
		delta += Delta(p.Hunk)
	}
	return out, nil
}

// spliceHunk 在 pos 处用 hunk 的新文块替换旧文块。
// exact 模式逐行复核旧文块仍在落点处（比较前去行尾空白）；
// 模糊候选的窗口内容在定位时已按相似度认可——逐行复核必然不等，
// 所以只做边界检查，直接把新文块覆盖到窗口上
func spliceHunk(lines []string, pos int, h *mdiff.Hunk, exact bool) ([]string, error) {
	old := h.OldBody()
	if pos < 0 || pos > len(lines) || pos+len(old) > len(lines) {
		return nil, fmt.Errorf("hunk position %d out of range (file has %d lines)", pos, len(lines))
	}
	if exact {
		for i, want := range old {
			if normLine(lines[pos+i]) != normLine(want) {
				return nil, fmt.Errorf("buffer mismatch at line %d: expected %q, found %q",
					pos+i+1, want, lines[pos+i])
			}
		}
	}

	updated := h.NewBody()
	out := make([]string, 0, len(lines)-len(old)+len(updated))
	out = append(out, lines[:pos]...)
	out = append(out, updated...)
	out = append(out, lines[pos+len(old):]...)
	return out, nil
}

// AlreadyApplied 判断 pos 处是否已是 hunk 应用后的内容（忽略行尾
// 空白）。重复应用同一补丁时模糊候选可能落在已打过的块上，覆盖前
// 先识别，避免二次应用
func AlreadyApplied(lines []string, pos int, h *mdiff.Hunk) bool {
	updated := h.NewBody()
	if len(updated) == 0 || pos < 0 || pos+len(updated) > len(lines) {
		return false
	}
	for i, want := range updated {
		if normLine(lines[pos+i]) != normLine(want) {
			return false
		}
	}
	return true
}
