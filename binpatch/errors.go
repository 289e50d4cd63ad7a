package binpatch

import "fmt"

// 解码/应用阶段标识
const (
	StageDecode  = "decode"
	StageInflate = "inflate"
	StageApply   = "apply"
)

// BinaryPatchError 表示二进制补丁无法解码或应用。
// 属于文件级错误：该文件保持原样，会话继续处理后续文件
type BinaryPatchError struct {
	Stage string // decode | inflate | apply
	Msg   string
	Err   error
}

func (e *BinaryPatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("binary patch %s: %s: %v", e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("binary patch %s: %s", e.Stage, e.Msg)
}

func (e *BinaryPatchError) Unwrap() error {
	return e.Err
}
