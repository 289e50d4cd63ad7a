package fileindex

import (
	"fmt"
	"path"

	"github.com/spf13/afero"
)

// 文件访问层：执行器与备份通过这些方法读写项目文件，
// 全部走沙盒，不直接触碰 os 包

// ReadFile 读取项目内文件
func (ix *Index) ReadFile(rel string) ([]byte, error) {
	return afero.ReadFile(ix.fs, rel)
}

// WriteFile 写入项目内文件，父目录不存在时自动创建
func (ix *Index) WriteFile(rel string, data []byte) error {
	if dir := path.Dir(rel); dir != "." && dir != "" {
		if err := ix.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return afero.WriteFile(ix.fs, rel, data, 0o644)
}

// Remove 删除项目内文件
func (ix *Index) Remove(rel string) error {
	return ix.fs.Remove(rel)
}

// Rename 在项目内移动文件，目标父目录不存在时自动创建
func (ix *Index) Rename(oldRel, newRel string) error {
	if dir := path.Dir(newRel); dir != "." && dir != "" {
		if err := ix.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return ix.fs.Rename(oldRel, newRel)
}

// Copy 在项目内复制文件（copy from 补丁用），目标父目录自动创建
func (ix *Index) Copy(srcRel, dstRel string) error {
	data, err := ix.ReadFile(srcRel)
	if err != nil {
		return fmt.Errorf("read copy source %s: %w", srcRel, err)
	}
	return ix.WriteFile(dstRel, data)
}

// Exists 判断项目内路径存在
func (ix *Index) Exists(rel string) bool {
	ok, err := afero.Exists(ix.fs, rel)
	return err == nil && ok
}
