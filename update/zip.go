package update

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UnzipCallback 解压进度回调：已处理数、总数、当前文件名、是否目录
type UnzipCallback func(processed int, total int, fileName string, isDir bool)

// Unzip 带进度回调地解压 zip 到目标目录
func Unzip(source, destination string, callback UnzipCallback) error {
	reader, err := zip.OpenReader(source)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(destination, 0755); err != nil {
		return err
	}

	total := len(reader.File)
	for i, f := range reader.File {
		if callback != nil {
			callback(i+1, total, f.Name, f.FileInfo().IsDir())
		}
		if err := extractOne(f, destination); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(f *zip.File, destination string) error {
	fpath := filepath.Join(destination, f.Name)

	// zip slip 防护：解压路径必须落在目标目录内
	if !strings.HasPrefix(fpath, filepath.Clean(destination)+string(os.PathSeparator)) {
		return fmt.Errorf("%s: 非法的解压路径", fpath)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(fpath, os.ModePerm)
	}

	if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, rc)
	return err
}
