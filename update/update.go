package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/wsshow/dl"
	"github.com/wsshow/selfupdate"
)

// Release GitHub release 的最小视图
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset release 中的一个可下载产物
type Asset struct {
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// IsCompressedFile 产物是否为压缩包
func (a Asset) IsCompressedFile() bool {
	return a.ContentType == "application/zip" || a.ContentType == "application/x-gzip"
}

type Updater struct{}

func NewUpdater() *Updater {
	return new(Updater)
}

// CheckForUpdates 拉取最新 release，与当前版本比较
func (up Updater) CheckForUpdates(current *semver.Version, owner, repo string) (*Release, bool, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", owner, repo)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if !IsHttpSuccess(resp.StatusCode) {
		return nil, false, fmt.Errorf("URL %q is unreachable", url)
	}

	var latest Release
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return nil, false, err
	}

	latestVersion, err := semver.NewVersion(latest.TagName)
	if err != nil {
		return nil, false, err
	}
	if !latestVersion.GreaterThan(current) {
		return nil, false, nil
	}
	return &latest, true, nil
}

// Apply 下载指定 release 的产物，校验完整性后替换当前可执行文件
func (up Updater) Apply(rel *Release,
	findAsset func([]Asset) (idx int),
	findChecksum func([]Asset) (algo Algorithm, expectedChecksum string, err error),
) error {
	idx := findAsset(rel.Assets)
	if idx < 0 {
		return ErrAssetNotFound
	}

	algo, expectedChecksum, err := findChecksum(rel.Assets)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", strconv.FormatInt(time.Now().UnixNano(), 10))
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	url := rel.Assets[idx].BrowserDownloadURL
	srcFilename := filepath.Join(tmpDir, filepath.Base(url))
	if err := download(url, srcFilename); err != nil {
		return err
	}

	fmt.Printf("\n基于 %s 校验文件完整性...\n", algo)
	if err := VerifyFile(algo, expectedChecksum, srcFilename); err != nil {
		return err
	}
	fmt.Printf("文件完整性校验通过\n")

	dstFilename := srcFilename
	if rel.Assets[idx].IsCompressedFile() {
		if dstFilename, err = up.unarchive(srcFilename, tmpDir); err != nil {
			return err
		}
	}

	dstFile, err := os.Open(dstFilename)
	if err != nil {
		return err
	}
	defer dstFile.Close()
	return selfupdate.Apply(dstFile, selfupdate.Options{})
}

// download 带终端进度条的下载
func download(url, dst string) error {
	downloader := dl.NewDownloader(url, dl.WithFileName(dst))

	var lastProgress float64
	downloader.OnProgress(func(loaded, total int64, rate string) {
		progress := float64(loaded) / float64(total) * 100
		// 进度变化不足 0.5% 不刷新，避免刷屏
		if progress-lastProgress < 0.5 && progress < 100 {
			return
		}
		lastProgress = progress
		fmt.Printf("\r[%s] %.2f%% | %s/%s | %s    ",
			progressBar(progress, 40), progress,
			formatFileSize(float64(loaded)), formatFileSize(float64(total)), rate)
	})

	if err := downloader.Start(); err != nil {
		fmt.Printf("下载失败: %v\n", err)
		return err
	}
	return nil
}

func progressBar(progress float64, width int) string {
	filled := int(progress / 100 * float64(width))
	var sb strings.Builder
	for i := range width {
		if i < filled {
			sb.WriteString("█")
		} else {
			sb.WriteString("░")
		}
	}
	return sb.String()
}

// unarchive 解压到目标目录，返回解压出的主程序文件
func (up Updater) unarchive(srcFile, dstDir string) (string, error) {
	err := Unzip(srcFile, dstDir, func(processed, total int, fileName string, isDir bool) {
		fmt.Printf("解压中... %d/%d 文件: %s\n", processed, total, fileName)
	})
	if err != nil {
		return "", err
	}
	fis, _ := os.ReadDir(dstDir)
	for _, fi := range fis {
		if strings.HasSuffix(fi.Name(), ".md") || strings.HasSuffix(fi.Name(), ".zip") {
			continue
		}
		return filepath.Join(dstDir, fi.Name()), nil
	}
	return "", nil
}

// IsHttpSuccess 状态码是否属于 2xx
func IsHttpSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// formatFileSize 字节数转人类可读
func formatFileSize(fileSize float64) string {
	const (
		KB = 1024.0
		MB = KB * 1024.0
		GB = MB * 1024.0
	)

	switch {
	case fileSize >= GB:
		return fmt.Sprintf("%.2f GB", fileSize/GB)
	case fileSize >= MB:
		return fmt.Sprintf("%.2f MB", fileSize/MB)
	case fileSize >= KB:
		return fmt.Sprintf("%.2f KB", fileSize/KB)
	default:
		return fmt.Sprintf("%.2f B", fileSize)
	}
}
