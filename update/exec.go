package update

import (
	"bufio"
	"fkpatch/version"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/pterm/pterm"
)

// SelfUpdate 检查 GitHub 最新 release，有新版本则下载并替换自身
func SelfUpdate(owner string, repo string) error {
	up := NewUpdater()
	info := version.Get()

	latest, yes, err := up.CheckForUpdates(semver.MustParse(info.Version), owner, repo)
	if err != nil {
		return err
	}
	if !yes {
		pterm.Info.Printfln("当前已是最新版本: %s", info.Version)
		return nil
	}

	pterm.Info.Printfln("发现新版本: %s，正在下载更新...", latest.TagName)
	if err := up.Apply(latest, findAsset, findChecksum); err != nil {
		return err
	}
	pterm.Success.Printfln("版本升级成功，当前版本: %s", latest.TagName)
	return nil
}

// assetSuffix 当前平台的产物名后缀，如 Linux_x86_64.zip
func assetSuffix() string {
	return fmt.Sprintf("%s_%s.zip", CapitalizeOS(), GetNormalizedArch())
}

func findAsset(items []Asset) int {
	suffix := assetSuffix()
	for i := range items {
		if strings.HasSuffix(items[i].BrowserDownloadURL, suffix) {
			return i
		}
	}
	return -1
}

// findChecksum 从 release 的 checksums.txt 里找当前平台产物的 SHA256
func findChecksum(items []Asset) (Algorithm, string, error) {
	var checksumFileURL string
	for i := range items {
		if items[i].Name == "checksums.txt" {
			checksumFileURL = items[i].BrowserDownloadURL
			break
		}
	}
	if checksumFileURL == "" {
		return SHA256, "", ErrChecksumFileNotFound
	}

	resp, err := http.Get(checksumFileURL)
	if err != nil {
		return SHA256, "", err
	}
	defer resp.Body.Close()

	if !IsHttpSuccess(resp.StatusCode) {
		return SHA256, "", fmt.Errorf("URL %q is unreachable", checksumFileURL)
	}

	suffix := assetSuffix()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, suffix) {
			return SHA256, strings.Fields(line)[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return SHA256, "", err
	}
	return SHA256, "", ErrChecksumFileNotFound
}

// CapitalizeOS 运行时操作系统名首字母大写，对齐 release 产物命名
func CapitalizeOS() string {
	osName := runtime.GOOS
	if osName == "" {
		return ""
	}
	runes := []rune(osName)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// GetNormalizedArch 架构名对齐 release 产物命名
func GetNormalizedArch() string {
	switch arch := runtime.GOARCH; arch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	default:
		return arch
	}
}
