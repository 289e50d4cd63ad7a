package version

import "fmt"

// 构建时通过 -ldflags 注入
var (
	version = "0.9.0"
	commit  = "none"
	date    = "unknown"
)

// Info 版本信息
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Get 获取当前版本信息
func Get() Info {
	return Info{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

func (i Info) String() string {
	if i.Commit == "none" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s %s)", i.Version, i.Commit, i.Date)
}
