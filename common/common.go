package common

import (
	"os"
)

func GenerateExampleEnv(filePath string) error {
	exampleContent := `# 这是一个示例的环境变量配置文件
# 请将此文件复制为 .env 并根据需要进行修改

# 外部建议服务（不配置则使用本地启发式排序）
FKPATCH_ASSIST_ENDPOINT =
FKPATCH_ASSIST_TOKEN =

# 日志覆盖项（优先于 config/config.toml）
FKPATCH_LOG_LEVEL = warning
FKPATCH_LOG_FILE =
FKPATCH_LOG_MAX_BYTES = 1048576
FKPATCH_LOG_BACKUP_COUNT = 3

# 配置代理：程序更新等
FKPATCH_PROXY_URL = http://127.0.0.1:7890
`

	return os.WriteFile(filePath, []byte(exampleContent), 0644)
}
