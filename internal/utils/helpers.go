package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SiteDir 返回站点的输出目录 <output>/<site>
func SiteDir(outputDir, site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		site = "unknown"
	}
	return filepath.Join(outputDir, site)
}

// EnsureDir 创建目录(含父目录)
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
	}
	return nil
}

// FormatLimit 格式化条目上限, <=0 表示不限制
func FormatLimit(limit int) string {
	if limit <= 0 {
		return "不限制"
	}
	return fmt.Sprintf("%d", limit)
}
