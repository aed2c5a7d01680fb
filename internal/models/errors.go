package models

import (
	"errors"
	"fmt"
)

// ErrUnknownSite 未知站点标识
var ErrUnknownSite = errors.New("未知站点")

// ConfigurationError 站点配置错误
// 启动时站点标识不在规则表中
type ConfigurationError struct {
	SiteKey string
	Known   []string
}

// Error 实现error接口
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("无法识别的站点: %s (可用: %v)", e.SiteKey, e.Known)
}

// Unwrap 支持errors.Is(err, ErrUnknownSite)
func (e *ConfigurationError) Unwrap() error {
	return ErrUnknownSite
}
