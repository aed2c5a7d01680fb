package models

import (
	"fmt"
)

// CloseReason 爬取结束原因
type CloseReason string

const (
	CloseFinished          CloseReason = "finished"            // 队列耗尽
	CloseCrawlLimitReached CloseReason = "crawl_limit_reached" // 达到条目上限
	CloseCancelled         CloseReason = "cancelled"           // 外部中断
)

// TaskStats 任务统计
type TaskStats struct {
	VisitedURLs    int         `json:"visited_urls"`    // 已发出请求数
	FailedRequests int         `json:"failed_requests"` // 失败请求数
	AbortedURLs    int         `json:"aborted_urls"`    // 停止后丢弃的请求数
	ItemsScraped   int         `json:"items_scraped"`   // 输出文章数
	Duration       float64     `json:"duration"`        // 总耗时(秒)
	CloseReason    CloseReason `json:"close_reason"`    // 结束原因
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	Site           string  `json:"site" mapstructure:"site"`                         // 站点标识 (默认:foxnews)
	Limit          int     `json:"limit" mapstructure:"limit"`                       // 条目上限, <=0 不限制 (默认:50)
	MaxWorkers     int     `json:"max_workers" mapstructure:"max_workers"`           // 并发请求数 (默认:4)
	RequestTimeout int     `json:"request_timeout" mapstructure:"request_timeout"`   // 请求超时(秒) (默认:30)
	DelayMillis    int     `json:"delay_ms" mapstructure:"delay_ms"`                 // 同域请求间隔(毫秒)
	StrictSite     bool    `json:"strict_site" mapstructure:"strict_site"`           // 未知站点时直接失败
	IgnoreRobots   bool    `json:"ignore_robots" mapstructure:"ignore_robots"`       // 忽略robots.txt
	VisitedCap     int     `json:"visited_capacity" mapstructure:"visited_capacity"` // 去重过滤器容量
	VisitedFPRate  float64 `json:"visited_fp_rate" mapstructure:"visited_fp_rate"`   // 去重过滤器误判率

	// 资源配置
	SafetyReserveMemory int `json:"safety_reserve_memory" mapstructure:"-"` // 系统预留内存(MB)
	CPULoadThreshold    int `json:"cpu_load_threshold" mapstructure:"-"`    // CPU负载阈值(%)
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxWorkers < 1 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间")
	}
	if c.RequestTimeout < 1 || c.RequestTimeout > 300 {
		return fmt.Errorf("请求超时必须在1-300秒之间")
	}
	if c.DelayMillis < 0 {
		return fmt.Errorf("请求间隔不能为负数")
	}
	if c.VisitedFPRate < 0.0 || c.VisitedFPRate >= 1.0 {
		return fmt.Errorf("去重误判率必须在0.0-1.0之间")
	}
	return nil
}
