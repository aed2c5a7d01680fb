// Package limiter 按输出条目数限制爬取规模
package limiter

import (
	"sync/atomic"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/signals"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// State 限制器状态
type State string

const (
	// Counting 计数中
	Counting State = "COUNTING"
	// LimitReached 已达上限(终态)
	LimitReached State = "LIMIT_REACHED"
)

// StopFunc 通知引擎停止接收新请求
type StopFunc func(reason models.CloseReason)

// Limiter 条目数限制器
//
// 每次爬取创建一个。计数与状态转换都是原子操作,
// 多个worker同时产出条目时停止函数也只调用一次。
type Limiter struct {
	limit   int64
	count   atomic.Int64
	reached atomic.Bool
	stop    StopFunc
}

// New 创建限制器,limit <= 0 表示不限制
func New(limit int, stop StopFunc) *Limiter {
	return &Limiter{limit: int64(limit), stop: stop}
}

// Attach 连接到爬取信号
func (l *Limiter) Attach(bus *signals.Bus) {
	bus.CrawlStarted.Connect(func(signals.CrawlStarted) error {
		l.Opened()
		return nil
	})
	bus.ItemScraped.Connect(func(signals.ItemScraped) error {
		l.ItemScraped()
		return nil
	})
}

// Opened 记录配置的上限
func (l *Limiter) Opened() {
	if l.limit <= 0 {
		utils.Infof("Crawl limit set to %d (no limit)", l.limit)
		return
	}
	utils.Infof("Crawl limit set to %d", l.limit)
}

// ItemScraped 计数一条输出,首次达到上限时返回 true 并调用停止函数
//
// 判断使用 >=,计数越过上限(重复或乱序投递)时仍然会触发。
func (l *Limiter) ItemScraped() bool {
	if l.limit <= 0 {
		return false
	}
	n := l.count.Add(1)
	if n < l.limit {
		return false
	}
	if !l.reached.CompareAndSwap(false, true) {
		return false
	}

	utils.Infof("Crawl limit reached (%d)", l.limit)
	if l.stop != nil {
		l.stop(models.CloseCrawlLimitReached)
	}
	return true
}

// Count 已计数的条目数(不限制时不计数)
func (l *Limiter) Count() int {
	return int(l.count.Load())
}

// Limit 配置的上限
func (l *Limiter) Limit() int {
	return int(l.limit)
}

// State 当前状态
func (l *Limiter) State() State {
	if l.reached.Load() {
		return LimitReached
	}
	return Counting
}
