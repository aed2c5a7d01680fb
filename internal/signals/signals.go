// Package signals 爬取生命周期信号
package signals

import (
	"sync"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// Handler 信号处理函数,返回的错误只记录日志,不影响其他处理函数
type Handler[T any] func(T) error

// Signal 带类型负载的信号
type Signal[T any] struct {
	name     string
	mu       sync.RWMutex
	handlers []Handler[T]
}

// New 创建信号
func New[T any](name string) *Signal[T] {
	return &Signal[T]{name: name}
}

// Name 信号名称
func (s *Signal[T]) Name() string {
	return s.name
}

// Connect 注册处理函数,按注册顺序调用
func (s *Signal[T]) Connect(h Handler[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Send 同步调用全部处理函数
// 在锁外调用,处理函数中可以再次 Connect
func (s *Signal[T]) Send(payload T) {
	s.mu.RLock()
	handlers := make([]Handler[T], len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		if err := h(payload); err != nil {
			utils.Logger.Error().Err(err).Str("signal", s.name).Msg("信号处理失败")
		}
	}
}

// HandlerCount 已注册的处理函数数量
func (s *Signal[T]) HandlerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// CrawlStarted 爬取开始,携带当前站点配置
type CrawlStarted struct {
	RunID string
	Rule  models.SiteRule
	Limit int
}

// ItemScraped 产出一条文章记录
type ItemScraped struct {
	Item *models.ArticleRecord
	URL  string
}

// CrawlClosed 爬取结束
type CrawlClosed struct {
	Reason models.CloseReason
	Stats  models.TaskStats
}

// Bus 一次爬取的信号集合
type Bus struct {
	CrawlStarted *Signal[CrawlStarted]
	ItemScraped  *Signal[ItemScraped]
	CrawlClosed  *Signal[CrawlClosed]
}

// NewBus 创建信号集合
func NewBus() *Bus {
	return &Bus{
		CrawlStarted: New[CrawlStarted]("crawl_started"),
		ItemScraped:  New[ItemScraped]("item_scraped"),
		CrawlClosed:  New[CrawlClosed]("crawl_closed"),
	}
}
