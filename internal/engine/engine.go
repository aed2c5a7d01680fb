// Package engine 基于colly的抓取引擎
//
// 负责请求调度、并发、去重、robots.txt 和超时,
// 抓取到的页面交给站点爬虫处理,产出的条目通过信号发出。
package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/page"
	"github.com/RecoveryAshes/NewsCrawl/internal/signals"
	"github.com/RecoveryAshes/NewsCrawl/internal/sites"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
	"github.com/gocolly/colly/v2"
)

// colly.Context 中的键
const (
	ctxHandler = "handler"
	ctxMeta    = "meta"
)

// errStopped 引擎停止后仍在等待并发槽的请求
var errStopped = errors.New("引擎已停止")

// stopTransport 在真正发出请求前检查停止标记
// OnRequest 在获取并发槽之前执行,排队中的请求需要在这里拦截
type stopTransport struct {
	base    http.RoundTripper
	stopped *atomic.Bool
}

// RoundTrip 实现 http.RoundTripper
func (t *stopTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.stopped.Load() {
		return nil, errStopped
	}
	return t.base.RoundTrip(req)
}

// Dispatcher 按处理器名称处理页面
type Dispatcher interface {
	Handle(handler models.Handler, p *page.Page) (sites.Result, error)
}

// Options 引擎配置
type Options struct {
	MaxWorkers       int
	RequestTimeout   time.Duration
	Delay            time.Duration
	IgnoreRobots     bool
	InsecureTLS      bool
	VisitedCapacity  uint
	VisitedFPRate    float64
	ProgressInterval time.Duration // 0 表示不输出进度日志

	// 资源监控, 为 nil 时并发固定为 MaxWorkers
	Monitor *ResourceMonitor
}

// Engine 抓取引擎
type Engine struct {
	collector      *colly.Collector
	opts           Options
	spider         Dispatcher
	bus            *signals.Bus
	headerProvider models.HeaderProvider
	store          *BloomStorage

	stopped atomic.Bool
	reason  atomic.Value // models.CloseReason

	mu    sync.Mutex
	stats models.TaskStats
}

// 资源紧张时推迟请求的轮询间隔与最长等待
const (
	throttleInterval = 200 * time.Millisecond
	maxThrottleWait  = 10 * time.Second
)

// New 创建引擎
func New(opts Options, spider Dispatcher, bus *signals.Bus, headerProvider models.HeaderProvider) (*Engine, error) {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.Async(true),
	)
	c.IgnoreRobotsTxt = opts.IgnoreRobots

	e := &Engine{
		collector:      c,
		opts:           opts,
		spider:         spider,
		bus:            bus,
		headerProvider: headerProvider,
	}

	var base http.RoundTripper = http.DefaultTransport
	if opts.InsecureTLS {
		base = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		utils.Debugf("抓取引擎: TLS证书验证已禁用")
	}
	c.WithTransport(&stopTransport{base: base, stopped: &e.stopped})
	c.SetRequestTimeout(opts.RequestTimeout)

	// colly 的限速规则只在创建时设置一次,之后按资源情况推迟请求
	workers := opts.MaxWorkers
	if opts.Monitor != nil {
		workers = opts.Monitor.CalculateMaxWorkers()
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: workers,
		Delay:       opts.Delay,
	}); err != nil {
		return nil, fmt.Errorf("设置并发限制失败: %w", err)
	}

	e.store = NewBloomStorage(opts.VisitedCapacity, opts.VisitedFPRate)
	if err := c.SetStorage(e.store); err != nil {
		return nil, fmt.Errorf("初始化访问记录存储失败: %w", err)
	}

	e.setupCallbacks()

	utils.Debugf("抓取引擎: 并发=%d, 间隔=%v, 超时=%v, 遵守robots=%v",
		workers, opts.Delay, opts.RequestTimeout, !opts.IgnoreRobots)
	return e, nil
}

// setupCallbacks 设置Colly回调
func (e *Engine) setupCallbacks() {
	// 访问前
	e.collector.OnRequest(func(r *colly.Request) {
		if e.stopped.Load() {
			e.mu.Lock()
			e.stats.AbortedURLs++
			e.mu.Unlock()
			utils.Debugf("引擎已停止,丢弃请求: %s", r.URL)
			r.Abort()
			return
		}

		utils.Debugf("访问: %s [%s]", r.URL, r.Ctx.Get(ctxHandler))
		e.mu.Lock()
		e.stats.VisitedURLs++
		e.mu.Unlock()

		e.throttle(r)
	})

	// 处理响应
	e.collector.OnResponse(func(r *colly.Response) {
		e.handleResponse(r)
	})

	// 错误处理: 单个页面失败不影响其他请求
	e.collector.OnError(func(r *colly.Response, err error) {
		if errors.Is(err, errStopped) {
			e.mu.Lock()
			e.stats.AbortedURLs++
			e.mu.Unlock()
			return
		}
		utils.Logger.Warn().
			Err(err).
			Str("url", r.Request.URL.String()).
			Int("status", r.StatusCode).
			Msg("抓取失败")
		e.mu.Lock()
		e.stats.FailedRequests++
		e.mu.Unlock()
	})
}

// handleResponse 解析页面、调用站点处理器、发出条目并调度后续请求
func (e *Engine) handleResponse(r *colly.Response) {
	requestURL := r.Request.URL.String()
	handler := models.Handler(r.Ctx.Get(ctxHandler))
	meta, _ := r.Ctx.GetAny(ctxMeta).(map[string]string)

	body := r.Body
	if r.Headers != nil {
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				// 解压失败,仍然尝试使用原始body
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", requestURL, encoding, err)
			} else {
				body = decompressed
			}
		}
	}

	var reqHeaders, respHeaders http.Header
	if r.Request.Headers != nil {
		reqHeaders = *r.Request.Headers
	}
	if r.Headers != nil {
		respHeaders = *r.Headers
	}

	p, err := page.New(requestURL, body, reqHeaders, respHeaders, meta)
	if err != nil {
		utils.Warnf("页面解析失败 [%s]: %v", requestURL, err)
		return
	}

	res, err := e.spider.Handle(handler, p)
	if err != nil {
		utils.Logger.Warn().Err(err).Str("url", requestURL).Str("handler", string(handler)).Msg("页面处理失败")
		return
	}

	for _, item := range res.Items {
		e.mu.Lock()
		e.stats.ItemsScraped++
		e.mu.Unlock()
		e.bus.ItemScraped.Send(signals.ItemScraped{Item: item, URL: requestURL})
	}

	e.schedule(res.Requests, requestURL)
}

// schedule 按优先级从高到低提交请求
// colly 没有优先级队列,提交顺序决定了同一批请求中谁先占用并发槽
func (e *Engine) schedule(requests []models.Request, referer string) {
	sorted := make([]models.Request, len(requests))
	copy(sorted, requests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	base := e.baseHeaders()

	for i, req := range sorted {
		if e.stopped.Load() {
			e.mu.Lock()
			e.stats.AbortedURLs += len(sorted) - i
			e.mu.Unlock()
			return
		}

		hdr := http.Header{}
		for name, values := range req.Headers {
			hdr[name] = append([]string(nil), values...)
		}
		// 请求自带的头部优先于全局头部
		for name, values := range base {
			if len(values) > 0 && hdr.Get(name) == "" {
				hdr.Set(name, values[0])
			}
		}
		if referer != "" && hdr.Get("Referer") == "" {
			hdr.Set("Referer", referer)
		}

		ctx := colly.NewContext()
		ctx.Put(ctxHandler, string(req.Handler))
		ctx.Put(ctxMeta, models.CopyMeta(req.Meta))

		if err := e.collector.Request(http.MethodGet, req.URL, nil, ctx, hdr); err != nil {
			if errors.Is(err, colly.ErrAlreadyVisited) {
				continue
			}
			utils.Debugf("提交请求失败 [%s]: %v", req.URL, err)
		}
	}
}

// baseHeaders 全局HTTP头部
// 必须在提交请求时设置,否则 colly 会填入默认的 User-Agent
func (e *Engine) baseHeaders() http.Header {
	if e.headerProvider == nil {
		return nil
	}
	headers, err := e.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return nil
	}
	return headers
}

// Run 从入口请求开始爬取,直到队列耗尽、被停止或 ctx 取消
func (e *Engine) Run(ctx context.Context, seeds []models.Request) (models.TaskStats, error) {
	startTime := time.Now()

	if e.opts.Monitor != nil {
		e.opts.Monitor.StartMonitoring(time.Second)
		defer e.opts.Monitor.StopMonitoring()
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.Stop(models.CloseCancelled)
		case <-done:
		}
	}()

	if e.opts.ProgressInterval > 0 {
		go e.reportProgress(done)
	}

	if ctx.Err() != nil {
		e.Stop(models.CloseCancelled)
	}
	if len(seeds) == 0 {
		utils.Warnf("没有入口URL,爬取立即结束")
	}
	e.schedule(seeds, "")
	e.collector.Wait()
	close(done)

	stats := e.Stats()
	stats.Duration = time.Since(startTime).Seconds()
	stats.CloseReason = e.CloseReason()

	utils.Infof("✅ 爬取结束 (%s)", stats.CloseReason)
	utils.Infof("访问URL数: %d, 失败: %d, 丢弃: %d", stats.VisitedURLs, stats.FailedRequests, stats.AbortedURLs)
	utils.Infof("文章数: %d", stats.ItemsScraped)
	utils.Infof("总耗时: %.2f秒", stats.Duration)

	return stats, nil
}

// reportProgress 周期输出进度
func (e *Engine) reportProgress(done <-chan struct{}) {
	ticker := time.NewTicker(e.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s := e.Stats()
			utils.Infof("进度: 已访问 %d 个URL, 文章 %d 篇, 失败 %d 个",
				s.VisitedURLs, s.ItemsScraped, s.FailedRequests)
		}
	}
}

// Stop 停止接收新请求,已发出的请求会正常完成
// 只有第一次调用生效
func (e *Engine) Stop(reason models.CloseReason) {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.reason.Store(reason)
	utils.Infof("停止接收新请求: %s", reason)
}

// Stopped 是否已停止
func (e *Engine) Stopped() bool {
	return e.stopped.Load()
}

// CloseReason 结束原因,未停止时为 finished
func (e *Engine) CloseReason() models.CloseReason {
	if r, ok := e.reason.Load().(models.CloseReason); ok {
		return r
	}
	return models.CloseFinished
}

// Stats 获取统计信息
func (e *Engine) Stats() models.TaskStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// throttle 资源紧张时推迟请求,最多等待 maxThrottleWait
func (e *Engine) throttle(r *colly.Request) {
	if e.opts.Monitor == nil {
		return
	}
	deadline := time.Now().Add(maxThrottleWait)
	for {
		ok, reason := e.opts.Monitor.CheckResourceAvailability()
		if ok || e.stopped.Load() || time.Now().After(deadline) {
			return
		}
		utils.Debugf("资源紧张,推迟请求 [%s]: %s", r.URL, reason)
		time.Sleep(throttleInterval)
	}
}
