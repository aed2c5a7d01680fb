package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/NewsCrawl/internal/engine"
	"github.com/RecoveryAshes/NewsCrawl/internal/limiter"
	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/output"
	"github.com/RecoveryAshes/NewsCrawl/internal/signals"
	"github.com/RecoveryAshes/NewsCrawl/internal/sites"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// Crawler 主爬取器协调器
// 把站点爬虫、抓取引擎、条目上限、输出和报告连接到同一组信号上
type Crawler struct {
	config         *Config
	headerProvider models.HeaderProvider
	runID          string

	spider *sites.Spider
	seeds  []models.Request

	itemsFile  string
	reportFile string
}

// NewCrawler 创建主爬取器
// 未知站点在 crawl.strict_site 为 true 时返回错误,否则降级为空爬取
func NewCrawler(config *Config, headerProvider models.HeaderProvider) (*Crawler, error) {
	spider, err := sites.NewSpider(config.Crawl.Site, config.Crawl.StrictSite)
	if err != nil {
		return nil, fmt.Errorf("创建站点爬虫失败: %w", err)
	}

	return &Crawler{
		config:         config,
		headerProvider: headerProvider,
		runID:          models.NewRunID(),
		spider:         spider,
		seeds:          spider.Seeds(),
	}, nil
}

// RunID 本次爬取的批次ID
func (c *Crawler) RunID() string {
	return c.runID
}

// ItemsFile 文章输出文件路径, Crawl 之后有效
func (c *Crawler) ItemsFile() string {
	return c.itemsFile
}

// ReportFile 报告文件路径, Crawl 之后有效
func (c *Crawler) ReportFile() string {
	return c.reportFile
}

// Crawl 执行爬取任务
// 执行流程:
//  1. 创建引擎, 连接条目上限、输出文件和进度条
//  2. 发出 CrawlStarted, 从入口URL开始爬取直到队列耗尽、达到上限或 ctx 取消
//  3. 发出 CrawlClosed, 关闭输出并生成报告
func (c *Crawler) Crawl(ctx context.Context) (models.TaskStats, error) {
	startTime := time.Now()
	cfg := c.config.Crawl
	site := c.spider.Site()

	utils.WithRunID(c.runID)
	utils.Infof("🚀 开始爬取任务")
	utils.Infof("站点: %s", site)
	utils.Infof("条目上限: %s", utils.FormatLimit(cfg.Limit))
	utils.Infof("输出目录: %s", utils.SiteDir(c.config.Output.BaseDir, site))

	bus := signals.NewBus()

	eng, err := engine.New(c.engineOptions(), c.spider, bus, c.headerProvider)
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("创建抓取引擎失败: %w", err)
	}

	lim := limiter.New(cfg.Limit, eng.Stop)
	lim.Attach(bus)

	exporter, err := output.NewJSONLinesExporter(c.config.Output.BaseDir, site)
	if err != nil {
		return models.TaskStats{}, err
	}
	defer exporter.Close()
	exporter.Attach(bus)
	c.itemsFile = exporter.Path()

	if c.config.Output.ProgressBar {
		bar := utils.NewProgressBar(cfg.Limit, fmt.Sprintf("抓取 %s", site))
		bus.ItemScraped.Connect(func(signals.ItemScraped) error {
			return bar.Add(1)
		})
		bus.CrawlClosed.Connect(func(signals.CrawlClosed) error {
			return bar.Finish()
		})
	}

	bus.CrawlStarted.Send(signals.CrawlStarted{
		RunID: c.runID,
		Rule:  c.spider.Rule(),
		Limit: cfg.Limit,
	})

	stats, err := eng.Run(ctx, c.seeds)
	if err != nil {
		return stats, fmt.Errorf("爬取失败: %w", err)
	}

	bus.CrawlClosed.Send(signals.CrawlClosed{Reason: stats.CloseReason, Stats: stats})

	if err := exporter.Close(); err != nil {
		utils.Warnf("关闭输出文件失败: %v", err)
	}

	reporter := utils.NewReporter(c.config.Output.BaseDir, site)
	reportFile, err := reporter.GenerateReport(c.runID, c.spider.Rule(), cfg.Limit, startTime, stats, c.itemsFile, cfg)
	if err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}
	c.reportFile = reportFile

	utils.Infof("✅ 爬取任务完成 (%s), 文章 %d 篇", stats.CloseReason, stats.ItemsScraped)
	return stats, nil
}

// engineOptions 由配置生成引擎参数
func (c *Crawler) engineOptions() engine.Options {
	cfg := c.config.Crawl
	opts := engine.Options{
		MaxWorkers:       cfg.MaxWorkers,
		RequestTimeout:   time.Duration(cfg.RequestTimeout) * time.Second,
		Delay:            time.Duration(cfg.DelayMillis) * time.Millisecond,
		IgnoreRobots:     cfg.IgnoreRobots,
		VisitedFPRate:    cfg.VisitedFPRate,
		ProgressInterval: time.Duration(c.config.Output.ProgressInterval) * time.Second,
	}
	if cfg.VisitedCap > 0 {
		opts.VisitedCapacity = uint(cfg.VisitedCap)
	}

	if res := c.config.Resource; res.Enabled {
		opts.Monitor = engine.NewResourceMonitor(engine.ResourceMonitorConfig{
			SafetyReserveMemory: int64(res.SafetyReserveMemory) * 1024 * 1024,
			CPULoadThreshold:    res.CPULoadThreshold,
			MaxWorkers:          cfg.MaxWorkers,
			WorkerMemoryUsage:   int64(res.WorkerMemory) * 1024 * 1024,
		})
	}
	return opts
}
