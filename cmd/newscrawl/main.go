package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/NewsCrawl/internal/core"
	"github.com/RecoveryAshes/NewsCrawl/internal/sites"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	logLevel   string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// 爬取参数
	site       string
	limit      int
	outputDir  string
	maxWorkers int
	delayMs    int
	strictSite bool
)

// appConfig 在 PersistentPreRunE 中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "newscrawl",
	Short: "新闻站点文章爬取工具",
	Long: `NewsCrawl - 新闻站点文章爬取工具

从固定的新闻站点 (foxnews, washingtonpost, wsj, cnn) 出发,
沿导航和文章链接爬取,提取标题、正文、发布日期和站内链接,
输出为每行一条JSON的文章记录。

示例:
  # 爬取CNN,最多50篇文章
  newscrawl -s cnn -l 50

  # 自定义请求头
  newscrawl -s wsj -H "User-Agent: MyBot/1.0" -H "Cookie: a=b"

  # 验证配置文件
  newscrawl --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(collectOverrides(cmd))
		appConfig = config

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if config.File != "" {
			utils.Debugf("使用配置文件: %s", config.File)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(appConfig, headerManager)
		}

		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}
		if _, err := headerManager.GetHeaders(); err != nil {
			return fmt.Errorf("HTTP头部无效: %w", err)
		}

		crawler, err := core.NewCrawler(appConfig, headerManager)
		if err != nil {
			return err
		}

		// Ctrl+C 停止接收新请求,已发出的请求完成后正常收尾
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats, err := crawler.Crawl(ctx)
		if err != nil {
			return err
		}

		fmt.Println("\n==================================================")
		fmt.Println("📊 爬取统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 结束原因: %s\n", stats.CloseReason)
		fmt.Printf("✅ 访问URL数: %d\n", stats.VisitedURLs)
		fmt.Printf("✅ 文章数: %d\n", stats.ItemsScraped)
		fmt.Printf("❌ 失败请求: %d\n", stats.FailedRequests)
		fmt.Printf("⏹️  丢弃请求: %d\n", stats.AbortedURLs)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
		fmt.Printf("📄 文章文件: %s\n", crawler.ItemsFile())
		fmt.Println("==================================================")
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "列出支持的站点",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, key := range sites.Keys() {
			rule, err := sites.Resolve(key)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %s\n", rule.Key, rule.URL)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NewsCrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 爬取参数
	rootCmd.Flags().StringVarP(&site, "site", "s", "foxnews", "站点标识 (foxnews|washingtonpost|wsj|cnn)")
	rootCmd.Flags().IntVarP(&limit, "limit", "l", 50, "文章数量上限, 0 表示不限制")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "输出目录")
	rootCmd.Flags().IntVar(&maxWorkers, "threads", 4, "并发请求数")
	rootCmd.Flags().IntVar(&delayMs, "delay", 0, "同域请求间隔(毫秒)")
	rootCmd.Flags().BoolVar(&strictSite, "strict-site", false, "未知站点时直接报错")

	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
