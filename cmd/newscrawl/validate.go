package main

import (
	"fmt"

	"github.com/RecoveryAshes/NewsCrawl/internal/core"
	"github.com/RecoveryAshes/NewsCrawl/internal/sites"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
	"github.com/spf13/cobra"
)

// collectOverrides 只收集用户显式指定的参数,未指定的保留配置文件的值
func collectOverrides(cmd *cobra.Command) core.CLIOverrides {
	var o core.CLIOverrides
	flags := cmd.Flags()
	if flags.Changed("site") {
		o.Site = &site
	}
	if flags.Changed("limit") {
		o.Limit = &limit
	}
	if flags.Changed("output") {
		o.OutputDir = &outputDir
	}
	if flags.Changed("threads") {
		o.MaxWorkers = &maxWorkers
	}
	if flags.Changed("delay") {
		o.DelayMs = &delayMs
	}
	if flags.Changed("strict-site") {
		o.StrictSite = &strictSite
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}
	return o
}

// runValidateConfig 验证配置、站点和请求头,不发起任何请求
func runValidateConfig(config *core.Config, hm *core.HeaderManager) error {
	utils.Infof("🔍 验证配置...")
	if config.File != "" {
		utils.Infof("配置文件: %s", config.File)
	} else {
		utils.Infof("未找到配置文件,使用默认配置")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	if _, err := sites.Resolve(config.Crawl.Site); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	if err := hm.Validate(); err != nil {
		return fmt.Errorf("HTTP头部验证失败: %w", err)
	}

	utils.Infof("✅ 配置验证通过!")
	utils.Infof("站点: %s, 条目上限: %s, 并发: %d", config.Crawl.Site, utils.FormatLimit(config.Crawl.Limit), config.Crawl.MaxWorkers)
	utils.Infof("当前有效的HTTP头部: %s", hm.GetSafeHeaders())
	return nil
}
