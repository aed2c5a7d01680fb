package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

// ReportFile 爬取报告文件名
const ReportFile = "crawl_report.json"

// Reporter 报告生成器
type Reporter struct {
	outputDir string
	site      string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string, site string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		site:      site,
	}
}

// ReportsDir 报告目录 <output>/<site>/reports
func (r *Reporter) ReportsDir() string {
	return filepath.Join(SiteDir(r.outputDir, r.site), "reports")
}

// GenerateReport 生成爬取报告,返回报告文件路径
func (r *Reporter) GenerateReport(
	runID string,
	rule models.SiteRule,
	limit int,
	startTime time.Time,
	stats models.TaskStats,
	itemsFile string,
	config models.CrawlConfig,
) (string, error) {
	reportsDir := r.ReportsDir()
	if err := EnsureDir(reportsDir); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	report := models.CrawlReport{
		RunID:     runID,
		Site:      r.site,
		SeedURL:   rule.URL,
		Limit:     limit,
		StartTime: startTime,
		EndTime:   startTime.Add(time.Duration(stats.Duration * float64(time.Second))),
		Duration:  stats.Duration,
		Stats:     stats,
		OutputDir: SiteDir(r.outputDir, r.site),
		ItemsFile: itemsFile,
		Config:    config,
	}

	path := filepath.Join(reportsDir, ReportFile)
	if err := r.saveJSONReport(path, &report); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// NewProgressBar 创建条目进度条
// max <= 0 时显示为不定长进度
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	if max <= 0 {
		max = -1
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("篇"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
