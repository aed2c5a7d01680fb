package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig `mapstructure:"crawl"`
	Resource ResourceConfig     `mapstructure:"resource"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Output   OutputConfig       `mapstructure:"output"`
	Headers  map[string]string  `mapstructure:"headers"` // 全局请求头, 命令行 -H 优先

	// 实际读取的配置文件, 未找到时为空
	File string `mapstructure:"-"`
}

// ResourceConfig 资源监控配置
type ResourceConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	SafetyReserveMemory int  `mapstructure:"safety_reserve_memory"` // MB
	CPULoadThreshold    int  `mapstructure:"cpu_load_threshold"`    // %, >=200 时不检查CPU
	WorkerMemory        int  `mapstructure:"worker_memory"`         // 单个请求的估算内存(MB)
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir          string `mapstructure:"base_dir"`
	ProgressBar      bool   `mapstructure:"progress_bar"`
	ProgressInterval int    `mapstructure:"progress_interval"` // 进度日志间隔(秒), 0 关闭
}

// LoadConfig 加载配置文件
// configPath 为空时依次搜索 ./configs, ., ~/.newscrawl 下的 config.yaml
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".newscrawl"))
		}
	}

	// 环境变量, 如 NEWSCRAWL_CRAWL_LIMIT
	v.SetEnvPrefix("NEWSCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("解析配置失败: %w", err),
		}
	}
	config.File = v.ConfigFileUsed()
	config.syncResource()

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 爬取配置默认值
	v.SetDefault("crawl.site", "foxnews")
	v.SetDefault("crawl.limit", 50)
	v.SetDefault("crawl.max_workers", 4)
	v.SetDefault("crawl.request_timeout", 30)
	v.SetDefault("crawl.delay_ms", 0)
	v.SetDefault("crawl.strict_site", false)
	v.SetDefault("crawl.ignore_robots", false)
	v.SetDefault("crawl.visited_capacity", 1_000_000)
	v.SetDefault("crawl.visited_fp_rate", 0.0001)

	// 资源配置默认值
	v.SetDefault("resource.enabled", true)
	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.worker_memory", 20)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.progress_bar", true)
	v.SetDefault("output.progress_interval", 30)
}

// syncResource 把资源配置同步到爬取配置快照
func (c *Config) syncResource() {
	c.Crawl.SafetyReserveMemory = c.Resource.SafetyReserveMemory
	c.Crawl.CPULoadThreshold = c.Resource.CPULoadThreshold
}

// CLIOverrides 命令行参数, nil 表示未指定
type CLIOverrides struct {
	Site       *string
	Limit      *int
	OutputDir  *string
	MaxWorkers *int
	DelayMs    *int
	StrictSite *bool
	LogLevel   *string
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Site != nil {
		c.Crawl.Site = *o.Site
	}
	if o.Limit != nil {
		c.Crawl.Limit = *o.Limit
	}
	if o.OutputDir != nil {
		c.Output.BaseDir = *o.OutputDir
	}
	if o.MaxWorkers != nil {
		c.Crawl.MaxWorkers = *o.MaxWorkers
	}
	if o.DelayMs != nil {
		c.Crawl.DelayMillis = *o.DelayMs
	}
	if o.StrictSite != nil {
		c.Crawl.StrictSite = *o.StrictSite
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		c.Logging.Level = *o.LogLevel
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	if c.Output.BaseDir == "" {
		return fmt.Errorf("输出目录不能为空")
	}
	if c.Output.ProgressInterval < 0 {
		return fmt.Errorf("进度日志间隔不能为负数")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("无效的日志级别: %s", c.Logging.Level)
	}
	if c.Resource.CPULoadThreshold < 0 || c.Resource.SafetyReserveMemory < 0 || c.Resource.WorkerMemory < 0 {
		return fmt.Errorf("资源配置不能为负数")
	}
	return nil
}
