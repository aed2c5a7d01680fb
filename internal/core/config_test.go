package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
crawl:
  site: cnn
  limit: 10
  max_workers: 8
  strict_site: true
resource:
  enabled: false
  cpu_load_threshold: 75
logging:
  level: debug
output:
  base_dir: data
headers:
  X-Requested-By: newscrawl
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "cnn", cfg.Crawl.Site)
	assert.Equal(t, 10, cfg.Crawl.Limit)
	assert.Equal(t, 8, cfg.Crawl.MaxWorkers)
	assert.True(t, cfg.Crawl.StrictSite)
	assert.False(t, cfg.Resource.Enabled)
	assert.Equal(t, 75, cfg.Crawl.CPULoadThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "data", cfg.Output.BaseDir)
	// viper 会把键转为小写
	assert.Equal(t, "newscrawl", cfg.Headers["x-requested-by"])

	// 未设置的键使用默认值
	assert.Equal(t, 30, cfg.Crawl.RequestTimeout)
	assert.Equal(t, 0.0001, cfg.Crawl.VisitedFPRate)
	assert.Equal(t, 10, cfg.Logging.Rotation.MaxSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "crawl: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_MergeCLIFlags(t *testing.T) {
	path := writeConfig(t, "crawl:\n  site: wsj\n  limit: 5\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	site := "washingtonpost"
	limit := 0
	workers := 2
	strict := true
	level := "warn"
	cfg.MergeCLIFlags(CLIOverrides{
		Site:       &site,
		Limit:      &limit,
		MaxWorkers: &workers,
		StrictSite: &strict,
		LogLevel:   &level,
	})

	assert.Equal(t, "washingtonpost", cfg.Crawl.Site)
	assert.Equal(t, 0, cfg.Crawl.Limit)
	assert.Equal(t, 2, cfg.Crawl.MaxWorkers)
	assert.True(t, cfg.Crawl.StrictSite)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// 未指定的参数保留配置文件的值
	assert.Equal(t, "output", cfg.Output.BaseDir)
	assert.Equal(t, 0, cfg.Crawl.DelayMillis)
}

func TestConfig_Validate(t *testing.T) {
	path := writeConfig(t, "crawl:\n  site: wsj\n")
	base, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"并发数为0", func(c *Config) { c.Crawl.MaxWorkers = 0 }},
		{"超时过大", func(c *Config) { c.Crawl.RequestTimeout = 1000 }},
		{"负的请求间隔", func(c *Config) { c.Crawl.DelayMillis = -1 }},
		{"误判率为1", func(c *Config) { c.Crawl.VisitedFPRate = 1 }},
		{"空输出目录", func(c *Config) { c.Output.BaseDir = "" }},
		{"无效日志级别", func(c *Config) { c.Logging.Level = "loud" }},
		{"负的资源配置", func(c *Config) { c.Resource.WorkerMemory = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("NEWSCRAWL_CRAWL_LIMIT", "7")
	path := writeConfig(t, "crawl:\n  site: cnn\n  limit: 3\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawl.Limit)
	assert.Equal(t, "cnn", cfg.Crawl.Site)
}
