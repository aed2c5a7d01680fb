// Package output 文章记录输出
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RecoveryAshes/NewsCrawl/internal/models"
	"github.com/RecoveryAshes/NewsCrawl/internal/signals"
	"github.com/RecoveryAshes/NewsCrawl/internal/utils"
)

// ItemsFile 文章输出文件名
const ItemsFile = "items.jl"

// JSONLinesExporter 每行一个JSON文章记录
type JSONLinesExporter struct {
	path string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	count  int
	closed bool
}

// NewJSONLinesExporter 创建 <output>/<site>/items.jl,已存在时覆盖
func NewJSONLinesExporter(outputDir, site string) (*JSONLinesExporter, error) {
	dir := utils.SiteDir(outputDir, site)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ItemsFile)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建输出文件失败: %w", err)
	}

	return &JSONLinesExporter{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Attach 订阅条目信号
func (e *JSONLinesExporter) Attach(bus *signals.Bus) {
	bus.ItemScraped.Connect(func(ev signals.ItemScraped) error {
		return e.Export(ev.Item)
	})
}

// Export 写入一条记录
func (e *JSONLinesExporter) Export(item *models.ArticleRecord) error {
	if item == nil {
		return nil
	}
	line, err := item.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化文章失败 [%s]: %w", item.CanonicalURL, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("输出文件已关闭: %s", e.path)
	}
	if _, err := e.writer.Write(line); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	e.count++
	return nil
}

// Path 输出文件路径
func (e *JSONLinesExporter) Path() string {
	return e.path
}

// Count 已写入的记录数
func (e *JSONLinesExporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Close 刷新缓冲并关闭文件,可重复调用
func (e *JSONLinesExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	flushErr := e.writer.Flush()
	closeErr := e.file.Close()
	if flushErr != nil {
		return fmt.Errorf("刷新输出文件失败: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("关闭输出文件失败: %w", closeErr)
	}

	utils.Infof("已写入 %d 篇文章: %s", e.count, e.path)
	return nil
}
