package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogConfig(dir, level string) LogConfig {
	return LogConfig{
		Level:      level,
		LogDir:     dir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
		Console:    io.Discard,
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	return string(content)
}

func TestInitLogger(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "logs")

	if err := InitLogger(testLogConfig(tempDir, "debug")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Errorf("日志目录未创建: %s", tempDir)
	}

	Infof("测试信息日志 %d", 1)
	Debugf("测试调试日志")

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if !strings.Contains(content, "测试信息日志 1") {
		t.Errorf("主日志缺少信息日志: %s", content)
	}
	if !strings.Contains(content, "测试调试日志") {
		t.Errorf("debug级别下主日志缺少调试日志: %s", content)
	}
}

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "info")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Infof("格式化信息日志: %s", "测试")
	Warnf("格式化警告日志: %d", 123)
	Debugf("调试日志不应出现: %v", true)

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if !strings.Contains(content, "格式化信息日志: 测试") {
		t.Error("缺少信息日志")
	}
	if !strings.Contains(content, "格式化警告日志: 123") {
		t.Error("缺少警告日志")
	}
	if strings.Contains(content, "调试日志不应出现") {
		t.Error("info级别下不应写入调试日志")
	}
}

func TestErrorLogOnlyReceivesErrors(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "info")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Infof("普通信息")
	Warnf("普通警告")
	Errorf("抓取失败: %s", "http://www.cnn.com/")
	Error(errors.New("连接被重置"), "请求失败")

	content := readLog(t, filepath.Join(tempDir, ErrorLogFile))
	if strings.Contains(content, "普通信息") || strings.Contains(content, "普通警告") {
		t.Errorf("错误日志不应包含低级别日志: %s", content)
	}
	if !strings.Contains(content, "抓取失败: http://www.cnn.com/") {
		t.Errorf("错误日志缺少Errorf输出: %s", content)
	}
	if !strings.Contains(content, "连接被重置") {
		t.Errorf("错误日志缺少Error输出: %s", content)
	}
}

func TestWithRunID(t *testing.T) {
	tempDir := t.TempDir()

	if err := InitLogger(testLogConfig(tempDir, "info")); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}
	WithRunID("run-123")
	Infof("带批次ID的日志")

	content := readLog(t, filepath.Join(tempDir, MainLogFile))
	if !strings.Contains(content, `"run_id":"run-123"`) {
		t.Errorf("日志缺少run_id字段: %s", content)
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转配置错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
