package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 周期采样内存和CPU,计算引擎当前允许的并发数上限
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	lastMemStats runtime.MemStats
	lastCPUUsage float64
	mu           sync.RWMutex

	cancelFunc context.CancelFunc
	isRunning  bool
	runMu      sync.Mutex
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >= 200 视为禁用
	MaxWorkers          int   // 配置的并发上限
	WorkerMemoryUsage   int64 // 单个请求平均内存消耗(字节)
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage == 0 {
		config.WorkerMemoryUsage = 20 * 1024 * 1024 // 20MB
	}
	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}

	// 使用gopsutil获取真实系统内存
	var totalMem uint64
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值 4GB")
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		log.Debug().Msgf("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	rm := &ResourceMonitor{
		config:      config,
		totalMemory: totalMem,
	}
	runtime.ReadMemStats(&rm.lastMemStats)
	return rm
}

// StartMonitoring 启动后台采样,重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.runMu.Lock()
	defer rm.runMu.Unlock()

	if rm.isRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			cpuUsage := rm.getCPUUsage()

			rm.mu.Lock()
			rm.lastMemStats = memStats
			rm.lastCPUUsage = cpuUsage
			rm.mu.Unlock()
		}
	}
}

// getCPUUsage 所有核心的平均CPU使用率(百分比)
func (rm *ResourceMonitor) getCPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		return 0.0
	}
	if len(percentages) == 0 {
		return 0.0
	}
	return percentages[0]
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.runMu.Lock()
	defer rm.runMu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// CheckResourceAvailability 检查当前资源是否允许发出新请求
// 返回ok(是否允许)和reason(不允许时的原因)
func (rm *ResourceMonitor) CheckResourceAvailability() (ok bool, reason string) {
	rm.mu.RLock()
	allocated := rm.lastMemStats.Alloc
	cpuUsage := rm.lastCPUUsage
	rm.mu.RUnlock()

	available := int64(rm.totalMemory) - int64(allocated) - rm.config.SafetyReserveMemory
	if available < rm.config.WorkerMemoryUsage {
		return false, fmt.Sprintf("内存不足(当前%dMB)", available/(1024*1024))
	}
	if rm.config.CPULoadThreshold < 200 && cpuUsage > float64(rm.config.CPULoadThreshold) {
		return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", cpuUsage)
	}
	return true, ""
}

// CalculateMaxWorkers 基于可用内存和CPU负载计算并发上限
// 结果在 [1, MaxWorkers] 之间
func (rm *ResourceMonitor) CalculateMaxWorkers() int {
	rm.mu.RLock()
	allocated := rm.lastMemStats.Alloc
	cpuUsage := rm.lastCPUUsage
	rm.mu.RUnlock()

	available := int64(rm.totalMemory) - int64(allocated) - rm.config.SafetyReserveMemory
	result := rm.config.MaxWorkers
	if byMemory := int(available / rm.config.WorkerMemoryUsage); byMemory < result {
		result = byMemory
	}

	// CPU负载超过阈值时并发减半
	if rm.config.CPULoadThreshold < 200 && cpuUsage > float64(rm.config.CPULoadThreshold) {
		result /= 2
	}
	if result < 1 {
		result = 1
	}
	return result
}
