// Package diagnostics captures process and host resource usage for
// simulation run reports.
package diagnostics

import (
	"math"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/tphakala/mixcore/internal/cpuspec"
	"github.com/tphakala/mixcore/internal/logging"
)

var log = logging.ForService("diagnostics")

// Snapshot is a point-in-time view of process and host resource usage.
// Fields that cannot be read on the current platform are left zero.
type Snapshot struct {
	Timestamp      time.Time
	GoVersion      string
	OS             string
	Architecture   string
	CPUModel       string
	NumCPU         int
	NumGoroutine   int
	HeapAllocMB    float64
	ProcessRSSMB   float64
	ProcessCPUPct  float64
	HostMemUsedPct float64
}

// Capture samples the current process and host. Collection is best
// effort: platform errors leave the affected fields zero and are only
// logged at debug level.
func Capture() Snapshot {
	s := Snapshot{
		Timestamp:    time.Now(),
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUModel:     cpuspec.GetCPUSpec().BrandName,
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debug("process handle unavailable", "error", err)
	} else {
		if memInfo, err := proc.MemoryInfo(); err != nil {
			log.Debug("process memory info unavailable", "error", err)
		} else if memInfo != nil {
			s.ProcessRSSMB = float64(memInfo.RSS) / 1024 / 1024
		}

		if cpuPct, err := proc.CPUPercent(); err != nil {
			log.Debug("process cpu percent unavailable", "error", err)
		} else {
			s.ProcessCPUPct = cpuPct
		}
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Debug("host memory info unavailable", "error", err)
	} else {
		s.HostMemUsedPct = vm.UsedPercent
	}

	return s
}

// LogAttrs returns the snapshot as alternating slog key/value pairs for
// structured run-report logging.
func (s Snapshot) LogAttrs() []any {
	return []any{
		"cpu", s.CPUModel,
		"goroutines", s.NumGoroutine,
		"heap_alloc_mb", round2(s.HeapAllocMB),
		"process_rss_mb", round2(s.ProcessRSSMB),
		"process_cpu_pct", round2(s.ProcessCPUPct),
		"host_mem_used_pct", round2(s.HostMemUsedPct),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
