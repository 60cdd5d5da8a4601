package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

// Health is a point-in-time view of the process and its data directory.
type Health struct {
	HeapMB     uint64
	SysMB      uint64
	NumGC      uint32
	Goroutines int
	DataBytes  int64
	Uptime     time.Duration
}

var startedAt = time.Now()

// Snapshot collects process health. Unreadable entries under dataDir are skipped.
func Snapshot(dataDir string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Health{
		HeapMB:     m.HeapAlloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		DataBytes:  dirSize(dataDir),
		Uptime:     time.Since(startedAt).Round(time.Second),
	}
}

func dirSize(root string) int64 {
	var size int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}

// HumanBytes renders a byte count with a binary unit suffix.
func HumanBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
