//go:build darwin

package sink

import (
	"os"
	"syscall"
	"time"
)

func fileCreationTime(info os.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(stat.Birthtimespec.Sec), int64(stat.Birthtimespec.Nsec))
	}
	return info.ModTime()
}
