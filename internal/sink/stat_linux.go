//go:build linux

package sink

import (
	"os"
	"syscall"
	"time"
)

// Linux does not expose the birth time through stat(2); the inode change
// time is the closest substitute.
func fileCreationTime(info os.FileInfo) time.Time {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(stat.Ctim.Sec), int64(stat.Ctim.Nsec))
	}
	return info.ModTime()
}
