//go:build !linux && !darwin

package sink

import (
	"os"
	"time"
)

func fileCreationTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
