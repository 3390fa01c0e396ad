//go:build !linux && !darwin && !freebsd

package extractor

import (
	"errors"
	"os"
	"time"
)

type fileTimes struct {
	birth    time.Time
	change   time.Time
	modified time.Time
	birthErr error
}

// statTimes approximates the change time with the modification time where
// statx is not available.
func statTimes(_ string, info os.FileInfo) fileTimes {
	return fileTimes{
		change:   info.ModTime(),
		modified: info.ModTime(),
		birthErr: errors.New("birth time not supported on this platform"),
	}
}
