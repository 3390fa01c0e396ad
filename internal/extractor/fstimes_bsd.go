//go:build darwin || freebsd

package extractor

import (
	"errors"
	"os"
	"syscall"
	"time"
)

type fileTimes struct {
	birth    time.Time
	change   time.Time
	modified time.Time
	birthErr error
}

// statTimes reads birth and change times from the stat buffer the
// FileInfo already carries
func statTimes(_ string, info os.FileInfo) fileTimes {
	ft := fileTimes{modified: info.ModTime()}

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		ft.change = info.ModTime()
		ft.birthErr = errors.New("file info carries no stat buffer")
		return ft
	}

	ft.change = time.Unix(st.Ctimespec.Unix())
	if bt := st.Birthtimespec; bt.Sec > 0 || bt.Nsec > 0 {
		ft.birth = time.Unix(bt.Unix())
	} else {
		ft.birthErr = errors.New("filesystem does not report birth time")
	}
	return ft
}
