//go:build linux

package extractor

import (
	"errors"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type fileTimes struct {
	birth    time.Time
	change   time.Time
	modified time.Time
	birthErr error
}

// statTimes reads birth, change and modification times with statx
func statTimes(path string, info os.FileInfo) fileTimes {
	ft := fileTimes{modified: info.ModTime()}

	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT,
		unix.STATX_BTIME|unix.STATX_CTIME|unix.STATX_MTIME, &stx)
	if err != nil {
		ft.birthErr = err
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			ft.change = time.Unix(st.Ctim.Unix())
		}
		return ft
	}

	if stx.Mask&unix.STATX_BTIME != 0 {
		ft.birth = statxTime(stx.Btime)
	} else {
		ft.birthErr = errors.New("filesystem does not report birth time")
	}
	if stx.Mask&unix.STATX_CTIME != 0 {
		ft.change = statxTime(stx.Ctime)
	}
	return ft
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
