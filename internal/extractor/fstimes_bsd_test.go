//go:build darwin || freebsd

package extractor

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatTimesReadsBirthAndChangeTime(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "Q3 planning\n")
	mtime := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	info, err := os.Stat(path)
	require.NoError(t, err)
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)

	ft := statTimes(path, info)

	assert.True(t, ft.change.Equal(time.Unix(st.Ctimespec.Unix())))
	assert.True(t, ft.modified.Equal(mtime))
	if st.Birthtimespec.Sec > 0 {
		require.NoError(t, ft.birthErr)
		assert.True(t, ft.birth.Equal(time.Unix(st.Birthtimespec.Unix())))
	} else {
		assert.Error(t, ft.birthErr)
	}
}
