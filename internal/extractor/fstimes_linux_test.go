//go:build linux

package extractor

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCreatedAtUsesBirthTime(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "Q3 planning\n")
	mtime := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	var stx unix.Statx_t
	require.NoError(t, unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT,
		unix.STATX_BTIME|unix.STATX_CTIME, &stx))
	want := statxTime(stx.Ctime)
	if stx.Mask&unix.STATX_BTIME != 0 {
		want = statxTime(stx.Btime)
	}

	meta, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, meta.CreatedAt.Equal(want), "created_at %v, want %v", meta.CreatedAt, want)
	assert.True(t, meta.ModifiedAt.Equal(mtime), "modified_at %v, want %v", meta.ModifiedAt, mtime)
	assert.Equal(t, time.UTC, meta.CreatedAt.Location())
}

func TestStatTimesFallsBackToChangeTime(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gone.txt", "x")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	ft := statTimes(path, info)

	require.Error(t, ft.birthErr)
	assert.True(t, ft.birth.IsZero())
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	ctime := time.Unix(st.Ctim.Unix())
	assert.True(t, ft.change.Equal(ctime), "change %v, want %v", ft.change, ctime)
	assert.True(t, firstTime(time.Time{}, ft.birth, ft.change).Equal(ctime))
	assert.True(t, ft.modified.Equal(info.ModTime()))
}
