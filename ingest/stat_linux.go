//go:build linux

package ingest

import (
	"os"
	"syscall"
	"time"
)

// createdTime reads the inode change time, the closest thing to a creation
// timestamp stat exposes on unix.
func createdTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
