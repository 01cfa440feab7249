//go:build linux

package tiering

import (
	"os"
	"syscall"
)

func atimeFromSys(fi os.FileInfo) (int64, bool) {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Atim.Sec, true
}
