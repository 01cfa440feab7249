//go:build !linux

package tiering

import "os"

func atimeFromSys(os.FileInfo) (int64, bool) {
	return 0, false
}
