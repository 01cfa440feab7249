//go:build !linux

package tiering

import "errors"

// DiskUsage is unsupported off linux; pressure demotion logs the error and
// skips the tier.
func DiskUsage(string) (usedBytes, totalBytes uint64, err error) {
	return 0, 0, errors.New("disk usage stat unsupported on this platform")
}
