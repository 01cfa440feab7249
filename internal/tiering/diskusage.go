//go:build linux

package tiering

import "golang.org/x/sys/unix"

// DiskUsage reports bytes used and bytes total for the filesystem backing
// path, via statfs. The Decision Engine's pressure-demotion check uses it
// to evaluate the tier_capacity_threshold clause.
func DiskUsage(path string) (usedBytes, totalBytes uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}

	blockSize := uint64(stat.Bsize)
	total := stat.Blocks * blockSize
	free := stat.Bfree * blockSize
	used := total - free

	return used, total, nil
}
