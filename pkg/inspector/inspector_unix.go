//go:build !windows

package inspector

import (
	"golang.org/x/sys/unix"
)

func (i *osInspector) IsWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func (i *osInspector) FreeSpaceBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
