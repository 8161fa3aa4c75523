//go:build windows

package inspector

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// IsWritable probes by creating and removing a temporary file; Windows has
// no usable access(2) equivalent for directory write permission.
func (i *osInspector) IsWritable(path string) bool {
	f, err := os.CreateTemp(path, ".relink-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

func (i *osInspector) FreeSpaceBytes(path string) (uint64, error) {
	var free uint64
	p, err := windows.UTF16PtrFromString(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(p, &free, nil, nil); err != nil {
		return 0, err
	}
	return free, nil
}
