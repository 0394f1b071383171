package util

import (
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// FreeDiskSpace returns the free bytes on the filesystem containing path.
// The path does not need to exist yet; the nearest existing parent is used.
func FreeDiskSpace(path string) (uint64, error) {
	dir := path
	for {
		usage, err := disk.Usage(dir)
		if err == nil {
			return usage.Free, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return 0, err
		}
		dir = parent
	}
}
