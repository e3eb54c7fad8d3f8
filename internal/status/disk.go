package status

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/shirou/gopsutil/v4/disk"
)

// Volume is the usage of the filesystem holding one scan root.
type Volume struct {
	Root        string
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
}

// CollectVolumes queries free space for each root. Roots on the same
// filesystem (same type and size) are reported once, under the first root
// seen. Unreadable roots are skipped; the first error is returned with
// whatever succeeded.
func CollectVolumes(roots []string) ([]Volume, error) {
	var (
		vols     []Volume
		firstErr error
		seen     = make(map[string]bool)
	)
	for _, root := range roots {
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		u, err := disk.Usage(root)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key := fmt.Sprintf("%s:%d", u.Fstype, u.Total)
		if seen[key] {
			continue
		}
		seen[key] = true
		vols = append(vols, Volume{
			Root:        root,
			Total:       u.Total,
			Free:        u.Free,
			Used:        u.Used,
			UsedPercent: u.UsedPercent,
		})
	}
	sort.SliceStable(vols, func(i, j int) bool { return vols[i].Root < vols[j].Root })
	return vols, firstErr
}
