package wifi

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Quality is the link-quality snapshot the kernel exposes for one
// interface through procfs(5), i.e. /proc/net/wireless.
type Quality struct {
	Name string `json:"ifName"`

	// Link, Level and Noise are the quality triplet as reported by the
	// driver. Units are driver-dependent, usually dBm for the latter two.
	Link  int `json:"link"`
	Level int `json:"level"`
	Noise int `json:"noise"`

	// DiscardedRetry counts frames dropped after exhausting MAC retries.
	DiscardedRetry int `json:"discardedRetry"`

	// MissedBeacons counts beacons the interface expected but never saw.
	MissedBeacons int `json:"missedBeacons"`
}

func (q Quality) String() string {
	return fmt.Sprintf("%s: link %d, level %d dBm, noise %d dBm", q.Name, q.Link, q.Level, q.Noise)
}

// QualitySnapshot reads /proc/net/wireless under the given mount point
// (usually "/proc") and returns one entry per wireless interface. The
// data comes straight from procfs, no netlink involved, so it works
// without an initialised proxy.
func QualitySnapshot(mountPoint string) ([]Quality, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("couldn't open procfs at %s: %w", mountPoint, err)
	}

	entries, err := fs.Wireless()
	if err != nil {
		return nil, fmt.Errorf("couldn't read the wireless stats: %w", err)
	}

	snapshot := make([]Quality, 0, len(entries))
	for _, e := range entries {
		snapshot = append(snapshot, Quality{
			Name:           e.Name,
			Link:           e.QualityLink,
			Level:          e.QualityLevel,
			Noise:          e.QualityNoise,
			DiscardedRetry: e.DiscardedRetry,
			MissedBeacons:  e.MissedBeacon,
		})
	}
	return snapshot, nil
}
