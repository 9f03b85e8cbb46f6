package settlement

import (
	"fmt"
	"time"

	"github.com/warp/settlement-engine/cycle"
)

// BuildFunc produces the report for one resolved cycle.
type BuildFunc func(c cycle.Cycle, offset int) (Report, error)

// BrowseHistory walks offsets -1 down to -maxOffsets and returns the reports
// that have worker activity, most recent first. maxOffsets <= 0 yields an
// empty list. Resolve and build errors stop the walk.
func BrowseHistory(p cycle.Policy, ref time.Time, maxOffsets int, build BuildFunc) ([]Report, error) {
	out := []Report{}
	for offset := -1; offset >= -maxOffsets; offset-- {
		c, err := cycle.Resolve(p, offset, ref)
		if err != nil {
			return nil, err
		}
		r, err := build(c, offset)
		if err != nil {
			return nil, fmt.Errorf("building report for offset %d: %w", offset, err)
		}
		if !r.HasWorkerActivity() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
