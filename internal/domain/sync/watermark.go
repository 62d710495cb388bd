package sync

import "time"

// Watermark is the incremental extraction boundary: the cut date plus the
// pagination offset into source records sharing that cut date. The offset is
// only meaningful while the cut date stays unchanged between runs.
type Watermark struct {
	CutDt  time.Time
	Offset int
}

// After reports whether w is strictly ahead of o, comparing the
// (cut date, offset) tuple lexicographically.
func (w Watermark) After(o Watermark) bool {
	if !w.CutDt.Equal(o.CutDt) {
		return w.CutDt.After(o.CutDt)
	}
	return w.Offset > o.Offset
}

// SelectLatest picks the run holding the maximal (cut_dt, offset) tuple.
// This is deliberately not the most recently started run: a stale Processing
// run with an older watermark must not shadow a newer completed one. Returns
// false when runs is empty.
func SelectLatest(runs []SyncRun) (SyncRun, bool) {
	if len(runs) == 0 {
		return SyncRun{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.Watermark().After(best.Watermark()) {
			best = r
		}
	}
	return best, true
}

// FlushCandidates returns the ids of runs whose watermark has been absorbed
// and whose row can be reclaimed: everything except keepID that completed
// and started before now minus the grace window. The grace window protects
// recently completed runs from racing with a concurrently finalizing
// duplicate dispatch.
func FlushCandidates(runs []SyncRun, keepID string, now time.Time, grace time.Duration) []string {
	cutoff := now.Add(-grace)
	var ids []string
	for _, r := range runs {
		if r.ID == keepID {
			continue
		}
		if r.Status != RunStatusCompleted {
			continue
		}
		if !r.StartedAt.Before(cutoff) {
			continue
		}
		ids = append(ids, r.ID)
	}
	return ids
}
