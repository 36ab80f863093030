package store

import "time"

// SnapshotInterval is how many events may accumulate on a stream between
// snapshots before ShouldSnapshot recommends taking a new one.
const SnapshotInterval = 100

// SnapshotMaxAge bounds how long a repository waits before snapshotting
// even a slow-moving stream, so a cold aggregate with e.g. one event every
// few days still gets a snapshot eventually.
const SnapshotMaxAge = 24 * time.Hour

// ShouldSnapshot decides whether a repository should persist a snapshot of
// an aggregate's folded state after an append. version is the stream's
// version right after the append; lastAt is when the stream's last
// snapshot was taken (the zero Time if none exists yet). The decision is a
// pure function of these three inputs so it's trivially testable and
// carries no storage dependency of its own — a Repository implementation
// that wants snapshotting calls this after a successful Save and persists
// the result through whatever mechanism it likes.
func ShouldSnapshot(version int64, lastAt, now time.Time) bool {
	if lastAt.IsZero() {
		return version >= SnapshotInterval
	}
	if now.Sub(lastAt) >= SnapshotMaxAge {
		return true
	}
	return version%SnapshotInterval == 0
}
