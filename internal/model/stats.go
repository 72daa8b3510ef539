package model

import "sync/atomic"

// Stats counts per-run tagging outcomes. A post normally lands in one
// counter, but forced classifier runs can raise both the search and the
// classifier counter for the same post.
type Stats struct {
	Tagged           int `json:"tagged"`
	TaggedClassifier int `json:"tagged_classifier"`
	Untagged         int `json:"untagged"`
	Skipped          int `json:"skipped"`
}

func (s *Stats) Add(other Stats) {
	s.Tagged += other.Tagged
	s.TaggedClassifier += other.TaggedClassifier
	s.Untagged += other.Untagged
	s.Skipped += other.Skipped
}

func (s Stats) Processed() int {
	return s.Tagged + s.TaggedClassifier + s.Untagged + s.Skipped
}

// AtomicStats accumulates counters across concurrent runs, used by the serve
// mode to expose process-lifetime totals.
type AtomicStats struct {
	tagged           atomic.Int64
	taggedClassifier atomic.Int64
	untagged         atomic.Int64
	skipped          atomic.Int64
}

func (a *AtomicStats) Add(s Stats) {
	a.tagged.Add(int64(s.Tagged))
	a.taggedClassifier.Add(int64(s.TaggedClassifier))
	a.untagged.Add(int64(s.Untagged))
	a.skipped.Add(int64(s.Skipped))
}

func (a *AtomicStats) Snapshot() Stats {
	return Stats{
		Tagged:           int(a.tagged.Load()),
		TaggedClassifier: int(a.taggedClassifier.Load()),
		Untagged:         int(a.untagged.Load()),
		Skipped:          int(a.skipped.Load()),
	}
}
