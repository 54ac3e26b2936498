package consumer

import "sync/atomic"

// Stats holds the running counters of the consume loop. Written only by the
// consumer worker; read through atomic loads so the health endpoint can
// snapshot them without tearing.
type Stats struct {
	received  atomic.Int64
	delivered atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// Snapshot is a consistent-enough point-in-time copy of the counters.
type Snapshot struct {
	Received  int64 `json:"received"`
	Delivered int64 `json:"delivered"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// Snapshot reads all counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Received:  s.received.Load(),
		Delivered: s.delivered.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
	}
}
