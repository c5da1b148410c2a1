package campaign

import "sync"

// Stats are the running campaign counters. processed == approved + rejected
// + errors holds after every record call; processed == total once the run
// drains.
type Stats struct {
	Total     int `json:"total_clients"`
	Processed int `json:"processed"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
}

// aggregator is the single piece of shared mutable state in a run. Every
// mutation happens under one lock and the critical section only increments
// counters and appends, never does I/O.
type aggregator struct {
	mu      sync.Mutex
	stats   Stats
	results []*Result // completion order
}

func newAggregator(total int) *aggregator {
	return &aggregator{stats: Stats{Total: total}}
}

// record folds one finished client into the counters and returns a snapshot
// of the stats after the update.
func (a *aggregator) record(r *Result) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	approved, rejected, failed := r.counted()
	switch {
	case approved:
		a.stats.Approved++
	case rejected:
		a.stats.Rejected++
	case failed:
		a.stats.Errors++
	}
	a.stats.Processed++
	a.results = append(a.results, r)

	return a.stats
}

// snapshot returns the final stats and the results in completion order.
func (a *aggregator) snapshot() (Stats, []*Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([]*Result, len(a.results))
	copy(results, a.results)
	return a.stats, results
}
