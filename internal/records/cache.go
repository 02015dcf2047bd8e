package records

import (
	"slices"
	"sync"
	"time"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

// MergeResult summarizes one Merge call.
type MergeResult struct {
	Added      int
	Duplicates int
	Invalid    int
}

type entry struct {
	record fadeapi.Record
	at     time.Time
}

// Cache is the deduplicated, time-ordered set of records fetched so far.
// The zero value is ready to use.
type Cache struct {
	mu      sync.RWMutex
	entries []entry
	seen    map[string]struct{}
	version uint64
}

// Merge adds records whose timestamp string is not yet cached. The first
// record seen for a timestamp is kept. Records with unparseable timestamps
// are dropped.
func (c *Cache) Merge(batch []fadeapi.Record) MergeResult {
	var res MergeResult
	if len(batch) == 0 {
		return res
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}

	incoming := make([]entry, 0, len(batch))
	for _, rec := range batch {
		if _, dup := c.seen[rec.Timestamp]; dup {
			res.Duplicates++
			continue
		}
		at, err := ParseTimestamp(rec.Timestamp)
		if err != nil {
			res.Invalid++
			continue
		}
		c.seen[rec.Timestamp] = struct{}{}
		incoming = append(incoming, entry{record: cloneRecord(rec), at: at})
	}
	if len(incoming) == 0 {
		return res
	}
	res.Added = len(incoming)

	slices.SortStableFunc(incoming, func(a, b entry) int { return a.at.Compare(b.at) })
	c.entries = mergeSorted(c.entries, incoming)
	c.version++
	return res
}

// mergeSorted merges two ascending slices; on equal instants existing entries
// stay ahead of incoming ones.
func mergeSorted(existing, incoming []entry) []entry {
	if len(existing) == 0 {
		return incoming
	}
	out := make([]entry, 0, len(existing)+len(incoming))
	i, j := 0, 0
	for i < len(existing) && j < len(incoming) {
		if incoming[j].at.Before(existing[i].at) {
			out = append(out, incoming[j])
			j++
		} else {
			out = append(out, existing[i])
			i++
		}
	}
	out = append(out, existing[i:]...)
	return append(out, incoming[j:]...)
}

// NextCursor returns the lower bound for the next incremental fetch: the
// newest cached instant plus one microsecond. ok is false when the cache is
// empty.
func (c *Cache) NextCursor() (cursor string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return "", false
	}
	latest := c.entries[len(c.entries)-1].at
	return FormatISO(latest.Truncate(time.Microsecond).Add(time.Microsecond)), true
}

// Latest returns the newest cached record.
func (c *Cache) Latest() (fadeapi.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return fadeapi.Record{}, false
	}
	return cloneRecord(c.entries[len(c.entries)-1].record), true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.seen = nil
	c.version++
}

// Records returns a copy of the cached records in ascending order.
func (c *Cache) Records() []fadeapi.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]fadeapi.Record, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneRecord(e.record)
	}
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Version increases on every change to the contents.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Width returns the largest number of sensor values of any cached record.
func (c *Cache) Width() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	width := 0
	for _, e := range c.entries {
		width = max(width, len(e.record.SensorValues))
	}
	return width
}

func cloneRecord(r fadeapi.Record) fadeapi.Record {
	if r.SensorValues == nil {
		return r
	}
	values := make([]*float64, len(r.SensorValues))
	for i, v := range r.SensorValues {
		if v != nil {
			f := *v
			values[i] = &f
		}
	}
	r.SensorValues = values
	return r
}
