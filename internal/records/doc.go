// Package records keeps the client's local view of sensor-log records.
//
// # Overview
//
// Records arrive page by page from fadeapi.Client.GetRecords. The Cache
// accumulates them into one list that is:
//
//   - sorted ascending by parsed timestamp
//   - free of duplicate timestamp strings (first seen wins)
//   - never evicted, only emptied by Clear
//
// Identity is the exact timestamp string. "2024-01-01T00:00:00Z" and
// "2024-01-01T00:00:00+00:00" are the same instant but distinct records.
//
// # Incremental Fetching
//
// NextCursor returns the newest cached instant plus one microsecond, used as
// the since parameter of the next fetch:
//
//	cursor, ok := cache.NextCursor()
//	query := fadeapi.RecordQuery{Limit: 50}
//	if ok {
//		query.Since = cursor
//	}
//	batch, err := client.GetRecords(ctx, query)
//	if err != nil {
//		return err
//	}
//	cache.Merge(batch)
//
// The one-microsecond step assumes the server stores timestamps at
// microsecond resolution or coarser.
//
// # Concurrency
//
// Cache methods take an internal RWMutex, so merges from background tasks
// are serialized and readers always see a sorted, deduplicated list.
// Records returns deep copies.
package records
