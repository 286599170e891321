// Package txlog implements a durable, totally-ordered append log on top of a
// conditional-write table.
//
// # Overview
//
// One physical table holds any number of logical partitions. Within a
// partition every committed entry carries a positive sequence number that is
// unique, gap-free and strictly increasing; the sequence is the log's total
// order. Sort key 0 is reserved for the partition's pointer row, which tracks
// the last assigned sequence so allocation is a single point read regardless
// of log length.
//
// Allocation is optimistic: read the pointer, propose last+1, then commit the
// new entry and the advanced pointer in one conditional two-item transaction.
// The entry put is guarded by row absence, the pointer put by compare-and-
// swap on its previous value, so two writers racing for the same sequence
// conflict at the store and the loser re-reads and retries. No in-process
// locking is involved; independent processes coordinate purely through the
// store's conditional writes.
//
// API surface
//
//	l, _ := txlog.Open(txlog.Options{Store: st, Partition: "default"})
//
//	// Queue an append; nothing runs until the submission is forced.
//	sub := l.Submit(ctx, payload)
//	res, err := sub.Force(ctx) // commits exactly once, result memoized
//
//	// Tail entries after a watermark.
//	cur := l.Tail(0)
//	defer cur.Close()
//	for {
//		e, ok := cur.Next(ctx)
//		if !ok {
//			break
//		}
//		_ = e
//	}
//
//	last, ok, _ := l.LatestSequence(ctx)
//	_ = l.Status(ctx)
//
// Tailing is finite per call: an exhausted cursor is reopened with the last
// consumed sequence as the new watermark, so continuous tailing is a caller
// polling loop. Transient query failures end the stream silently; Cursor.Err
// distinguishes an abnormal stop from natural exhaustion so the caller can
// log it before reopening.
package txlog
