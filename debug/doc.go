// Package debug records finished query instances for inspection.
//
// A Debugger keeps, per owner, the most recent snapshots of queries that ran
// with debug capture enabled. Each Snapshot carries one Step per completed
// stage (generator, tests, final selection) with item scores, the set of
// discarded items as a roaring bitmap and the item payload buffer
// compressed with LZ4 or ZSTD.
//
//	d := debug.New(debug.WithCompression(debug.CompressionZSTD), debug.WithHistoryLimit(5))
//	snap, err := d.Store(qi)
//	recent := d.QueriesForOwner(owner, 3)
//	raw, err := recent[0].Steps[0].Payload()
//
// Rendering and persisting debug data is left to the host.
package debug
