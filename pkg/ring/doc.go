// Package ring implements the fixed-capacity circular byte store used by both
// directions of a bulk channel.
//
// A [Buffer] owns a backing slice supplied at construction and never resizes
// it. Read and write cursors live in [0, Cap()). Full and empty states are
// told apart by an explicit full flag rather than a sacrificed slot, so
//
//	b.Len() + b.Free() == b.Cap()
//
// holds after every operation.
//
// # Copy access
//
// [Buffer.Write] and [Buffer.Read] copy in and out, wrapping at the physical
// end of the store. Partial transfers are normal: both return the number of
// bytes actually moved.
//
// # Direct access
//
// [Buffer.WriteRegion] and [Buffer.ReadRegion] lend a contiguous [Region] of
// the store for in-place access. A region never crosses the physical end, so
// a caller that needs the wrapped remainder asks again after committing.
// [Buffer.CommitWrite] and [Buffer.CommitRead] advance the cursor by at most
// the granted length. Committing more than was granted is a programming
// error: builds tagged "debug" panic, other builds clamp to the grant and log
// a warning.
//
//	r := b.WriteRegion(16)
//	n := copy(r.Data, src)
//	b.CommitWrite(n)
//
// Buffer performs no locking. Every cursor is owned by a single execution
// context (the channel's event context).
package ring
