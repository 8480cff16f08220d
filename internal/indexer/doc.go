// Package indexer keeps the record store in step with the library on disk.
//
// Duplicate detection trusts the records table, so a photo deleted from a
// library folder by hand would otherwise keep matching new uploads. The
// indexer walks every registered folder's records and:
//   - prunes records whose original file no longer exists, along with any
//     derivative left in .frameready/
//   - counts records whose frame-ready derivative is missing
//
// A folder whose directory cannot be reached (an unmounted NFS share, for
// example) is skipped entirely rather than emptied.
//
// The indexer runs once at startup, then on a fixed interval, and on demand
// via TriggerIndex. Only one pass runs at a time.
package indexer
