/*
Package ingest runs uploaded images through the FrameFolio pipeline and
tracks each submission as a job.

# Pipeline

Submit stages every upload under a random name and returns a job id. A
background pass then takes each file through:

	received -> hashed -> duplicate_detected                       (awaits a decision)
	                   -> geometry_checked -> portrait_rejected
	                                       -> needs_positioning    (awaits a crop)
	                                       -> success

Any fault moves the file to failed and records "<filename>: <error>" on the
job. Statuses only move forward; terminal statuses never change.

Finalization inserts the record, writes the 3840x2160 derivative into the
folder's .frameready directory, then moves the staged file into place. A
failure at any step undoes the earlier ones.

# Decisions

ResolveDuplicate and ResolvePositioning run synchronously in the caller's
goroutine. Each file accepts one resolve at a time.

# Concurrency

Each job owns a mutex and publishes an immutable JobSnapshot after every
change, so Status never waits on a file being transformed. A tracker-wide
workers.Limiter bounds concurrent decoding, and finalization holds a per
folder lock while it picks a free name.
*/
package ingest
