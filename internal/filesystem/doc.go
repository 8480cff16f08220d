/*
Package filesystem provides resilient filesystem operations for the ingest
pipeline: stat, open and move with automatic retry on NFS stale file handle
errors.

# Purpose

Library folders are often NFS mounts. Moving a staged upload into its
permanent folder, checking whether a final name is free, and opening staged
bytes for hashing all go through this package so a transient ESTALE does
not fail a file.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	// Move a staged file into the library. Falls back to copy+rename when the
	// staging area and the library folder are on different devices.
	err := filesystem.Move(stagingPath, finalPath, filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms. Only ESTALE
triggers a retry; every other error is returned immediately.

# Metrics

Operations are reported through the Observer interface, implemented by the
metrics package and installed with SetObserver at startup. Paths are labeled
with a volume name via VolumeResolver; paths outside every configured volume
are labeled "library".
*/
package filesystem
