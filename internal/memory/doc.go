// Package memory keeps the ingest pipeline inside its container memory limit.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT (bytes, usually from the
// Kubernetes Downward API) and MEMORY_RATIO. An explicit GOMEMLIMIT wins.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// [Monitor] samples heap usage. Once usage crosses PauseAt, ingest tasks block
// in [Monitor.WaitIfPaused] before decoding the next image, and continue when
// usage falls below ResumeAt.
package memory
