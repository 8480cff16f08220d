// Package logging provides a simple leveled logging interface for the
// FrameFolio ingest service and its command-line importer.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-file pipeline steps)
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level comes from DEBUG or LOG_LEVEL and can be overridden with SetLevel.
package logging
