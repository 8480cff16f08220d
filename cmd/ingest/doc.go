// Command ingest imports local images into a FrameFolio library folder
// without going through the HTTP server.
//
// It runs the same pipeline as uploads: files are staged, fingerprinted,
// checked for duplicates and classified, and accepted images are moved into
// the folder with a frame-ready derivative in <folder>/.frameready/.
//
// Usage:
//
//	ingest -folder /library/holiday ~/Pictures/holiday
//
// Directories are walked recursively. Hidden directories and existing
// .frameready folders are skipped, as are files with unsupported extensions.
//
// Files that would wait for a decision in the web UI are resolved by policy:
//
//	-on-duplicate    skip (default), overwrite or import_anyway
//	-on-positioning  skip (default) or center, which crops the largest
//	                 centred 16:9 region
//
// The record store defaults to $DATABASE_DIR/framefolio.db and can be shared
// with a stopped server. Running both against the same folder at once is not
// supported.
//
// The exit status is 1 when any file failed.
package main
