// Package database is the SQLite record store for FrameFolio.
//
// It holds two tables:
//   - folders: library destinations uploads are filed into
//   - images: finalized library images with their content fingerprint and
//     the path of their frame-ready derivative
//
// The database runs in WAL mode. Schema creation and migrations run in New.
// Inserting an image whose path already has a record is idempotent and
// returns the existing id; DeleteRecord also removes the image file and its
// derivative from disk.
package database
