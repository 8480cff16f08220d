package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
)

const imageColumns = "id, path, folder_id, fingerprint, derivative_path, date_added"

// InsertRecord stores a new image and returns its id. Inserting a path that
// already has a record returns the existing id, with the record refreshed to
// describe the new file.
func (d *Database) InsertRecord(ctx context.Context, path string, folderID int64, fingerprint string) (id int64, err error) {
	start := time.Now()
	defer func() { recordQuery("insert_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO images (path, folder_id, fingerprint) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				folder_id = excluded.folder_id,
				fingerprint = excluded.fingerprint,
				derivative_path = '',
				date_added = strftime('%s', 'now')
		`, path, folderID, fingerprint); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT id FROM images WHERE path = ?", path).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("insert record %s: %w", path, err)
	}
	return id, nil
}

// DeleteRecord removes the record and deletes its image file and derivative.
// Deleting a missing record is not an error.
func (d *Database) DeleteRecord(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var path, derivative string
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT path, derivative_path FROM images WHERE id = ?", id).
			Scan(&path, &derivative)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM images WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}

	if path != "" {
		logging.Debug("Deleted record %d, removing %s", id, path)
		filesystem.RemoveQuietly(path)
		filesystem.RemoveQuietly(derivative)
	}
	return nil
}

// FindByFingerprint returns the oldest record with the given fingerprint, or
// nil and no error when there is none.
func (d *Database) FindByFingerprint(ctx context.Context, fingerprint string) (rec *ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("find_by_fingerprint", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err = scanImage(d.db.QueryRowContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE fingerprint = ? ORDER BY id LIMIT 1", fingerprint))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// GetRecord returns the record with the given id, or ErrNotFound.
func (d *Database) GetRecord(ctx context.Context, id int64) (rec *ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("get_record", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rec, err = scanImage(d.db.QueryRowContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE id = ?", id))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
	}
	return rec, err
}

// UpdateRecordPath points record id at a new file path.
func (d *Database) UpdateRecordPath(ctx context.Context, id int64, path string) (err error) {
	start := time.Now()
	defer func() { recordQuery("update_record_path", start, err) }()
	return d.updateImage(ctx, id, "UPDATE images SET path = ? WHERE id = ?", path)
}

// SetDerivativePath records where the frame-ready derivative of id was written.
func (d *Database) SetDerivativePath(ctx context.Context, id int64, path string) (err error) {
	start := time.Now()
	defer func() { recordQuery("set_derivative_path", start, err) }()
	return d.updateImage(ctx, id, "UPDATE images SET derivative_path = ? WHERE id = ?", path)
}

func (d *Database) updateImage(ctx context.Context, id int64, query, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update image %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("image %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountImages returns the number of image records.
func (d *Database) CountImages(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_images", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n)
	return n, err
}

// ListRecords returns the records filed into folderID, oldest first.
func (d *Database) ListRecords(ctx context.Context, folderID int64) (recs []ImageRecord, err error) {
	start := time.Now()
	defer func() { recordQuery("list_records", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+imageColumns+" FROM images WHERE folder_id = ? ORDER BY id", folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec ImageRecord
		var added int64
		if err = rows.Scan(&rec.ID, &rec.Path, &rec.FolderID, &rec.Fingerprint, &rec.DerivativePath, &added); err != nil {
			return nil, err
		}
		rec.DateAdded = time.Unix(added, 0)
		recs = append(recs, rec)
	}
	err = rows.Err()
	return recs, err
}

func scanImage(row *sql.Row) (*ImageRecord, error) {
	var rec ImageRecord
	var added int64
	err := row.Scan(&rec.ID, &rec.Path, &rec.FolderID, &rec.Fingerprint, &rec.DerivativePath, &added)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.DateAdded = time.Unix(added, 0)
	return &rec, nil
}
