package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// AddFolder registers path as a library folder and returns it. Registering
// an existing path returns the existing folder.
func (d *Database) AddFolder(ctx context.Context, path string) (folder *Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("add_folder", start, err) }()

	if path == "" {
		return nil, fmt.Errorf("folder path is empty")
	}
	path = filepath.Clean(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err = d.db.ExecContext(ctx,
		"INSERT INTO folders (path) VALUES (?) ON CONFLICT(path) DO NOTHING", path); err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}

	folder, err = scanFolder(d.db.QueryRowContext(ctx,
		"SELECT id, path, created_at FROM folders WHERE path = ?", path))
	return folder, err
}

// GetFolder returns the folder with the given id, or ErrNotFound.
func (d *Database) GetFolder(ctx context.Context, id int64) (folder *Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("get_folder", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	folder, err = scanFolder(d.db.QueryRowContext(ctx,
		"SELECT id, path, created_at FROM folders WHERE id = ?", id))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	return folder, err
}

// ListFolders returns every registered folder ordered by path.
func (d *Database) ListFolders(ctx context.Context) (folders []Folder, err error) {
	start := time.Now()
	defer func() { recordQuery("list_folders", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, path, created_at FROM folders ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders = []Folder{}
	for rows.Next() {
		var f Folder
		var created int64
		if err = rows.Scan(&f.ID, &f.Path, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(created, 0)
		folders = append(folders, f)
	}
	err = rows.Err()
	return folders, err
}

func scanFolder(row *sql.Row) (*Folder, error) {
	var f Folder
	var created int64
	err := row.Scan(&f.ID, &f.Path, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f.CreatedAt = time.Unix(created, 0)
	return &f, nil
}
