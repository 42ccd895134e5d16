package store

import (
	"database/sql"
	"fmt"
)

// FileByPath returns the cached file record for path, or nil when absent.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var parseErr sql.NullString
	err := s.db.QueryRow(
		"SELECT id, path, language, hash, index_hash, parse_error, last_scanned FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.IndexHash, &parseErr, &f.LastScanned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	f.ParseError = parseErr.String
	return f, nil
}

// CachedDetections returns the cached file and its detections when the
// stored content hash and index hash both match. ok is false on a miss.
func (s *Store) CachedDetections(path, hash, indexHash string) (f *File, dets []*Detection, ok bool, err error) {
	f, err = s.FileByPath(path)
	if err != nil || f == nil {
		return nil, nil, false, err
	}
	if f.Hash != hash || f.IndexHash != indexHash {
		return nil, nil, false, nil
	}
	dets, err = s.DetectionsByFile(f.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return f, dets, true, nil
}

// DetectionsByFile returns the cached detections for a file in insertion
// order.
func (s *Store) DetectionsByFile(fileID int64) ([]*Detection, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, feature_id, keyword, line FROM detections WHERE file_id = ? ORDER BY id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("detections by file: %w", err)
	}
	defer rows.Close()
	var dets []*Detection
	for rows.Next() {
		d := &Detection{}
		if err := rows.Scan(&d.ID, &d.FileID, &d.FeatureID, &d.Keyword, &d.Line); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		dets = append(dets, d)
	}
	return dets, rows.Err()
}

// SaveFile replaces the cached record and detections for f.Path within a
// single transaction. f.ID is set to the new row ID.
func (s *Store) SaveFile(f *File, dets []*Detection) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save file: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", f.Path); err != nil {
		return fmt.Errorf("save file: delete %s: %w", f.Path, err)
	}

	var parseErr any
	if f.ParseError != "" {
		parseErr = f.ParseError
	}
	res, err := tx.Exec(
		"INSERT INTO files (path, language, hash, index_hash, parse_error, last_scanned) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.IndexHash, parseErr, f.LastScanned,
	)
	if err != nil {
		return fmt.Errorf("save file: insert %s: %w", f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save file: last insert id: %w", err)
	}
	f.ID = id

	stmt, err := tx.Prepare("INSERT INTO detections (file_id, feature_id, keyword, line) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("save file: prepare: %w", err)
	}
	defer stmt.Close()
	for _, d := range dets {
		if _, err := stmt.Exec(id, d.FeatureID, d.Keyword, d.Line); err != nil {
			return fmt.Errorf("save file: detection %q: %w", d.Keyword, err)
		}
		d.FileID = id
	}
	return tx.Commit()
}

// PruneFiles deletes cached files under prefix whose paths are not in keep.
// An empty prefix matches every file.
func (s *Store) PruneFiles(prefix string, keep []string) (int64, error) {
	query := "DELETE FROM files WHERE substr(path, 1, length(?)) = ?"
	args := []any{prefix, prefix}
	if len(keep) > 0 {
		query += " AND path NOT IN (" + placeholderList(len(keep)) + ")"
		args = append(args, stringsToArgs(keep)...)
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune files: %w", err)
	}
	return res.RowsAffected()
}
