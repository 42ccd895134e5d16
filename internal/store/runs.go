package store

import (
	"database/sql"
	"fmt"
)

// InsertRun records a finished run and its per-feature summary. run.ID is
// set to the new row ID.
func (s *Store) InsertRun(run *Run, features []*RunFeature) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("insert run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, root, status, file_count, unsupported_count, report_path, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.Root, run.Status, run.FileCount, run.UnsupportedCount, run.ReportPath, run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, f := range features {
		if _, err := tx.Exec(
			"INSERT INTO run_features (run_id, feature_id, title, supported, occurrences) VALUES (?, ?, ?, ?, ?)",
			id, f.FeatureID, f.Title, f.Supported, f.Occurrences,
		); err != nil {
			return 0, fmt.Errorf("insert run feature %q: %w", f.FeatureID, err)
		}
		f.RunID = id
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert run: commit: %w", err)
	}
	run.ID = id
	return id, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := `SELECT id, started_at, root, status, file_count, unsupported_count, report_path, error
	          FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var root, reportPath, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &root, &r.Status, &r.FileCount, &r.UnsupportedCount, &reportPath, &errMsg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Root = root.String
		r.ReportPath = reportPath.String
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFeatures returns the feature summary of a run.
func (s *Store) RunFeatures(runID int64) ([]*RunFeature, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, feature_id, title, supported, occurrences FROM run_features WHERE run_id = ? ORDER BY id", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run features: %w", err)
	}
	defer rows.Close()

	var out []*RunFeature
	for rows.Next() {
		f := &RunFeature{}
		var title sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.FeatureID, &title, &f.Supported, &f.Occurrences); err != nil {
			return nil, fmt.Errorf("scan run feature: %w", err)
		}
		f.Title = title.String
		out = append(out, f)
	}
	return out, rows.Err()
}
