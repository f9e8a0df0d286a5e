// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gyro

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// Store archives tombstone runs in a sqlite database so noise numbers
// can be compared across builds of a coil.
type Store struct {
	*sql.DB
}

// OpenStore opens (creating if needed) the run archive at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening run store %s", path)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			gyro TEXT,
			started TIMESTAMP,
			rate DOUBLE,
			scale_factor DOUBLE
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id INTEGER,
			idx INTEGER,
			volts DOUBLE,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "creating schema"), db.Close())
	}
	return &Store{db}, nil
}

// SaveRun archives a run and stamps its ID.
func (s *Store) SaveRun(run *Run) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	res, err := tx.Exec(
		"INSERT INTO runs (gyro, started, rate, scale_factor) VALUES (?, ?, ?, ?)",
		run.Gyro, run.Start.UTC(), run.Rate, run.ScaleFactor)
	if err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	id, err := res.LastInsertId()
	if err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	stmt, err := tx.Prepare("INSERT INTO samples (run_id, idx, volts) VALUES (?, ?, ?)")
	if err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	defer stmt.Close()
	for i, v := range run.Volts {
		if _, err := stmt.Exec(id, i, v); err != nil {
			return multierr.Append(err, tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	run.ID = id
	return nil
}

// GetRun loads an archived run, samples included.
func (s *Store) GetRun(id int64) (*Run, error) {
	run := &Run{ID: id}
	var started time.Time
	err := s.QueryRow(
		"SELECT gyro, started, rate, scale_factor FROM runs WHERE run_id = ?", id).
		Scan(&run.Gyro, &started, &run.Rate, &run.ScaleFactor)
	if err != nil {
		return nil, errors.Wrapf(err, "loading run %d", id)
	}
	run.Start = started

	rows, err := s.Query("SELECT volts FROM samples WHERE run_id = ? ORDER BY idx", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		run.Volts = append(run.Volts, v)
	}
	return run, rows.Err()
}

// RunSummary is one row of the run archive listing.
type RunSummary struct {
	ID          int64
	Gyro        string
	Started     time.Time
	Rate        float64
	ScaleFactor float64
	Samples     int
}

// ListRuns returns all archived runs, newest first.
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.Query(`
		SELECT r.run_id, r.gyro, r.started, r.rate, r.scale_factor, COUNT(s.run_id)
		FROM runs r LEFT JOIN samples s ON s.run_id = r.run_id
		GROUP BY r.run_id ORDER BY r.started DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.Gyro, &rs.Started, &rs.Rate, &rs.ScaleFactor, &rs.Samples); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
