// Package storage persists track-vertex scoring results to SQLite so
// runs with different tunings can be compared offline.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hepflow/vertexing/internal/vertexing"
)

const schema = `
	CREATE TABLE IF NOT EXISTS vertex_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		vtx_x REAL NOT NULL,
		vtx_y REAL NOT NULL,
		vtx_z REAL NOT NULL,
		distance REAL NOT NULL,
		compatibility REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vertex_scores_run ON vertex_scores(run_id);
`

// Score is one persisted track-vertex score row.
type Score struct {
	RunID         string
	TrackID       string
	Vertex        r3.Vec
	Distance      float64
	Compatibility float64
}

// ScoreStore persists scoring runs. The caller owns the database
// handle; the store never closes it.
type ScoreStore struct {
	db *sql.DB
}

// NewScoreStore prepares the schema on db and returns a store.
func NewScoreStore(db *sql.DB) (*ScoreStore, error) {
	// Avoid transient lock errors when used from short-lived CLIs.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		return nil, fmt.Errorf("score store: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("score store: create schema: %w", err)
	}
	return &ScoreStore{db: db}, nil
}

// SaveRun writes the scored pool for one vertex candidate under runID.
func (s *ScoreStore) SaveRun(runID string, vtx r3.Vec, scored []vertexing.TrackAtVertex) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("score store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO vertex_scores
		(run_id, track_id, vtx_x, vtx_y, vtx_z, distance, compatibility, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("score store: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, tav := range scored {
		if _, err := stmt.Exec(runID, tav.ID, vtx.X, vtx.Y, vtx.Z, tav.Distance, tav.Compatibility, now); err != nil {
			return fmt.Errorf("score store: insert track %s: %w", tav.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRun returns the persisted scores for runID in insertion order.
func (s *ScoreStore) LoadRun(runID string) ([]Score, error) {
	rows, err := s.db.Query(`SELECT track_id, vtx_x, vtx_y, vtx_z, distance, compatibility
		FROM vertex_scores WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("score store: query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		sc := Score{RunID: runID}
		if err := rows.Scan(&sc.TrackID, &sc.Vertex.X, &sc.Vertex.Y, &sc.Vertex.Z, &sc.Distance, &sc.Compatibility); err != nil {
			return nil, fmt.Errorf("score store: scan: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ListRuns returns the distinct run IDs, most recent first.
func (s *ScoreStore) ListRuns() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM vertex_scores
		GROUP BY run_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("score store: list runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("score store: scan run id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
