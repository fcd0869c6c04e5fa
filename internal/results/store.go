// Package results persists the scorecards of finished sessions.
package results

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"minigolf/server/internal/sim"
)

// Store is a sqlite-backed session result archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping results db: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			phase TEXT NOT NULL,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS course_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			course_id TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);`,
		`CREATE TABLE IF NOT EXISTS hole_scores (
			result_id INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			hole_number INTEGER NOT NULL,
			strokes INTEGER NOT NULL,
			FOREIGN KEY(result_id) REFERENCES course_results(id)
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create results schema: %w", err)
		}
	}
	return nil
}

// RecordSession archives a terminal session's scorecards. Re-recording the
// same session id is rejected by the primary key.
func (s *Store) RecordSession(ctx context.Context, sessionID string, phase sim.Phase, courses []sim.CourseResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin results tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (session_id, phase) VALUES (?, ?)", sessionID, string(phase)); err != nil {
		return fmt.Errorf("insert session %s: %w", sessionID, err)
	}
	for position, result := range courses {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO course_results (session_id, position, course_id) VALUES (?, ?, ?)",
			sessionID, position, result.CourseID)
		if err != nil {
			return fmt.Errorf("insert course result: %w", err)
		}
		resultID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("course result id: %w", err)
		}
		for playerID, holes := range result.Strokes {
			for holeNumber, strokes := range holes {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO hole_scores (result_id, player_id, hole_number, strokes) VALUES (?, ?, ?, ?)",
					resultID, playerID, holeNumber, strokes); err != nil {
					return fmt.Errorf("insert hole score: %w", err)
				}
			}
		}
	}
	return tx.Commit()
}

// SessionResults reads back the archived scorecards of one session, in
// course play order.
func (s *Store) SessionResults(ctx context.Context, sessionID string) ([]sim.CourseResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, course_id FROM course_results WHERE session_id = ? ORDER BY position", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query course results: %w", err)
	}
	defer rows.Close()

	var results []sim.CourseResult
	var resultIDs []int64
	for rows.Next() {
		var id int64
		var courseID string
		if err := rows.Scan(&id, &courseID); err != nil {
			return nil, fmt.Errorf("scan course result: %w", err)
		}
		resultIDs = append(resultIDs, id)
		results = append(results, sim.CourseResult{CourseID: courseID, Strokes: make(map[string][]int)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, resultID := range resultIDs {
		if err := s.loadScores(ctx, resultID, results[i].Strokes); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *Store) loadScores(ctx context.Context, resultID int64, into map[string][]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT player_id, strokes FROM hole_scores WHERE result_id = ? ORDER BY player_id, hole_number", resultID)
	if err != nil {
		return fmt.Errorf("query hole scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var playerID string
		var strokes int
		if err := rows.Scan(&playerID, &strokes); err != nil {
			return fmt.Errorf("scan hole score: %w", err)
		}
		into[playerID] = append(into[playerID], strokes)
	}
	return rows.Err()
}

// SessionPhase reports the archived terminal phase of a session.
func (s *Store) SessionPhase(ctx context.Context, sessionID string) (sim.Phase, error) {
	var phase string
	err := s.db.QueryRowContext(ctx,
		"SELECT phase FROM sessions WHERE session_id = ?", sessionID).Scan(&phase)
	if err != nil {
		return "", err
	}
	return sim.Phase(phase), nil
}
