package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	query TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0,
	tagged INTEGER NOT NULL DEFAULT 0,
	tagged_classifier INTEGER NOT NULL DEFAULT 0,
	untagged INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS post_results (
	run_id TEXT NOT NULL,
	post_id INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	processed_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, post_id)
);
CREATE INDEX IF NOT EXISTS idx_post_results_post ON post_results(post_id);
`

const (
	OutcomeTagged           = "tagged"
	OutcomeTaggedClassifier = "tagged_classifier"
	OutcomeUntagged         = "untagged"
	OutcomeSkipped          = "skipped"
)

type Run struct {
	ID               string `json:"id" db:"id"`
	Mode             string `json:"mode" db:"mode"`
	Query            string `json:"query" db:"query"`
	StartedAt        int64  `json:"started_at" db:"started_at"`
	FinishedAt       int64  `json:"finished_at" db:"finished_at"`
	Tagged           int    `json:"tagged" db:"tagged"`
	TaggedClassifier int    `json:"tagged_classifier" db:"tagged_classifier"`
	Untagged         int    `json:"untagged" db:"untagged"`
	Skipped          int    `json:"skipped" db:"skipped"`
}

// Store keeps per-run outcomes so later runs can skip already processed
// posts instead of burning search quota on them.
type Store struct {
	db *sqlx.DB
}

func Open(path string) (*Store, error) {
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := raw.Ping(); err != nil {
		raw.Close()
		return nil, err
	}
	if _, err := raw.Exec(schema); err != nil {
		raw.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: sqlx.NewDb(raw, "sqlite")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) StartRun(ctx context.Context, mode string, query string) (string, error) {
	id := uuid.NewString()
	data := map[string]interface{}{
		"id":         id,
		"mode":       mode,
		"query":      query,
		"started_at": time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("runs", []map[string]interface{}{data})
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) FinishRun(ctx context.Context, runID string, stats model.Stats) error {
	where := map[string]interface{}{"id": runID}
	update := map[string]interface{}{
		"finished_at":       time.Now().Unix(),
		"tagged":            stats.Tagged,
		"tagged_classifier": stats.TaggedClassifier,
		"untagged":          stats.Untagged,
		"skipped":           stats.Skipped,
	}
	sqlStr, args, err := builder.BuildUpdate("runs", where, update)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// RecordPost stores the outcome for one post of a run. Recording the same
// post twice within a run returns ErrConflict.
func (s *Store) RecordPost(ctx context.Context, runID string, postID int, outcome string) error {
	data := map[string]interface{}{
		"run_id":       runID,
		"post_id":      postID,
		"outcome":      outcome,
		"processed_at": time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("post_results", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		var sqlErr *sqlite.Error
		if errors.As(err, &sqlErr) {
			switch sqlErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				return errs.ErrConflict
			}
		}
		return err
	}
	return nil
}

func (s *Store) IsPostProcessed(ctx context.Context, postID int) (bool, error) {
	where := map[string]interface{}{
		"post_id": postID,
		"_limit":  []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("post_results", where, []string{"post_id"})
	if err != nil {
		return false, err
	}
	var got int
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&got); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	where := map[string]interface{}{
		"_orderby": "started_at desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("runs", where, []string{
		"id", "mode", "query", "started_at", "finished_at",
		"tagged", "tagged_classifier", "untagged", "skipped",
	})
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		if err := rows.StructScan(&run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
