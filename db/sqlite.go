package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
    CREATE TABLE IF NOT EXISTS training_runs (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL,
        model_type VARCHAR(50) NOT NULL,
        target_column TEXT NOT NULL,
        row_count INTEGER NOT NULL,
        feature_count INTEGER NOT NULL,
        test_size REAL NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1_score REAL,
        train_accuracy REAL,
        duration_ms INTEGER,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_created ON training_runs(created_at);
    CREATE TABLE IF NOT EXISTS prediction_batches (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        model_type VARCHAR(50) NOT NULL,
        row_count INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    `

// Store persists training runs and prediction batches in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the database file and schema when missing.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema failed: %w", err)
	}
	logger.Info("database ready", zap.String("path", path))
	return &Store{db: database, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type TrainingRun struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	ModelType     string        `json:"model_type"`
	TargetColumn  string        `json:"target_column"`
	Rows          int           `json:"rows"`
	Features      int           `json:"features"`
	TestSize      float64       `json:"test_size"`
	Accuracy      float64       `json:"accuracy"`
	Precision     float64       `json:"precision"`
	Recall        float64       `json:"recall"`
	F1Score       float64       `json:"f1_score"`
	TrainAccuracy float64       `json:"train_accuracy"`
	Duration      time.Duration `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
}

// MarshalJSON reports Duration in milliseconds.
func (r TrainingRun) MarshalJSON() ([]byte, error) {
	type alias TrainingRun
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"duration_ms"`
	}{alias(r), r.Duration.Milliseconds()})
}

// SaveTrainingRun inserts run, assigning an id and timestamp when unset.
func (s *Store) SaveTrainingRun(ctx context.Context, run *TrainingRun) error {
	if run == nil {
		return errors.New("training run required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_runs (
            id, session_id, model_type, target_column, row_count, feature_count, test_size,
            accuracy, precision, recall, f1_score, train_accuracy, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.ModelType, run.TargetColumn, run.Rows, run.Features, run.TestSize,
		run.Accuracy, run.Precision, run.Recall, run.F1Score, run.TrainAccuracy,
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	return nil
}

// ListTrainingRuns returns the most recent runs first.
func (s *Store) ListTrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, model_type, target_column, row_count, feature_count, test_size,
               accuracy, precision, recall, f1_score, train_accuracy, duration_ms, created_at
        FROM training_runs
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.SessionID, &run.ModelType, &run.TargetColumn, &run.Rows,
			&run.Features, &run.TestSize, &run.Accuracy, &run.Precision, &run.Recall, &run.F1Score,
			&run.TrainAccuracy, &durationMS, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SavePredictionBatch records that a session predicted n rows.
func (s *Store) SavePredictionBatch(ctx context.Context, sessionID, modelType string, n int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO prediction_batches (session_id, model_type, row_count, created_at)
        VALUES (?, ?, ?, ?)`, sessionID, modelType, n, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save prediction batch: %w", err)
	}
	return nil
}

// CountPredictions returns the total rows predicted by a session.
func (s *Store) CountPredictions(ctx context.Context, sessionID string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
        SELECT SUM(row_count) FROM prediction_batches WHERE session_id = ?`, sessionID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
