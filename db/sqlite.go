package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps cases and the training log in a local SQLite file, for
// running the server without AWS.
type SQLiteStore struct {
	database *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create directory for %s", path)
		}
	}
	// WAL lets the dashboard read while a prediction writes
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", path)
	}
	database.SetMaxOpenConns(10)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(time.Hour)

	query := `
    CREATE TABLE IF NOT EXISTS cases (
        id TEXT PRIMARY KEY,
        features TEXT NOT NULL,
        prediction TEXT NOT NULL,
        probability REAL DEFAULT 0,
        status TEXT NOT NULL,
        doctor_resolution TEXT,
        created_at TEXT
    );
    CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        model_name VARCHAR(100),
        accuracy REAL,
        precision REAL,
        recall REAL,
        evaluated_on VARCHAR(20),
        trained_at DATETIME,
        data_points INTEGER
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return &SQLiteStore{database: database}, nil
}

func (s *SQLiteStore) PutCase(ctx context.Context, c Case) error {
	_, err := s.database.ExecContext(ctx, `
        INSERT OR REPLACE INTO cases (id, features, prediction, probability, status, doctor_resolution, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Features, c.Prediction, c.Probability, c.Status, nullString(c.DoctorResolution), c.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "put case %s", c.ID)
	}
	return nil
}

func (s *SQLiteStore) ResolveCase(ctx context.Context, id, resolution string) error {
	result, err := s.database.ExecContext(ctx, `
        UPDATE cases SET doctor_resolution = ?, status = ? WHERE id = ?`,
		resolution, StatusResolved, id)
	if err != nil {
		return errors.Wrapf(err, "update case %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update case %s", id)
	}
	if affected == 0 {
		return errors.Wrapf(ErrCaseNotFound, "case %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, id string) (Case, error) {
	var c Case
	var resolution, createdAt sql.NullString
	err := s.database.QueryRowContext(ctx, `
        SELECT id, features, prediction, probability, status, doctor_resolution, created_at
        FROM cases WHERE id = ?`, id).
		Scan(&c.ID, &c.Features, &c.Prediction, &c.Probability, &c.Status, &resolution, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, errors.Wrapf(ErrCaseNotFound, "case %s", id)
	}
	if err != nil {
		return Case{}, errors.Wrapf(err, "get case %s", id)
	}
	c.DoctorResolution = resolution.String
	c.CreatedAt = createdAt.String
	return c, nil
}

func (s *SQLiteStore) Close() error {
	return s.database.Close()
}

type TrainingLog struct {
	ModelName   string    `json:"model_name"`
	Accuracy    float64   `json:"accuracy"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	EvaluatedOn string    `json:"evaluated_on"` // "training" or "holdout"
	TrainedAt   time.Time `json:"trained_at"`
	DataPoints  int       `json:"data_points"`
}

func (s *SQLiteStore) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO training_log (model_name, accuracy, precision, recall, evaluated_on, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Accuracy, entry.Precision, entry.Recall, entry.EvaluatedOn,
		entry.TrainedAt.UTC(), entry.DataPoints)
	return errors.Wrap(err, "save training log")
}

// LoadTrainingLog returns every training run, newest first.
func (s *SQLiteStore) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.database.QueryContext(ctx, `
        SELECT model_name, accuracy, precision, recall, evaluated_on, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, errors.Wrap(err, "query training log")
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Accuracy, &log.Precision, &log.Recall, &log.EvaluatedOn, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, errors.Wrap(err, "scan training log")
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
