package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return newPostgresFromDB(db)
}

// newPostgresFromDB migrates db and takes ownership of it; db is closed if
// the migration fails.
func newPostgresFromDB(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the server and workers from migrating at once.
	const lockID = 476476476

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			total INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS answers (
			run_id UUID REFERENCES runs(id) ON DELETE CASCADE,
			ord INT NOT NULL,
			question TEXT NOT NULL,
			variants TEXT[] NOT NULL,
			candidates TEXT[] NOT NULL,
			final TEXT NOT NULL,
			PRIMARY KEY (run_id, ord)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, total int) (Run, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(id, status, total) VALUES($1,$2,$3)`,
		id, StatusProcessing, total)
	if err != nil {
		return Run{}, err
	}
	return Run{ID: id, Status: StatusProcessing, Total: total, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var run Run
	row := s.db.QueryRowContext(ctx, `SELECT id, status, total, created_at FROM runs WHERE id=$1`, id)
	if err := row.Scan(&run.ID, &run.Status, &run.Total, &run.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) SaveAnswers(ctx context.Context, runID uuid.UUID, answers []Answer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, a := range answers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO answers(run_id, ord, question, variants, candidates, final)
			VALUES($1,$2,$3,$4,$5,$6)
			ON CONFLICT (run_id, ord) DO UPDATE SET
				question=excluded.question,
				variants=excluded.variants,
				candidates=excluded.candidates,
				final=excluded.final`,
			runID, a.Index, a.Question, pq.Array(nonNil(a.Variants)), pq.Array(nonNil(a.Candidates)), a.Final)
		if err != nil {
			return fmt.Errorf("failed to save answer %d: %w", a.Index, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListAnswers(ctx context.Context, runID uuid.UUID) ([]Answer, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, question, variants, candidates, final
		FROM answers WHERE run_id=$1 ORDER BY ord`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		a := Answer{RunID: runID}
		if err := rows.Scan(&a.Index, &a.Question, pq.Array(&a.Variants), pq.Array(&a.Candidates), &a.Final); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
