package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/repo"
)

var _ repo.RunStore = (*Store)(nil)

// timestamps are unix nanoseconds (UTC)
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    variant     TEXT NOT NULL,
    status      TEXT NOT NULL,
    total       INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    finished_at INTEGER
);
CREATE TABLE IF NOT EXISTS results (
    run_id         TEXT NOT NULL REFERENCES runs(id),
    idx            INTEGER NOT NULL,
    domain         TEXT NOT NULL,
    final_url      TEXT NOT NULL DEFAULT '',
    status_code    INTEGER NOT NULL DEFAULT 0,
    artifact_path  TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    classification TEXT NOT NULL,
    scheme         TEXT NOT NULL DEFAULT '',
    attempts       INTEGER NOT NULL DEFAULT 0,
    detail         TEXT NOT NULL DEFAULT '',
    duration_ns    INTEGER NOT NULL DEFAULT 0,
    checked_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id, idx);
`

// Store keeps run history in a local SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// the aggregator is the only writer; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateRun(ctx context.Context, r *domain.Run) error {
	if r.ID == "" {
		r.ID = domain.RunID(uuid.NewString())
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = domain.RunRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, variant, status, total, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(r.ID), string(r.Variant), string(r.Status), r.Total, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, id domain.RunID, status domain.RunStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), at.UnixNano(), string(id),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return repo.ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, variant, status, total, created_at, finished_at FROM runs WHERE id = ?`, string(id))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repo.ErrRunNotFound
	}
	return r, err
}

func (s *Store) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant, status, total, created_at, finished_at
		   FROM runs
		  ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AppendResult(ctx context.Context, id domain.RunID, r *domain.ProbeResult) error {
	checked := r.CheckedAt
	if checked.IsZero() {
		checked = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (run_id, idx, domain, final_url, status_code, artifact_path, title,
		                      classification, scheme, attempts, detail, duration_ns, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(id), r.Index, r.Domain, r.FinalURL, r.Artifact.StatusCode, r.Artifact.Path, r.Artifact.Title,
		r.Classification.String(), string(r.Scheme), r.Attempts, r.Detail, int64(r.Duration), checked.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) Results(ctx context.Context, id domain.RunID) ([]domain.ProbeResult, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, domain, final_url, status_code, artifact_path, title,
		        classification, scheme, attempts, detail, duration_ns, checked_at
		   FROM results
		  WHERE run_id = ?
		  ORDER BY idx ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.ProbeResult
	for rows.Next() {
		var (
			r         domain.ProbeResult
			class     string
			scheme    string
			durNanos  int64
			checkedAt int64
		)
		if err := rows.Scan(&r.Index, &r.Domain, &r.FinalURL, &r.Artifact.StatusCode, &r.Artifact.Path,
			&r.Artifact.Title, &class, &scheme, &r.Attempts, &r.Detail, &durNanos, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Classification = domain.ParseClassification(class)
		r.Scheme = domain.Scheme(scheme)
		r.Duration = time.Duration(durNanos)
		r.CheckedAt = time.Unix(0, checkedAt).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var (
		id, variant, status string
		total               int
		created             int64
		finished            sql.NullInt64
	)
	if err := sc.Scan(&id, &variant, &status, &total, &created, &finished); err != nil {
		return nil, err
	}
	r := &domain.Run{
		ID:        domain.RunID(id),
		Variant:   domain.Variant(variant),
		Status:    domain.RunStatus(status),
		Total:     total,
		CreatedAt: time.Unix(0, created).UTC(),
	}
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		r.FinishedAt = &t
	}
	return r, nil
}
