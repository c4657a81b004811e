package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/outreachbot/internal/models"
)

type Store struct{ db *sql.DB }

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS prospects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_url TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	job_title TEXT NOT NULL,
	location TEXT,
	company TEXT,
	search_source TEXT,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS connection_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_url TEXT NOT NULL,
	success INTEGER NOT NULL,
	message_sent TEXT,
	error_class TEXT,
	retry_count INTEGER DEFAULT 0,
	elapsed_ms INTEGER DEFAULT 0,
	used_fallback INTEGER DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS run_summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_type TEXT NOT NULL,
	prospects_found INTEGER DEFAULT 0,
	duplicates_found INTEGER DEFAULT 0,
	validation_errors INTEGER DEFAULT 0,
	total_prospects INTEGER DEFAULT 0,
	successful INTEGER DEFAULT 0,
	failed INTEGER DEFAULT 0,
	elapsed_ms INTEGER DEFAULT 0,
	created_at DATETIME NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// AppendProspects inserts prospects keyed by profile URL. Re-inserting a
// known URL is a no-op; the return values split the batch into newly stored
// rows and duplicates.
func (s *Store) AppendProspects(ctx context.Context, prospects []models.Prospect) (stored, duplicates int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()
	for _, p := range prospects {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO prospects
			(profile_url, name, job_title, location, company, search_source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ProfileURL, p.Name, p.JobTitle, p.Location, p.Company, p.SearchSource, created)
		if err != nil {
			return 0, 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stored++
		} else {
			duplicates++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return stored, duplicates, nil
}

// LoadProspectURLs returns every stored profile URL, for in-memory dedup
// during discovery.
func (s *Store) LoadProspectURLs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile_url FROM prospects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		seen[u] = true
	}
	return seen, rows.Err()
}

// LoadPendingProspects returns prospects with no successful connection
// result yet, oldest first.
func (s *Store) LoadPendingProspects(ctx context.Context, limit int) ([]models.Prospect, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, profile_url, name, job_title, location, company, search_source, created_at
		FROM prospects
		WHERE profile_url NOT IN (SELECT profile_url FROM connection_results WHERE success = 1)
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Prospect
	for rows.Next() {
		var p models.Prospect
		if err := rows.Scan(&p.ID, &p.ProfileURL, &p.Name, &p.JobTitle, &p.Location, &p.Company, &p.SearchSource, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendResult records one connection attempt outcome. Results are
// append-only.
func (s *Store) AppendResult(ctx context.Context, r *models.ConnectionResult) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO connection_results
		(profile_url, success, message_sent, error_class, retry_count, elapsed_ms, used_fallback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProfileURL, boolToInt(r.Success), r.MessageSent, r.ErrorClass, r.RetryCount,
		r.Elapsed.Milliseconds(), boolToInt(r.UsedFallback), created)
	return err
}

func (s *Store) AppendRunSummary(ctx context.Context, rs *models.RunSummary) error {
	created := rs.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO run_summaries
		(run_type, prospects_found, duplicates_found, validation_errors, total_prospects, successful, failed, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rs.RunType, rs.ProspectsFound, rs.DuplicatesFound, rs.ValidationErrors,
		rs.TotalProspects, rs.Successful, rs.Failed, rs.Elapsed.Milliseconds(), created)
	return err
}

// Stats is the aggregate view backing the status command.
type Stats struct {
	Prospects       int
	Pending         int
	RequestsSent    int
	RequestsFailed  int
	SuccessfulToday int
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	queries := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(*) FROM prospects`, &st.Prospects},
		{`SELECT COUNT(*) FROM prospects WHERE profile_url NOT IN (SELECT profile_url FROM connection_results WHERE success = 1)`, &st.Pending},
		{`SELECT COUNT(*) FROM connection_results WHERE success = 1`, &st.RequestsSent},
		{`SELECT COUNT(*) FROM connection_results WHERE success = 0`, &st.RequestsFailed},
		{`SELECT COUNT(*) FROM connection_results WHERE success = 1 AND DATE(created_at) = DATE('now', 'localtime')`, &st.SuccessfulToday},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
