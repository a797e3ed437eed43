package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/slogutil"
)

const schemaVersion = 1

// timeFormat has a fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store persists runs in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	logger.Debug("History database opened", "path", dbPath)
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			old_path TEXT,
			new_path TEXT,
			old_label TEXT NOT NULL,
			new_label TEXT NOT NULL,
			old_digest TEXT NOT NULL,
			new_digest TEXT NOT NULL,
			rules_version TEXT NOT NULL,
			overall TEXT NOT NULL,
			semver_advice TEXT NOT NULL,
			breaking INTEGER NOT NULL DEFAULT 0,
			warnings INTEGER NOT NULL DEFAULT 0,
			safe INTEGER NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0,
			report TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_overall ON runs(overall);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record inserts run.
func (s *Store) Record(run *Run) error {
	query := `
		INSERT INTO runs (id, created_at, old_path, new_path, old_label, new_label,
			old_digest, new_digest, rules_version, overall, semver_advice,
			breaking, warnings, safe, score, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.Exec(query,
		run.ID,
		run.CreatedAt.UTC().Format(timeFormat),
		nullString(run.OldPath),
		nullString(run.NewPath),
		run.OldLabel,
		run.NewLabel,
		run.OldDigest,
		run.NewDigest,
		run.RulesVersion,
		run.Overall,
		run.SemverAdvice,
		run.Breaking,
		run.Warnings,
		run.Safe,
		run.Score,
		nullString(run.Report),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	s.logger.Debug("Recorded run", "runId", run.ID, "overall", run.Overall)
	return nil
}

const runColumns = `id, created_at, old_path, new_path, old_label, new_label,
	old_digest, new_digest, rules_version, overall, semver_advice,
	breaking, warnings, safe, score, report`

// Get returns the run whose ID is id or starts with id. It returns nil
// when nothing matches and an error when a prefix matches several runs.
func (s *Store) Get(id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	rows, err := s.conn.Query(`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, likePrefix(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, abierrors.New(abierrors.AmbiguousMatch,
			fmt.Sprintf("run ID prefix %q matches several runs", id), nil, nil)
	}
}

// ListOptions filters List.
type ListOptions struct {
	Limit  int
	Offset int
	// Overall keeps only runs with this overall severity when set.
	Overall string
}

// List returns runs newest first, without their reports.
func (s *Store) List(opts ListOptions) ([]*Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	var where string
	args := []interface{}{}
	if opts.Overall != "" {
		where = "WHERE overall = ?"
		args = append(args, strings.ToLower(opts.Overall))
	}
	query := fmt.Sprintf(`SELECT %s FROM runs %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, runColumns, where)
	args = append(args, limit, opts.Offset)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		run.Report = ""
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs older than retention and returns how many were removed.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(timeFormat)
	result, err := s.conn.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var createdAt string
	var oldPath, newPath, report sql.NullString

	err := rows.Scan(
		&run.ID,
		&createdAt,
		&oldPath,
		&newPath,
		&run.OldLabel,
		&run.NewLabel,
		&run.OldDigest,
		&run.NewDigest,
		&run.RulesVersion,
		&run.Overall,
		&run.SemverAdvice,
		&run.Breaking,
		&run.Warnings,
		&run.Safe,
		&run.Score,
		&report,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}
	run.OldPath = oldPath.String
	run.NewPath = newPath.String
	run.Report = report.String
	if t, err := time.Parse(timeFormat, createdAt); err == nil {
		run.CreatedAt = t
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// likePrefix drops LIKE wildcards from a user-supplied ID prefix.
func likePrefix(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
