// Package store implements the Record Store (§6.4): persistence for
// Query lifecycle rows, per-query execution logs, the fingerprint
// cache, and Artifact metadata, over either sqlite or postgres behind
// one dialect-aware SQLStore. The dual-dialect, placeholder-switching
// approach is grounded on the teacher's v2/task.SQLTaskStore
// (v2/task/store.go), trimmed to the two drivers this module's go.mod
// actually carries (sqlite, postgres — the teacher's third, mysql, is
// dropped since nothing in this spec needs it).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/polanalyst/workbench/internal/domain"
)

// SQLStore implements query.Store, cache.Store, and artifact.Repository
// over a shared *sql.DB, switching placeholder syntax and upsert clauses
// by dialect.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const (
	createQueriesTable = `
CREATE TABLE IF NOT EXISTS queries (
    query_id VARCHAR(64) PRIMARY KEY,
    query_text TEXT NOT NULL,
    user_session VARCHAR(128) NOT NULL,
    fingerprint VARCHAR(64) NOT NULL,
    status VARCHAR(16) NOT NULL,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    tools_used TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`
	createQueriesFingerprintIdx = `CREATE INDEX IF NOT EXISTS idx_queries_fingerprint ON queries(fingerprint)`

	createExecutionLogTable = `
CREATE TABLE IF NOT EXISTS execution_log (
    query_id VARCHAR(64) NOT NULL,
    step VARCHAR(128) NOT NULL,
    status VARCHAR(16) NOT NULL,
    ts TIMESTAMP NOT NULL,
    details TEXT,
    seq INTEGER NOT NULL
)`
	createExecutionLogIdx = `CREATE INDEX IF NOT EXISTS idx_execution_log_query_id ON execution_log(query_id)`

	createCacheTable = `
CREATE TABLE IF NOT EXISTS query_cache (
    fingerprint VARCHAR(64) PRIMARY KEY,
    response TEXT NOT NULL,
    citations_json TEXT,
    artifact_refs_json TEXT,
    tools_used_json TEXT,
    timings_json TEXT,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    cached_at TIMESTAMP NOT NULL
)`

	createArtifactsTable = `
CREATE TABLE IF NOT EXISTS artifacts (
    artifact_id VARCHAR(16) PRIMARY KEY,
    type VARCHAR(32) NOT NULL,
    title TEXT,
    format_paths_json TEXT NOT NULL,
    metadata_json TEXT,
    created_at TIMESTAMP NOT NULL
)`
)

// Open connects to driver ("sqlite" or "postgres") at dsn, runs the
// schema migration, and returns a ready SQLStore.
func Open(driver, dsn string) (*SQLStore, error) {
	sqlDriver := driver
	if driver == "sqlite" {
		sqlDriver = "sqlite3"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite serializes writers anyway, and a pooled second
		// connection against ":memory:" (or a fresh file handle) would
		// see an empty, unmigrated database: pin the pool to one
		// connection so every caller shares the same schema.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, dialect: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stmts := []string{
		createQueriesTable, createQueriesFingerprintIdx,
		createExecutionLogTable, createExecutionLogIdx,
		createCacheTable, createArtifactsTable,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error { return s.db.Close() }

// DB exposes the underlying connection pool so other components (the
// rate limiter's SQL backend) can share it instead of opening a second
// pool against the same DSN.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the driver name this store was opened with.
func (s *SQLStore) Dialect() string { return s.dialect }

// placeholders returns n positional placeholders in this dialect's
// syntax ("?" for sqlite, "$1 $2 ..." for postgres).
func (s *SQLStore) placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		if s.dialect == "postgres" {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// InsertQuery implements query.Store.
func (s *SQLStore) InsertQuery(ctx context.Context, q domain.Query) error {
	p := s.placeholders(9)
	tools, _ := json.Marshal(q.ToolsUsed)
	query := fmt.Sprintf(`
INSERT INTO queries (query_id, query_text, user_session, fingerprint, status, confidence, tools_used, created_at, updated_at)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`, p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7], p[8])

	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		q.QueryID, q.QueryText, q.UserSession, q.Fingerprint, string(q.Status), q.Confidence, string(tools), now, now)
	if err != nil {
		return fmt.Errorf("store: insert query: %w", err)
	}
	return nil
}

// UpdateQueryStatus implements query.Store.
func (s *SQLStore) UpdateQueryStatus(ctx context.Context, queryID string, status domain.QueryStatus, confidence float64) error {
	p := s.placeholders(4)
	query := fmt.Sprintf(`UPDATE queries SET status = %s, confidence = %s, updated_at = %s WHERE query_id = %s`,
		p[0], p[1], p[2], p[3])
	_, err := s.db.ExecContext(ctx, query, string(status), confidence, time.Now(), queryID)
	if err != nil {
		return fmt.Errorf("store: update query status: %w", err)
	}
	return nil
}

// InsertExecutionLog implements query.Store. Records are appended with
// a monotonic seq so GetExecutionLog can return them in emission order.
func (s *SQLStore) InsertExecutionLog(ctx context.Context, queryID string, records []domain.TraceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert execution log: %w", err)
	}
	defer tx.Rollback()

	p := s.placeholders(6)
	stmt := fmt.Sprintf(`INSERT INTO execution_log (query_id, step, status, ts, details, seq) VALUES (%s, %s, %s, %s, %s, %s)`,
		p[0], p[1], p[2], p[3], p[4], p[5])

	for i, r := range records {
		details, _ := json.Marshal(r.Details)
		if _, err := tx.ExecContext(ctx, stmt, queryID, r.Step, r.Status, r.Timestamp, string(details), i); err != nil {
			return fmt.Errorf("store: insert execution log: %w", err)
		}
	}
	return tx.Commit()
}

// GetExecutionLog returns queryID's trace records in emission order, for
// GET /api/graph/execution/{session_id}.
func (s *SQLStore) GetExecutionLog(ctx context.Context, queryID string) ([]domain.TraceRecord, error) {
	p := s.placeholders(1)
	query := fmt.Sprintf(`SELECT step, status, ts, details FROM execution_log WHERE query_id = %s ORDER BY seq ASC`, p[0])

	rows, err := s.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("store: get execution log: %w", err)
	}
	defer rows.Close()

	var out []domain.TraceRecord
	for rows.Next() {
		var r domain.TraceRecord
		var details string
		if err := rows.Scan(&r.Step, &r.Status, &r.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("store: scan execution log: %w", err)
		}
		if details != "" {
			_ = json.Unmarshal([]byte(details), &r.Details)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CacheGet implements cache.Store.
func (s *SQLStore) CacheGet(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	p := s.placeholders(1)
	query := fmt.Sprintf(`
SELECT fingerprint, response, citations_json, artifact_refs_json, tools_used_json, timings_json, confidence, cached_at
FROM query_cache WHERE fingerprint = %s`, p[0])

	var entry domain.CacheEntry
	var citationsJSON, refsJSON, toolsJSON, timingsJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(
		&entry.Fingerprint, &entry.Response, &citationsJSON, &refsJSON, &toolsJSON, &timingsJSON, &entry.Confidence, &entry.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: cache get: %w", err)
	}

	if citationsJSON.Valid {
		_ = json.Unmarshal([]byte(citationsJSON.String), &entry.Citations)
	}
	if refsJSON.Valid {
		_ = json.Unmarshal([]byte(refsJSON.String), &entry.ArtifactRefs)
	}
	if toolsJSON.Valid {
		_ = json.Unmarshal([]byte(toolsJSON.String), &entry.ToolsUsed)
	}
	if timingsJSON.Valid {
		_ = json.Unmarshal([]byte(timingsJSON.String), &entry.Timings)
	}
	return &entry, nil
}

// CachePut implements cache.Store, upserting keyed by fingerprint.
func (s *SQLStore) CachePut(ctx context.Context, entry domain.CacheEntry) error {
	citations, _ := json.Marshal(entry.Citations)
	refs, _ := json.Marshal(entry.ArtifactRefs)
	tools, _ := json.Marshal(entry.ToolsUsed)
	timings, _ := json.Marshal(entry.Timings)

	var query string
	args := []any{entry.Fingerprint, entry.Response, string(citations), string(refs), string(tools), string(timings), entry.Confidence, entry.CachedAt}

	if s.dialect == "postgres" {
		query = `
INSERT INTO query_cache (fingerprint, response, citations_json, artifact_refs_json, tools_used_json, timings_json, confidence, cached_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (fingerprint) DO UPDATE SET
    response = EXCLUDED.response, citations_json = EXCLUDED.citations_json,
    artifact_refs_json = EXCLUDED.artifact_refs_json, tools_used_json = EXCLUDED.tools_used_json,
    timings_json = EXCLUDED.timings_json, confidence = EXCLUDED.confidence, cached_at = EXCLUDED.cached_at`
	} else {
		query = `
INSERT INTO query_cache (fingerprint, response, citations_json, artifact_refs_json, tools_used_json, timings_json, confidence, cached_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
    response = excluded.response, citations_json = excluded.citations_json,
    artifact_refs_json = excluded.artifact_refs_json, tools_used_json = excluded.tools_used_json,
    timings_json = excluded.timings_json, confidence = excluded.confidence, cached_at = excluded.cached_at`
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: cache put: %w", err)
	}
	return nil
}

// Save implements artifact.Repository, upserting keyed by artifact_id.
func (s *SQLStore) Save(ctx context.Context, a domain.Artifact) error {
	formatPaths, _ := json.Marshal(a.FormatPaths)
	metadata, _ := json.Marshal(a.Metadata)

	var query string
	args := []any{a.ArtifactID, string(a.Type), a.Title, string(formatPaths), string(metadata), a.CreatedAt}

	if s.dialect == "postgres" {
		query = `
INSERT INTO artifacts (artifact_id, type, title, format_paths_json, metadata_json, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (artifact_id) DO UPDATE SET
    type = EXCLUDED.type, title = EXCLUDED.title,
    format_paths_json = EXCLUDED.format_paths_json, metadata_json = EXCLUDED.metadata_json`
	} else {
		query = `
INSERT INTO artifacts (artifact_id, type, title, format_paths_json, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(artifact_id) DO UPDATE SET
    type = excluded.type, title = excluded.title,
    format_paths_json = excluded.format_paths_json, metadata_json = excluded.metadata_json`
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store: save artifact: %w", err)
	}
	return nil
}

// GetArtifact looks up a persisted artifact by ID, for
// GET /api/artifacts/{artifact_id}.{ext}.
func (s *SQLStore) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	p := s.placeholders(1)
	query := fmt.Sprintf(`SELECT artifact_id, type, title, format_paths_json, metadata_json, created_at FROM artifacts WHERE artifact_id = %s`, p[0])

	var a domain.Artifact
	var typ string
	var formatPaths, metadata sql.NullString
	err := s.db.QueryRowContext(ctx, query, artifactID).Scan(&a.ArtifactID, &typ, &a.Title, &formatPaths, &metadata, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get artifact: %w", err)
	}
	a.Type = domain.ArtifactType(typ)
	if formatPaths.Valid {
		_ = json.Unmarshal([]byte(formatPaths.String), &a.FormatPaths)
	}
	if metadata.Valid {
		_ = json.Unmarshal([]byte(metadata.String), &a.Metadata)
	}
	return &a, nil
}
