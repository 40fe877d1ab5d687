package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/foreman-dev/foreman/pkg/types"
)

// SQLite is a Store backed by a SQLite database file. Records are stored as
// JSON documents next to the columns used for ordering and filtering.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY between the engine's
	// timer callbacks.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_status ON builds(status);

	CREATE TABLE IF NOT EXISTS queue (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);

	CREATE TABLE IF NOT EXISTS documents (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (kind, id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveBuild implements Store
func (s *SQLite) SaveBuild(ctx context.Context, rec *types.BuildRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal build: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO builds (id, status, started_at, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		rec.ID, string(rec.State), rec.StartedAt.UnixNano(), string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save build %s: %w", rec.ID, err)
	}
	return nil
}

// LoadBuilds implements Store
func (s *SQLite) LoadBuilds(ctx context.Context) ([]*types.BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM builds ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []*types.BuildRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		var rec types.BuildRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode build: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// SaveQueue implements Store
func (s *SQLite) SaveQueue(ctx context.Context, ops []types.Opportunity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin queue tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	for i, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("marshal opportunity: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue (position, id, data) VALUES (?, ?, ?)`, i, op.ID, string(data)); err != nil {
			return fmt.Errorf("insert queue entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit queue: %w", err)
	}
	return nil
}

// LoadQueue implements Store
func (s *SQLite) LoadQueue(ctx context.Context) ([]types.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var out []types.Opportunity
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		var op types.Opportunity
		if err := json.Unmarshal([]byte(data), &op); err != nil {
			return nil, fmt.Errorf("decode opportunity: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// SaveSession implements Store
func (s *SQLite) SaveSession(ctx context.Context, sess *types.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		sess.ID, sess.StartedAt.UnixNano(), string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// LoadSessions implements Store
func (s *SQLite) LoadSessions(ctx context.Context) ([]*types.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var sess types.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// SaveAgent implements Store
func (s *SQLite) SaveAgent(ctx context.Context, a *types.AgentDefinition) error {
	return s.putDocument(ctx, KindAgent, a.ID, a)
}

// DeleteAgent implements Store
func (s *SQLite) DeleteAgent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND id = ?`, KindAgent, id); err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}

// LoadAgents implements Store
func (s *SQLite) LoadAgents(ctx context.Context) ([]*types.AgentDefinition, error) {
	docs, err := s.documents(ctx, KindAgent)
	if err != nil {
		return nil, err
	}
	return DecodeAll[types.AgentDefinition](KindAgent, docs)
}

// SaveConversation implements Store
func (s *SQLite) SaveConversation(ctx context.Context, c *types.Conversation) error {
	return s.putDocument(ctx, KindConversation, c.ID, c)
}

// LoadConversations implements Store
func (s *SQLite) LoadConversations(ctx context.Context) ([]*types.Conversation, error) {
	docs, err := s.documents(ctx, KindConversation)
	if err != nil {
		return nil, err
	}
	return DecodeAll[types.Conversation](KindConversation, docs)
}

// SaveTeam implements Store
func (s *SQLite) SaveTeam(ctx context.Context, t *types.AgentTeam) error {
	return s.putDocument(ctx, KindTeam, t.ID, t)
}

// LoadTeams implements Store
func (s *SQLite) LoadTeams(ctx context.Context) ([]*types.AgentTeam, error) {
	docs, err := s.documents(ctx, KindTeam)
	if err != nil {
		return nil, err
	}
	return DecodeAll[types.AgentTeam](KindTeam, docs)
}

// SaveConnection implements Store
func (s *SQLite) SaveConnection(ctx context.Context, c *types.IntegrationConnection) error {
	return s.putDocument(ctx, KindConnection, c.ID, c)
}

// LoadConnections implements Store
func (s *SQLite) LoadConnections(ctx context.Context) ([]*types.IntegrationConnection, error) {
	docs, err := s.documents(ctx, KindConnection)
	if err != nil {
		return nil, err
	}
	return DecodeAll[types.IntegrationConnection](KindConnection, docs)
}

// putDocument upserts v. An update keeps the row's rowid, so documents
// load in first-saved order.
func (s *SQLite) putDocument(ctx context.Context, kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (kind, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		kind, id, string(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLite) documents(ctx context.Context, kind string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM documents WHERE kind = ? ORDER BY rowid`, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", kind, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		out = append(out, []byte(data))
	}
	return out, rows.Err()
}

// AppendEvent implements Store
func (s *SQLite) AppendEvent(ctx context.Context, event types.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, type, data, created_at) VALUES (?, ?, ?, ?)`,
		event.ID, event.Type, string(data), event.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Events implements Store
func (s *SQLite) Events(ctx context.Context, limit int) ([]types.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, data, created_at FROM (
			SELECT seq, id, type, data, created_at FROM events ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var (
			e       types.Event
			data    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Type, &data, &created); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Data = json.RawMessage(data)
		e.Timestamp = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close implements Store
func (s *SQLite) Close() error {
	return s.db.Close()
}
