// Package audit records gate decisions in Postgres. Recording is
// best-effort: a failed insert is logged by the caller, never returned
// to the user.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const dbDriver = "postgres"

var schema = `
CREATE TABLE IF NOT EXISTS decision (
	id UUID PRIMARY KEY,
	uid TEXT NOT NULL,
	op TEXT NOT NULL,
	collection TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	allowed BOOLEAN NOT NULL,
	reason TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS decision_uid_created_at ON decision (uid, created_at DESC);`

// Entry is one recorded decision.
type Entry struct {
	ID         string    `db:"id"`
	UID        string    `db:"uid"`
	Op         string    `db:"op"`
	Collection string    `db:"collection"`
	DocID      string    `db:"doc_id"`
	Allowed    bool      `db:"allowed"`
	Reason     string    `db:"reason"`
	CreatedAt  time.Time `db:"created_at"`
}

type Log struct {
	db *sqlx.DB
}

// Open connects to the audit database and ensures the schema exists.
func Open(databaseURL string) (*Log, error) {
	db, err := sqlx.Connect(dbDriver, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts one entry, filling ID and CreatedAt when unset.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO decision (id, uid, op, collection, doc_id, allowed, reason, created_at)
		VALUES (:id, :uid, :op, :collection, :doc_id, :allowed, :reason, :created_at)`, e)
	return err
}

// Recent returns the newest entries for one user.
func (l *Log) Recent(ctx context.Context, uid string, limit int) ([]Entry, error) {
	var entries []Entry
	err := l.db.SelectContext(ctx, &entries, `
		SELECT id, uid, op, collection, doc_id, allowed, reason, created_at
		FROM decision WHERE uid = $1 ORDER BY created_at DESC LIMIT $2`, uid, limit)
	return entries, err
}
