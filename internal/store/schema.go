package store

import (
	"context"
	"fmt"
)

// schema is the logical persistence layout. Applied idempotently at
// startup; this service owns its tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS incident_reports (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		incident_time TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		notified BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS forum_posts (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		anonymous_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		reply_count INTEGER NOT NULL DEFAULT 0,
		is_answered BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS forum_replies (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES forum_posts(id),
		content TEXT NOT NULL,
		officer_id TEXT NOT NULL,
		officer_display_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forum_replies_post_id ON forum_replies(post_id)`,
	`CREATE TABLE IF NOT EXISTS officers (
		badge_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		credential_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'officer'
	)`,
	`CREATE TABLE IF NOT EXISTS audio_archives (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		audio BYTEA NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
