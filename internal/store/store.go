package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// isForeignKeyViolation reports whether err is a Postgres foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Store is the pgx-backed DataStore. Connections are acquired per
// operation from the pool and released immediately; nothing is held
// across a recognition call.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database reachability, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateReport inserts a new incident report and returns its assigned id.
func (s *Store) CreateReport(ctx context.Context, r *IncidentReport) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO incident_reports (title, description, location, incident_time, notified)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`, r.Title, r.Description, r.Location, r.IncidentTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

// MarkReportNotified flips the notified flag after a confirmed delivery.
func (s *Store) MarkReportNotified(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE incident_reports SET notified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark report notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id int64) (*IncidentReport, error) {
	var r IncidentReport
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, location, incident_time, created_at, notified
		FROM incident_reports WHERE id = $1
	`, id).Scan(&r.ID, &r.Title, &r.Description, &r.Location, &r.IncidentTime, &r.CreatedAt, &r.Notified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

// CreatePost inserts a new forum post and returns its assigned id.
func (s *Store) CreatePost(ctx context.Context, p *ForumPost) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO forum_posts (content, category, anonymous_id, reply_count, is_answered)
		VALUES ($1, $2, $3, 0, FALSE)
		RETURNING id
	`, p.Content, p.Category, p.AuthorAnonymousID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (*ForumPost, error) {
	var p ForumPost
	err := s.pool.QueryRow(ctx, `
		SELECT id, content, category, anonymous_id, created_at, reply_count, is_answered
		FROM forum_posts WHERE id = $1
	`, id).Scan(&p.ID, &p.Content, &p.Category, &p.AuthorAnonymousID, &p.CreatedAt, &p.ReplyCount, &p.IsAnswered)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (s *Store) RecentPosts(ctx context.Context, limit int) ([]ForumPost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, category, anonymous_id, created_at, reply_count, is_answered
		FROM forum_posts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []ForumPost
	for rows.Next() {
		var p ForumPost
		if err := rows.Scan(&p.ID, &p.Content, &p.Category, &p.AuthorAnonymousID, &p.CreatedAt, &p.ReplyCount, &p.IsAnswered); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreateReply appends a reply and, in the same transaction, recomputes
// the parent's reply_count from the reply rows. Counting instead of
// incrementing keeps the counter correct under concurrent replies.
func (s *Store) CreateReply(ctx context.Context, r *ForumReply) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO forum_replies (post_id, content, officer_id, officer_display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.PostID, r.Content, r.OfficerID, r.OfficerDisplayName).Scan(&id)
	if err != nil {
		// A reply to a missing post trips the post_id foreign key
		// before the recompute can notice the absent row.
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("post %d: %w", r.PostID, ErrNotFound)
		}
		return 0, fmt.Errorf("insert reply: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE forum_posts
		SET reply_count = (SELECT COUNT(*) FROM forum_replies WHERE post_id = $1),
		    is_answered = TRUE
		WHERE id = $1
	`, r.PostID)
	if err != nil {
		return 0, fmt.Errorf("recompute reply count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("post %d: %w", r.PostID, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reply: %w", err)
	}
	return id, nil
}

func (s *Store) RepliesForPost(ctx context.Context, postID int64) ([]ForumReply, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, content, officer_id, officer_display_name, created_at
		FROM forum_replies
		WHERE post_id = $1
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer rows.Close()

	var replies []ForumReply
	for rows.Next() {
		var r ForumReply
		if err := rows.Scan(&r.ID, &r.PostID, &r.Content, &r.OfficerID, &r.OfficerDisplayName, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

func (s *Store) GetOfficer(ctx context.Context, badgeID string) (*OfficerRecord, error) {
	var o OfficerRecord
	err := s.pool.QueryRow(ctx, `
		SELECT badge_id, display_name, credential_hash, role
		FROM officers WHERE badge_id = $1
	`, badgeID).Scan(&o.BadgeID, &o.DisplayName, &o.CredentialHash, &o.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("officer %s: %w", badgeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get officer: %w", err)
	}
	return &o, nil
}

// UpsertOfficer inserts or refreshes a directory entry. Used for
// seeding the initial account.
func (s *Store) UpsertOfficer(ctx context.Context, o *OfficerRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO officers (badge_id, display_name, credential_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (badge_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    credential_hash = EXCLUDED.credential_hash,
		    role = EXCLUDED.role
	`, o.BadgeID, o.DisplayName, o.CredentialHash, o.Role)
	if err != nil {
		return fmt.Errorf("upsert officer: %w", err)
	}
	return nil
}

func (s *Store) SaveAudioArchive(ctx context.Context, a *AudioArchive) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO audio_archives (session_id, audio, transcript, duration_seconds)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.SessionID, a.Audio, a.Transcript, a.DurationSeconds).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audio archive: %w", err)
	}
	return id, nil
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM incident_reports),
			(SELECT COUNT(*) FROM forum_posts),
			(SELECT COUNT(*) FROM forum_replies),
			(SELECT COUNT(*) FROM incident_reports WHERE created_at::date = now()::date)
	`).Scan(&st.TotalReports, &st.TotalPosts, &st.TotalReplies, &st.ReportsToday)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &st, nil
}
