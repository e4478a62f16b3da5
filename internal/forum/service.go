// Package forum implements the community question board: anonymous
// citizen posts and officer-only replies.
package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"community-intake-service/internal/identity"
	"community-intake-service/internal/observability/metrics"
	"community-intake-service/internal/store"
)

var (
	// ErrEmptyContent - the submission has no content after trimming.
	ErrEmptyContent = errors.New("empty content")
	// ErrDuplicateSubmission - an identical post by the same session was
	// accepted within the duplicate window.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrNotAnOfficer - the reply actor is not a verified officer. This
	// is checked before anything else about the reply is looked at.
	ErrNotAnOfficer = errors.New("not an officer")
)

// Session identifies an anonymous browser session. It never appears in
// persisted posts; each accepted post gets a fresh pseudonym instead.
type Session struct {
	ID string
}

// Service mediates all forum writes and reads.
type Service struct {
	store   store.DataStore
	guard   *DuplicateGuard
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewService creates a forum service. window bounds the duplicate
// guard; a non-positive window disables duplicate suppression.
func NewService(st store.DataStore, window time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:   st,
		guard:   NewDuplicateGuard(window),
		log:     log.With().Str("component", "forum").Logger(),
		metrics: metrics.DefaultMetrics,
	}
}

// CreatePost accepts an anonymous question. The persisted post carries
// a pseudonym minted for this submission only; posting twice from the
// same session yields two unrelated pseudonyms.
func (s *Service) CreatePost(ctx context.Context, session Session, content, category string) (*store.ForumPost, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if category == "" {
		category = "general"
	}

	if s.guard.Seen(session.ID, content, category) {
		s.metrics.DuplicateRejections.Inc()
		s.log.Info().
			Str("category", category).
			Msg("duplicate post rejected")
		return nil, ErrDuplicateSubmission
	}

	post := &store.ForumPost{
		Content:           content,
		Category:          category,
		AuthorAnonymousID: "citizen-" + uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
	}

	id, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("%w: create post: %v", store.ErrPersistence, err)
	}
	post.ID = id

	// Recorded only after a successful write so a failed persist never
	// locks the citizen out of retrying.
	s.guard.Record(session.ID, content, category)

	s.metrics.PostsCreated.Inc()
	s.log.Info().
		Int64("postId", id).
		Str("category", category).
		Msg("forum post created")
	return post, nil
}

// CreateReply records an officer's answer to a post. Authorization is
// unconditional: a nil or unverified actor is rejected before postID or
// content is considered.
func (s *Service) CreateReply(ctx context.Context, postID int64, content string, actor *identity.Officer) (*store.ForumReply, error) {
	if !actor.Verified() {
		s.metrics.RepliesUnauthorized.Inc()
		s.log.Warn().
			Int64("postId", postID).
			Msg("reply rejected, actor is not a verified officer")
		return nil, ErrNotAnOfficer
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	reply := &store.ForumReply{
		PostID:             postID,
		Content:            content,
		OfficerID:          actor.BadgeID,
		OfficerDisplayName: actor.DisplayName,
		CreatedAt:          time.Now().UTC(),
	}

	id, err := s.store.CreateReply(ctx, reply)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create reply: %v", store.ErrPersistence, err)
	}
	reply.ID = id

	s.metrics.RepliesCreated.Inc()
	s.log.Info().
		Int64("postId", postID).
		Int64("replyId", id).
		Str("officerId", actor.BadgeID).
		Msg("officer reply created")
	return reply, nil
}

// RecentPosts returns the newest posts, reply counters included.
func (s *Service) RecentPosts(ctx context.Context, limit int) ([]store.ForumPost, error) {
	if limit <= 0 {
		limit = 20
	}
	posts, err := s.store.RecentPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent posts: %v", store.ErrPersistence, err)
	}
	return posts, nil
}

// Replies returns all replies for a post in creation order.
func (s *Service) Replies(ctx context.Context, postID int64) ([]store.ForumReply, error) {
	replies, err := s.store.RepliesForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%w: replies: %v", store.ErrPersistence, err)
	}
	return replies, nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %v", store.ErrPersistence, err)
	}
	return stats, nil
}
