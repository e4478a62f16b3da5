// Package testutil provides in-memory test doubles shared across
// service tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"community-intake-service/internal/store"
)

// MockStore is a thread-safe in-memory implementation of
// store.DataStore for testing. Like the real store, it serializes
// conflicting writes and recomputes reply counters from reply rows.
type MockStore struct {
	mu sync.Mutex

	Reports  map[int64]*store.IncidentReport
	Posts    map[int64]*store.ForumPost
	Replies  map[int64]*store.ForumReply
	Officers map[string]*store.OfficerRecord
	Archives map[int64]*store.AudioArchive

	nextID int64

	CreateReportErr error
	MarkNotifiedErr error
	CreatePostErr   error
	CreateReplyErr  error
	SaveArchiveErr  error

	CreateReportCalls int
	CreatePostCalls   int
	CreateReplyCalls  int
	SaveArchiveCalls  int
}

func NewMockStore() *MockStore {
	return &MockStore{
		Reports:  make(map[int64]*store.IncidentReport),
		Posts:    make(map[int64]*store.ForumPost),
		Replies:  make(map[int64]*store.ForumReply),
		Officers: make(map[string]*store.OfficerRecord),
		Archives: make(map[int64]*store.AudioArchive),
	}
}

func (m *MockStore) nextIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *MockStore) CreateReport(_ context.Context, r *store.IncidentReport) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateReportCalls++
	if m.CreateReportErr != nil {
		return 0, m.CreateReportErr
	}
	id := m.nextIDLocked()
	cp := *r
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	cp.Notified = false
	m.Reports[id] = &cp
	return id, nil
}

func (m *MockStore) MarkReportNotified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkNotifiedErr != nil {
		return m.MarkNotifiedErr
	}
	r, ok := m.Reports[id]
	if !ok {
		return fmt.Errorf("report %d: %w", id, store.ErrNotFound)
	}
	r.Notified = true
	return nil
}

func (m *MockStore) GetReport(_ context.Context, id int64) (*store.IncidentReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Reports[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, store.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *MockStore) CreatePost(_ context.Context, p *store.ForumPost) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePostCalls++
	if m.CreatePostErr != nil {
		return 0, m.CreatePostErr
	}
	id := m.nextIDLocked()
	cp := *p
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	m.Posts[id] = &cp
	return id, nil
}

func (m *MockStore) GetPost(_ context.Context, id int64) (*store.ForumPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MockStore) RecentPosts(_ context.Context, limit int) ([]store.ForumPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []store.ForumPost
	for _, p := range m.Posts {
		posts = append(posts, *p)
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (m *MockStore) CreateReply(_ context.Context, r *store.ForumReply) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateReplyCalls++
	if m.CreateReplyErr != nil {
		return 0, m.CreateReplyErr
	}
	post, ok := m.Posts[r.PostID]
	if !ok {
		return 0, fmt.Errorf("post %d: %w", r.PostID, store.ErrNotFound)
	}

	id := m.nextIDLocked()
	cp := *r
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	m.Replies[id] = &cp

	// Recompute from rows, as the real store does.
	count := 0
	for _, rep := range m.Replies {
		if rep.PostID == r.PostID {
			count++
		}
	}
	post.ReplyCount = count
	post.IsAnswered = true
	return id, nil
}

func (m *MockStore) RepliesForPost(_ context.Context, postID int64) ([]store.ForumReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var replies []store.ForumReply
	for _, r := range m.Replies {
		if r.PostID == postID {
			replies = append(replies, *r)
		}
	}
	return replies, nil
}

func (m *MockStore) GetOfficer(_ context.Context, badgeID string) (*store.OfficerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Officers[badgeID]
	if !ok {
		return nil, fmt.Errorf("officer %s: %w", badgeID, store.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *MockStore) UpsertOfficer(_ context.Context, o *store.OfficerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.Officers[o.BadgeID] = &cp
	return nil
}

func (m *MockStore) SaveAudioArchive(_ context.Context, a *store.AudioArchive) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveArchiveCalls++
	if m.SaveArchiveErr != nil {
		return 0, m.SaveArchiveErr
	}
	id := m.nextIDLocked()
	cp := *a
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	m.Archives[id] = &cp
	return id, nil
}

func (m *MockStore) Stats(_ context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &store.Stats{
		TotalReports: int64(len(m.Reports)),
		TotalPosts:   int64(len(m.Posts)),
		TotalReplies: int64(len(m.Replies)),
	}, nil
}

func (m *MockStore) Close() {}
